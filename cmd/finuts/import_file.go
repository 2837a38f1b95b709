package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tech1ee/finuts/internal/cli"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/ofx"
	"github.com/tech1ee/finuts/internal/pipeline"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [file]",
		Short: "Import transactions from an OFX/QFX export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFileImport(cmd, args[0], func(f *os.File) ([]model.ImportedTransaction, error) {
				return ofx.NewParser().ParseFile(cmd.Context(), f)
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Skip confirmation and save the default selection")
	return cmd
}

func importCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-csv [file]",
		Short: "Import transactions from a bank CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFileImport(cmd, args[0], func(f *os.File) ([]model.ImportedTransaction, error) {
				return ofx.NewCSVParser().ParseFile(cmd.Context(), f)
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Skip confirmation and save the default selection")
	return cmd
}

// runFileImport parses a machine-readable export and pushes it through
// dedup, categorization, and the confirm-then-save handshake. Extraction
// and enhancement are skipped; the file already has exact data.
func runFileImport(cmd *cobra.Command, path string, parse func(*os.File) ([]model.ImportedTransaction, error)) error {
	autoConfirm, _ := cmd.Flags().GetBool("yes")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	txns, err := parse(f)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	deps, _, err := buildPipelineDeps(store)
	if err != nil {
		return err
	}
	orchestrator := pipeline.NewOrchestrator(deps)

	preview, err := orchestrator.ImportParsed(cmd.Context(), txns)
	if err != nil {
		return err
	}

	fmt.Print(cli.RenderPreview(preview))
	if !autoConfirm && !confirmPrompt(len(preview.Transactions)) {
		orchestrator.Cancel()
		fmt.Println("Import cancelled.")
		return nil
	}

	saved, err := orchestrator.Confirm(cmd.Context(), preview, nil)
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderCompletion(saved, len(preview.Transactions)))
	return nil
}
