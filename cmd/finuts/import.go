package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tech1ee/finuts/internal/categorize"
	"github.com/tech1ee/finuts/internal/cli"
	"github.com/tech1ee/finuts/internal/document"
	"github.com/tech1ee/finuts/internal/enhance"
	"github.com/tech1ee/finuts/internal/llm"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/pipeline"
	"github.com/tech1ee/finuts/internal/storage"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a statement, receipt, or invoice document",
		Long: `Import transactions from a PDF document. Documents with a text layer
are parsed locally; scans need an OCR backend. The remote model is used
only for enhancement and only within the configured budget.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("yes", false, "Skip confirmation and save the default selection")
	cmd.Flags().String("account", "", "Account ID to attach to imported transactions")
	cmd.Flags().String("llm-provider", "", "Remote model provider (openai); empty disables enhancement")
	cmd.Flags().Float64("llm-budget-usd", 0.10, "Maximum remote model spend for this import")
	_ = viper.BindPFlag("llm.provider", cmd.Flags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.budget_usd", cmd.Flags().Lookup("llm-budget-usd"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	autoConfirm, _ := cmd.Flags().GetBool("yes")
	accountID, _ := cmd.Flags().GetString("account")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	doc := model.Document{
		Kind: documentKind(args[0]),
		Name: filepath.Base(args[0]),
		Data: data,
	}

	store, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	deps, budget, err := buildPipelineDeps(store)
	if err != nil {
		return err
	}
	orchestrator := pipeline.NewOrchestrator(deps)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr),
	)
	orchestrator.Progress().Subscribe(func(p model.ImportProgress) {
		bar.Describe(p.String())
		_ = bar.Add(1)
	})

	preview, err := orchestrator.Import(cmd.Context(), doc, accountID)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Print(cli.RenderPreview(preview))
	if budget != nil && budget.SpentUSD() > 0 {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("Remote model spend: $%.4f", budget.SpentUSD())))
	}

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

// documentKind guesses the decode path from the file extension. Unknown
// extensions are treated as PDF, the dominant statement format.
func documentKind(path string) model.DocumentKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return model.KindText
	case ".png", ".jpg", ".jpeg", ".webp":
		return model.KindImage
	default:
		return model.KindPDF
	}
}

// buildPipelineDeps assembles the import pipeline over the given store.
// The remote tiers appear only when a provider is configured.
func buildPipelineDeps(store *storage.SQLiteStorage) (pipeline.Deps, *llm.BudgetTracker, error) {
	deps := pipeline.Deps{
		Text:       document.NewPDFExtractor(),
		Ledger:     store,
		Categories: store,
	}

	db, err := categorize.NewMerchantDB()
	if err != nil {
		return deps, nil, err
	}

	provider := viper.GetString("llm.provider")
	if provider == "" {
		deps.Cascade = categorize.NewCascade(store, db, nil, nil)
		return deps, nil, nil
	}

	client, err := llm.NewClient(llm.Config{
		Provider: provider,
		APIKey:   viper.GetString("llm.api_key"),
		Model:    viper.GetString("llm.model"),
	})
	if err != nil {
		return deps, nil, err
	}
	guarded := llm.NewBreakerClient(client)
	budget := llm.NewBudgetTracker(viper.GetFloat64("llm.budget_usd"))

	deps.Enhancer = enhance.NewEnhancer(guarded, budget)
	deps.DocParser = enhance.NewDocumentParser(guarded, budget)
	deps.Cascade = categorize.NewCascade(store, db, nil, categorize.NewLLMTier(guarded, budget))
	return deps, budget, nil
}

func openStorage(cmd *cobra.Command) (*storage.SQLiteStorage, error) {
	path, err := databasePath()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func confirmPrompt(count int) bool {
	fmt.Printf("Save %d transactions? [y/N] ", count)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
