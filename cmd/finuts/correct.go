package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tech1ee/finuts/internal/cli"
	"github.com/tech1ee/finuts/internal/learn"
)

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct [merchant] [category-id]",
		Short: "Correct a merchant's category",
		Long: `Record that transactions of this merchant belong to the given
category. After the same correction repeats, finuts learns the mapping
and applies it automatically to future imports.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			merchant, categoryID := args[0], args[1]

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := store.GetCategoryByID(cmd.Context(), categoryID); err != nil {
				return err
			}

			learner := learn.NewLearner(store, store)
			if err := learner.RecordCorrection(cmd.Context(), merchant, categoryID); err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Recorded: %s -> %s", merchant, categoryID)))
			return nil
		},
	}
}
