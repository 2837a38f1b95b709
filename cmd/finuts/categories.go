package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tech1ee/finuts/internal/cli"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category taxonomy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("%d categories", len(categories))))
			for _, c := range categories {
				line := fmt.Sprintf("%-15s %s", c.ID, c.Name)
				if c.Description != "" {
					line += cli.SubtleStyle.Render("  " + c.Description)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
