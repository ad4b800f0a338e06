package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/octobees/prospector/internal/tagfilter"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List named categories and their tag filters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, c := range tagfilter.Categories() {
			fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Tags) //nolint:errcheck
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
