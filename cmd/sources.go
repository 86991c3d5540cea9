package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"compositor/bundle"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the bundled source clips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		catalog := bundle.NewCatalog(cfg.BundleDir, cfg.Sources)

		fmt.Fprintf(out, "Bundle: %s\n", catalog.Dir())
		for _, e := range catalog.Entries() {
			mark := "✓"
			if !e.Exists {
				mark = "✗"
			}
			current := ""
			if e.Name == cfg.Source {
				current = " (selected)"
			}
			fmt.Fprintf(out, "  %s %-12s %s%s\n", mark, e.Name, e.Path, current)
		}
		return nil
	},
}
