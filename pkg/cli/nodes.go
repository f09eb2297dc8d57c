package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dshills/aihub/pkg/registry"
	"github.com/spf13/cobra"
)

// newNodesCommand lists the node types the palette offers
func newNodesCommand(e *env) *cobra.Command {
	var (
		search string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List available node types",
		Long: `List the node types in the palette, grouped by category.
--search filters by label, description or category, ignoring case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := e.reg.Search(search)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(templates)
			}
			if len(templates) == 0 {
				_, _ = fmt.Fprintf(out, "No node types match %q\n", search)
				return nil
			}

			byCategory := make(map[string][]registry.Template)
			for _, t := range templates {
				byCategory[t.Category] = append(byCategory[t.Category], t)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, cat := range e.reg.Categories() {
				group := byCategory[cat.Key]
				if len(group) == 0 {
					continue
				}
				_, _ = fmt.Fprintf(w, "%s\n", cat.Label)
				for _, t := range group {
					_, _ = fmt.Fprintf(w, "  %s %s\t%s\t%s\n", t.Icon, t.Label, t.Key, t.Description)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter node types")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
