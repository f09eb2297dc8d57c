package cli

import (
	"fmt"

	"github.com/dshills/aihub/pkg/validation"
	"github.com/spf13/cobra"
)

// newNewCommand creates the new command
func newNewCommand(e *env) *cobra.Command {
	var (
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty workflow",
		Long: `Create and save an empty workflow. Open it on the canvas with
'aihub edit <id>' to add nodes.

Examples:
  aihub new "Support Triage"
  aihub new "RAG Answerer" --description "Answers from the docs index" --tag rag --tag docs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, tag := range tags {
				if err := validation.ValidateIdentifier("tag", tag); err != nil {
					return err
				}
			}

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			wf, err := st.svc.Create(cmd.Context(), args[0], description, tags)
			if err != nil {
				return fmt.Errorf("failed to create workflow: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created workflow %q\n  ID: %s\n\nNext: aihub edit %s\n", wf.Name, wf.ID, wf.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Workflow description")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	return cmd
}
