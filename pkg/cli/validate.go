package cli

import (
	"errors"
	"fmt"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
)

// newValidateCommand checks a workflow document without storing it
func newValidateCommand(e *env) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate a workflow document",
		Long: `Validate a workflow JSON document before importing it.

This checks:
- JSON syntax, required fields and the document schema
- Graph invariants: unique ids, no dangling or duplicate connections, no self loops
- The graph is acyclic, so it can be run
- Config values that look like raw credentials (reported as warnings)

Examples:
  aihub validate triage.json
  aihub export 6f1c... | aihub validate -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

			fail := func(step string, err error) error {
				_, _ = fmt.Fprintf(errOut, "✗ %s\n", step)
				if verbose {
					_, _ = fmt.Fprintf(errOut, "  Error: %v\n", err)
				}
				return err
			}

			wf, err := workflow.Parse(data)
			if err != nil {
				return fail("Document could not be parsed", err)
			}
			_, _ = fmt.Fprintln(out, "✓ Document parsed successfully")

			if err := wf.Validate(); err != nil {
				return fail("Workflow validation failed", err)
			}
			_, _ = fmt.Fprintln(out, "✓ Graph is consistent")

			if _, err := workflow.TopologicalSort(wf); err != nil {
				return fail("Workflow cannot be run", err)
			}
			_, _ = fmt.Fprintln(out, "✓ No cycles")

			warnings := workflow.ScanForCredentials(wf)
			for _, w := range warnings {
				_, _ = fmt.Fprintf(errOut, "⚠ %s: %s (%s)\n", w.Location, w.Message, w.Severity)
			}

			_, _ = fmt.Fprintf(out, "\nWorkflow %q is valid (%d nodes, %d connections)\n", wf.Name, len(wf.Nodes), len(wf.Connections))
			if len(warnings) > 0 {
				return errors.New("document contains values that look like credentials; move them into secrets")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show error details")
	return cmd
}
