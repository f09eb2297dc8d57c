package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
)

// newWorkflowsCommand creates the workflows command group
func newWorkflowsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflows",
		Aliases: []string{"wf"},
		Short:   "Manage saved workflows",
	}

	cmd.AddCommand(newWorkflowsListCommand(e))
	cmd.AddCommand(newWorkflowsShowCommand(e))
	cmd.AddCommand(newWorkflowsDeleteCommand(e))
	cmd.AddCommand(newWorkflowsDuplicateCommand(e))

	return cmd
}

func newWorkflowsListCommand(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			wfs, err := st.svc.GetAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list workflows: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(wfs)
			}
			if len(wfs) == 0 {
				_, _ = fmt.Fprintln(out, "No workflows saved. Create one with: aihub new <name>")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tNODES\tCONNECTIONS\tUPDATED")
			for _, wf := range wfs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					wf.ID, wf.Name, len(wf.Nodes), len(wf.Connections),
					wf.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newWorkflowsShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workflow-id>",
		Short: "Show a workflow's nodes, connections and validation status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			wf, err := st.svc.Get(cmd.Context(), workflow.WorkflowID(args[0]))
			if err != nil {
				return err
			}
			printWorkflow(cmd, wf)
			return nil
		},
	}
}

func printWorkflow(cmd *cobra.Command, wf *workflow.Workflow) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Workflow: %s\n", wf.Name)
	_, _ = fmt.Fprintf(out, "ID:       %s\n", wf.ID)
	if wf.Description != "" {
		_, _ = fmt.Fprintf(out, "About:    %s\n", wf.Description)
	}
	if len(wf.Tags) > 0 {
		_, _ = fmt.Fprintf(out, "Tags:     %s\n", strings.Join(wf.Tags, ", "))
	}
	_, _ = fmt.Fprintf(out, "Updated:  %s\n\n", wf.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	labels := make(map[workflow.NodeID]string, len(wf.Nodes))
	_, _ = fmt.Fprintf(out, "Nodes (%d):\n", len(wf.Nodes))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, n := range wf.Nodes {
		labels[n.ID] = n.Data.Label
		marker := ""
		if n.Data.Breakpoint {
			marker = " ●"
		}
		_, _ = fmt.Fprintf(w, "  %s %s%s\t%s\t(%.0f, %.0f)\n", n.Data.Icon, n.Data.Label, marker, n.Type, n.Position.X, n.Position.Y)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nConnections (%d):\n", len(wf.Connections))
	for _, c := range wf.Connections {
		_, _ = fmt.Fprintf(out, "  %s → %s\n", labels[c.Source], labels[c.Target])
	}

	_, _ = fmt.Fprintln(out)
	if err := wf.Validate(); err != nil {
		_, _ = fmt.Fprintf(out, "✗ Invalid: %v\n", err)
	} else if _, err := workflow.TopologicalSort(wf); err != nil {
		_, _ = fmt.Fprintf(out, "⚠ Not runnable: %v\n", err)
	} else {
		_, _ = fmt.Fprintln(out, "✓ Valid")
	}
}

func newWorkflowsDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workflow-id>",
		Short: "Delete a saved workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			if err := st.svc.Delete(cmd.Context(), workflow.WorkflowID(args[0])); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Workflow %s deleted\n", args[0])
			return nil
		},
	}
}

func newWorkflowsDuplicateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <workflow-id>",
		Short: "Copy a workflow under a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			dup, err := st.svc.Duplicate(cmd.Context(), workflow.WorkflowID(args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %q (%s)\n", dup.Name, dup.ID)
			return nil
		},
	}
}
