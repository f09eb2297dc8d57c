package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
)

// newExportCommand creates the export command
func newExportCommand(e *env) *cobra.Command {
	var (
		outputPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "export <workflow-id>",
		Short: "Export a workflow as JSON or YAML",
		Long: `Export a saved workflow document for sharing or backup.

Node configs should reference secrets as "secret:<name>" rather than carry
raw keys. Values that look like credentials are reported on stderr.

Examples:
  # Export to stdout
  aihub export 6f1c...

  # Export YAML to a file
  aihub export 6f1c... --format yaml -o triage.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "json" && format != "yaml" {
				return fmt.Errorf("invalid format: %s (must be json or yaml)", format)
			}

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			wf, err := st.svc.Get(cmd.Context(), workflow.WorkflowID(args[0]))
			if err != nil {
				return err
			}

			var data []byte
			if format == "yaml" {
				data, err = st.svc.ExportYAML(wf)
			} else {
				data, err = st.svc.Export(wf)
			}
			if err != nil {
				return fmt.Errorf("failed to export workflow: %w", err)
			}

			for _, w := range workflow.ScanForCredentials(wf) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s: %s (%s)\n", w.Location, w.Message, w.Severity)
			}

			if outputPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Workflow exported to: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Document format (json|yaml)")
	return cmd
}
