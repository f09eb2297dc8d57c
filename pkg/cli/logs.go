package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
)

// runLogStore is implemented by repositories that keep run history
type runLogStore interface {
	AppendLogs(ctx context.Context, id workflow.WorkflowID, entries []execution.LogEntry) error
	ListLogs(ctx context.Context, id workflow.WorkflowID, limit int) ([]execution.LogEntry, error)
}

// newLogsCommand shows stored run logs for a workflow
func newLogsCommand(e *env) *cobra.Command {
	var (
		limit  int
		level  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "logs <workflow-id>",
		Short: "Show recorded run logs for a workflow",
		Long: `Show the log entries recorded by 'aihub run' and editor runs.
Run history is kept by the sqlite storage driver only.

Examples:
  aihub logs 6f1c... --limit 50
  aihub logs 6f1c... --level error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			logs, ok := st.recorder()
			if !ok {
				return fmt.Errorf("storage driver %q does not keep run logs (use --storage sqlite)", e.cfg.Storage.Driver)
			}

			entries, err := logs.ListLogs(cmd.Context(), workflow.WorkflowID(args[0]), limit)
			if err != nil {
				return err
			}
			if level != "" {
				entries = filterByLevel(entries, execution.Level(strings.ToLower(level)))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				for _, entry := range entries {
					if err := enc.Encode(entry); err != nil {
						return err
					}
				}
				return nil
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "No run logs recorded")
				return nil
			}
			for _, entry := range entries {
				writeLogEntry(out, entry)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&level, "level", "", "Only show entries of this level (info|success|warning|error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output entries as JSON lines")
	return cmd
}

func filterByLevel(entries []execution.LogEntry, level execution.Level) []execution.LogEntry {
	out := make([]execution.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Level == level {
			out = append(out, entry)
		}
	}
	return out
}

// writeLogEntry prints one entry as "15:04:05 LEVEL    [Node] message"
func writeLogEntry(w io.Writer, entry execution.LogEntry) {
	node := ""
	if entry.NodeName != "" {
		node = "[" + entry.NodeName + "] "
	}
	_, _ = fmt.Fprintf(w, "%s %-8s %s%s\n",
		entry.Timestamp.Local().Format("15:04:05"),
		strings.ToUpper(string(entry.Level)),
		node, entry.Message)
}
