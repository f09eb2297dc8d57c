package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunCommand simulates a workflow and prints its log
func newRunCommand(e *env) *cobra.Command {
	var (
		stepDelay  time.Duration
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Simulate a workflow run",
		Long: `Walk a workflow in dependency order and print the log a run would
produce. Nothing is called: every node reports canned output, condition
and guardrail expressions are evaluated against it. Breakpoints are
reported and passed. Secret references that do not resolve are reported
before the run starts. With the sqlite driver the log is recorded for
'aihub logs'.

Examples:
  aihub run 6f1c...
  aihub run 6f1c... --step-delay 0 --json`,
		Args: cobra.ExactArgs(1),
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

			for _, n := range wf.Nodes {
				if _, err := e.secrets.ResolveConfig(n.Data.Config); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s: %v\n", n.Data.Label, err)
				}
			}

			sim := execution.NewSimulator(
				execution.WithStepDelay(stepDelay),
				execution.WithLogger(e.logger),
			)

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			var entries []execution.LogEntry
			runErr := sim.Run(cmd.Context(), wf, func(entry execution.LogEntry) {
				entries = append(entries, entry)
				if outputJSON {
					_ = enc.Encode(entry)
				} else {
					writeLogEntry(out, entry)
				}
				if entry.Message == execution.MsgPausedAtBreakpoint {
					sim.Resume()
				}
			})

			if rec, ok := st.recorder(); ok {
				if err := rec.AppendLogs(context.WithoutCancel(cmd.Context()), wf.ID, entries); err != nil {
					e.logger.Warn("failed to record run logs", zap.String("workflow", wf.ID.String()), zap.Error(err))
				}
			}

			if runErr != nil {
				return fmt.Errorf("run failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&stepDelay, "step-delay", 100*time.Millisecond, "Pause between nodes")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output entries as JSON lines")
	return cmd
}
