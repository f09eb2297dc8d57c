package cli

import (
	"fmt"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/aihub/pkg/tui"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newEditCommand opens the terminal canvas
func newEditCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [workflow-id]",
		Short: "Edit a workflow on the terminal canvas",
		Long: `Open the Laboratory editor: node palette on the left, canvas in the
middle, properties on the right and the execution log at the bottom.

Drag node types from the palette onto the canvas, drag from a node's
right edge to another node's left edge to connect them, and press r to
simulate a run. Ctrl-s saves. Press ? inside the editor for all keys.

Without an id a new, unsaved workflow is opened.

Logs go to the file set by log.file (default <config-dir>/logs/aihub.log).

Examples:
  aihub edit
  aihub edit 6f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The screen owns stdout; log to the rotated file only.
			logger := newLogger(e.cfg.Log, nil, e.cfg.LogFilePath())
			defer func() { _ = logger.Sync() }()

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			var wf *workflow.Workflow
			if len(args) > 0 {
				wf, err = st.svc.Get(cmd.Context(), workflow.WorkflowID(args[0]))
				if err != nil {
					return err
				}
			} else {
				wf, err = workflow.NewWorkflow("Untitled Workflow", "")
				if err != nil {
					return err
				}
			}

			opts := []tui.EditorOption{tui.WithEditorLogger(logger)}
			if rec, ok := st.recorder(); ok {
				opts = append(opts, tui.WithRunRecorder(rec))
			}
			sim := execution.NewSimulator(execution.WithLogger(logger))
			editor := tui.NewEditor(wf, e.reg, st.svc, sim, opts...)
			defer editor.Close()

			app, err := tui.NewApp(editor, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize TUI: %w", err)
			}

			logger.Info("editor started", zap.String("workflow", wf.ID.String()))
			runErr := app.Run(cmd.Context())
			if err := app.Close(); err != nil {
				logger.Warn("failed to restore terminal", zap.Error(err))
			}
			if runErr != nil {
				return fmt.Errorf("TUI error: %w", runErr)
			}

			if editor.Dirty() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Workflow %q closed with unsaved changes\n", editor.Workflow().Name)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Workflow %q editing session completed\n", editor.Workflow().Name)
			}
			return nil
		},
	}

	return cmd
}
