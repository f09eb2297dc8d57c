package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/aihub/pkg/service"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/dshills/goterm"
	"go.uber.org/zap"
)

// Pane identifies one of the editor regions
type Pane int

const (
	PanePalette Pane = iota
	PaneCanvas
	PaneProperties
	PaneLog
)

var paneNames = []string{"Nodes", "Canvas", "Properties", "Log"}

func (p Pane) String() string {
	if int(p) < len(paneNames) {
		return paneNames[p]
	}
	return "?"
}

// Layout sizes
const (
	paletteWidth    = 28
	propertiesWidth = 36
	logHeight       = 8
	zoomStep        = 1.2
)

// RunRecorder stores the entries of a finished run
type RunRecorder interface {
	AppendLogs(ctx context.Context, id workflow.WorkflowID, entries []execution.LogEntry) error
}

// EditorOption configures an Editor
type EditorOption func(*Editor)

// WithRunRecorder persists every run's log
func WithRunRecorder(r RunRecorder) EditorOption {
	return func(e *Editor) { e.recorder = r }
}

// WithEditorLogger sets the diagnostic logger
func WithEditorLogger(logger *zap.Logger) EditorOption {
	return func(e *Editor) { e.logger = logger }
}

// Editor ties the palette, canvas, properties panel and execution log
// together around one workflow. It is driven from a single goroutine.
type Editor struct {
	reg      *registry.Registry
	svc      *service.WorkflowService
	sim      *execution.Simulator
	recorder RunRecorder
	logger   *zap.Logger

	palette *NodePalette
	canvas  *Canvas
	panel   *PropertyPanel
	log     *ExecutionPanel
	help    *HelpPanel
	undo    *UndoStack

	focus       Pane
	searching   bool
	connectFrom workflow.NodeID
	dirty       bool
	status      string
	quit        bool

	width, height int
	paletteRect   Rect
	canvasRect    Rect
	panelRect     Rect
	logRect       Rect

	stream    *execution.LogStream
	logs      <-chan execution.LogEntry
	runDone   chan error
	runCancel context.CancelFunc
}

// NewEditor creates an editor for wf
func NewEditor(wf *workflow.Workflow, reg *registry.Registry, svc *service.WorkflowService, sim *execution.Simulator, opts ...EditorOption) *Editor {
	e := &Editor{
		reg:     reg,
		svc:     svc,
		sim:     sim,
		logger:  zap.NewNop(),
		palette: NewNodePalette(reg),
		canvas:  NewCanvas(wf),
		help:    NewHelpPanel(),
		undo:    NewUndoStack(100),
		focus:   PaneCanvas,
		runDone: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stream = execution.NewLogStream(execution.WithStreamLogger(e.logger))
	e.logs = e.stream.Subscribe()

	e.panel = NewPropertyPanel(e.updateNode, func(id workflow.ConnectionID) {
		e.canvas.DeleteConnection(id)
	})
	e.log = NewExecutionPanel(e.StopRun)

	e.palette.OnDragStart(e.canvas.StartTemplateDrag)
	e.canvas.OnSelect(func(n *workflow.Node) {
		e.panel.ClearError()
		wf := e.canvas.Workflow()
		e.panel.SetNode(n, wf.Connections, wf.Nodes)
	})
	e.canvas.OnChange(e.graphChanged)

	e.undo.Reset(wf)
	return e
}

// Workflow returns the graph being edited
func (e *Editor) Workflow() *workflow.Workflow {
	return e.canvas.Workflow()
}

// Canvas returns the canvas
func (e *Editor) Canvas() *Canvas { return e.canvas }

// Palette returns the node palette
func (e *Editor) Palette() *NodePalette { return e.palette }

// Panel returns the properties panel
func (e *Editor) Panel() *PropertyPanel { return e.panel }

// Log returns the execution panel
func (e *Editor) Log() *ExecutionPanel { return e.log }

// Focus returns the focused pane
func (e *Editor) Focus() Pane { return e.focus }

// Dirty reports unsaved edits
func (e *Editor) Dirty() bool { return e.dirty }

// Status returns the status line message
func (e *Editor) Status() string { return e.status }

// Quit reports whether the user asked to leave
func (e *Editor) Quit() bool { return e.quit }

// Logs delivers entries of the run in progress. A reader that falls more
// than execution.SubscriberBuffer entries behind loses the overflow.
func (e *Editor) Logs() <-chan execution.LogEntry { return e.logs }

// RunDone receives the result of each finished run
func (e *Editor) RunDone() <-chan error { return e.runDone }

func (e *Editor) setStatus(format string, args ...any) {
	e.status = fmt.Sprintf(format, args...)
}

// updateNode commits a properties panel edit
func (e *Editor) updateNode(id workflow.NodeID, data workflow.NodeData) {
	if err := e.canvas.Workflow().UpdateNodeData(id, data); err != nil {
		e.logger.Warn("node update rejected", zap.String("node_id", string(id)), zap.Error(err))
		return
	}
	e.graphChanged()
}

// graphChanged records an undo snapshot and refreshes the panel
func (e *Editor) graphChanged() {
	e.dirty = true
	_ = e.undo.Push(e.canvas.Workflow())
	e.refreshPanel()
}

func (e *Editor) refreshPanel() {
	wf := e.canvas.Workflow()
	e.panel.SetNode(e.canvas.Selected(), wf.Connections, wf.Nodes)
}

// replaceWorkflow swaps in a new graph, keeping the selection when the node survives
func (e *Editor) replaceWorkflow(wf *workflow.Workflow) {
	e.canvas.SetWorkflow(wf)
	e.connectFrom = ""
	e.refreshPanel()
}

// Undo restores the previous graph state
func (e *Editor) Undo() bool {
	wf, err := e.undo.Undo()
	if err != nil {
		e.setStatus("Nothing to undo")
		return false
	}
	e.replaceWorkflow(wf)
	e.dirty = true
	return true
}

// Redo re-applies an undone edit
func (e *Editor) Redo() bool {
	wf, err := e.undo.Redo()
	if err != nil {
		e.setStatus("Nothing to redo")
		return false
	}
	e.replaceWorkflow(wf)
	e.dirty = true
	return true
}

// Save persists the graph through the service
func (e *Editor) Save(ctx context.Context) error {
	wf := e.canvas.Workflow()
	if err := e.svc.Save(ctx, wf); err != nil {
		e.setStatus("Save failed: %v", err)
		e.logger.Error("save failed", zap.String("workflow_id", string(wf.ID)), zap.Error(err))
		return err
	}
	e.dirty = false
	e.setStatus("Saved %q", wf.Name)
	return nil
}

// Reload replaces the graph with the stored copy when id is the one being
// edited. Unsaved local edits are lost; the latest write wins.
func (e *Editor) Reload(ctx context.Context, id workflow.WorkflowID) error {
	if id != e.canvas.Workflow().ID {
		return nil
	}
	wf, err := e.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, workflow.ErrWorkflowNotFound) {
			e.setStatus("Workflow was deleted elsewhere")
			return nil
		}
		return err
	}
	e.replaceWorkflow(wf)
	e.undo.Reset(wf)
	e.dirty = false
	e.setStatus("Reloaded: changed elsewhere")
	return nil
}

// StartRun simulates a snapshot of the graph in the background. Entries
// arrive on Logs and the result on RunDone. Only one run is live at a time,
// even when the log was cleared under it.
func (e *Editor) StartRun(ctx context.Context) {
	if e.Running() {
		e.setStatus("Run already in progress")
		return
	}
	e.log.Clear()
	e.log.SetExecuting(true)
	e.setStatus("Running")

	runCtx, cancel := context.WithCancel(ctx)
	e.runCancel = cancel
	wf := e.canvas.Workflow().Clone()

	go func() {
		defer cancel()
		var collected []execution.LogEntry
		err := e.sim.Run(runCtx, wf, func(entry execution.LogEntry) {
			collected = append(collected, entry)
			e.stream.Emit(entry)
		})
		if e.recorder != nil && len(collected) > 0 {
			if rerr := e.recorder.AppendLogs(ctx, wf.ID, collected); rerr != nil {
				e.logger.Warn("failed to record run", zap.Error(rerr))
			}
		}
		e.runDone <- err
	}()
}

// Running reports whether a run has started and not yet finished
func (e *Editor) Running() bool {
	return e.runCancel != nil
}

// StopRun cancels the run in progress
func (e *Editor) StopRun() {
	if e.runCancel != nil {
		e.runCancel()
	}
}

// AppendLog shows one entry from the run
func (e *Editor) AppendLog(entry execution.LogEntry) {
	e.log.Append(entry)
}

// FinishRun clears the running state once the simulator returns
func (e *Editor) FinishRun(err error) {
	e.log.SetExecuting(false)
	e.runCancel = nil
	switch {
	case err == nil:
		e.setStatus("Run finished")
	case errors.Is(err, context.Canceled):
		e.setStatus("Run stopped")
	default:
		e.setStatus("Run failed: %v", err)
	}
}

// Close stops any run and the log stream
func (e *Editor) Close() {
	e.StopRun()
	e.stream.Close()
}

// Resize recomputes the pane rectangles
func (e *Editor) Resize(width, height int) {
	e.width, e.height = width, height
	body := max(height-1-logHeight, 3)
	pw := min(paletteWidth, width/3)
	rw := min(propertiesWidth, width/3)

	e.paletteRect = Rect{X: 0, Y: 0, Width: pw, Height: body}
	e.panelRect = Rect{X: width - rw, Y: 0, Width: rw, Height: body}
	e.canvasRect = Rect{X: pw, Y: 0, Width: max(width-pw-rw, 0), Height: body}
	e.logRect = Rect{X: 0, Y: body, Width: width, Height: max(height-1-body, 0)}
}

// canvasClient converts a screen cell to canvas client coordinates
func (e *Editor) canvasClient(x, y int) Point {
	inner := e.canvasRect.Inner()
	return Point{X: float64(x - inner.X), Y: float64(y - inner.Y)}
}

func (e *Editor) canvasCenter() Point {
	inner := e.canvasRect.Inner()
	return Point{X: float64(inner.Width) / 2, Y: float64(inner.Height) / 2}
}

// HandleMouse routes a mouse report to the pane under it
func (e *Editor) HandleMouse(ev MouseEvent) {
	client := e.canvasClient(ev.X, ev.Y)
	overCanvas := e.canvasRect.Inner().Contains(ev.X, ev.Y)

	switch ev.Action {
	case MouseWheelUp, MouseWheelDown:
		e.handleWheel(ev, client)

	case MousePress:
		if ev.Button != 0 {
			return
		}
		switch {
		case e.paletteRect.Contains(ev.X, ev.Y):
			e.focus = PanePalette
			line := ev.Y - e.paletteRect.Inner().Y - paletteHeaderLines
			if t, ok := e.palette.Press(line); ok {
				e.setStatus("Drop %s on the canvas", t.Label)
			}
		case e.canvasRect.Contains(ev.X, ev.Y):
			e.focus = PaneCanvas
			if e.connectFrom != "" {
				e.finishKeyboardConnect(e.canvas.HitTest(client).NodeID)
				return
			}
			e.canvas.PointerDown(PointerEvent{X: client.X, Y: client.Y})
		case e.panelRect.Contains(ev.X, ev.Y):
			e.focus = PaneProperties
			e.pressPanelTab(ev.X, ev.Y)
		case e.logRect.Contains(ev.X, ev.Y):
			e.focus = PaneLog
		}

	case MouseMotion:
		if e.canvas.DraggingTemplate() || e.canvas.Gesture() != GestureIdle {
			e.canvas.PointerMove(PointerEvent{X: client.X, Y: client.Y})
		}

	case MouseRelease:
		if e.canvas.DraggingTemplate() {
			e.palette.EndDrag()
			if !overCanvas {
				e.canvas.CancelTemplateDrag()
				e.setStatus("")
				return
			}
			e.focus = PaneCanvas
			e.canvas.PointerUp(PointerEvent{X: client.X, Y: client.Y})
			e.setStatus("")
			return
		}
		if e.canvas.Gesture() != GestureIdle {
			e.canvas.PointerUp(PointerEvent{X: client.X, Y: client.Y})
		}
	}
}

func (e *Editor) handleWheel(ev MouseEvent, client Point) {
	up := ev.Action == MouseWheelUp
	switch {
	case e.canvasRect.Contains(ev.X, ev.Y):
		if up {
			e.canvas.ZoomBy(zoomStep, client)
		} else {
			e.canvas.ZoomBy(1/zoomStep, client)
		}
	case e.paletteRect.Contains(ev.X, ev.Y):
		if up {
			e.palette.Previous()
		} else {
			e.palette.Next()
		}
	case e.logRect.Contains(ev.X, ev.Y):
		if up {
			e.log.ScrollBy(-1)
		} else {
			e.log.ScrollBy(1)
		}
	}
}

// pressPanelTab switches tabs when the tab strip is clicked
func (e *Editor) pressPanelTab(x, y int) {
	inner := e.panelRect.Inner()
	if y != inner.Y {
		return
	}
	col := inner.X
	for i, name := range tabNames {
		width := len(name) + 2
		if x >= col && x < col+width {
			e.panel.SetTab(PanelTab(i))
			return
		}
		col += width + 1
	}
}

// HandleKey routes a key press. Overlays and text inputs see keys first.
func (e *Editor) HandleKey(ctx context.Context, ev KeyEvent) {
	if e.help.IsVisible() {
		switch {
		case ev.isRune('?'), ev.isSpecial("Escape"), ev.isRune('q'):
			e.help.Hide()
		case ev.isSpecial("Up"), ev.isRune('k'):
			e.help.Scroll(-1)
		case ev.isSpecial("Down"), ev.isRune('j'):
			e.help.Scroll(1)
		}
		return
	}
	if e.searching {
		e.handleSearchKey(ev)
		return
	}
	if e.focus == PaneProperties && e.panel.Editing() {
		e.panel.HandleKey(ev)
		return
	}

	switch {
	case ev.isCtrl('c'), ev.isRune('q'):
		e.StopRun()
		e.quit = true
		return
	case ev.isCtrl('s'):
		_ = e.Save(ctx)
		return
	case ev.isRune('?'):
		e.help.Toggle()
		return
	case ev.isSpecial("Tab"):
		step := 1
		if ev.Shift {
			step = len(paneNames) - 1
		}
		e.focus = Pane((int(e.focus) + step) % len(paneNames))
		return
	case ev.isRune('r'):
		e.StartRun(ctx)
		return
	case ev.isRune('x'):
		e.StopRun()
		return
	case ev.isRune('g'):
		e.sim.Resume()
		return
	case ev.isSpecial("Escape"):
		e.connectFrom = ""
		e.canvas.CancelTemplateDrag()
		e.palette.EndDrag()
		e.setStatus("")
		return
	}

	switch e.focus {
	case PanePalette:
		e.handlePaletteKey(ev)
	case PaneCanvas:
		e.handleCanvasKey(ev)
	case PaneProperties:
		e.panel.HandleKey(ev)
	case PaneLog:
		e.handleLogKey(ev)
	}
}

func (e *Editor) handleSearchKey(ev KeyEvent) {
	q := []rune(e.palette.Search())
	switch {
	case ev.isSpecial("Enter"), ev.isSpecial("Escape"):
		e.searching = false
	case ev.isSpecial("Backspace"):
		if len(q) > 0 {
			e.palette.SetSearch(string(q[:len(q)-1]))
		}
	case !ev.IsSpecial && !ev.Ctrl && ev.Key >= ' ':
		e.palette.SetSearch(string(append(q, ev.Key)))
	}
}

func (e *Editor) handlePaletteKey(ev KeyEvent) {
	switch {
	case ev.isRune('/'):
		e.searching = true
	case ev.isRune('j'), ev.isSpecial("Down"):
		e.palette.Next()
	case ev.isRune('k'), ev.isSpecial("Up"):
		e.palette.Previous()
	case ev.isSpecial("Enter"), ev.isRune('a'):
		t, ok := e.palette.Selected()
		if !ok {
			if ev.isSpecial("Enter") {
				e.palette.Activate()
			}
			return
		}
		if n := e.canvas.AddRecommended(t); n != nil {
			e.canvas.Select(n.ID)
			e.setStatus("Added %s", t.Label)
		}
	}
}

func (e *Editor) handleCanvasKey(ev KeyEvent) {
	switch {
	case ev.isSpecial("Left"):
		e.canvas.PanBy(4, 0)
	case ev.isSpecial("Right"):
		e.canvas.PanBy(-4, 0)
	case ev.isSpecial("Up"):
		e.canvas.PanBy(0, 2)
	case ev.isSpecial("Down"):
		e.canvas.PanBy(0, -2)
	case ev.isRune('h'):
		e.canvas.NudgeSelected(-2, 0)
	case ev.isRune('l'):
		e.canvas.NudgeSelected(2, 0)
	case ev.isRune('k'):
		e.canvas.NudgeSelected(0, -1)
	case ev.isRune('j'):
		e.canvas.NudgeSelected(0, 1)
	case ev.isRune('n'):
		e.canvas.SelectNext(1)
		e.maybeFinishConnect()
	case ev.isRune('N'):
		e.canvas.SelectNext(-1)
		e.maybeFinishConnect()
	case ev.isRune('d'), ev.isSpecial("Delete"):
		e.canvas.DeleteSelected()
	case ev.isRune('c'):
		e.startKeyboardConnect()
	case ev.isRune('+'), ev.isRune('='):
		e.canvas.ZoomBy(zoomStep, e.canvasCenter())
	case ev.isRune('-'):
		e.canvas.ZoomBy(1/zoomStep, e.canvasCenter())
	case ev.isRune('0'):
		e.canvas.ResetView()
	case ev.isRune('f'):
		inner := e.canvasRect.Inner()
		e.canvas.FitAll(inner.Width, inner.Height)
	case ev.isRune('L'):
		e.canvas.AutoLayout()
	case ev.isRune('b'):
		_ = e.panel.ToggleBreakpoint()
	case ev.isRune('u'):
		e.Undo()
	case ev.isCtrl('r'):
		e.Redo()
	}
}

// startKeyboardConnect remembers the selected node as a connection source.
// Pressed again, it connects the source to the node now selected.
func (e *Editor) startKeyboardConnect() {
	n := e.canvas.Selected()
	if n == nil {
		e.setStatus("Select a node to connect from")
		return
	}
	if e.connectFrom != "" {
		e.finishKeyboardConnect(n.ID)
		return
	}
	e.connectFrom = n.ID
	e.setStatus("Connect %s to… (n/N or click the target)", n.Data.Label)
}

// maybeFinishConnect prompts for confirmation while a keyboard connection is pending
func (e *Editor) maybeFinishConnect() {
	if e.connectFrom != "" {
		if n := e.canvas.Selected(); n != nil {
			e.setStatus("Connect to %s? press c", n.Data.Label)
		}
	}
}

func (e *Editor) finishKeyboardConnect(target workflow.NodeID) {
	source := e.connectFrom
	e.connectFrom = ""
	if target == "" {
		e.setStatus("")
		return
	}
	if _, ok := e.canvas.Connect(source, target); ok {
		e.setStatus("Connected")
	} else {
		e.setStatus("Connection not added")
	}
	e.canvas.Select(target)
}

func (e *Editor) handleLogKey(ev KeyEvent) {
	switch {
	case ev.isRune('F'):
		e.log.CycleFilter()
	case ev.isRune('C'):
		e.log.Clear()
	case ev.isRune('k'), ev.isSpecial("Up"):
		e.log.ScrollBy(-1)
	case ev.isRune('j'), ev.isSpecial("Down"):
		e.log.ScrollBy(1)
	}
}

// Render draws every pane and the status line
func (e *Editor) Render(screen ScreenInterface) {
	w, h := screen.Size()
	if w != e.width || h != e.height {
		e.Resize(w, h)
	}

	e.palette.Render(screen, e.paletteRect, e.focus == PanePalette)
	e.canvas.Render(screen, e.canvasRect, e.focus == PaneCanvas)
	if e.panel.Visible() {
		e.panel.Render(screen, e.panelRect, e.focus == PaneProperties)
	} else {
		drawBox(screen, e.panelRect, "Properties", e.focus == PaneProperties)
		inner := e.panelRect.Inner()
		drawText(screen, inner.X, inner.Y, truncate("Select a node", inner.Width), currentTheme.Dim, currentTheme.Background, goterm.StyleNone)
	}
	e.log.Render(screen, e.logRect, e.focus == PaneLog)
	e.renderStatus(screen)
	e.help.Render(screen)
}

func (e *Editor) renderStatus(screen ScreenInterface) {
	theme := currentTheme
	y := e.height - 1
	fillRow(screen, 0, y, e.width, theme.Highlight)

	name := e.canvas.Workflow().Name
	if e.dirty {
		name += " *"
	}
	drawText(screen, 1, y, name, theme.Text, theme.Highlight, goterm.StyleBold)
	if e.status != "" {
		drawText(screen, len([]rune(name))+3, y, truncate(e.status, e.width/2), theme.Dim, theme.Highlight, goterm.StyleNone)
	}

	right := fmt.Sprintf("%s  ? help", e.focus)
	if e.searching {
		right = "search: Enter to finish"
	}
	drawText(screen, e.width-len(right)-1, y, right, theme.Dim, theme.Highlight, goterm.StyleNone)
}
