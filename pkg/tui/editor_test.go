package tui

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/aihub/pkg/service"
	"github.com/dshills/aihub/pkg/storage"
	"github.com/dshills/aihub/pkg/workflow"
	"go.uber.org/zap"
)

type recordedRun struct {
	id      workflow.WorkflowID
	entries []execution.LogEntry
}

type fakeRecorder struct {
	runs []recordedRun
}

func (r *fakeRecorder) AppendLogs(_ context.Context, id workflow.WorkflowID, entries []execution.LogEntry) error {
	r.runs = append(r.runs, recordedRun{id: id, entries: entries})
	return nil
}

func newTestEditor(t *testing.T, wf *workflow.Workflow, opts ...EditorOption) (*Editor, *service.WorkflowService) {
	t.Helper()
	svc := service.New(storage.NewMemoryRepository(), zap.NewNop())
	sim := execution.NewSimulator(execution.WithStepDelay(0))
	e := NewEditor(wf, registry.Default(), svc, sim, opts...)
	e.Resize(120, 40)
	t.Cleanup(e.Close)
	return e, svc
}

func key(r rune) KeyEvent { return KeyEvent{Key: r} }

func special(name string) KeyEvent { return KeyEvent{IsSpecial: true, Special: name} }

func TestEditor_DragFromPaletteDropsOnCanvas(t *testing.T) {
	wf := newTestWorkflow(t)
	e, _ := newTestEditor(t, wf)

	// Palette body starts two rows down; row 1 is the Webhook template
	e.HandleMouse(MouseEvent{X: 5, Y: 3, Action: MousePress})
	if !e.Canvas().DraggingTemplate() {
		t.Fatal("pressing a template should start a canvas drag")
	}

	// Canvas inner area starts at (29,1)
	e.HandleMouse(MouseEvent{X: 35, Y: 4, Action: MouseMotion})
	e.HandleMouse(MouseEvent{X: 39, Y: 6, Action: MouseRelease})

	if len(wf.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(wf.Nodes))
	}
	if wf.Nodes[0].Position != (workflow.Position{X: 10, Y: 5}) {
		t.Errorf("expected node at (10,5), got %+v", wf.Nodes[0].Position)
	}
	if !e.Dirty() {
		t.Error("drop should mark the editor dirty")
	}
	if _, ok := e.Palette().Dragging(); ok {
		t.Error("palette drag should end")
	}
	if e.Focus() != PaneCanvas {
		t.Errorf("expected canvas focus, got %s", e.Focus())
	}
}

func TestEditor_DragReleasedOutsideCanvasIsCancelled(t *testing.T) {
	wf := newTestWorkflow(t)
	e, _ := newTestEditor(t, wf)

	e.HandleMouse(MouseEvent{X: 5, Y: 3, Action: MousePress})
	e.HandleMouse(MouseEvent{X: 5, Y: 4, Action: MouseRelease})

	if len(wf.Nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(wf.Nodes))
	}
	if e.Canvas().DraggingTemplate() {
		t.Error("drag should be cancelled")
	}
}

func TestEditor_PalettePressSkipsSearchLine(t *testing.T) {
	wf := newTestWorkflow(t)
	e, _ := newTestEditor(t, wf)

	// Row 1 is the search line
	e.HandleMouse(MouseEvent{X: 5, Y: 1, Action: MousePress})
	if e.Canvas().DraggingTemplate() || !e.Palette().IsExpanded("triggers") {
		t.Fatal("pressing the search line should not touch the list")
	}

	// First list row is the Triggers header
	e.HandleMouse(MouseEvent{X: 5, Y: 1 + paletteHeaderLines, Action: MousePress})
	if e.Palette().IsExpanded("triggers") {
		t.Error("pressing the first list row should collapse its group")
	}
	if e.Canvas().DraggingTemplate() {
		t.Error("header press should not start a drag")
	}
}

func TestEditor_SelectionFeedsPanel(t *testing.T) {
	wf := newTestWorkflow(t)
	n := addNode(t, wf, "webhook", 0, 0)
	e, _ := newTestEditor(t, wf)

	e.Canvas().Select(n.ID)
	if e.Panel().Node() == nil || e.Panel().Node().ID != n.ID {
		t.Fatal("selecting a node should show it in the panel")
	}

	if err := e.Panel().SetLabel("Inbound"); err != nil {
		t.Fatalf("SetLabel failed: %v", err)
	}
	if e.Workflow().Nodes[0].Data.Label != "Inbound" {
		t.Error("panel edit should reach the workflow")
	}

	e.Canvas().Select("")
	if e.Panel().Visible() {
		t.Error("clearing the selection should hide the panel")
	}
}

func TestEditor_SelectionClearsPanelError(t *testing.T) {
	wf := newTestWorkflow(t)
	a := addNode(t, wf, "webhook", 0, 0)
	b := addNode(t, wf, "content-filter", 40, 0)
	e, _ := newTestEditor(t, wf)

	e.Canvas().Select(b.ID)
	if err := e.Panel().SetConfigValue("condition", "len(output) >"); err == nil {
		t.Fatal("expected invalid condition")
	}
	e.Canvas().Select(a.ID)
	if e.Panel().Error() != "" {
		t.Errorf("selecting another node should clear the error, got %q", e.Panel().Error())
	}
}

func TestEditor_UndoRedo(t *testing.T) {
	wf := newTestWorkflow(t)
	n := addNode(t, wf, "webhook", 0, 0)
	e, _ := newTestEditor(t, wf)
	e.Canvas().Select(n.ID)

	_ = e.Panel().SetLabel("Renamed")
	if !e.Undo() {
		t.Fatal("expected undo")
	}
	if got := e.Workflow().Nodes[0].Data.Label; got != "Webhook" {
		t.Errorf("expected label restored, got %q", got)
	}
	if e.Panel().Node() == nil || e.Panel().Node().Data.Label != "Webhook" {
		t.Error("panel should follow the restored graph")
	}

	if !e.Redo() {
		t.Fatal("expected redo")
	}
	if got := e.Workflow().Nodes[0].Data.Label; got != "Renamed" {
		t.Errorf("expected label re-applied, got %q", got)
	}
	if e.Undo() && e.Undo() {
		t.Error("history should hold only one edit")
	}
}

func TestEditor_KeyboardAddsFromPalette(t *testing.T) {
	wf := newTestWorkflow(t)
	e, _ := newTestEditor(t, wf)
	ctx := context.Background()

	e.HandleKey(ctx, KeyEvent{IsSpecial: true, Special: "Tab", Shift: true})
	if e.Focus() != PanePalette {
		t.Fatalf("expected palette focus, got %s", e.Focus())
	}
	e.HandleKey(ctx, key('j'))
	e.HandleKey(ctx, key('a'))

	if len(wf.Nodes) != 1 || wf.Nodes[0].Data.Label != "Webhook" {
		t.Fatalf("expected a Webhook node, got %+v", wf.Nodes)
	}
	if e.Canvas().Selected() == nil {
		t.Error("added node should be selected")
	}
}

func TestEditor_PaletteSearch(t *testing.T) {
	e, _ := newTestEditor(t, newTestWorkflow(t))
	ctx := context.Background()

	e.HandleKey(ctx, KeyEvent{IsSpecial: true, Special: "Tab", Shift: true})
	e.HandleKey(ctx, key('/'))
	for _, r := range "sqx" {
		e.HandleKey(ctx, key(r))
	}
	e.HandleKey(ctx, special("Backspace"))
	e.HandleKey(ctx, key('l'))
	e.HandleKey(ctx, special("Enter"))

	if e.Palette().Search() != "sql" {
		t.Errorf("expected search sql, got %q", e.Palette().Search())
	}
	// q typed after search ends is a command again
	e.HandleKey(ctx, key('q'))
	if !e.Quit() {
		t.Error("q should quit outside search")
	}
}

func TestEditor_KeyboardConnect(t *testing.T) {
	wf := newTestWorkflow(t)
	a := addNode(t, wf, "webhook", 0, 0)
	b := addNode(t, wf, "chat-completion", 40, 0)
	e, _ := newTestEditor(t, wf)
	ctx := context.Background()

	e.Canvas().Select(a.ID)
	e.HandleKey(ctx, key('c'))
	e.HandleKey(ctx, key('n'))
	e.HandleKey(ctx, key('c'))

	if len(wf.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(wf.Connections))
	}
	if wf.Connections[0].Source != a.ID || wf.Connections[0].Target != b.ID {
		t.Errorf("unexpected connection %+v", wf.Connections[0])
	}

	e.HandleKey(ctx, key('d'))
	if len(wf.Nodes) != 1 || len(wf.Connections) != 0 {
		t.Errorf("deleting the target should cascade, got %d nodes %d connections", len(wf.Nodes), len(wf.Connections))
	}
}

func TestEditor_Save(t *testing.T) {
	wf := newTestWorkflow(t)
	addNode(t, wf, "webhook", 0, 0)
	e, svc := newTestEditor(t, wf)
	ctx := context.Background()

	e.HandleKey(ctx, KeyEvent{Key: 's', Ctrl: true})

	all, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 || len(all[0].Nodes) != 1 {
		t.Fatalf("expected saved workflow with 1 node, got %+v", all)
	}
	if e.Dirty() {
		t.Error("save should clear the dirty flag")
	}
}

func TestEditor_Reload(t *testing.T) {
	wf := newTestWorkflow(t)
	e, svc := newTestEditor(t, wf)
	ctx := context.Background()
	if err := e.Save(ctx); err != nil {
		t.Fatal(err)
	}

	stored, _ := svc.Get(ctx, wf.ID)
	stored.Name = "Changed elsewhere"
	addNode(t, stored, "webhook", 0, 0)
	if err := svc.Save(ctx, stored); err != nil {
		t.Fatal(err)
	}

	if err := e.Reload(ctx, "some-other-id"); err != nil {
		t.Fatal(err)
	}
	if e.Workflow().Name != "Test" {
		t.Fatal("reload of another workflow should be ignored")
	}

	if err := e.Reload(ctx, wf.ID); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if e.Workflow().Name != "Changed elsewhere" || len(e.Workflow().Nodes) != 1 {
		t.Errorf("expected stored copy, got %+v", e.Workflow())
	}
	if e.Undo() {
		t.Error("reload should reset history")
	}
}

func drainLogs(e *Editor) {
	for {
		select {
		case entry := <-e.Logs():
			e.AppendLog(entry)
		default:
			return
		}
	}
}

func waitRun(t *testing.T, e *Editor) error {
	t.Helper()
	select {
	case err := <-e.RunDone():
		drainLogs(e)
		e.FinishRun(err)
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
		return nil
	}
}

func TestEditor_Run(t *testing.T) {
	wf := newTestWorkflow(t)
	a := addNode(t, wf, "webhook", 0, 0)
	b := addNode(t, wf, "chat-completion", 40, 0)
	if _, err := wf.Connect(a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecorder{}
	e, _ := newTestEditor(t, wf, WithRunRecorder(rec))

	e.HandleKey(context.Background(), key('r'))
	if !e.Log().IsExecuting() {
		t.Fatal("expected running state")
	}
	if err := waitRun(t, e); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	entries := e.Log().Entries()
	if len(entries) == 0 {
		t.Fatal("expected log entries")
	}
	last := entries[len(entries)-1]
	if last.Level != execution.LevelSuccess || last.Message != "Workflow completed" {
		t.Errorf("unexpected last entry %+v", last)
	}
	if e.Log().IsExecuting() {
		t.Error("running state should clear")
	}
	if len(rec.runs) != 1 || rec.runs[0].id != wf.ID || len(rec.runs[0].entries) != len(entries) {
		t.Errorf("expected the run to be recorded, got %+v", rec.runs)
	}
}

func TestEditor_StopRun(t *testing.T) {
	wf := newTestWorkflow(t)
	n := addNode(t, wf, "webhook", 0, 0)
	n.Data.Breakpoint = true
	e, _ := newTestEditor(t, wf)
	ctx := context.Background()

	e.HandleKey(ctx, key('r'))
	// The run parks at the breakpoint until stopped
	e.HandleKey(ctx, key('x'))

	if err := waitRun(t, e); err == nil {
		t.Fatal("expected a cancelled run")
	}
	if e.Status() != "Run stopped" {
		t.Errorf("unexpected status %q", e.Status())
	}
}

func TestEditor_ClearDuringRunKeepsOneRun(t *testing.T) {
	wf := newTestWorkflow(t)
	n := addNode(t, wf, "webhook", 0, 0)
	n.Data.Breakpoint = true
	e, _ := newTestEditor(t, wf)
	ctx := context.Background()

	e.HandleKey(ctx, key('r'))
	e.focus = PaneLog
	e.HandleKey(ctx, key('C'))
	if e.Log().IsExecuting() {
		t.Fatal("clear should drop the running indicator")
	}
	if !e.Running() {
		t.Fatal("clear must not end the run")
	}

	e.HandleKey(ctx, key('r'))
	if e.Status() != "Run already in progress" {
		t.Errorf("second run should be refused, status %q", e.Status())
	}

	e.HandleKey(ctx, key('x'))
	if err := waitRun(t, e); err == nil {
		t.Fatal("expected the paused run to be cancelled")
	}
	if e.Running() {
		t.Error("run state should clear after finishing")
	}

	select {
	case err := <-e.RunDone():
		t.Fatalf("a second run finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEditor_Render(t *testing.T) {
	e, _ := newTestEditor(t, newTestWorkflow(t))
	screen := NewMockScreen(120, 40)

	e.Render(screen)

	for _, want := range []string{"Nodes", "Properties", "Select a node", "Execution Log", "Test", "? help"} {
		if !screen.Contains(want) {
			t.Errorf("expected %q on screen", want)
		}
	}

	e.HandleKey(context.Background(), key('?'))
	screen.Clear()
	e.Render(screen)
	if !screen.Contains("Help") {
		t.Error("expected help overlay")
	}
}
