package tui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/dshills/goterm"
)

// MockScreen implements ScreenInterface for testing
type MockScreen struct {
	width  int
	height int
	cells  map[string]goterm.Cell // key is "x,y"
}

func NewMockScreen(width, height int) *MockScreen {
	return &MockScreen{
		width:  width,
		height: height,
		cells:  make(map[string]goterm.Cell),
	}
}

func (m *MockScreen) Size() (int, int) {
	return m.width, m.height
}

func (m *MockScreen) Clear() {
	m.cells = make(map[string]goterm.Cell)
}

func (m *MockScreen) Show() error {
	return nil
}

func (m *MockScreen) SetCell(x, y int, cell goterm.Cell) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.cells[fmt.Sprintf("%d,%d", x, y)] = cell
}

func (m *MockScreen) DrawText(x, y int, text string, fg, bg goterm.Color, style goterm.Style) {
	for i, ch := range []rune(text) {
		m.SetCell(x+i, y, goterm.NewCell(ch, fg, bg, style))
	}
}

// Line returns row y as text, blank cells as spaces
func (m *MockScreen) Line(y int) string {
	var b strings.Builder
	for x := 0; x < m.width; x++ {
		cell, ok := m.cells[fmt.Sprintf("%d,%d", x, y)]
		if !ok || cell.Ch == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(cell.Ch)
	}
	return b.String()
}

// Contains reports whether any row shows text
func (m *MockScreen) Contains(text string) bool {
	for y := 0; y < m.height; y++ {
		if strings.Contains(m.Line(y), text) {
			return true
		}
	}
	return false
}

func mustTemplate(t *testing.T, key string) registry.Template {
	t.Helper()
	tmpl, ok := registry.Default().Lookup(key)
	if !ok {
		t.Fatalf("template %q not in catalog", key)
	}
	return tmpl
}

func newTestWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.NewWorkflow("Test", "")
	if err != nil {
		t.Fatalf("NewWorkflow failed: %v", err)
	}
	return wf
}

// addNode places a node from the catalog at pos
func addNode(t *testing.T, wf *workflow.Workflow, key string, x, y float64) *workflow.Node {
	t.Helper()
	n := mustTemplate(t, key).Instantiate(workflow.Position{X: x, Y: y})
	if err := wf.AddNode(n); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	return n
}
