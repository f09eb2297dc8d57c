package tui

import (
	"testing"

	"github.com/dshills/aihub/pkg/execution"
)

func TestExecutionPanel_AppendAndClear(t *testing.T) {
	p := NewExecutionPanel(nil)
	p.Append(
		execution.NewLogEntry(execution.LevelInfo, "Starting"),
		execution.NewLogEntry(execution.LevelSuccess, "Done"),
	)
	p.SetExecuting(true)

	if got := len(p.Entries()); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
	if p.Entries()[0].Message != "Starting" {
		t.Error("entries should keep arrival order")
	}

	p.Clear()
	if len(p.Entries()) != 0 {
		t.Error("Clear should empty the log")
	}
	if p.IsExecuting() {
		t.Error("Clear should stop the running indicator")
	}
}

func TestExecutionPanel_StopOnlyWhileExecuting(t *testing.T) {
	stops := 0
	p := NewExecutionPanel(func() { stops++ })

	p.Stop()
	if stops != 0 {
		t.Error("Stop while idle should not call the cancel hook")
	}

	p.SetExecuting(true)
	p.Stop()
	if stops != 1 {
		t.Errorf("expected 1 stop, got %d", stops)
	}
	if len(p.Entries()) != 0 {
		t.Error("Stop should not produce entries")
	}
}

func TestExecutionPanel_Filter(t *testing.T) {
	p := NewExecutionPanel(nil)
	p.Append(
		execution.NewLogEntry(execution.LevelInfo, "a"),
		execution.NewLogEntry(execution.LevelWarning, "b"),
		execution.NewLogEntry(execution.LevelError, "c"),
		execution.NewLogEntry(execution.LevelSuccess, "d"),
	)

	tests := []struct {
		filter LevelFilter
		want   int
	}{
		{FilterAll, 4},
		{FilterWarnings, 2},
		{FilterErrors, 1},
	}
	for _, tt := range tests {
		for p.Filter() != tt.filter {
			p.CycleFilter()
		}
		if got := len(p.Visible()); got != tt.want {
			t.Errorf("filter %s: expected %d entries, got %d", tt.filter, tt.want, got)
		}
	}
	if len(p.Entries()) != 4 {
		t.Error("filter should not drop entries")
	}
}

func TestExecutionPanel_Render(t *testing.T) {
	p := NewExecutionPanel(nil)
	screen := NewMockScreen(80, 8)
	rect := Rect{X: 0, Y: 0, Width: 80, Height: 8}

	p.Render(screen, rect, false)
	if !screen.Contains("No log entries") {
		t.Error("expected empty hint")
	}

	p.SetExecuting(true)
	p.Append(execution.NewLogEntry(execution.LevelError, "Check failed: score > 1"))
	screen.Clear()
	p.Render(screen, rect, false)
	if !screen.Contains("Running") {
		t.Error("expected running indicator")
	}
	if !screen.Contains("Check failed: score > 1") {
		t.Error("expected entry message")
	}
}
