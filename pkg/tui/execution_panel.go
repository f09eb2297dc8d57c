package tui

import (
	"fmt"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/goterm"
)

// LevelFilter restricts which entries the execution panel shows
type LevelFilter int

const (
	FilterAll LevelFilter = iota
	FilterWarnings
	FilterErrors
)

func (f LevelFilter) String() string {
	switch f {
	case FilterWarnings:
		return "warnings+"
	case FilterErrors:
		return "errors"
	default:
		return "all"
	}
}

func (f LevelFilter) allows(level execution.Level) bool {
	switch f {
	case FilterWarnings:
		return level == execution.LevelWarning || level == execution.LevelError
	case FilterErrors:
		return level == execution.LevelError
	default:
		return true
	}
}

// ExecutionPanel shows the log of the current run. It never produces
// entries itself; the owner appends what the run emits.
type ExecutionPanel struct {
	entries    []execution.LogEntry
	executing  bool
	filter     LevelFilter
	scroll     int
	autoScroll bool
	onStop     func()
}

// NewExecutionPanel creates an empty panel. onStop is called by Stop while
// a run is in progress.
func NewExecutionPanel(onStop func()) *ExecutionPanel {
	return &ExecutionPanel{onStop: onStop, autoScroll: true}
}

// Append adds entries in arrival order
func (p *ExecutionPanel) Append(entries ...execution.LogEntry) {
	p.entries = append(p.entries, entries...)
}

// Entries returns every entry regardless of the filter
func (p *ExecutionPanel) Entries() []execution.LogEntry {
	return append([]execution.LogEntry(nil), p.entries...)
}

// SetExecuting toggles the running indicator
func (p *ExecutionPanel) SetExecuting(executing bool) {
	p.executing = executing
}

// IsExecuting reports whether a run is in progress
func (p *ExecutionPanel) IsExecuting() bool {
	return p.executing
}

// Clear empties the log and drops the running indicator
func (p *ExecutionPanel) Clear() {
	p.entries = nil
	p.executing = false
	p.scroll = 0
	p.autoScroll = true
}

// Stop asks the owner to cancel the run in progress
func (p *ExecutionPanel) Stop() {
	if !p.executing {
		return
	}
	if p.onStop != nil {
		p.onStop()
	}
}

// Filter returns the active level filter
func (p *ExecutionPanel) Filter() LevelFilter {
	return p.filter
}

// CycleFilter moves to the next level filter
func (p *ExecutionPanel) CycleFilter() {
	p.filter = (p.filter + 1) % 3
	p.scroll = 0
	p.autoScroll = true
}

// Visible returns the entries passing the filter
func (p *ExecutionPanel) Visible() []execution.LogEntry {
	out := make([]execution.LogEntry, 0, len(p.entries))
	for _, e := range p.entries {
		if p.filter.allows(e.Level) {
			out = append(out, e)
		}
	}
	return out
}

// ScrollBy moves the view; scrolling to the end resumes following new entries
func (p *ExecutionPanel) ScrollBy(delta int) {
	p.scroll = max(p.scroll+delta, 0)
	if last := len(p.Visible()) - 1; p.scroll >= last {
		p.scroll = max(last, 0)
		p.autoScroll = true
		return
	}
	p.autoScroll = false
}

func levelColor(level execution.Level) goterm.Color {
	switch level {
	case execution.LevelSuccess:
		return currentTheme.Success
	case execution.LevelWarning:
		return currentTheme.Warning
	case execution.LevelError:
		return currentTheme.Error
	default:
		return currentTheme.Info
	}
}

// Render draws the log into rect
func (p *ExecutionPanel) Render(screen ScreenInterface, rect Rect, focused bool) {
	theme := currentTheme
	title := fmt.Sprintf("Execution Log [%s]", p.filter)
	if p.executing {
		title = "● Running  " + title
	}
	drawBox(screen, rect, title, focused)
	inner := rect.Inner()
	if inner.Height <= 0 {
		return
	}

	visible := p.Visible()
	if len(visible) == 0 {
		drawText(screen, inner.X, inner.Y, truncate("No log entries. Press r to run.", inner.Width), theme.Dim, theme.Background, goterm.StyleNone)
		return
	}

	start := p.scroll
	if p.autoScroll || start > len(visible)-inner.Height {
		start = max(len(visible)-inner.Height, 0)
	}

	for i := 0; i < inner.Height && start+i < len(visible); i++ {
		e := visible[start+i]
		y := inner.Y + i
		stamp := e.Timestamp.Format("15:04:05")
		drawText(screen, inner.X, y, stamp, theme.Dim, theme.Background, goterm.StyleNone)

		x := inner.X + len(stamp) + 1
		level := fmt.Sprintf("%-7s", e.Level)
		drawText(screen, x, y, level, levelColor(e.Level), theme.Background, goterm.StyleBold)
		x += len(level) + 1

		msg := e.Message
		if e.NodeName != "" {
			msg = fmt.Sprintf("[%s] %s", e.NodeName, msg)
		}
		drawText(screen, x, y, truncate(msg, inner.X+inner.Width-x), theme.Text, theme.Background, goterm.StyleNone)
	}
}
