package tui

import "strings"

// KeyEvent represents a keyboard input event
type KeyEvent struct {
	Key       rune   // The character pressed
	Ctrl      bool   // Ctrl modifier
	Shift     bool   // Shift modifier
	Alt       bool   // Alt modifier
	IsSpecial bool   // Whether this is a special key
	Special   string // Special key name (Enter, Escape, Tab, etc.)
}

// String renders the key the way the help overlay spells it
func (e KeyEvent) String() string {
	var b strings.Builder
	if e.Ctrl {
		b.WriteString("Ctrl-")
	}
	if e.Alt {
		b.WriteString("Alt-")
	}
	if e.IsSpecial {
		b.WriteString(e.Special)
		return b.String()
	}
	b.WriteRune(e.Key)
	return b.String()
}

// isRune reports whether e is the plain character r
func (e KeyEvent) isRune(r rune) bool {
	return !e.IsSpecial && !e.Ctrl && !e.Alt && e.Key == r
}

// isCtrl reports whether e is Ctrl plus the letter r
func (e KeyEvent) isCtrl(r rune) bool {
	return e.Ctrl && !e.IsSpecial && e.Key == r
}

// isSpecial reports whether e is the named special key
func (e KeyEvent) isSpecial(name string) bool {
	return e.IsSpecial && e.Special == name
}

// HelpKeyBinding represents a keyboard shortcut with its description
type HelpKeyBinding struct {
	Keys        []string // Key combinations (e.g., ["h", "j", "k", "l"])
	Description string   // What this key/combo does
	Category    string   // Category (e.g., "Navigation", "Editing")
}

// editorBindings is the key reference shown by the help overlay
var editorBindings = []HelpKeyBinding{
	{Keys: []string{"Tab", "Shift-Tab"}, Description: "Cycle focus between panes", Category: "General"},
	{Keys: []string{"Ctrl-s"}, Description: "Save workflow", Category: "General"},
	{Keys: []string{"r"}, Description: "Run workflow", Category: "General"},
	{Keys: []string{"x"}, Description: "Stop run", Category: "General"},
	{Keys: []string{"g"}, Description: "Resume from breakpoint", Category: "General"},
	{Keys: []string{"?"}, Description: "Toggle help", Category: "General"},
	{Keys: []string{"q", "Ctrl-c"}, Description: "Quit", Category: "General"},

	{Keys: []string{"/"}, Description: "Search node types", Category: "Palette"},
	{Keys: []string{"j", "k"}, Description: "Move cursor", Category: "Palette"},
	{Keys: []string{"Enter"}, Description: "Expand group or pick node type", Category: "Palette"},
	{Keys: []string{"a"}, Description: "Add node type next to the graph", Category: "Palette"},

	{Keys: []string{"drag"}, Description: "Pan background, move node, connect from ●", Category: "Canvas"},
	{Keys: []string{"wheel", "+", "-"}, Description: "Zoom", Category: "Canvas"},
	{Keys: []string{"0"}, Description: "Reset view", Category: "Canvas"},
	{Keys: []string{"f"}, Description: "Fit graph", Category: "Canvas"},
	{Keys: []string{"n", "N"}, Description: "Select next / previous node", Category: "Canvas"},
	{Keys: []string{"h", "j", "k", "l"}, Description: "Nudge selected node", Category: "Canvas"},
	{Keys: []string{"c"}, Description: "Connect selected node to the next one picked", Category: "Canvas"},
	{Keys: []string{"d", "Delete"}, Description: "Delete selected node", Category: "Canvas"},
	{Keys: []string{"L"}, Description: "Auto layout", Category: "Canvas"},
	{Keys: []string{"u", "Ctrl-r"}, Description: "Undo / redo", Category: "Canvas"},

	{Keys: []string{"←", "→"}, Description: "Switch tab", Category: "Properties"},
	{Keys: []string{"Enter"}, Description: "Edit field or toggle breakpoint", Category: "Properties"},
	{Keys: []string{"d"}, Description: "Remove config key or connection", Category: "Properties"},

	{Keys: []string{"F"}, Description: "Cycle level filter", Category: "Log"},
	{Keys: []string{"C"}, Description: "Clear log", Category: "Log"},
}
