package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/dshills/goterm"
)

// PanelTab is one of the property panel views
type PanelTab int

const (
	TabGeneral PanelTab = iota
	TabConfig
	TabConnections
)

var tabNames = []string{"General", "Config", "Connections"}

func (t PanelTab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "?"
}

// NodeUpdateFunc receives the merged node data after every edit
type NodeUpdateFunc func(id workflow.NodeID, data workflow.NodeData)

// ConnectionView is an edge as listed by the panel, with the far endpoint
// resolved to a label
type ConnectionView struct {
	ID     workflow.ConnectionID
	NodeID workflow.NodeID
	Label  string
}

// PropertyPanel edits the selected node. Edits are committed immediately
// through the update callback; only the config rows keep a working copy.
type PropertyPanel struct {
	node        *workflow.Node
	connections []*workflow.Connection
	nodes       []*workflow.Node

	tab     PanelTab
	config  []ConfigEntry
	pending string
	err     string

	onUpdate           NodeUpdateFunc
	onDeleteConnection func(workflow.ConnectionID)

	// keyboard editing
	focus   int
	editing bool
	input   []rune
}

// NewPropertyPanel creates an empty panel
func NewPropertyPanel(onUpdate NodeUpdateFunc, onDeleteConnection func(workflow.ConnectionID)) *PropertyPanel {
	return &PropertyPanel{
		onUpdate:           onUpdate,
		onDeleteConnection: onDeleteConnection,
	}
}

// SetNode points the panel at node; nil hides the panel.
// The config working copy is rebuilt when the node changes and refreshed
// from the committed config otherwise, except for a row whose last edit
// was rejected.
func (p *PropertyPanel) SetNode(node *workflow.Node, connections []*workflow.Connection, nodes []*workflow.Node) {
	sameNode := node != nil && p.node != nil && node.ID == p.node.ID
	p.node = node
	p.connections = connections
	p.nodes = nodes

	if node == nil {
		p.config = nil
		p.pending = ""
		p.editing = false
		return
	}

	fresh := configEntries(node.Data.Config)
	if !sameNode {
		p.config = fresh
		p.pending = ""
		p.focus = 0
		p.editing = false
		return
	}

	if p.pending != "" {
		for i := range fresh {
			for _, old := range p.config {
				if old.Key == p.pending && fresh[i].Key == p.pending {
					fresh[i].Value = old.Value
				}
			}
		}
	}
	p.config = fresh
}

// Node returns the node being edited, or nil
func (p *PropertyPanel) Node() *workflow.Node {
	return p.node
}

// Visible reports whether there is a node to show
func (p *PropertyPanel) Visible() bool {
	return p.node != nil
}

// Tab returns the active tab
func (p *PropertyPanel) Tab() PanelTab {
	return p.tab
}

// SetTab switches the active tab
func (p *PropertyPanel) SetTab(tab PanelTab) {
	if tab < TabGeneral || tab > TabConnections {
		return
	}
	p.tab = tab
	p.focus = 0
	p.editing = false
}

// NextTab cycles to the next tab
func (p *PropertyPanel) NextTab() {
	p.SetTab((p.tab + 1) % PanelTab(len(tabNames)))
}

// Error returns the last validation error shown by the panel
func (p *PropertyPanel) Error() string {
	return p.err
}

// ClearError dismisses the validation error
func (p *PropertyPanel) ClearError() {
	p.err = ""
}

func (p *PropertyPanel) fail(err error) error {
	p.err = err.Error()
	return err
}

// commit sends the merged data for the current node
func (p *PropertyPanel) commit(data workflow.NodeData) {
	p.err = ""
	if p.onUpdate != nil {
		p.onUpdate(p.node.ID, data)
	}
}

var errNoNode = errors.New("no node selected")

// SetLabel renames the node
func (p *PropertyPanel) SetLabel(label string) error {
	if p.node == nil {
		return errNoNode
	}
	if strings.TrimSpace(label) == "" {
		return p.fail(errors.New("label cannot be empty"))
	}
	data := p.node.Data.Clone()
	data.Label = label
	p.commit(data)
	return nil
}

// SetDescription changes the node description
func (p *PropertyPanel) SetDescription(description string) error {
	if p.node == nil {
		return errNoNode
	}
	data := p.node.Data.Clone()
	data.Description = description
	p.commit(data)
	return nil
}

// ToggleBreakpoint flips the node's breakpoint flag
func (p *PropertyPanel) ToggleBreakpoint() error {
	if p.node == nil {
		return errNoNode
	}
	data := p.node.Data.Clone()
	data.Breakpoint = !data.Breakpoint
	p.commit(data)
	return nil
}

// ConfigEntries returns the config working copy
func (p *PropertyPanel) ConfigEntries() []ConfigEntry {
	return append([]ConfigEntry(nil), p.config...)
}

func (p *PropertyPanel) configIndex(key string) int {
	for i, e := range p.config {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// SetConfigValue edits one config value. The text is parsed back to a
// number or boolean where possible. Values that fail validation stay in the
// working copy and are not committed.
func (p *PropertyPanel) SetConfigValue(key, raw string) error {
	if p.node == nil {
		return errNoNode
	}
	idx := p.configIndex(key)
	if idx < 0 {
		return p.fail(fmt.Errorf("unknown config key %q", key))
	}
	p.config[idx].Value = raw

	if err := validateConfigValue(key, raw); err != nil {
		p.pending = key
		return p.fail(err)
	}
	if p.pending == key {
		p.pending = ""
	}

	data := p.node.Data.Clone()
	if data.Config == nil {
		data.Config = make(map[string]any)
	}
	data.Config[key] = ParseConfigValue(raw, data.Config[key])
	p.commit(data)
	return nil
}

// AddConfigKey adds an empty config entry
func (p *PropertyPanel) AddConfigKey(key string) error {
	if p.node == nil {
		return errNoNode
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return p.fail(errors.New("config key cannot be empty"))
	}
	if p.configIndex(key) >= 0 {
		return p.fail(fmt.Errorf("config key %q already exists", key))
	}

	p.config = append(p.config, ConfigEntry{Key: key})
	data := p.node.Data.Clone()
	if data.Config == nil {
		data.Config = make(map[string]any)
	}
	data.Config[key] = ""
	p.commit(data)
	return nil
}

// RemoveConfigKey deletes a config entry
func (p *PropertyPanel) RemoveConfigKey(key string) error {
	if p.node == nil {
		return errNoNode
	}
	idx := p.configIndex(key)
	if idx < 0 {
		return p.fail(fmt.Errorf("unknown config key %q", key))
	}
	p.config = append(p.config[:idx], p.config[idx+1:]...)
	if p.pending == key {
		p.pending = ""
	}

	data := p.node.Data.Clone()
	delete(data.Config, key)
	p.commit(data)
	return nil
}

func (p *PropertyPanel) labelFor(id workflow.NodeID) string {
	for _, n := range p.nodes {
		if n.ID == id {
			return n.Data.Label
		}
	}
	return string(id)
}

// Incoming lists the edges ending at the node
func (p *PropertyPanel) Incoming() []ConnectionView {
	if p.node == nil {
		return nil
	}
	var out []ConnectionView
	for _, c := range p.connections {
		if c.Target == p.node.ID {
			out = append(out, ConnectionView{ID: c.ID, NodeID: c.Source, Label: p.labelFor(c.Source)})
		}
	}
	return out
}

// Outgoing lists the edges leaving the node
func (p *PropertyPanel) Outgoing() []ConnectionView {
	if p.node == nil {
		return nil
	}
	var out []ConnectionView
	for _, c := range p.connections {
		if c.Source == p.node.ID {
			out = append(out, ConnectionView{ID: c.ID, NodeID: c.Target, Label: p.labelFor(c.Target)})
		}
	}
	return out
}

// DeleteConnection removes one edge through the owner's callback
func (p *PropertyPanel) DeleteConnection(id workflow.ConnectionID) {
	if p.onDeleteConnection != nil {
		p.onDeleteConnection(id)
	}
}

// Editing reports whether a text field is being edited
func (p *PropertyPanel) Editing() bool {
	return p.editing
}

// rowCount is the number of focusable rows on the active tab
func (p *PropertyPanel) rowCount() int {
	switch p.tab {
	case TabGeneral:
		return 3
	case TabConfig:
		return len(p.config) + 1
	default:
		return len(p.Incoming()) + len(p.Outgoing())
	}
}

// connectionAt maps a Connections-tab row to its edge
func (p *PropertyPanel) connectionAt(row int) (ConnectionView, bool) {
	in, out := p.Incoming(), p.Outgoing()
	if row < len(in) {
		return in[row], true
	}
	row -= len(in)
	if row < len(out) {
		return out[row], true
	}
	return ConnectionView{}, false
}

// HandleKey drives the panel from the keyboard. It reports whether the key
// was consumed.
func (p *PropertyPanel) HandleKey(ev KeyEvent) bool {
	if p.node == nil {
		return false
	}
	if p.editing {
		return p.handleEditKey(ev)
	}

	switch {
	case ev.IsSpecial && ev.Special == "Up":
		if n := p.rowCount(); n > 0 {
			p.focus = (p.focus - 1 + n) % n
		}
	case ev.IsSpecial && ev.Special == "Down":
		if n := p.rowCount(); n > 0 {
			p.focus = (p.focus + 1) % n
		}
	case ev.IsSpecial && (ev.Special == "Left" || ev.Special == "Right"):
		step := PanelTab(1)
		if ev.Special == "Left" {
			step = PanelTab(len(tabNames) - 1)
		}
		p.SetTab((p.tab + step) % PanelTab(len(tabNames)))
	case ev.IsSpecial && ev.Special == "Enter":
		p.activate()
	case !ev.IsSpecial && !ev.Ctrl && ev.Key == 'd':
		p.deleteFocused()
	default:
		return false
	}
	return true
}

// activate starts editing or toggles the focused row
func (p *PropertyPanel) activate() {
	switch p.tab {
	case TabGeneral:
		switch p.focus {
		case 0:
			p.startEdit(p.node.Data.Label)
		case 1:
			p.startEdit(p.node.Data.Description)
		case 2:
			_ = p.ToggleBreakpoint()
		}
	case TabConfig:
		if p.focus < len(p.config) {
			p.startEdit(p.config[p.focus].Value)
		} else {
			p.startEdit("")
		}
	}
}

func (p *PropertyPanel) deleteFocused() {
	switch p.tab {
	case TabConfig:
		if p.focus < len(p.config) {
			_ = p.RemoveConfigKey(p.config[p.focus].Key)
			if p.focus >= p.rowCount() {
				p.focus = max(p.rowCount()-1, 0)
			}
		}
	case TabConnections:
		if conn, ok := p.connectionAt(p.focus); ok {
			p.DeleteConnection(conn.ID)
		}
	}
}

func (p *PropertyPanel) startEdit(value string) {
	p.editing = true
	p.input = []rune(value)
}

func (p *PropertyPanel) handleEditKey(ev KeyEvent) bool {
	switch {
	case ev.IsSpecial && ev.Special == "Escape":
		p.editing = false
	case ev.IsSpecial && ev.Special == "Backspace":
		if len(p.input) > 0 {
			p.input = p.input[:len(p.input)-1]
		}
	case ev.IsSpecial && ev.Special == "Enter":
		p.finishEdit(string(p.input))
	case !ev.IsSpecial && !ev.Ctrl && ev.Key >= ' ':
		p.input = append(p.input, ev.Key)
	}
	return true
}

func (p *PropertyPanel) finishEdit(value string) {
	var err error
	switch p.tab {
	case TabGeneral:
		if p.focus == 0 {
			err = p.SetLabel(value)
		} else {
			err = p.SetDescription(value)
		}
	case TabConfig:
		if p.focus < len(p.config) {
			err = p.SetConfigValue(p.config[p.focus].Key, value)
		} else {
			err = p.AddConfigKey(value)
		}
	}
	if err == nil {
		p.editing = false
	}
}

// Render draws the panel into rect. Without a node nothing is drawn.
func (p *PropertyPanel) Render(screen ScreenInterface, rect Rect, focused bool) {
	if p.node == nil {
		return
	}
	theme := currentTheme
	drawBox(screen, rect, "Properties", focused)
	inner := rect.Inner()

	// Tab strip
	x := inner.X
	for i, name := range tabNames {
		style, fg := goterm.StyleNone, theme.Dim
		if PanelTab(i) == p.tab {
			style, fg = goterm.StyleReverse, theme.Text
		}
		drawText(screen, x, inner.Y, " "+name+" ", fg, theme.Background, style)
		x += len(name) + 3
	}

	y := inner.Y + 2
	line := func(row int, text string, fg goterm.Color) {
		if y >= inner.Y+inner.Height {
			return
		}
		bg := theme.Background
		if focused && row == p.focus {
			bg = theme.Highlight
			fillRow(screen, inner.X, y, inner.Width, bg)
		}
		drawText(screen, inner.X, y, truncate(text, inner.Width), fg, bg, goterm.StyleNone)
		y++
	}
	value := func(row int, current string) string {
		if p.editing && row == p.focus {
			return string(p.input) + "▏"
		}
		return current
	}

	switch p.tab {
	case TabGeneral:
		line(0, "Label: "+value(0, p.node.Data.Label), theme.Text)
		line(1, "Description: "+value(1, p.node.Data.Description), theme.Text)
		bp := "off"
		if p.node.Data.Breakpoint {
			bp = "on"
		}
		line(2, "Breakpoint: "+bp, theme.Text)
		y++
		line(-1, "Type: "+string(p.node.Type), colorFor(p.node.Data.Color))

	case TabConfig:
		for i, e := range p.config {
			line(i, fmt.Sprintf("%s = %s", e.Key, value(i, e.Value)), theme.Text)
		}
		line(len(p.config), value(len(p.config), "+ add key"), theme.Dim)

	case TabConnections:
		row := 0
		in, out := p.Incoming(), p.Outgoing()
		line(-1, fmt.Sprintf("Incoming (%d)", len(in)), theme.Accent)
		for _, c := range in {
			line(row, "  ← "+c.Label, theme.Text)
			row++
		}
		line(-1, fmt.Sprintf("Outgoing (%d)", len(out)), theme.Accent)
		for _, c := range out {
			line(row, "  → "+c.Label, theme.Text)
			row++
		}
	}

	if p.err != "" {
		drawText(screen, inner.X, inner.Y+inner.Height-1, truncate("! "+p.err, inner.Width), theme.Error, theme.Background, goterm.StyleNone)
	}
}
