package tui

import (
	"fmt"

	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/goterm"
)

// PaletteGroup is one category of templates matching the current search
type PaletteGroup struct {
	Category  registry.Category
	Templates []registry.Template
	Expanded  bool
}

// paletteRow is one line of the rendered palette: a group header or a template
type paletteRow struct {
	category string
	template *registry.Template
}

// NodePalette lists registry templates grouped by category, filtered by a
// search string. It never touches the graph; dropping is the canvas' job.
type NodePalette struct {
	reg         *registry.Registry
	search      string
	expanded    map[string]bool
	cursor      int
	scroll      int
	dragging    *registry.Template
	onDragStart func(registry.Template)
}

// defaultExpanded are the categories open when the palette is created
var defaultExpanded = []string{"triggers", "llm"}

// NewNodePalette creates a palette over reg
func NewNodePalette(reg *registry.Registry) *NodePalette {
	p := &NodePalette{
		reg:      reg,
		expanded: make(map[string]bool),
	}
	for _, key := range defaultExpanded {
		p.expanded[key] = true
	}
	return p
}

// SetSearch updates the filter text
func (p *NodePalette) SetSearch(q string) {
	p.search = q
	p.cursor = 0
	p.scroll = 0
}

// Search returns the filter text
func (p *NodePalette) Search() string {
	return p.search
}

// Groups returns the matching templates grouped by category in catalog order.
// Categories with no match are omitted.
func (p *NodePalette) Groups() []PaletteGroup {
	templates := p.reg.Templates()
	groups := make([]PaletteGroup, 0)
	for _, cat := range p.reg.Categories() {
		group := PaletteGroup{Category: cat, Expanded: p.expanded[cat.Key]}
		for _, t := range templates {
			if t.Category == cat.Key && t.Matches(cat.Label, p.search) {
				group.Templates = append(group.Templates, t)
			}
		}
		if len(group.Templates) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// Toggle flips a category between expanded and collapsed
func (p *NodePalette) Toggle(category string) {
	p.expanded[category] = !p.expanded[category]
}

// IsExpanded reports whether a category is expanded
func (p *NodePalette) IsExpanded(category string) bool {
	return p.expanded[category]
}

// OnDragStart registers the callback fired when a template drag begins
func (p *NodePalette) OnDragStart(fn func(registry.Template)) {
	p.onDragStart = fn
}

// BeginDrag starts dragging the template with key
func (p *NodePalette) BeginDrag(key string) (registry.Template, bool) {
	t, ok := p.reg.Lookup(key)
	if !ok {
		return registry.Template{}, false
	}
	p.dragging = &t
	if p.onDragStart != nil {
		p.onDragStart(t)
	}
	return t, true
}

// Dragging returns the template being dragged, if any
func (p *NodePalette) Dragging() (registry.Template, bool) {
	if p.dragging == nil {
		return registry.Template{}, false
	}
	return *p.dragging, true
}

// EndDrag clears the drag state
func (p *NodePalette) EndDrag() {
	p.dragging = nil
}

// rows flattens the visible palette: every group header, plus the templates
// of expanded groups
func (p *NodePalette) rows() []paletteRow {
	rows := make([]paletteRow, 0)
	for _, g := range p.Groups() {
		rows = append(rows, paletteRow{category: g.Category.Key})
		if !g.Expanded {
			continue
		}
		for i := range g.Templates {
			rows = append(rows, paletteRow{category: g.Category.Key, template: &g.Templates[i]})
		}
	}
	return rows
}

// Next moves the cursor down (with wrap-around)
func (p *NodePalette) Next() {
	rows := p.rows()
	if len(rows) == 0 {
		return
	}
	p.cursor = (p.cursor + 1) % len(rows)
}

// Previous moves the cursor up (with wrap-around)
func (p *NodePalette) Previous() {
	rows := p.rows()
	if len(rows) == 0 {
		return
	}
	p.cursor = (p.cursor - 1 + len(rows)) % len(rows)
}

// Selected returns the template under the cursor.
// It returns false when the cursor is on a group header.
func (p *NodePalette) Selected() (registry.Template, bool) {
	rows := p.rows()
	if len(rows) == 0 {
		return registry.Template{}, false
	}
	if p.cursor >= len(rows) {
		p.cursor = 0
	}
	row := rows[p.cursor]
	if row.template == nil {
		return registry.Template{}, false
	}
	return *row.template, true
}

// Activate acts on the cursor row: headers toggle, templates start a drag
func (p *NodePalette) Activate() (registry.Template, bool) {
	rows := p.rows()
	if p.cursor >= len(rows) {
		return registry.Template{}, false
	}
	row := rows[p.cursor]
	if row.template == nil {
		p.Toggle(row.category)
		return registry.Template{}, false
	}
	return p.BeginDrag(row.template.Key)
}

// Press handles a pointer press on the given line of the palette body.
// Header lines toggle their group; template lines start a drag.
func (p *NodePalette) Press(line int) (registry.Template, bool) {
	idx := line + p.scroll
	rows := p.rows()
	if idx < 0 || idx >= len(rows) {
		return registry.Template{}, false
	}
	p.cursor = idx
	return p.Activate()
}

// paletteHeaderLines is the search line between the box border and the list
const paletteHeaderLines = 1

// Render draws the palette into rect
func (p *NodePalette) Render(screen ScreenInterface, rect Rect, focused bool) {
	theme := currentTheme
	drawBox(screen, rect, "Nodes", focused)

	inner := rect.Inner()
	search := "/ search"
	searchFg := theme.Dim
	if p.search != "" {
		search = "/" + p.search
		searchFg = theme.Text
	}
	drawText(screen, inner.X, inner.Y, truncate(search, inner.Width), searchFg, theme.Background, goterm.StyleNone)

	body := Rect{X: inner.X, Y: inner.Y + paletteHeaderLines, Width: inner.Width, Height: inner.Height - paletteHeaderLines}
	if body.Height <= 0 {
		return
	}

	rows := p.rows()
	if p.cursor < p.scroll {
		p.scroll = p.cursor
	}
	if p.cursor >= p.scroll+body.Height {
		p.scroll = p.cursor - body.Height + 1
	}

	for line := 0; line < body.Height && p.scroll+line < len(rows); line++ {
		idx := p.scroll + line
		row := rows[idx]
		y := body.Y + line

		bg := theme.Background
		if focused && idx == p.cursor {
			bg = theme.Highlight
			fillRow(screen, body.X, y, body.Width, bg)
		}

		if row.template == nil {
			marker := "▸"
			if p.expanded[row.category] {
				marker = "▾"
			}
			label := fmt.Sprintf("%s %s", marker, p.reg.CategoryLabel(row.category))
			drawText(screen, body.X, y, truncate(label, body.Width), theme.Accent, bg, goterm.StyleBold)
			continue
		}

		t := row.template
		text := fmt.Sprintf("  %s %s", iconFor(t.Icon), t.Label)
		drawText(screen, body.X, y, truncate(text, body.Width), colorFor(t.Color), bg, goterm.StyleNone)
	}
}
