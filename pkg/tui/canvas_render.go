package tui

import (
	"fmt"
	"math"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/dshills/goterm"
)

// Render draws the graph into rect. Client coordinates start at the inside
// of the border.
func (c *Canvas) Render(screen ScreenInterface, rect Rect, focused bool) {
	theme := currentTheme
	title := fmt.Sprintf("%s  %d%%", c.wf.Name, int(math.Round(c.zoom*100)))
	drawBox(screen, rect, title, focused)
	inner := rect.Inner()

	if len(c.wf.Nodes) == 0 {
		hint := "Drag a node from the palette, or press a to add one"
		drawText(screen, inner.X+max((inner.Width-len(hint))/2, 0), inner.Y+inner.Height/2,
			truncate(hint, inner.Width), theme.Dim, theme.Background, goterm.StyleNone)
	}

	for _, conn := range c.wf.Connections {
		drawPath(screen, inner, c.ConnectionPath(conn), theme.Edge)
	}
	if preview := c.PreviewPath(); preview != nil {
		drawPath(screen, inner, preview, theme.Preview)
	}

	for _, n := range c.wf.Nodes {
		c.renderNode(screen, inner, n)
	}
}

func (c *Canvas) renderNode(screen ScreenInterface, inner Rect, n *workflow.Node) {
	theme := currentTheme
	origin := ToClient(n.Position, c.Pan, c.zoom)
	box := Rect{
		X:      inner.X + int(math.Round(origin.X)),
		Y:      inner.Y + int(math.Round(origin.Y)),
		Width:  max(int(math.Round(NodeWidth*c.zoom)), 6),
		Height: max(int(math.Round(NodeHeight*c.zoom)), 3),
	}

	border := colorFor(n.Data.Color)
	style := goterm.StyleNone
	if n.ID == c.selected {
		style = goterm.StyleBold
	}
	if c.connecting != nil && c.connecting.Target == n.ID {
		border = theme.Preview
	}

	set := func(x, y int, ch rune, fg goterm.Color) {
		if inner.Contains(x, y) {
			screen.SetCell(x, y, goterm.NewCell(ch, fg, theme.Background, style))
		}
	}
	right, bottom := box.X+box.Width-1, box.Y+box.Height-1

	horizontal, vertical := '─', '│'
	corners := [4]rune{'┌', '┐', '└', '┘'}
	if n.ID == c.selected {
		horizontal, vertical = '━', '┃'
		corners = [4]rune{'┏', '┓', '┗', '┛'}
	}

	for x := box.X; x <= right; x++ {
		for y := box.Y; y <= bottom; y++ {
			set(x, y, ' ', theme.Text)
		}
	}
	for x := box.X + 1; x < right; x++ {
		set(x, box.Y, horizontal, border)
		set(x, bottom, horizontal, border)
	}
	for y := box.Y + 1; y < bottom; y++ {
		set(box.X, y, vertical, border)
		set(right, y, vertical, border)
	}
	set(box.X, box.Y, corners[0], border)
	set(right, box.Y, corners[1], border)
	set(box.X, bottom, corners[2], border)
	set(right, bottom, corners[3], border)

	// Handles sit on the middle row
	mid := box.Y + box.Height/2
	set(box.X, mid, '◀', border)
	set(right, mid, '●', border)

	text := func(y int, s string, fg goterm.Color) {
		if y <= box.Y || y >= bottom {
			return
		}
		col := box.X + 2
		for _, ch := range truncate(s, box.Width-4) {
			set(col, y, ch, fg)
			col++
		}
	}
	label := n.Data.Label
	if n.Data.Breakpoint {
		label = "◆ " + label
	}
	text(box.Y+1, iconFor(n.Data.Icon)+" "+label, theme.Text)
	text(box.Y+2, string(n.Type), theme.Dim)
}
