package tui

import (
	"strings"

	"github.com/dshills/goterm"
)

// HelpPanel is the key reference overlay
type HelpPanel struct {
	visible      bool
	keyBindings  []HelpKeyBinding
	scrollOffset int
}

// NewHelpPanel creates a hidden help panel over the editor bindings
func NewHelpPanel() *HelpPanel {
	return &HelpPanel{keyBindings: editorBindings}
}

// Toggle toggles the visibility of the help panel
func (h *HelpPanel) Toggle() {
	h.visible = !h.visible
	h.scrollOffset = 0
}

// Hide makes the help panel hidden
func (h *HelpPanel) Hide() {
	h.visible = false
}

// IsVisible returns whether the panel is visible
func (h *HelpPanel) IsVisible() bool {
	return h.visible
}

// Scroll moves the overlay content by delta lines
func (h *HelpPanel) Scroll(delta int) {
	h.scrollOffset = min(max(h.scrollOffset+delta, 0), max(len(h.lines())-1, 0))
}

// lines flattens the bindings into category headers and entries
func (h *HelpPanel) lines() []string {
	var out []string
	category := ""
	for _, b := range h.keyBindings {
		if b.Category != category {
			if category != "" {
				out = append(out, "")
			}
			category = b.Category
			out = append(out, category)
		}
		out = append(out, "  "+padRight(strings.Join(b.Keys, ", "), 18)+b.Description)
	}
	return out
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s + " "
}

// Render draws the overlay centered on the screen
func (h *HelpPanel) Render(screen ScreenInterface) {
	if !h.visible {
		return
	}
	w, ht := screen.Size()
	rect := Rect{Width: min(64, w-4), Height: min(30, ht-2)}
	rect.X = (w - rect.Width) / 2
	rect.Y = (ht - rect.Height) / 2
	drawBox(screen, rect, "Help (? to close)", true)

	inner := rect.Inner()
	lines := h.lines()
	for i := 0; i < inner.Height && h.scrollOffset+i < len(lines); i++ {
		line := lines[h.scrollOffset+i]
		fg, style := currentTheme.Text, goterm.StyleNone
		if !strings.HasPrefix(line, " ") {
			fg, style = currentTheme.Accent, goterm.StyleBold
		}
		drawText(screen, inner.X+1, inner.Y+i, truncate(line, inner.Width-1), fg, currentTheme.Background, style)
	}
}
