package tui

import (
	"math"
	"unicode/utf8"

	"github.com/dshills/goterm"
)

// ScreenInterface defines the methods required from a goterm.Screen
type ScreenInterface interface {
	Size() (width, height int)
	Clear()
	Show() error
	SetCell(x, y int, cell goterm.Cell)
	DrawText(x, y int, text string, fg, bg goterm.Color, style goterm.Style)
}

// Rect represents a rectangular region on screen
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains checks if a point is within the rectangle
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width &&
		y >= r.Y && y < r.Y+r.Height
}

// Inner returns the rectangle inside a one-cell border
func (r Rect) Inner() Rect {
	return Rect{X: r.X + 1, Y: r.Y + 1, Width: max(r.Width-2, 0), Height: max(r.Height-2, 0)}
}

// Theme holds the colors every panel draws with
type Theme struct {
	Background goterm.Color
	Text       goterm.Color
	Dim        goterm.Color
	Border     goterm.Color
	Focus      goterm.Color
	Accent     goterm.Color
	Highlight  goterm.Color
	Edge       goterm.Color
	Preview    goterm.Color
	Info       goterm.Color
	Success    goterm.Color
	Warning    goterm.Color
	Error      goterm.Color
}

var currentTheme = Theme{
	Background: goterm.ColorRGB(24, 24, 27),
	Text:       goterm.ColorRGB(228, 228, 231),
	Dim:        goterm.ColorRGB(113, 113, 122),
	Border:     goterm.ColorRGB(63, 63, 70),
	Focus:      goterm.ColorRGB(96, 165, 250),
	Accent:     goterm.ColorRGB(167, 139, 250),
	Highlight:  goterm.ColorRGB(52, 52, 58),
	Edge:       goterm.ColorRGB(161, 161, 170),
	Preview:    goterm.ColorRGB(250, 204, 21),
	Info:       goterm.ColorRGB(96, 165, 250),
	Success:    goterm.ColorRGB(74, 222, 128),
	Warning:    goterm.ColorRGB(250, 204, 21),
	Error:      goterm.ColorRGB(248, 113, 113),
}

// templateColors maps catalog color tags to terminal colors
var templateColors = map[string]goterm.Color{
	"blue":   goterm.ColorRGB(96, 165, 250),
	"gray":   goterm.ColorRGB(161, 161, 170),
	"green":  goterm.ColorRGB(74, 222, 128),
	"orange": goterm.ColorRGB(251, 146, 60),
	"purple": goterm.ColorRGB(192, 132, 252),
	"red":    goterm.ColorRGB(248, 113, 113),
	"teal":   goterm.ColorRGB(45, 212, 191),
	"yellow": goterm.ColorRGB(250, 204, 21),
}

func colorFor(tag string) goterm.Color {
	if c, ok := templateColors[tag]; ok {
		return c
	}
	return currentTheme.Text
}

// icons maps catalog icon names to single-cell glyphs
var icons = map[string]string{
	"activity":       "∿",
	"align-left":     "≡",
	"archive":        "▤",
	"brain":          "◉",
	"check-circle":   "✓",
	"clock":          "◷",
	"code":           "λ",
	"database":       "⛁",
	"eye-off":        "◌",
	"file":           "▭",
	"file-text":      "▤",
	"globe":          "◍",
	"layers":         "◫",
	"mail":           "✉",
	"message-square": "▢",
	"save":           "▣",
	"search":         "⌕",
	"send":           "➤",
	"shield":         "◈",
	"webhook":        "⚡",
}

func iconFor(name string) string {
	if glyph, ok := icons[name]; ok {
		return glyph
	}
	return "•"
}

// truncate shortens s to at most width cells, marking the cut with an ellipsis
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "…"
}

// drawText writes text clipped to the screen
func drawText(screen ScreenInterface, x, y int, text string, fg, bg goterm.Color, style goterm.Style) {
	w, h := screen.Size()
	if y < 0 || y >= h {
		return
	}
	col := x
	for _, ch := range text {
		if col >= w {
			return
		}
		if col >= 0 {
			screen.SetCell(col, y, goterm.NewCell(ch, fg, bg, style))
		}
		col++
	}
}

func fillRow(screen ScreenInterface, x, y, width int, bg goterm.Color) {
	for i := 0; i < width; i++ {
		screen.SetCell(x+i, y, goterm.NewCell(' ', currentTheme.Text, bg, goterm.StyleNone))
	}
}

// fillRect paints a rectangle with the background color
func fillRect(screen ScreenInterface, r Rect, bg goterm.Color) {
	for y := r.Y; y < r.Y+r.Height; y++ {
		fillRow(screen, r.X, y, r.Width, bg)
	}
}

// drawBox draws a bordered panel with a title; focused panels get an
// accent border
func drawBox(screen ScreenInterface, r Rect, title string, focused bool) {
	if r.Width < 2 || r.Height < 2 {
		return
	}
	theme := currentTheme
	border := theme.Border
	if focused {
		border = theme.Focus
	}
	fillRect(screen, r, theme.Background)

	right, bottom := r.X+r.Width-1, r.Y+r.Height-1
	for x := r.X + 1; x < right; x++ {
		screen.SetCell(x, r.Y, goterm.NewCell('─', border, theme.Background, goterm.StyleNone))
		screen.SetCell(x, bottom, goterm.NewCell('─', border, theme.Background, goterm.StyleNone))
	}
	for y := r.Y + 1; y < bottom; y++ {
		screen.SetCell(r.X, y, goterm.NewCell('│', border, theme.Background, goterm.StyleNone))
		screen.SetCell(right, y, goterm.NewCell('│', border, theme.Background, goterm.StyleNone))
	}
	screen.SetCell(r.X, r.Y, goterm.NewCell('┌', border, theme.Background, goterm.StyleNone))
	screen.SetCell(right, r.Y, goterm.NewCell('┐', border, theme.Background, goterm.StyleNone))
	screen.SetCell(r.X, bottom, goterm.NewCell('└', border, theme.Background, goterm.StyleNone))
	screen.SetCell(right, bottom, goterm.NewCell('┘', border, theme.Background, goterm.StyleNone))

	if title != "" {
		drawText(screen, r.X+2, r.Y, truncate(" "+title+" ", r.Width-4), border, theme.Background, goterm.StyleBold)
	}
}

// drawPath draws an orthogonal polyline clipped to r. Points are relative
// to r's origin. The last point gets an arrow head.
func drawPath(screen ScreenInterface, r Rect, path []Point, fg goterm.Color) {
	if len(path) < 2 {
		return
	}
	bg := currentTheme.Background
	plot := func(x, y int, ch rune) {
		if r.Contains(x, y) {
			screen.SetCell(x, y, goterm.NewCell(ch, fg, bg, goterm.StyleNone))
		}
	}

	for i := 0; i+1 < len(path); i++ {
		x0, y0 := r.X+int(math.Round(path[i].X)), r.Y+int(math.Round(path[i].Y))
		x1, y1 := r.X+int(math.Round(path[i+1].X)), r.Y+int(math.Round(path[i+1].Y))
		if y0 == y1 {
			step := 1
			if x1 < x0 {
				step = -1
			}
			for x := x0; x != x1; x += step {
				plot(x, y0, '─')
			}
			continue
		}
		if x0 != x1 {
			// Non-orthogonal segments only come from previews; draw an L
			step := 1
			if x1 < x0 {
				step = -1
			}
			for x := x0; x != x1; x += step {
				plot(x, y0, '─')
			}
			x0 = x1
		}
		step := 1
		if y1 < y0 {
			step = -1
		}
		for y := y0; y != y1; y += step {
			plot(x0, y, '│')
		}
	}

	last := path[len(path)-1]
	plot(r.X+int(math.Round(last.X)), r.Y+int(math.Round(last.Y)), '▶')
}
