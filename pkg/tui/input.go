package tui

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// MouseAction is what a mouse report describes
type MouseAction int

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMotion
	MouseWheelUp
	MouseWheelDown
)

// MouseEvent is a decoded SGR mouse report in 0-based screen cells
type MouseEvent struct {
	X, Y   int
	Button int
	Action MouseAction
	Ctrl   bool
	Shift  bool
	Alt    bool
}

// InputEvent carries exactly one of Key or Mouse
type InputEvent struct {
	Key   *KeyEvent
	Mouse *MouseEvent
}

// Terminal control sequences for SGR mouse reporting with drag motion
const (
	mouseEnable  = "\x1b[?1000h\x1b[?1002h\x1b[?1006h"
	mouseDisable = "\x1b[?1006l\x1b[?1002l\x1b[?1000l"
)

// ParseInput splits a read from the terminal into events. A single read can
// hold several mouse reports when the pointer moves quickly.
func ParseInput(buf []byte) []InputEvent {
	events := make([]InputEvent, 0, 1)
	for len(buf) > 0 {
		if bytes.HasPrefix(buf, []byte("\x1b[<")) {
			if ev, n, ok := parseSGRMouse(buf); ok {
				events = append(events, InputEvent{Mouse: &ev})
				buf = buf[n:]
				continue
			}
		}
		key, n := parseKey(buf)
		events = append(events, InputEvent{Key: &key})
		buf = buf[n:]
	}
	return events
}

// parseSGRMouse decodes ESC [ < b ; x ; y (M|m)
func parseSGRMouse(buf []byte) (MouseEvent, int, bool) {
	end := bytes.IndexAny(buf, "Mm")
	if end < 0 {
		return MouseEvent{}, 0, false
	}
	fields := bytes.Split(buf[3:end], []byte(";"))
	if len(fields) != 3 {
		return MouseEvent{}, 0, false
	}
	var nums [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(string(f))
		if err != nil {
			return MouseEvent{}, 0, false
		}
		nums[i] = v
	}

	code := nums[0]
	ev := MouseEvent{
		X:      nums[1] - 1,
		Y:      nums[2] - 1,
		Button: code & 3,
		Shift:  code&4 != 0,
		Alt:    code&8 != 0,
		Ctrl:   code&16 != 0,
	}
	switch {
	case code&64 != 0:
		ev.Action = MouseWheelUp
		if code&1 != 0 {
			ev.Action = MouseWheelDown
		}
	case code&32 != 0:
		ev.Action = MouseMotion
	case buf[end] == 'm':
		ev.Action = MouseRelease
	default:
		ev.Action = MousePress
	}
	return ev, end + 1, true
}

// parseKey converts the leading bytes into a KeyEvent and reports how many
// bytes it used
func parseKey(buf []byte) (KeyEvent, int) {
	// Handle escape sequences (arrow keys, etc.)
	if buf[0] == 27 {
		if len(buf) == 1 {
			return KeyEvent{IsSpecial: true, Special: "Escape"}, 1
		}
		if buf[1] == '[' && len(buf) > 2 {
			switch buf[2] {
			case 'A':
				return KeyEvent{IsSpecial: true, Special: "Up"}, 3
			case 'B':
				return KeyEvent{IsSpecial: true, Special: "Down"}, 3
			case 'C':
				return KeyEvent{IsSpecial: true, Special: "Right"}, 3
			case 'D':
				return KeyEvent{IsSpecial: true, Special: "Left"}, 3
			case 'Z':
				return KeyEvent{IsSpecial: true, Special: "Tab", Shift: true}, 3
			case '3':
				if len(buf) > 3 && buf[3] == '~' {
					return KeyEvent{IsSpecial: true, Special: "Delete"}, 4
				}
			}
			return KeyEvent{IsSpecial: true, Special: "Escape"}, len(buf)
		}
		if buf[1] >= 32 && buf[1] < 127 {
			return KeyEvent{Key: rune(buf[1]), Alt: true}, 2
		}
		return KeyEvent{IsSpecial: true, Special: "Escape"}, 1
	}

	switch buf[0] {
	case 9:
		return KeyEvent{IsSpecial: true, Special: "Tab"}, 1
	case 13:
		return KeyEvent{IsSpecial: true, Special: "Enter"}, 1
	case 127, 8:
		return KeyEvent{IsSpecial: true, Special: "Backspace"}, 1
	}

	if buf[0] < 32 {
		return KeyEvent{Key: rune(buf[0] + 'a' - 1), Ctrl: true}, 1
	}

	r, size := utf8.DecodeRune(buf)
	return KeyEvent{Key: r, Shift: r >= 'A' && r <= 'Z'}, size
}
