package tui

import "testing"

func TestParseInput_Keys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want KeyEvent
	}{
		{"letter", "a", KeyEvent{Key: 'a'}},
		{"capital", "L", KeyEvent{Key: 'L', Shift: true}},
		{"enter", "\r", KeyEvent{IsSpecial: true, Special: "Enter"}},
		{"tab", "\t", KeyEvent{IsSpecial: true, Special: "Tab"}},
		{"backtab", "\x1b[Z", KeyEvent{IsSpecial: true, Special: "Tab", Shift: true}},
		{"escape", "\x1b", KeyEvent{IsSpecial: true, Special: "Escape"}},
		{"up", "\x1b[A", KeyEvent{IsSpecial: true, Special: "Up"}},
		{"delete", "\x1b[3~", KeyEvent{IsSpecial: true, Special: "Delete"}},
		{"ctrl-s", "\x13", KeyEvent{Key: 's', Ctrl: true}},
		{"backspace", "\x7f", KeyEvent{IsSpecial: true, Special: "Backspace"}},
		{"unicode", "é", KeyEvent{Key: 'é'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := ParseInput([]byte(tt.in))
			if len(events) != 1 || events[0].Key == nil {
				t.Fatalf("expected one key event, got %+v", events)
			}
			if *events[0].Key != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, *events[0].Key)
			}
		})
	}
}

func TestParseInput_SGRMouse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want MouseEvent
	}{
		{"press", "\x1b[<0;10;5M", MouseEvent{X: 9, Y: 4, Button: 0, Action: MousePress}},
		{"release", "\x1b[<0;10;5m", MouseEvent{X: 9, Y: 4, Button: 0, Action: MouseRelease}},
		{"drag", "\x1b[<32;12;6M", MouseEvent{X: 11, Y: 5, Button: 0, Action: MouseMotion}},
		{"wheel up", "\x1b[<64;1;1M", MouseEvent{X: 0, Y: 0, Action: MouseWheelUp}},
		{"wheel down", "\x1b[<65;1;1M", MouseEvent{X: 0, Y: 0, Button: 1, Action: MouseWheelDown}},
		{"ctrl right", "\x1b[<18;3;4M", MouseEvent{X: 2, Y: 3, Button: 2, Ctrl: true, Action: MousePress}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := ParseInput([]byte(tt.in))
			if len(events) != 1 || events[0].Mouse == nil {
				t.Fatalf("expected one mouse event, got %+v", events)
			}
			if *events[0].Mouse != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, *events[0].Mouse)
			}
		})
	}
}

func TestParseInput_Batched(t *testing.T) {
	events := ParseInput([]byte("\x1b[<32;2;2M\x1b[<32;3;2M\x1b[<0;3;2mq"))
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[2].Mouse == nil || events[2].Mouse.Action != MouseRelease {
		t.Error("third event should be a release")
	}
	if events[3].Key == nil || events[3].Key.Key != 'q' {
		t.Error("trailing key should be parsed")
	}
}
