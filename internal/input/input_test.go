package input

import (
	"errors"
	"testing"

	"arisu/internal/types"
)

type injectedCall struct {
	op      string // "key", "unicode", "button", "drag", "move", "scroll"
	key     uint16
	unit    uint16
	pressed bool
	btn     Button
	at      Point
	delta   int16
	mods    Modifiers
}

// fakeInjector records every injected action.
type fakeInjector struct {
	calls []injectedCall
	fail  bool
}

func (f *fakeInjector) KeyEvent(key uint16, pressed bool, mods Modifiers) error {
	f.calls = append(f.calls, injectedCall{op: "key", key: key, pressed: pressed, mods: mods})
	return f.err()
}

func (f *fakeInjector) UnicodeKeyEvent(unit uint16, pressed bool) error {
	f.calls = append(f.calls, injectedCall{op: "unicode", unit: unit, pressed: pressed})
	return f.err()
}

func (f *fakeInjector) MouseButton(btn Button, pressed bool, at Point, mods Modifiers) error {
	f.calls = append(f.calls, injectedCall{op: "button", btn: btn, pressed: pressed, at: at, mods: mods})
	return f.err()
}

func (f *fakeInjector) MouseDrag(btn Button, to Point, mods Modifiers) error {
	f.calls = append(f.calls, injectedCall{op: "drag", btn: btn, at: to, mods: mods})
	return f.err()
}

func (f *fakeInjector) MoveCursor(to Point) error {
	f.calls = append(f.calls, injectedCall{op: "move", at: to})
	return f.err()
}

func (f *fakeInjector) Scroll(deltaPixels int16, mods Modifiers) error {
	f.calls = append(f.calls, injectedCall{op: "scroll", delta: deltaPixels, mods: mods})
	return f.err()
}

func (f *fakeInjector) Close() {}

func (f *fakeInjector) err() error {
	if f.fail {
		return errors.New("injection refused")
	}
	return nil
}

func (f *fakeInjector) last(t *testing.T) injectedCall {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("no injected calls")
	}
	return f.calls[len(f.calls)-1]
}

func newTestTranslator(client, server types.Dimensions) (*Translator, *fakeInjector) {
	inj := &fakeInjector{}
	cell := types.NewSizeCell(types.ScreenSize{Client: client, Server: server})
	return NewTranslator(cell, inj), inj
}

func equalSizes() (types.Dimensions, types.Dimensions) {
	d := types.Dimensions{Width: 1920, Height: 1080}
	return d, d
}

func TestKeyTranslation(t *testing.T) {
	tests := []struct {
		name     string
		code     uint8
		extended bool
		wantKey  uint16
	}{
		{"letter q", 16, false, 0x0C},
		{"return", 28, false, 0x24},
		{"escape", 1, false, 0x35},
		{"digit 1", 2, false, 0x12},
		{"arrow left", 75, true, 0x7B},
		{"f12", 88, false, 0x6F},
		{"unmapped passes through", 57, false, 57},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, inj := newTestTranslator(equalSizes())
			tr.Keyboard(types.KeyboardEvent{Kind: types.KeyPressed, Code: tt.code, Extended: tt.extended})
			c := inj.last(t)
			if c.op != "key" || c.key != tt.wantKey || !c.pressed {
				t.Fatalf("injected %+v, want key 0x%02X pressed", c, tt.wantKey)
			}

			tr.Keyboard(types.KeyboardEvent{Kind: types.KeyReleased, Code: tt.code, Extended: tt.extended})
			if c := inj.last(t); c.pressed {
				t.Fatalf("release injected as pressed: %+v", c)
			}
		})
	}
}

func TestDroppedKeysInjectNothing(t *testing.T) {
	for _, sk := range []struct {
		code     uint8
		extended bool
	}{{55, true}, {70, false}, {69, false}} {
		tr, inj := newTestTranslator(equalSizes())
		tr.Keyboard(types.KeyboardEvent{Kind: types.KeyPressed, Code: sk.code, Extended: sk.extended})
		if len(inj.calls) != 0 {
			t.Fatalf("code %d (extended %v) injected %+v", sk.code, sk.extended, inj.calls)
		}
	}
}

func TestModifierTogglesExactlyOneFlag(t *testing.T) {
	tests := []struct {
		name     string
		code     uint8
		extended bool
		get      func(Modifiers) bool
	}{
		{"shift", 42, false, func(m Modifiers) bool { return m.Shift }},
		{"control", 29, false, func(m Modifiers) bool { return m.Control }},
		{"option", 56, false, func(m Modifiers) bool { return m.Option }},
		{"command", 91, true, func(m Modifiers) bool { return m.Command }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, inj := newTestTranslator(equalSizes())

			tr.Keyboard(types.KeyboardEvent{Kind: types.KeyPressed, Code: tt.code, Extended: tt.extended})
			if !tt.get(tr.mods) {
				t.Fatal("modifier not set on press")
			}
			others := 0
			for _, get := range []func(Modifiers) bool{
				func(m Modifiers) bool { return m.Shift },
				func(m Modifiers) bool { return m.Command },
				func(m Modifiers) bool { return m.Option },
				func(m Modifiers) bool { return m.Control },
			} {
				if get(tr.mods) {
					others++
				}
			}
			if others != 1 {
				t.Fatalf("%d modifiers set, want 1 (%+v)", others, tr.mods)
			}

			tr.Keyboard(types.KeyboardEvent{Kind: types.KeyReleased, Code: tt.code, Extended: tt.extended})
			if tt.get(tr.mods) {
				t.Fatal("modifier still set after release")
			}
			// The modifier key itself is injected as an event.
			if len(inj.calls) != 2 {
				t.Fatalf("%d injected calls, want 2", len(inj.calls))
			}
		})
	}
}

func TestModifiersAppliedToSubsequentEvents(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())

	tr.Keyboard(types.KeyboardEvent{Kind: types.KeyPressed, Code: 42}) // shift down
	tr.Keyboard(types.KeyboardEvent{Kind: types.KeyPressed, Code: 16}) // q
	if c := inj.last(t); !c.mods.Shift {
		t.Fatalf("shift not applied to key event: %+v", c)
	}

	tr.Mouse(types.MouseEvent{Kind: types.MouseLeftPressed})
	if c := inj.last(t); !c.mods.Shift {
		t.Fatalf("shift not applied to mouse event: %+v", c)
	}

	tr.Keyboard(types.KeyboardEvent{Kind: types.KeyReleased, Code: 42}) // shift up
	tr.Keyboard(types.KeyboardEvent{Kind: types.KeyPressed, Code: 16})
	if c := inj.last(t); c.mods.Shift {
		t.Fatalf("shift still applied after release: %+v", c)
	}
}

func TestUnicodeBypassesTable(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())
	tr.Keyboard(types.KeyboardEvent{Kind: types.UnicodeKeyPressed, Unicode: 0xC544})
	c := inj.last(t)
	if c.op != "unicode" || c.unit != 0xC544 || !c.pressed {
		t.Fatalf("injected %+v", c)
	}
	tr.Keyboard(types.KeyboardEvent{Kind: types.UnicodeKeyReleased, Unicode: 0xC544})
	if c := inj.last(t); c.op != "unicode" || c.pressed {
		t.Fatalf("injected %+v", c)
	}
}

func TestMoveScalesClientToServer(t *testing.T) {
	// Client announces 1280x720 while capture runs at 2560x1440.
	tr, inj := newTestTranslator(
		types.Dimensions{Width: 1280, Height: 720},
		types.Dimensions{Width: 2560, Height: 1440},
	)

	tr.Mouse(types.MouseEvent{Kind: types.MouseMove, X: 640, Y: 360})
	c := inj.last(t)
	if c.op != "move" {
		t.Fatalf("op = %q, want move", c.op)
	}
	if c.at != (Point{X: 1280, Y: 720}) {
		t.Fatalf("scaled point = %+v, want (1280, 720)", c.at)
	}
}

func TestMoveIdentityWhenSizesEqual(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())
	tr.Mouse(types.MouseEvent{Kind: types.MouseMove, X: 123, Y: 456})
	if c := inj.last(t); c.at != (Point{X: 123, Y: 456}) {
		t.Fatalf("point = %+v, want identity", c.at)
	}
}

func TestMoveWhileButtonHeldDrags(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())

	tr.Mouse(types.MouseEvent{Kind: types.MouseLeftPressed})
	tr.Mouse(types.MouseEvent{Kind: types.MouseMove, X: 10, Y: 20})
	c := inj.last(t)
	if c.op != "drag" || c.btn != ButtonLeft {
		t.Fatalf("injected %+v, want left drag", c)
	}

	tr.Mouse(types.MouseEvent{Kind: types.MouseLeftReleased})
	tr.Mouse(types.MouseEvent{Kind: types.MouseMove, X: 11, Y: 21})
	if c := inj.last(t); c.op != "move" {
		t.Fatalf("injected %+v after release, want direct cursor move", c)
	}
}

func TestRightButtonDrag(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())
	tr.Mouse(types.MouseEvent{Kind: types.MouseRightPressed})
	tr.Mouse(types.MouseEvent{Kind: types.MouseMove, X: 5, Y: 5})
	if c := inj.last(t); c.op != "drag" || c.btn != ButtonRight {
		t.Fatalf("injected %+v, want right drag", c)
	}
}

func TestScroll(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())
	tr.Mouse(types.MouseEvent{Kind: types.MouseVerticalScroll, Delta: -120})
	if c := inj.last(t); c.op != "scroll" || c.delta != -120 {
		t.Fatalf("injected %+v", c)
	}
}

func TestUnknownMouseEventIgnored(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())
	tr.Mouse(types.MouseEvent{Kind: types.MouseEventKind(99)})
	if len(inj.calls) != 0 {
		t.Fatalf("injected %+v for unknown event kind", inj.calls)
	}
}

func TestInjectionFailureIsNotFatal(t *testing.T) {
	tr, inj := newTestTranslator(equalSizes())
	inj.fail = true

	// None of these may panic; failures are logged and dropped.
	tr.Keyboard(types.KeyboardEvent{Kind: types.KeyPressed, Code: 16})
	tr.Mouse(types.MouseEvent{Kind: types.MouseLeftPressed})
	tr.Mouse(types.MouseEvent{Kind: types.MouseMove, X: 1, Y: 1})
	tr.Mouse(types.MouseEvent{Kind: types.MouseVerticalScroll, Delta: 3})

	// State still tracked despite failures.
	if tr.down != ButtonLeft {
		t.Fatalf("down button = %v, want left", tr.down)
	}
}
