// Package input translates remote keyboard/mouse events into native injected
// events. A Translator is exclusively owned by the connection that created
// it; its modifier and pointer state is never shared across connections.
package input

import (
	"fmt"
	"log"

	"arisu/internal/types"
)

// Modifiers is the persistent held-modifier state, mutated as modifier scan
// codes are observed and applied as a flag mask on every injected event.
type Modifiers struct {
	Shift   bool
	Command bool
	Option  bool
	Control bool
}

// Point is a server-space pointer position.
type Point struct {
	X float64
	Y float64
}

// Button identifies a trackable mouse button.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
)

// Injector is the native event-injection capability. Implementations post
// events system-wide; failures are reported, never fatal.
type Injector interface {
	KeyEvent(key uint16, pressed bool, mods Modifiers) error
	// UnicodeKeyEvent injects a single UTF-16 code unit on a generic
	// key-down/key-up event, bypassing key code translation.
	UnicodeKeyEvent(unit uint16, pressed bool) error
	MouseButton(btn Button, pressed bool, at Point, mods Modifiers) error
	MouseDrag(btn Button, to Point, mods Modifiers) error
	// MoveCursor repositions the pointer directly, without synthesizing
	// a mouse event.
	MoveCursor(to Point) error
	Scroll(deltaPixels int16, mods Modifiers) error
	Close()
}

// Translator implements types.InputSink over an Injector.
type Translator struct {
	inj  Injector
	size *types.SizeCell

	last Point
	down Button
	mods Modifiers
}

func NewTranslator(size *types.SizeCell, inj Injector) *Translator {
	return &Translator{inj: inj, size: size}
}

// Close releases the underlying injector.
func (t *Translator) Close() {
	t.inj.Close()
}

// Keyboard implements types.InputSink. Untranslatable or failed events are
// logged and dropped; the connection continues.
func (t *Translator) Keyboard(ev types.KeyboardEvent) {
	switch ev.Kind {
	case types.KeyPressed, types.KeyReleased:
		pressed := ev.Kind == types.KeyPressed
		key, err := t.translateKey(ev.Code, ev.Extended, pressed)
		if err != nil {
			log.Printf("input: %v", err)
			return
		}
		if err := t.inj.KeyEvent(key, pressed, t.mods); err != nil {
			log.Printf("input: key injection failed: %v", err)
		}
	case types.UnicodeKeyPressed, types.UnicodeKeyReleased:
		pressed := ev.Kind == types.UnicodeKeyPressed
		if err := t.inj.UnicodeKeyEvent(ev.Unicode, pressed); err != nil {
			log.Printf("input: unicode injection failed: %v", err)
		}
	default:
		log.Printf("input: unhandled keyboard event kind %d", ev.Kind)
	}
}

// translateKey maps a remote scan code to a host virtual key. Modifier scan
// codes update the persistent modifier state as a side effect.
func (t *Translator) translateKey(code uint8, extended, pressed bool) (uint16, error) {
	switch (scanKey{code, extended}) {
	case scanKey{91, true}:
		t.mods.Command = pressed
		return vkCommand, nil
	case scanKey{29, false}:
		t.mods.Control = pressed
		return vkControl, nil
	case scanKey{42, false}:
		t.mods.Shift = pressed
		return vkShift, nil
	case scanKey{56, false}:
		t.mods.Option = pressed
		return vkOption, nil
	}

	if droppedKeys[scanKey{code, extended}] {
		return 0, fmt.Errorf("unsupported key code %d (extended %v)", code, extended)
	}
	if vk, ok := keymap[scanKey{code, extended}]; ok {
		return vk, nil
	}
	// Unmapped non-special codes pass through as-is.
	log.Printf("input: unmapped key code %d (extended %v), passing through", code, extended)
	return uint16(code), nil
}

// Mouse implements types.InputSink. Only one button is tracked as held at a
// time: a Move while a button is down becomes a drag with that button.
func (t *Translator) Mouse(ev types.MouseEvent) {
	switch ev.Kind {
	case types.MouseLeftPressed:
		t.button(ButtonLeft, true)
	case types.MouseLeftReleased:
		t.button(ButtonLeft, false)
	case types.MouseRightPressed:
		t.button(ButtonRight, true)
	case types.MouseRightReleased:
		t.button(ButtonRight, false)
	case types.MouseMove:
		t.move(ev.X, ev.Y)
	case types.MouseVerticalScroll:
		if err := t.inj.Scroll(ev.Delta, t.mods); err != nil {
			log.Printf("input: scroll injection failed: %v", err)
		}
	default:
		// Unsupported but harmless; not an error.
		log.Printf("input: ignoring mouse event kind %d", ev.Kind)
	}
}

func (t *Translator) button(btn Button, pressed bool) {
	if pressed {
		t.down = btn
	} else {
		t.down = ButtonNone
	}
	if err := t.inj.MouseButton(btn, pressed, t.last, t.mods); err != nil {
		log.Printf("input: mouse button injection failed: %v", err)
	}
}

func (t *Translator) move(x, y uint16) {
	s := t.size.Get()
	if s.Client.Width == 0 || s.Client.Height == 0 {
		log.Printf("input: dropping move, client size unknown")
		return
	}
	// Client-space to server-space using the live resolution ratio.
	t.last = Point{
		X: float64(uint32(x)*uint32(s.Server.Width)) / float64(s.Client.Width),
		Y: float64(uint32(y)*uint32(s.Server.Height)) / float64(s.Client.Height),
	}

	if t.down != ButtonNone {
		if err := t.inj.MouseDrag(t.down, t.last, t.mods); err != nil {
			log.Printf("input: drag injection failed: %v", err)
		}
		return
	}
	if err := t.inj.MoveCursor(t.last); err != nil {
		log.Printf("input: cursor move failed: %v", err)
	}
}
