//go:build linux

package input

/*
#cgo pkg-config: x11 xtst
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <X11/extensions/XTest.h>
#include <stdlib.h>

static Display* input_display = NULL;

static int input_init(const char *display_name) {
	input_display = XOpenDisplay(display_name);
	if (!input_display) return -1;
	return 0;
}

static int input_key(unsigned int keysym, int press) {
	if (!input_display) return -1;
	KeyCode kc = XKeysymToKeycode(input_display, keysym);
	if (kc == 0) return -1;
	XTestFakeKeyEvent(input_display, kc, press, 0);
	XFlush(input_display);
	return 0;
}

static int input_mouse_button(int button, int press) {
	if (!input_display) return -1;
	XTestFakeButtonEvent(input_display, button, press, 0);
	XFlush(input_display);
	return 0;
}

static int input_mouse_move_abs(int x, int y) {
	if (!input_display) return -1;
	XTestFakeMotionEvent(input_display, DefaultScreen(input_display), x, y, 0);
	XFlush(input_display);
	return 0;
}

static void input_destroy() {
	if (input_display) {
		XCloseDisplay(input_display);
		input_display = NULL;
	}
}
*/
import "C"
import (
	"fmt"
	"os"
	"unsafe"
)

type xtestInjector struct {
	scrollAccum int
}

// NewInjector opens the X display named by DISPLAY and injects via XTest.
func NewInjector() (Injector, error) {
	name := os.Getenv("DISPLAY")
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	if C.input_init(cName) != 0 {
		return nil, fmt.Errorf("open display for input: %q", name)
	}
	return &xtestInjector{}, nil
}

func (inj *xtestInjector) KeyEvent(key uint16, pressed bool, mods Modifiers) error {
	ks, ok := keysyms[key]
	if !ok {
		return fmt.Errorf("no keysym for host key 0x%02X", key)
	}
	if C.input_key(C.uint(ks), cpress(pressed)) != 0 {
		return fmt.Errorf("XTest key event failed for keysym 0x%04X", ks)
	}
	return nil
}

func (inj *xtestInjector) UnicodeKeyEvent(unit uint16, pressed bool) error {
	// XTest has no direct unicode injection path.
	return fmt.Errorf("unicode injection not supported on X11")
}

func (inj *xtestInjector) MouseButton(btn Button, pressed bool, at Point, mods Modifiers) error {
	if C.input_mouse_button(C.int(x11Button(btn)), cpress(pressed)) != 0 {
		return fmt.Errorf("XTest button event failed")
	}
	return nil
}

func (inj *xtestInjector) MouseDrag(btn Button, to Point, mods Modifiers) error {
	// The held button is already pressed; motion continues the drag.
	return inj.MoveCursor(to)
}

func (inj *xtestInjector) MoveCursor(to Point) error {
	if C.input_mouse_move_abs(C.int(to.X), C.int(to.Y)) != 0 {
		return fmt.Errorf("XTest motion event failed")
	}
	return nil
}

// Scroll accumulates pixel deltas and fires one wheel click per 40px.
func (inj *xtestInjector) Scroll(deltaPixels int16, mods Modifiers) error {
	const pixelsPerClick = 40
	inj.scrollAccum += int(deltaPixels)
	for inj.scrollAccum >= pixelsPerClick {
		if err := click(4); err != nil {
			return err
		}
		inj.scrollAccum -= pixelsPerClick
	}
	for inj.scrollAccum <= -pixelsPerClick {
		if err := click(5); err != nil {
			return err
		}
		inj.scrollAccum += pixelsPerClick
	}
	return nil
}

func (inj *xtestInjector) Close() {
	C.input_destroy()
}

func click(button int) error {
	if C.input_mouse_button(C.int(button), 1) != 0 {
		return fmt.Errorf("XTest wheel event failed")
	}
	C.input_mouse_button(C.int(button), 0)
	return nil
}

func x11Button(btn Button) int {
	if btn == ButtonRight {
		return 3
	}
	return 1
}

func cpress(pressed bool) C.int {
	if pressed {
		return 1
	}
	return 0
}

// X11 keysym constants.
const (
	xkBackSpace = 0xFF08
	xkTab       = 0xFF09
	xkReturn    = 0xFF0D
	xkEscape    = 0xFF1B
	xkDelete    = 0xFFFF
	xkHome      = 0xFF50
	xkLeft      = 0xFF51
	xkUp        = 0xFF52
	xkRight     = 0xFF53
	xkDown      = 0xFF54
	xkPageUp    = 0xFF55
	xkPageDown  = 0xFF56
	xkEnd       = 0xFF57
	xkShiftL    = 0xFFE1
	xkControlL  = 0xFFE3
	xkAltL      = 0xFFE9
	xkSuperL    = 0xFFEB
	xkF1        = 0xFFBE
)

// keysyms maps host virtual key codes to X11 keysyms.
var keysyms = map[uint16]uint{
	0x33: xkBackSpace,
	0x24: xkReturn,
	0x30: xkTab,
	0x35: xkEscape,
	// Letters
	0x00: 'a', 0x01: 's', 0x02: 'd', 0x03: 'f', 0x04: 'h', 0x05: 'g',
	0x06: 'z', 0x07: 'x', 0x08: 'c', 0x09: 'v', 0x0B: 'b',
	0x0C: 'q', 0x0D: 'w', 0x0E: 'e', 0x0F: 'r', 0x10: 'y', 0x11: 't',
	0x20: 'u', 0x22: 'i', 0x1F: 'o', 0x23: 'p',
	0x26: 'j', 0x28: 'k', 0x25: 'l', 0x29: ';',
	0x2D: 'n', 0x2E: 'm',
	// Digits
	0x12: '1', 0x13: '2', 0x14: '3', 0x15: '4', 0x16: '5',
	0x17: '6', 0x18: '7', 0x19: '8', 0x1A: '9', 0x1B: '0',
	// Function keys
	0x7A: xkF1, 0x78: xkF1 + 1, 0x63: xkF1 + 2, 0x76: xkF1 + 3,
	0x60: xkF1 + 4, 0x61: xkF1 + 5, 0x62: xkF1 + 6, 0x64: xkF1 + 7,
	0x65: xkF1 + 8, 0x6D: xkF1 + 9, 0x67: xkF1 + 10, 0x6F: xkF1 + 11,
	// Navigation
	0x7B: xkLeft, 0x7E: xkUp, 0x7D: xkDown, 0x7C: xkRight,
	0x75: xkDelete, 0x73: xkHome, 0x77: xkEnd, 0x74: xkPageUp, 0x79: xkPageDown,
	// Modifiers
	vkShift: xkShiftL, vkControl: xkControlL, vkOption: xkAltL, vkCommand: xkSuperL,
}
