//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation

#include <CoreGraphics/CoreGraphics.h>

static int inject_key(uint16_t vk, int pressed, uint64_t flags) {
	CGEventRef ev = CGEventCreateKeyboardEvent(NULL, (CGKeyCode)vk, pressed != 0);
	if (!ev) return -1;
	if (flags) CGEventSetFlags(ev, (CGEventFlags)flags);
	CGEventPost(kCGSessionEventTap, ev);
	CFRelease(ev);
	return 0;
}

static int inject_unicode(uint16_t unit, int pressed) {
	CGEventRef ev = CGEventCreateKeyboardEvent(NULL, (CGKeyCode)0, pressed != 0);
	if (!ev) return -1;
	UniChar ch = (UniChar)unit;
	CGEventKeyboardSetUnicodeString(ev, 1, &ch);
	CGEventPost(kCGSessionEventTap, ev);
	CFRelease(ev);
	return 0;
}

static int inject_mouse(int type, int button, double x, double y, uint64_t flags) {
	CGEventRef ev = CGEventCreateMouseEvent(NULL, (CGEventType)type,
		CGPointMake(x, y), (CGMouseButton)button);
	if (!ev) return -1;
	if (flags) CGEventSetFlags(ev, (CGEventFlags)flags);
	CGEventPost(kCGSessionEventTap, ev);
	CFRelease(ev);
	return 0;
}

static int inject_move_cursor(double x, double y) {
	return (int)CGDisplayMoveCursorToPoint(CGMainDisplayID(), CGPointMake(x, y));
}

static int inject_scroll(int pixels, uint64_t flags) {
	CGEventRef ev = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitPixel,
		1, pixels);
	if (!ev) return -1;
	if (flags) CGEventSetFlags(ev, (CGEventFlags)flags);
	CGEventPost(kCGSessionEventTap, ev);
	CFRelease(ev);
	return 0;
}
*/
import "C"
import "fmt"

// CGEventType / CGMouseButton values used below.
const (
	cgLeftMouseDown     = 1
	cgLeftMouseUp       = 2
	cgRightMouseDown    = 3
	cgRightMouseUp      = 4
	cgLeftMouseDragged  = 6
	cgRightMouseDragged = 7

	cgMouseButtonLeft  = 0
	cgMouseButtonRight = 1
)

// CGEventFlags modifier masks.
const (
	cgFlagShift     = 0x00020000
	cgFlagControl   = 0x00040000
	cgFlagAlternate = 0x00080000
	cgFlagCommand   = 0x00100000
)

type cgInjector struct{}

// NewInjector returns the CoreGraphics session event tap injector.
func NewInjector() (Injector, error) {
	return &cgInjector{}, nil
}

func cgFlags(m Modifiers) C.uint64_t {
	var f uint64
	if m.Shift {
		f |= cgFlagShift
	}
	if m.Control {
		f |= cgFlagControl
	}
	if m.Option {
		f |= cgFlagAlternate
	}
	if m.Command {
		f |= cgFlagCommand
	}
	return C.uint64_t(f)
}

func (cgInjector) KeyEvent(key uint16, pressed bool, mods Modifiers) error {
	if C.inject_key(C.uint16_t(key), cbool(pressed), cgFlags(mods)) != 0 {
		return fmt.Errorf("CGEventCreateKeyboardEvent failed for key 0x%02X", key)
	}
	return nil
}

func (cgInjector) UnicodeKeyEvent(unit uint16, pressed bool) error {
	if C.inject_unicode(C.uint16_t(unit), cbool(pressed)) != 0 {
		return fmt.Errorf("unicode keyboard event failed for U+%04X", unit)
	}
	return nil
}

func (cgInjector) MouseButton(btn Button, pressed bool, at Point, mods Modifiers) error {
	typ, nativeBtn := cgLeftMouseDown, cgMouseButtonLeft
	switch {
	case btn == ButtonLeft && pressed:
		typ = cgLeftMouseDown
	case btn == ButtonLeft && !pressed:
		typ = cgLeftMouseUp
	case btn == ButtonRight && pressed:
		typ, nativeBtn = cgRightMouseDown, cgMouseButtonRight
	case btn == ButtonRight && !pressed:
		typ, nativeBtn = cgRightMouseUp, cgMouseButtonRight
	default:
		return fmt.Errorf("untrackable mouse button %d", btn)
	}
	if C.inject_mouse(C.int(typ), C.int(nativeBtn), C.double(at.X), C.double(at.Y), cgFlags(mods)) != 0 {
		return fmt.Errorf("mouse button event failed (type %d)", typ)
	}
	return nil
}

func (cgInjector) MouseDrag(btn Button, to Point, mods Modifiers) error {
	typ, nativeBtn := cgLeftMouseDragged, cgMouseButtonLeft
	if btn == ButtonRight {
		typ, nativeBtn = cgRightMouseDragged, cgMouseButtonRight
	}
	if C.inject_mouse(C.int(typ), C.int(nativeBtn), C.double(to.X), C.double(to.Y), cgFlags(mods)) != 0 {
		return fmt.Errorf("mouse drag event failed (type %d)", typ)
	}
	return nil
}

func (cgInjector) MoveCursor(to Point) error {
	if ret := C.inject_move_cursor(C.double(to.X), C.double(to.Y)); ret != 0 {
		return fmt.Errorf("CGDisplayMoveCursorToPoint error %d", int(ret))
	}
	return nil
}

func (cgInjector) Scroll(deltaPixels int16, mods Modifiers) error {
	if C.inject_scroll(C.int(deltaPixels), cgFlags(mods)) != 0 {
		return fmt.Errorf("scroll wheel event failed")
	}
	return nil
}

func (cgInjector) Close() {}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
