package capture

import "arisu/internal/types"

// OutputHandle identifies an attached output callback. It wraps the native
// object identity and is used only for equality and later detach, never
// dereferenced.
type OutputHandle uintptr

// DisplayFrame is one frame as delivered by the native capture callback.
// Base is a view over the native pixel buffer covering the full frame in
// BGRA32; it is only valid for the duration of the callback. X/Y/Width/Height
// bound the dirty regions since the previous frame; a zero-sized box means no
// dirty information is available and the whole frame should be taken.
type DisplayFrame struct {
	X, Y          int
	Width, Height int
	Base          []byte
	Stride        int
	FullWidth     int
	FullHeight    int
}

// DisplayOutputFunc receives display frames on the capture thread.
type DisplayOutputFunc func(frame DisplayFrame)

// AudioOutputFunc receives raw audio sample batches on the capture thread.
// The slice is only valid for the duration of the callback.
type AudioOutputFunc func(samples []byte)

// Session is the native capture session. It is not safe for concurrent use:
// every call must come from the owning actor goroutine. Callbacks attached
// through it are invoked from the native capture thread.
type Session interface {
	// Size reports the logical capture resolution.
	Size() types.Dimensions
	// AddDisplayOutput attaches a display frame callback and returns its
	// detach handle. No partial state is left behind on error.
	AddDisplayOutput(fn DisplayOutputFunc) (OutputHandle, error)
	// RemoveDisplayOutput detaches a previously attached display output.
	// Detaching an unknown or already-detached handle is a no-op.
	RemoveDisplayOutput(h OutputHandle)
	AddAudioOutput(fn AudioOutputFunc) (OutputHandle, error)
	RemoveAudioOutput(h OutputHandle)
	Close()
}
