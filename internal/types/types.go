package types

import (
	"context"
	"sync/atomic"
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  uint16
	Height uint16
}

// ScreenSize pairs the resolution announced by the remote client with the
// logical resolution of the capture session. Pointer coordinate conversion
// always uses the server/client ratio of the pair observed at event time.
type ScreenSize struct {
	Client Dimensions
	Server Dimensions
}

// SizeCell holds the current ScreenSize. The pair is swapped as a unit, so a
// reader never observes a half-updated client/server combination. The capture
// actor is the only writer; input translators are the readers.
type SizeCell struct {
	v atomic.Pointer[ScreenSize]
}

func NewSizeCell(initial ScreenSize) *SizeCell {
	c := &SizeCell{}
	c.v.Store(&initial)
	return c
}

func (c *SizeCell) Get() ScreenSize {
	return *c.v.Load()
}

func (c *SizeCell) Set(s ScreenSize) {
	c.v.Store(&s)
}

// KeyboardEventKind discriminates KeyboardEvent variants.
type KeyboardEventKind int

const (
	KeyPressed KeyboardEventKind = iota
	KeyReleased
	UnicodeKeyPressed
	UnicodeKeyReleased
)

// KeyboardEvent is a protocol-level key event. Code/Extended are the remote
// scan code for the non-unicode kinds; Unicode is a single UTF-16 code unit
// for the unicode kinds.
type KeyboardEvent struct {
	Kind     KeyboardEventKind
	Code     uint8
	Extended bool
	Unicode  uint16
}

// MouseEventKind discriminates MouseEvent variants.
type MouseEventKind int

const (
	MouseMove MouseEventKind = iota
	MouseLeftPressed
	MouseLeftReleased
	MouseRightPressed
	MouseRightReleased
	MouseVerticalScroll
)

// MouseEvent is a protocol-level mouse event. X/Y are client-space
// coordinates for Move; Delta is a pixel-unit scroll amount.
type MouseEvent struct {
	Kind  MouseEventKind
	X     uint16
	Y     uint16
	Delta int16
}

// BitmapUpdate is one display update: the bounding box of the regions that
// changed since the previous update, as tightly packed BGRA32 rows.
type BitmapUpdate struct {
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
	Stride int
	Data   []byte
}

// WaveFormatPCM is the only wave format tag this host produces.
const WaveFormatPCM uint16 = 1

// AudioFormat describes a negotiable audio format.
type AudioFormat struct {
	Format         uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
}

// ServerEventKind discriminates asynchronous server-bound events.
type ServerEventKind int

const (
	// EventSoundWave delivers one captured audio sample batch.
	EventSoundWave ServerEventKind = iota
	// EventResize announces that the client-reported resolution changed.
	EventResize
)

// ServerEvent is an asynchronous message pushed toward the protocol server
// through the registered event sender.
type ServerEvent struct {
	Kind      ServerEventKind
	Wave      []byte
	Timestamp uint32
	Size      Dimensions
}

// DisplaySource is the pull-based display capability exposed to the protocol
// server.
type DisplaySource interface {
	// Size reports the logical capture resolution.
	Size(ctx context.Context) (Dimensions, error)
	// Updates starts capture and returns the update stream handle.
	Updates(ctx context.Context) (DisplayUpdates, error)
	// RequestLayout feeds a client-announced resolution into the resize
	// path. Fire-and-forget; completion is observable only via the
	// EventResize notification.
	RequestLayout(size Dimensions)
}

// DisplayUpdates is one active capture stream. Closing it stops frame
// production and releases the native output attachment.
type DisplayUpdates interface {
	// Next blocks until a frame newer than the last returned one has been
	// published, then returns it. Intermediate frames are coalesced.
	Next(ctx context.Context) (*BitmapUpdate, error)
	Close()
}

// InputSink accepts remote input events for native injection.
type InputSink interface {
	Keyboard(ev KeyboardEvent)
	Mouse(ev MouseEvent)
}

// SoundSource is the audio capability exposed to the protocol server.
type SoundSource interface {
	Formats() []AudioFormat
	// Start negotiates against the client's format list. It returns the
	// index of the chosen format, or (0, false) when nothing matches, in
	// which case no capture is started.
	Start(clientFormats []AudioFormat) (int, bool)
	Stop()
}

// EventSender registers the single outbound channel endpoint used by the
// display and sound paths to push ServerEvents.
type EventSender interface {
	SetSender(ch chan<- ServerEvent)
}
