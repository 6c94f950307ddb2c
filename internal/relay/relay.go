// Package relay hands captured frames from the native capture callback to a
// single protocol consumer through a fixed three-slot buffer. The producer
// never blocks; a slow consumer only ever sees the most recently published
// frame (newest wins, intermediate frames are coalesced).
package relay

import (
	"context"
	"sync/atomic"
)

// Frame is one captured display frame: the bounding box of the dirty regions
// since the previous sample, as tightly packed BGRA32 rows (4 bytes/pixel).
type Frame struct {
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
	Data   []byte
}

// SetRegion sizes the frame for a w×h region at (x, y) and returns the pixel
// buffer to fill. The underlying allocation is reused across frames.
func (f *Frame) SetRegion(x, y, w, h uint16) []byte {
	n := 4 * int(w) * int(h)
	if cap(f.Data) < n {
		f.Data = make([]byte, n)
	}
	f.Data = f.Data[:n]
	f.X, f.Y, f.Width, f.Height = x, y, w, h
	return f.Data
}

const (
	slotMask = 0x3
	dirtyBit = 0x4
)

// Relay is the triple buffer plus its wake signal. Exactly one goroutine may
// produce (WriteSlot/Publish) and exactly one may consume (Await) at a time;
// the two sides never block each other. The shared "mid" word holds the index
// of the most recently published slot plus a dirty bit that is set by Publish
// and cleared when the consumer takes the slot, so each published frame is
// observed at most once.
type Relay struct {
	slots    [3]Frame
	mid      atomic.Uint32
	writeIdx uint32
	readIdx  uint32
	wake     chan struct{}
}

// New returns a relay whose slots are preallocated for full frames of the
// given size.
func New(size int) *Relay {
	r := &Relay{
		writeIdx: 0,
		readIdx:  2,
		wake:     make(chan struct{}, 1),
	}
	r.mid.Store(1)
	for i := range r.slots {
		r.slots[i].Data = make([]byte, 0, size)
	}
	return r
}

// WriteSlot returns the producer's current slot. The producer owns it
// exclusively until the next Publish.
func (r *Relay) WriteSlot() *Frame {
	return &r.slots[r.writeIdx]
}

// Publish rotates the filled write slot in as the new current frame and
// wakes the consumer. Never blocks.
func (r *Relay) Publish() {
	old := r.mid.Swap(r.writeIdx | dirtyBit)
	r.writeIdx = old & slotMask
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Await blocks until a publish newer than the last returned frame exists,
// then returns it. The returned frame is owned by the consumer until the
// next Await call.
func (r *Relay) Await(ctx context.Context) (*Frame, error) {
	for {
		if r.mid.Load()&dirtyBit != 0 {
			// Swap our old read slot in as the clean mid slot and
			// take whatever is newest at this instant.
			old := r.mid.Swap(r.readIdx)
			r.readIdx = old & slotMask
			return &r.slots[r.readIdx], nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.wake:
		}
	}
}
