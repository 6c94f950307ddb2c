package capture

import (
	"context"
	"fmt"
	"log"
	"sync"

	"arisu/internal/counter"
	"arisu/internal/relay"
	"arisu/internal/types"
)

// Size implements types.DisplaySource. It reports the logical capture
// resolution, read inside the actor so it is ordered with other jobs.
func (c *Capture) Size(ctx context.Context) (types.Dimensions, error) {
	resp := make(chan types.Dimensions, 1)
	if err := c.submit(ctx, job{kind: jobGetSize, sizeResp: resp}); err != nil {
		return types.Dimensions{}, err
	}
	select {
	case d := <-resp:
		return d, nil
	case <-c.done:
		return types.Dimensions{}, ErrActorUnavailable
	case <-ctx.Done():
		return types.Dimensions{}, ctx.Err()
	}
}

// Updates implements types.DisplaySource. It starts display capture and
// returns the update stream handle.
func (c *Capture) Updates(ctx context.Context) (types.DisplayUpdates, error) {
	resp := make(chan startResult, 1)
	if err := c.submit(ctx, job{kind: jobCaptureStart, startResp: resp}); err != nil {
		return nil, err
	}
	select {
	case res := <-resp:
		if res.err != nil {
			return nil, res.err
		}
		log.Printf("capture: display capture started")
		return res.updates, nil
	case <-c.done:
		return nil, ErrActorUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestLayout implements types.DisplaySource. Fire-and-forget: a full job
// queue drops the request, completion is only observable via EventResize.
func (c *Capture) RequestLayout(size types.Dimensions) {
	if !c.trySubmit(job{kind: jobSetSize, size: size}) {
		log.Printf("capture: job queue full, layout request %dx%d dropped", size.Width, size.Height)
	}
}

// Updates is the consumer side of one display capture stream.
type Updates struct {
	handle  OutputHandle
	jobs    chan<- job
	done    <-chan struct{}
	relay   *relay.Relay
	counter *counter.IntervalCounter
	once    sync.Once
}

// Next implements types.DisplayUpdates. It suspends until a frame newer than
// the previously returned one has been published.
func (u *Updates) Next(ctx context.Context) (*types.BitmapUpdate, error) {
	f, err := u.relay.Await(ctx)
	if err != nil {
		return nil, err
	}
	u.counter.Update()
	return &types.BitmapUpdate{
		X:      f.X,
		Y:      f.Y,
		Width:  f.Width,
		Height: f.Height,
		Stride: 4 * int(f.Width),
		Data:   f.Data,
	}, nil
}

// Close stops frame production and reclaims the native output attachment.
// Idempotent; safe to call from any goroutine.
func (u *Updates) Close() {
	u.once.Do(func() {
		// Dropping the stop job would leak the native attachment, so
		// wait for the actor to accept it unless the actor is gone.
		select {
		case u.jobs <- job{kind: jobCaptureStop, handle: u.handle}:
		case <-u.done:
		}
	})
}

func (x *Context) handleSetSize(d types.Dimensions) {
	cur := x.size.Get()
	if cur.Client == d {
		return
	}
	x.size.Set(types.ScreenSize{Client: d, Server: cur.Server})
	log.Printf("capture: client size %dx%d (server %dx%d)",
		d.Width, d.Height, cur.Server.Width, cur.Server.Height)
	x.sink.send(types.ServerEvent{Kind: types.EventResize, Size: d})
}

func (x *Context) handleCaptureStart() startResult {
	if x.displayActive {
		return startResult{err: ErrAlreadyCapturing}
	}

	server := x.size.Get().Server
	r := relay.New(4 * int(server.Width) * int(server.Height))
	cc := x.captureCounter

	h, err := x.session.AddDisplayOutput(func(f DisplayFrame) {
		if publishFrame(r, f) {
			cc.Update()
		}
	})
	if err != nil {
		return startResult{err: fmt.Errorf("attach display output: %w", err)}
	}

	x.displayHandle = h
	x.displayActive = true
	return startResult{updates: &Updates{
		handle:  h,
		jobs:    x.jobs,
		done:    x.done,
		relay:   r,
		counter: x.sendCounter,
	}}
}

func (x *Context) handleCaptureStop(h OutputHandle) {
	if !x.displayActive || x.displayHandle != h {
		// Double stop, or a stop for an attachment that is already
		// gone. Nothing to do.
		return
	}
	x.session.RemoveDisplayOutput(h)
	x.displayActive = false
	log.Printf("capture: display capture stopped")
}

// publishFrame copies the dirty region of a native frame into the relay's
// write slot and publishes it. Returns false if the frame had to be dropped.
// Runs on the capture thread, concurrently with the consumer but never with
// another producer invocation.
func publishFrame(r *relay.Relay, f DisplayFrame) bool {
	x, y, w, h := f.X, f.Y, f.Width, f.Height
	if w == 0 || h == 0 {
		x, y, w, h = 0, 0, f.FullWidth, f.FullHeight
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || (y+h-1)*f.Stride+(x+w)*4 > len(f.Base) {
		log.Printf("capture: dropping frame with out-of-range region (%d,%d) %dx%d", x, y, w, h)
		return false
	}

	slot := r.WriteSlot()
	dst := slot.SetRegion(uint16(x), uint16(y), uint16(w), uint16(h))
	for row := 0; row < h; row++ {
		src := f.Base[(y+row)*f.Stride+x*4:]
		copy(dst[row*w*4:(row+1)*w*4], src[:w*4])
	}
	r.Publish()
	return true
}
