// Package capture owns the native capture session behind a single-threaded
// job actor. The session object is not safe to touch from more than one
// execution context, so every mutation — start/stop capture, size queries,
// layout changes, audio attach/detach — is expressed as a job, sent over a
// bounded queue, and executed exclusively inside the actor loop.
package capture

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"

	"arisu/internal/counter"
	"arisu/internal/types"
)

var (
	// ErrAlreadyCapturing is returned by Updates when a display output is
	// already attached; a second attachment would double-deliver frames.
	ErrAlreadyCapturing = errors.New("capture: display output already attached")
	// ErrActorUnavailable is returned when the job loop has exited and can
	// no longer serve requests.
	ErrActorUnavailable = errors.New("capture: job loop stopped")
)

const jobQueueSize = 10

type jobKind int

const (
	jobGetSize jobKind = iota
	jobSetSize
	jobCaptureStart
	jobCaptureStop
	jobAudioStart
	jobAudioStop
)

type startResult struct {
	updates *Updates
	err     error
}

type job struct {
	kind      jobKind
	size      types.Dimensions     // jobSetSize
	sizeResp  chan types.Dimensions // jobGetSize
	startResp chan startResult      // jobCaptureStart
	handle    OutputHandle          // jobCaptureStop
}

// eventSink is the single slot holding the outbound server event channel.
// Read-mostly: every delivered audio batch and resize notification reads it,
// reassignment happens once per protocol connection.
type eventSink struct {
	mu sync.RWMutex
	ch chan<- types.ServerEvent
}

func (s *eventSink) set(ch chan<- types.ServerEvent) {
	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()
}

// send delivers an event to the registered channel, if any. Never blocks:
// with no sink, or a full sink, the event is dropped.
func (s *eventSink) send(ev types.ServerEvent) bool {
	s.mu.RLock()
	ch := s.ch
	s.mu.RUnlock()
	if ch == nil {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// Capture is the protocol-facing handle onto the capture actor. It is safe
// to share across tasks; all mutations travel through the job queue.
type Capture struct {
	jobs        chan job
	done        chan struct{}
	sink        *eventSink
	size        *types.SizeCell
	sendCounter *counter.IntervalCounter
}

// Context is the actor side: the exclusive owner of the native session.
// Run it on exactly one goroutine.
type Context struct {
	session Session
	jobs    chan job
	done    chan struct{}
	sink    *eventSink
	size    *types.SizeCell

	captureCounter *counter.IntervalCounter
	sendCounter    *counter.IntervalCounter

	displayActive bool
	displayHandle OutputHandle
	audioActive   bool
	audioHandle   OutputHandle
}

// New wires a capture handle to an actor context owning the given session.
// captureCounter samples the native frame arrival rate, sendCounter the rate
// at which the consumer drains updates.
func New(session Session, captureCounter, sendCounter *counter.IntervalCounter) (*Capture, *Context) {
	d := session.Size()
	size := types.NewSizeCell(types.ScreenSize{Client: d, Server: d})
	jobs := make(chan job, jobQueueSize)
	done := make(chan struct{})
	sink := &eventSink{}

	c := &Capture{
		jobs:        jobs,
		done:        done,
		sink:        sink,
		size:        size,
		sendCounter: sendCounter,
	}
	x := &Context{
		session:        session,
		jobs:           jobs,
		done:           done,
		sink:           sink,
		size:           size,
		captureCounter: captureCounter,
		sendCounter:    sendCounter,
	}
	return c, x
}

// Run executes jobs until ctx is cancelled. The loop is pinned to its OS
// thread because the native session carries thread affinity.
func (x *Context) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(x.done)
	defer x.teardown()

	log.Printf("capture: job loop started")
	for {
		select {
		case <-ctx.Done():
			log.Printf("capture: job loop stopping: %v", ctx.Err())
			return ctx.Err()
		case j := <-x.jobs:
			x.handle(j)
		}
	}
}

func (x *Context) handle(j job) {
	switch j.kind {
	case jobGetSize:
		j.sizeResp <- x.size.Get().Server
	case jobSetSize:
		x.handleSetSize(j.size)
	case jobCaptureStart:
		j.startResp <- x.handleCaptureStart()
	case jobCaptureStop:
		x.handleCaptureStop(j.handle)
	case jobAudioStart:
		x.handleAudioStart()
	case jobAudioStop:
		x.handleAudioStop()
	}
}

func (x *Context) teardown() {
	if x.displayActive {
		x.session.RemoveDisplayOutput(x.displayHandle)
		x.displayActive = false
	}
	if x.audioActive {
		x.session.RemoveAudioOutput(x.audioHandle)
		x.audioActive = false
	}
	x.session.Close()
}

// submit enqueues a request/response job. These must not be silently
// dropped, so the send blocks until the actor accepts it or is gone.
func (c *Capture) submit(ctx context.Context, j job) error {
	select {
	case c.jobs <- j:
		return nil
	case <-c.done:
		return ErrActorUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trySubmit enqueues a fire-and-forget job. A full queue drops it.
func (c *Capture) trySubmit(j job) bool {
	select {
	case c.jobs <- j:
		return true
	default:
		return false
	}
}

// SizeCell exposes the live client/server resolution pair, for input
// translators that need the coordinate scale.
func (c *Capture) SizeCell() *types.SizeCell {
	return c.size
}

// SetSender implements types.EventSender.
func (c *Capture) SetSender(ch chan<- types.ServerEvent) {
	log.Printf("capture: event sender registered")
	c.sink.set(ch)
}
