// Package counter provides a lock-free inter-event interval sampler. One
// writer records event arrivals; any number of readers observe the latest
// interval without blocking the writer.
package counter

import (
	"sync/atomic"
	"time"
)

// IntervalCounter records the gap between consecutive Update calls. Update
// must be called from a single goroutine; Interval handles may be read from
// anywhere.
type IntervalCounter struct {
	last     time.Time
	interval *atomic.Uint64 // microseconds
}

func New() *IntervalCounter {
	c := &IntervalCounter{
		last:     time.Now(),
		interval: &atomic.Uint64{},
	}
	c.interval.Store(uint64(time.Second / time.Microsecond))
	return c
}

// Update stores now−last as the new interval and resets the anchor to now.
func (c *IntervalCounter) Update() {
	now := time.Now()
	c.interval.Store(uint64(now.Sub(c.last) / time.Microsecond))
	c.last = now
}

// Interval returns a read-only handle onto the live interval value.
func (c *IntervalCounter) Interval() *Interval {
	return &Interval{v: c.interval}
}

// Interval is a reader handle created from an IntervalCounter. Reads may lag
// the true instant by one event gap.
type Interval struct {
	v *atomic.Uint64
}

// Get returns the last recorded interval, 1 second before any update.
func (i *Interval) Get() time.Duration {
	return time.Duration(i.v.Load()) * time.Microsecond
}
