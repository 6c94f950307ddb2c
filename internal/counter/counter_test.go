package counter

import (
	"testing"
	"time"
)

func TestDefaultInterval(t *testing.T) {
	c := New()
	if got := c.Interval().Get(); got != time.Second {
		t.Fatalf("default interval = %v, want 1s", got)
	}
}

func TestUpdateRecordsGap(t *testing.T) {
	c := New()
	iv := c.Interval()

	time.Sleep(10 * time.Millisecond)
	c.Update()

	got := iv.Get()
	if got < 10*time.Millisecond || got > time.Second {
		t.Fatalf("interval after sleep = %v, want >= 10ms", got)
	}

	c.Update()
	if second := iv.Get(); second > got {
		// Back-to-back updates must record a near-zero gap, not
		// accumulate from the original anchor.
		t.Fatalf("interval after immediate update = %v, want <= %v", second, got)
	}
}

func TestIndependentReaders(t *testing.T) {
	c := New()
	a, b := c.Interval(), c.Interval()

	time.Sleep(2 * time.Millisecond)
	c.Update()

	if a.Get() != b.Get() {
		t.Fatalf("readers disagree: %v vs %v", a.Get(), b.Get())
	}
}
