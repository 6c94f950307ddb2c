package capture

import (
	"context"
	"testing"

	"arisu/internal/types"
)

func pcmFormat() types.AudioFormat {
	return soundFormats()[0]
}

func TestSoundStartNegotiation(t *testing.T) {
	unsupported := types.AudioFormat{Format: 0x6001, Channels: 2, SamplesPerSec: 44100}

	tests := []struct {
		name    string
		formats []types.AudioFormat
		wantIdx int
		wantOK  bool
	}{
		{"exact match", []types.AudioFormat{pcmFormat()}, 0, true},
		{"match after unsupported", []types.AudioFormat{unsupported, pcmFormat()}, 1, true},
		{"only unsupported", []types.AudioFormat{unsupported}, 0, false},
		{"empty list", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession(64, 48)
			c := startActor(t, s)
			h := c.SoundHandler()

			idx, ok := h.Start(tt.formats)
			if idx != tt.wantIdx || ok != tt.wantOK {
				t.Fatalf("Start = (%d, %v), want (%d, %v)", idx, ok, tt.wantIdx, tt.wantOK)
			}

			// Flush the queue, then check whether an attach happened.
			if _, err := c.Size(context.Background()); err != nil {
				t.Fatal(err)
			}
			want := 0
			if tt.wantOK {
				want = 1
			}
			if got := s.audioCount(); got != want {
				t.Fatalf("audio outputs = %d, want %d", got, want)
			}
		})
	}
}

func TestSoundStartIsSingleAttachment(t *testing.T) {
	s := newFakeSession(64, 48)
	c := startActor(t, s)
	h := c.SoundHandler()

	h.Start([]types.AudioFormat{pcmFormat()})
	h.Start([]types.AudioFormat{pcmFormat()})
	if _, err := c.Size(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.audioCount(); got != 1 {
		t.Fatalf("audio outputs = %d, want 1", got)
	}
}

func TestSoundStopDetaches(t *testing.T) {
	s := newFakeSession(64, 48)
	c := startActor(t, s)
	h := c.SoundHandler()

	h.Start([]types.AudioFormat{pcmFormat()})
	h.Stop()
	h.Stop() // double stop is a no-op
	if _, err := c.Size(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.audioCount(); got != 0 {
		t.Fatalf("audio outputs = %d, want 0", got)
	}

	// Start works again after a stop.
	h.Start([]types.AudioFormat{pcmFormat()})
	if _, err := c.Size(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.audioCount(); got != 1 {
		t.Fatalf("audio outputs after restart = %d, want 1", got)
	}
}

func TestWaveTimestampsAdvance(t *testing.T) {
	s := newFakeSession(64, 48)
	c := startActor(t, s)
	h := c.SoundHandler()

	events := make(chan types.ServerEvent, 8)
	c.SetSender(events)

	h.Start([]types.AudioFormat{pcmFormat()})
	if _, err := c.Size(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	var fn AudioOutputFunc
	for _, f := range s.audioFns {
		fn = f
	}
	s.mu.Unlock()
	if fn == nil {
		t.Fatal("no audio output attached")
	}

	fn([]byte{1, 2})
	fn([]byte{3, 4})

	first := <-events
	second := <-events
	if first.Kind != types.EventSoundWave || second.Kind != types.EventSoundWave {
		t.Fatalf("event kinds = %v, %v", first.Kind, second.Kind)
	}
	if first.Timestamp != 0 {
		t.Fatalf("first timestamp = %d, want 0", first.Timestamp)
	}
	if second.Timestamp != first.Timestamp+waveTimestampStep {
		t.Fatalf("second timestamp = %d, want %d", second.Timestamp, first.Timestamp+waveTimestampStep)
	}
	if string(first.Wave) != string([]byte{1, 2}) {
		t.Fatalf("wave bytes = %v", first.Wave)
	}
}

func TestWavesDroppedWithoutSink(t *testing.T) {
	s := newFakeSession(64, 48)
	c := startActor(t, s)
	h := c.SoundHandler()

	h.Start([]types.AudioFormat{pcmFormat()})
	if _, err := c.Size(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	var fn AudioOutputFunc
	for _, f := range s.audioFns {
		fn = f
	}
	s.mu.Unlock()

	// No sink registered: delivery must not block or panic.
	done := make(chan struct{})
	go func() {
		fn([]byte{9})
		close(done)
	}()
	<-done
}
