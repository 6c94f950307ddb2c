package capture

import (
	"log"
	"sync/atomic"

	"arisu/internal/types"
)

// Fixed capture audio format: 48 kHz mono, 32-bit float samples.
const (
	SoundSampleRate    = 48000
	SoundBitsPerSample = 32
	SoundChannels      = 1

	// Each delivered wave advances the synthetic timestamp by a fixed
	// step; it is a sequence clock, not wall time.
	waveTimestampStep = 100
)

func soundFormats() []types.AudioFormat {
	return []types.AudioFormat{{
		Format:         types.WaveFormatPCM,
		Channels:       SoundChannels,
		SamplesPerSec:  SoundSampleRate,
		AvgBytesPerSec: SoundSampleRate * SoundChannels * SoundBitsPerSample / 8,
		BlockAlign:     16 * 8,
		BitsPerSample:  SoundBitsPerSample,
	}}
}

// SoundHandler implements types.SoundSource against the capture actor.
type SoundHandler struct {
	jobs    chan<- job
	done    <-chan struct{}
	formats []types.AudioFormat
}

// SoundHandler returns the sound capability backed by this capture actor.
func (c *Capture) SoundHandler() *SoundHandler {
	return &SoundHandler{
		jobs:    c.jobs,
		done:    c.done,
		formats: soundFormats(),
	}
}

func (s *SoundHandler) Formats() []types.AudioFormat {
	return s.formats
}

// Start negotiates against the client's format list and, on a match, asks
// the actor to attach the audio output. No match means no job is issued.
func (s *SoundHandler) Start(clientFormats []types.AudioFormat) (int, bool) {
	idx := -1
	for n, f := range clientFormats {
		for _, ours := range s.formats {
			if f == ours {
				idx = n
				break
			}
		}
		if idx >= 0 {
			break
		}
	}
	if idx < 0 {
		log.Printf("sound: no supported client format among %d candidates", len(clientFormats))
		return 0, false
	}
	s.trySend(job{kind: jobAudioStart})
	return idx, true
}

func (s *SoundHandler) Stop() {
	s.trySend(job{kind: jobAudioStop})
}

func (s *SoundHandler) trySend(j job) {
	select {
	case s.jobs <- j:
	case <-s.done:
		log.Printf("sound: capture actor unavailable, job dropped")
	default:
		log.Printf("sound: job queue full, job dropped")
	}
}

func (x *Context) handleAudioStart() {
	if x.audioActive {
		log.Printf("sound: audio output already attached")
		return
	}

	sink := x.sink
	var ts atomic.Uint32
	h, err := x.session.AddAudioOutput(func(samples []byte) {
		// The native buffer is only valid during the callback.
		wave := make([]byte, len(samples))
		copy(wave, samples)
		sink.send(types.ServerEvent{
			Kind:      types.EventSoundWave,
			Wave:      wave,
			Timestamp: ts.Load(),
		})
		ts.Add(waveTimestampStep)
	})
	if err != nil {
		log.Printf("sound: attach audio output: %v", err)
		return
	}

	x.audioHandle = h
	x.audioActive = true
	log.Printf("sound: audio capture started")
}

func (x *Context) handleAudioStop() {
	if !x.audioActive {
		return
	}
	x.session.RemoveAudioOutput(x.audioHandle)
	x.audioActive = false
	log.Printf("sound: audio capture stopped")
}
