package session

import (
	"encoding/binary"
	"log"
	"math"
	"time"

	"github.com/hraban/opus"
)

const (
	audioSampleRate    = 48000
	audioFrameDuration = 20 * time.Millisecond
	audioFrameSize     = audioSampleRate / 1000 * 20 // samples per 20ms mono frame
)

// OpusForwarder accumulates raw float32 PCM batches from the capture side
// and writes complete Opus frames to the session's audio track.
type OpusForwarder struct {
	sess *Session
	enc  *opus.Encoder
	pcm  []float32
	buf  []byte
}

func NewOpusForwarder(sess *Session) (*OpusForwarder, error) {
	enc, err := opus.NewEncoder(audioSampleRate, 1, opus.AppAudio)
	if err != nil {
		return nil, err
	}
	return &OpusForwarder{
		sess: sess,
		enc:  enc,
		buf:  make([]byte, 4000),
	}, nil
}

// Push appends one wave batch (little-endian float32 mono samples) and
// flushes every complete frame.
func (f *OpusForwarder) Push(wave []byte) {
	for i := 0; i+4 <= len(wave); i += 4 {
		f.pcm = append(f.pcm, math.Float32frombits(binary.LittleEndian.Uint32(wave[i:])))
	}

	for len(f.pcm) >= audioFrameSize {
		n, err := f.enc.EncodeFloat32(f.pcm[:audioFrameSize], f.buf)
		f.pcm = f.pcm[:copy(f.pcm, f.pcm[audioFrameSize:])]
		if err != nil {
			log.Printf("opus encode: %v", err)
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, f.buf[:n])
		if err := f.sess.WriteAudioSample(pkt, audioFrameDuration); err != nil {
			log.Printf("write audio sample: %v", err)
			return
		}
	}
}
