// Package session owns one WebRTC peer connection: the Opus audio track,
// the "display" data channel carrying bitmap-region updates toward the
// client, and the "input" data channel carrying client events toward the
// host capabilities.
package session

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"arisu/internal/types"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// InputHandler consumes decoded remote input events for one connection.
type InputHandler interface {
	types.InputSink
	Close()
}

// InputHandlerFactory creates the per-session input handler.
type InputHandlerFactory func() (InputHandler, error)

// Controls are the host capabilities a client steers over the input channel.
type Controls struct {
	RequestLayout func(types.Dimensions)
	SoundStart    func([]types.AudioFormat) (int, bool)
	SoundStop     func()
}

type Session struct {
	ID         string
	PC         *webrtc.PeerConnection
	AudioTrack *webrtc.TrackLocalStaticSample
	Stop       chan struct{}

	input InputHandler
	ctrl  Controls
	ready chan struct{}

	mu      sync.Mutex
	display *webrtc.DataChannel
	closed  bool
}

func NewSession(id string, inputFactory InputHandlerFactory, ctrl Controls) (*Session, error) {
	me := &webrtc.MediaEngine{}

	// Register Opus codec. Audio is captured mono at 48 kHz.
	if err := me.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  1,
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register Opus: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(me))

	config := webrtc.Configuration{
		// LAN only — no STUN/TURN
	}

	pc, err := api.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	audioTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  1,
		},
		"audio", "arisu",
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create audio track: %w", err)
	}

	if _, err = pc.AddTrack(audioTrack); err != nil {
		pc.Close()
		return nil, fmt.Errorf("add audio track: %w", err)
	}

	sess := &Session{
		ID:         id,
		PC:         pc,
		AudioTrack: audioTrack,
		ctrl:       ctrl,
		Stop:       make(chan struct{}),
		ready:      make(chan struct{}),
	}

	if inputFactory != nil {
		ih, err := inputFactory()
		if err != nil {
			log.Printf("warning: input handler init failed: %v", err)
		} else {
			sess.input = ih
		}
	}

	// Data channels are created by the client; we handle them via OnDataChannel
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		switch dc.Label() {
		case "input":
			dc.OnMessage(func(msg webrtc.DataChannelMessage) {
				sess.handleInput(dc, msg.Data)
			})
		case "display":
			sess.mu.Lock()
			sess.display = dc
			sess.mu.Unlock()
			dc.OnOpen(func() {
				close(sess.ready)
			})
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("peer connection state: %s", state.String())
		if state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateDisconnected ||
			state == webrtc.PeerConnectionStateClosed {
			sess.Close()
		}
	})

	return sess, nil
}

// DisplayReady is closed once the client's display channel is open.
func (s *Session) DisplayReady() <-chan struct{} {
	return s.ready
}

// SendDisplayUpdate frames one bitmap update and sends it on the display
// channel: an 8-byte header (x, y, w, h as uint16 LE) followed by the
// region encoded as PNG.
func (s *Session) SendDisplayUpdate(u *types.BitmapUpdate) error {
	s.mu.Lock()
	dc := s.display
	s.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return nil
	}

	payload, err := encodeUpdate(u)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint16(buf[0:], u.X)
	binary.LittleEndian.PutUint16(buf[2:], u.Y)
	binary.LittleEndian.PutUint16(buf[4:], u.Width)
	binary.LittleEndian.PutUint16(buf[6:], u.Height)
	copy(buf[8:], payload)

	return dc.Send(buf)
}

// SendResize notifies the client of a resolution change as a JSON text
// message on the display channel.
func (s *Session) SendResize(size types.Dimensions) {
	s.mu.Lock()
	dc := s.display
	s.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}
	if err := dc.SendText(fmt.Sprintf(`{"type":"resize","width":%d,"height":%d}`,
		size.Width, size.Height)); err != nil {
		log.Printf("send resize: %v", err)
	}
}

func (s *Session) WriteAudioSample(data []byte, dur time.Duration) error {
	return s.AudioTrack.WriteSample(media.Sample{
		Data:     data,
		Duration: dur,
	})
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Stop)

	if s.input != nil {
		s.input.Close()
	}
	s.PC.Close()
	log.Printf("session %s closed", s.ID)
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
