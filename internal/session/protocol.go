package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"

	"arisu/internal/types"

	"github.com/pion/webrtc/v4"
)

// clientMessage is the JSON envelope for everything the client sends on the
// input channel.
type clientMessage struct {
	Type     string       `json:"type"`
	Code     uint8        `json:"code"`
	Extended bool         `json:"extended"`
	Pressed  bool         `json:"pressed"`
	Unit     uint16       `json:"unit"`
	Kind     string       `json:"kind"`
	X        uint16       `json:"x"`
	Y        uint16       `json:"y"`
	Delta    int16        `json:"delta"`
	Width    uint16       `json:"width"`
	Height   uint16       `json:"height"`
	Formats  []wireFormat `json:"formats"`
}

type wireFormat struct {
	Format         uint16 `json:"format"`
	Channels       uint16 `json:"channels"`
	SamplesPerSec  uint32 `json:"samplesPerSec"`
	AvgBytesPerSec uint32 `json:"avgBytesPerSec"`
	BlockAlign     uint16 `json:"blockAlign"`
	BitsPerSample  uint16 `json:"bitsPerSample"`
}

var mouseKinds = map[string]types.MouseEventKind{
	"move":       types.MouseMove,
	"left_down":  types.MouseLeftPressed,
	"left_up":    types.MouseLeftReleased,
	"right_down": types.MouseRightPressed,
	"right_up":   types.MouseRightReleased,
	"scroll":     types.MouseVerticalScroll,
}

func (s *Session) handleInput(dc *webrtc.DataChannel, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	dispatch(msg, s.input, s.ctrl, func(reply string) {
		if dc.ReadyState() == webrtc.DataChannelStateOpen {
			dc.SendText(reply)
		}
	})
}

func dispatch(msg clientMessage, sink types.InputSink, ctrl Controls, reply func(string)) {
	switch msg.Type {
	case "key":
		if sink == nil {
			return
		}
		kind := types.KeyReleased
		if msg.Pressed {
			kind = types.KeyPressed
		}
		sink.Keyboard(types.KeyboardEvent{
			Kind:     kind,
			Code:     msg.Code,
			Extended: msg.Extended,
		})
	case "unicode":
		if sink == nil {
			return
		}
		kind := types.UnicodeKeyReleased
		if msg.Pressed {
			kind = types.UnicodeKeyPressed
		}
		sink.Keyboard(types.KeyboardEvent{
			Kind:    kind,
			Unicode: msg.Unit,
		})
	case "mouse":
		if sink == nil {
			return
		}
		kind, ok := mouseKinds[msg.Kind]
		if !ok {
			log.Printf("unknown mouse kind %q", msg.Kind)
			return
		}
		sink.Mouse(types.MouseEvent{
			Kind:  kind,
			X:     msg.X,
			Y:     msg.Y,
			Delta: msg.Delta,
		})
	case "layout":
		if ctrl.RequestLayout != nil {
			ctrl.RequestLayout(types.Dimensions{Width: msg.Width, Height: msg.Height})
		}
	case "sound_start":
		if ctrl.SoundStart == nil {
			return
		}
		formats := make([]types.AudioFormat, len(msg.Formats))
		for i, f := range msg.Formats {
			formats[i] = types.AudioFormat(f)
		}
		idx, ok := ctrl.SoundStart(formats)
		if !ok {
			reply(`{"type":"sound_unsupported"}`)
			return
		}
		reply(fmt.Sprintf(`{"type":"sound_format","index":%d}`, idx))
	case "sound_stop":
		if ctrl.SoundStop != nil {
			ctrl.SoundStop()
		}
	default:
		log.Printf("unknown client message type %q", msg.Type)
	}
}

// encodeUpdate compresses the update's BGRA region as PNG.
func encodeUpdate(u *types.BitmapUpdate) ([]byte, error) {
	w, h := int(u.Width), int(u.Height)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		src := u.Data[row*u.Stride : row*u.Stride+w*4]
		dst := img.Pix[row*img.Stride:]
		for i := 0; i < w*4; i += 4 {
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
			dst[i+3] = 0xFF
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
