package session

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"

	"arisu/internal/types"
)

type recordingSink struct {
	keys  []types.KeyboardEvent
	mice  []types.MouseEvent
}

func (r *recordingSink) Keyboard(ev types.KeyboardEvent) { r.keys = append(r.keys, ev) }
func (r *recordingSink) Mouse(ev types.MouseEvent)       { r.mice = append(r.mice, ev) }

func decode(t *testing.T, raw string) clientMessage {
	t.Helper()
	var msg clientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return msg
}

func TestDispatchKeyboard(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want types.KeyboardEvent
	}{
		{
			name: "key press",
			raw:  `{"type":"key","code":28,"pressed":true}`,
			want: types.KeyboardEvent{Kind: types.KeyPressed, Code: 28},
		},
		{
			name: "extended key release",
			raw:  `{"type":"key","code":75,"extended":true,"pressed":false}`,
			want: types.KeyboardEvent{Kind: types.KeyReleased, Code: 75, Extended: true},
		},
		{
			name: "unicode press",
			raw:  `{"type":"unicode","unit":50500,"pressed":true}`,
			want: types.KeyboardEvent{Kind: types.UnicodeKeyPressed, Unicode: 50500},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			dispatch(decode(t, tc.raw), sink, Controls{}, nil)
			if len(sink.keys) != 1 {
				t.Fatalf("got %d keyboard events, want 1", len(sink.keys))
			}
			if sink.keys[0] != tc.want {
				t.Errorf("got %+v, want %+v", sink.keys[0], tc.want)
			}
		})
	}
}

func TestDispatchMouse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want types.MouseEvent
	}{
		{
			name: "move",
			raw:  `{"type":"mouse","kind":"move","x":320,"y":200}`,
			want: types.MouseEvent{Kind: types.MouseMove, X: 320, Y: 200},
		},
		{
			name: "left down",
			raw:  `{"type":"mouse","kind":"left_down"}`,
			want: types.MouseEvent{Kind: types.MouseLeftPressed},
		},
		{
			name: "scroll",
			raw:  `{"type":"mouse","kind":"scroll","delta":-120}`,
			want: types.MouseEvent{Kind: types.MouseVerticalScroll, Delta: -120},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			dispatch(decode(t, tc.raw), sink, Controls{}, nil)
			if len(sink.mice) != 1 {
				t.Fatalf("got %d mouse events, want 1", len(sink.mice))
			}
			if sink.mice[0] != tc.want {
				t.Errorf("got %+v, want %+v", sink.mice[0], tc.want)
			}
		})
	}
}

func TestDispatchUnknownMouseKindIgnored(t *testing.T) {
	sink := &recordingSink{}
	dispatch(decode(t, `{"type":"mouse","kind":"middle_down"}`), sink, Controls{}, nil)
	if len(sink.mice) != 0 {
		t.Errorf("unknown mouse kind produced %d events", len(sink.mice))
	}
}

func TestDispatchNilSinkDoesNotPanic(t *testing.T) {
	dispatch(decode(t, `{"type":"key","code":28,"pressed":true}`), nil, Controls{}, nil)
	dispatch(decode(t, `{"type":"mouse","kind":"move"}`), nil, Controls{}, nil)
}

func TestDispatchLayout(t *testing.T) {
	var got types.Dimensions
	ctrl := Controls{RequestLayout: func(d types.Dimensions) { got = d }}
	dispatch(decode(t, `{"type":"layout","width":1280,"height":720}`), nil, ctrl, nil)
	want := types.Dimensions{Width: 1280, Height: 720}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDispatchSoundStart(t *testing.T) {
	raw := `{"type":"sound_start","formats":[` +
		`{"format":1,"channels":1,"samplesPerSec":48000,"avgBytesPerSec":192000,"blockAlign":128,"bitsPerSample":32}]}`

	var gotFormats []types.AudioFormat
	var reply string
	ctrl := Controls{
		SoundStart: func(fs []types.AudioFormat) (int, bool) {
			gotFormats = fs
			return 0, true
		},
	}
	dispatch(decode(t, raw), nil, ctrl, func(r string) { reply = r })

	if len(gotFormats) != 1 {
		t.Fatalf("got %d formats, want 1", len(gotFormats))
	}
	want := types.AudioFormat{
		Format:         types.WaveFormatPCM,
		Channels:       1,
		SamplesPerSec:  48000,
		AvgBytesPerSec: 192000,
		BlockAlign:     128,
		BitsPerSample:  32,
	}
	if gotFormats[0] != want {
		t.Errorf("got %+v, want %+v", gotFormats[0], want)
	}
	if reply != `{"type":"sound_format","index":0}` {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestDispatchSoundStartUnsupported(t *testing.T) {
	var reply string
	ctrl := Controls{
		SoundStart: func([]types.AudioFormat) (int, bool) { return 0, false },
	}
	dispatch(decode(t, `{"type":"sound_start","formats":[]}`), nil, ctrl, func(r string) { reply = r })
	if reply != `{"type":"sound_unsupported"}` {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestDispatchSoundStop(t *testing.T) {
	stopped := false
	ctrl := Controls{SoundStop: func() { stopped = true }}
	dispatch(decode(t, `{"type":"sound_stop"}`), nil, ctrl, nil)
	if !stopped {
		t.Error("sound stop not forwarded")
	}
}

func TestEncodeUpdateSwapsChannels(t *testing.T) {
	// 2x1 region: pixel 0 pure blue, pixel 1 pure red (BGRA).
	u := &types.BitmapUpdate{
		X: 4, Y: 2, Width: 2, Height: 1, Stride: 8,
		Data: []byte{
			0xFF, 0x00, 0x00, 0xFF,
			0x00, 0x00, 0xFF, 0xFF,
		},
	}

	payload, err := encodeUpdate(u)
	if err != nil {
		t.Fatalf("encodeUpdate: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 1 {
		t.Fatalf("decoded bounds %v, want 2x1", img.Bounds())
	}

	r0, g0, b0, _ := img.At(0, 0).RGBA()
	if r0 != 0 || g0 != 0 || b0 != 0xFFFF {
		t.Errorf("pixel 0 = (%d,%d,%d), want pure blue", r0, g0, b0)
	}
	r1, _, b1, _ := img.At(1, 0).RGBA()
	if r1 != 0xFFFF || b1 != 0 {
		t.Errorf("pixel 1 = (r=%d,b=%d), want pure red", r1, b1)
	}
}
