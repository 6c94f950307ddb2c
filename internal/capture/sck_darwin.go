//go:build darwin

package capture

/*
#cgo CFLAGS: -mmacosx-version-min=14.0 -fobjc-arc
#cgo LDFLAGS: -framework ScreenCaptureKit -framework CoreMedia -framework CoreVideo -framework CoreGraphics -framework Cocoa

#include <stdint.h>

typedef struct {
	void *stream;
	void *filter;
	int width;
	int height;
} SCKSession;

// Media types for sck_add_output / sck_remove_output.
enum { SCK_MEDIA_SCREEN = 0, SCK_MEDIA_AUDIO = 1 };

int  sck_session_start(int sample_rate, int channels, SCKSession *out);
int  sck_add_output(SCKSession *s, int media_type, uintptr_t token, void **out_handle);
void sck_remove_output(SCKSession *s, int media_type, void *handle);
void sck_session_stop(SCKSession *s);
*/
import "C"
import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"arisu/internal/types"
)

// outputRegistry maps attachment tokens to Go callbacks. The native delegate
// carries only the token; lookups happen on the capture thread while
// registration happens on the actor thread.
var outputRegistry struct {
	sync.RWMutex
	next     uintptr
	displays map[uintptr]DisplayOutputFunc
	audios   map[uintptr]AudioOutputFunc
}

func init() {
	outputRegistry.next = 1
	outputRegistry.displays = make(map[uintptr]DisplayOutputFunc)
	outputRegistry.audios = make(map[uintptr]AudioOutputFunc)
}

//export arisuDisplaySample
func arisuDisplaySample(token C.uintptr_t, x, y, w, h C.int, base *C.uint8_t, stride, fullW, fullH C.int) {
	outputRegistry.RLock()
	fn := outputRegistry.displays[uintptr(token)]
	outputRegistry.RUnlock()
	if fn == nil {
		// Output torn down while a callback was in flight; discard.
		return
	}
	n := int(stride) * int(fullH)
	fn(DisplayFrame{
		X: int(x), Y: int(y), Width: int(w), Height: int(h),
		Base:       unsafe.Slice((*byte)(base), n),
		Stride:     int(stride),
		FullWidth:  int(fullW),
		FullHeight: int(fullH),
	})
}

//export arisuAudioSample
func arisuAudioSample(token C.uintptr_t, data *C.uint8_t, n C.int) {
	outputRegistry.RLock()
	fn := outputRegistry.audios[uintptr(token)]
	outputRegistry.RUnlock()
	if fn == nil {
		return
	}
	fn(unsafe.Slice((*byte)(data), int(n)))
}

// sckSession wraps one ScreenCaptureKit stream capturing the first display.
// All methods must run on the owning actor goroutine.
type sckSession struct {
	h       C.SCKSession
	handles map[OutputHandle]unsafe.Pointer
}

// NewSession starts a ScreenCaptureKit capture session configured for BGRA
// frames and the fixed PCM audio format.
func NewSession() (Session, error) {
	s := &sckSession{handles: make(map[OutputHandle]unsafe.Pointer)}
	if ret := C.sck_session_start(SoundSampleRate, SoundChannels, &s.h); ret != 0 {
		return nil, fmt.Errorf("ScreenCaptureKit session start failed (%d)", int(ret))
	}
	log.Printf("capture: ScreenCaptureKit session %dx%d", int(s.h.width), int(s.h.height))
	return s, nil
}

func (s *sckSession) Size() types.Dimensions {
	return types.Dimensions{Width: uint16(s.h.width), Height: uint16(s.h.height)}
}

func (s *sckSession) AddDisplayOutput(fn DisplayOutputFunc) (OutputHandle, error) {
	outputRegistry.Lock()
	token := outputRegistry.next
	outputRegistry.next++
	outputRegistry.displays[token] = fn
	outputRegistry.Unlock()

	var native unsafe.Pointer
	if ret := C.sck_add_output(&s.h, C.SCK_MEDIA_SCREEN, C.uintptr_t(token), &native); ret != 0 {
		outputRegistry.Lock()
		delete(outputRegistry.displays, token)
		outputRegistry.Unlock()
		return 0, fmt.Errorf("add screen output failed (%d)", int(ret))
	}
	s.handles[OutputHandle(token)] = native
	return OutputHandle(token), nil
}

func (s *sckSession) RemoveDisplayOutput(h OutputHandle) {
	native, ok := s.handles[h]
	if !ok {
		return
	}
	delete(s.handles, h)
	C.sck_remove_output(&s.h, C.SCK_MEDIA_SCREEN, native)
	outputRegistry.Lock()
	delete(outputRegistry.displays, uintptr(h))
	outputRegistry.Unlock()
}

func (s *sckSession) AddAudioOutput(fn AudioOutputFunc) (OutputHandle, error) {
	outputRegistry.Lock()
	token := outputRegistry.next
	outputRegistry.next++
	outputRegistry.audios[token] = fn
	outputRegistry.Unlock()

	var native unsafe.Pointer
	if ret := C.sck_add_output(&s.h, C.SCK_MEDIA_AUDIO, C.uintptr_t(token), &native); ret != 0 {
		outputRegistry.Lock()
		delete(outputRegistry.audios, token)
		outputRegistry.Unlock()
		return 0, fmt.Errorf("add audio output failed (%d)", int(ret))
	}
	s.handles[OutputHandle(token)] = native
	return OutputHandle(token), nil
}

func (s *sckSession) RemoveAudioOutput(h OutputHandle) {
	native, ok := s.handles[h]
	if !ok {
		return
	}
	delete(s.handles, h)
	C.sck_remove_output(&s.h, C.SCK_MEDIA_AUDIO, native)
	outputRegistry.Lock()
	delete(outputRegistry.audios, uintptr(h))
	outputRegistry.Unlock()
}

func (s *sckSession) Close() {
	C.sck_session_stop(&s.h)
}
