//go:build linux

package capture

/*
#cgo pkg-config: x11 xext xfixes
#include <X11/Xlib.h>
#include <X11/Xutil.h>
#include <X11/extensions/XShm.h>
#include <X11/extensions/Xfixes.h>
#include <sys/ipc.h>
#include <sys/shm.h>
#include <stdlib.h>

typedef struct {
	Display *display;
	Window root;
	XShmSegmentInfo shminfo;
	XImage *image;
	int width;
	int height;
} XShmCapturer;

static XShmCapturer* xshm_init(const char *display_name) {
	XShmCapturer *c = (XShmCapturer*)calloc(1, sizeof(XShmCapturer));
	if (!c) return NULL;

	c->display = XOpenDisplay(display_name);
	if (!c->display) { free(c); return NULL; }

	int screen = DefaultScreen(c->display);
	c->root = RootWindow(c->display, screen);
	c->width = DisplayWidth(c->display, screen);
	c->height = DisplayHeight(c->display, screen);

	c->image = XShmCreateImage(c->display,
		DefaultVisual(c->display, screen),
		DefaultDepth(c->display, screen),
		ZPixmap, NULL, &c->shminfo,
		c->width, c->height);
	if (!c->image) {
		XCloseDisplay(c->display);
		free(c);
		return NULL;
	}

	c->shminfo.shmid = shmget(IPC_PRIVATE,
		c->image->bytes_per_line * c->image->height,
		IPC_CREAT | 0600);
	if (c->shminfo.shmid < 0) {
		XDestroyImage(c->image);
		XCloseDisplay(c->display);
		free(c);
		return NULL;
	}

	c->shminfo.shmaddr = c->image->data = (char*)shmat(c->shminfo.shmid, NULL, 0);
	c->shminfo.readOnly = False;

	if (!XShmAttach(c->display, &c->shminfo)) {
		shmdt(c->shminfo.shmaddr);
		shmctl(c->shminfo.shmid, IPC_RMID, NULL);
		XDestroyImage(c->image);
		XCloseDisplay(c->display);
		free(c);
		return NULL;
	}

	// Mark for removal so the segment is reclaimed on detach.
	shmctl(c->shminfo.shmid, IPC_RMID, NULL);

	return c;
}

static int xshm_grab(XShmCapturer *c) {
	if (!XShmGetImage(c->display, c->root, c->image, 0, 0, AllPlanes)) {
		return -1;
	}
	XSync(c->display, False);
	return 0;
}

static void xshm_destroy(XShmCapturer *c) {
	if (!c) return;
	XShmDetach(c->display, &c->shminfo);
	shmdt(c->shminfo.shmaddr);
	XDestroyImage(c->image);
	XCloseDisplay(c->display);
	free(c);
}
*/
import "C"
import (
	"fmt"
	"log"
	"os"
	"time"
	"unsafe"

	"arisu/internal/types"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// Poll rate for the XShm display path; X11 has no frame callbacks.
const x11FrameRate = 30

// x11Session implements Session over X11 shared-memory grabs for the display
// and a PulseAudio monitor stream for audio. Display outputs are served by a
// per-output polling goroutine, approximating the callback-driven contract.
type x11Session struct {
	c     *C.XShmCapturer
	pulse *pulse.Client

	next     OutputHandle
	displays map[OutputHandle]*x11Poller
	audios   map[OutputHandle]*pulse.RecordStream
}

// x11Poller is one display polling goroutine. Detach waits for the loop to
// exit so the shared XImage is never grabbed into after teardown.
type x11Poller struct {
	stop chan struct{}
	done chan struct{}
}

// NewSession opens the display named by DISPLAY and connects to PulseAudio.
// Audio is optional: without a PulseAudio server the session still captures
// video, and AddAudioOutput fails.
func NewSession() (Session, error) {
	name := os.Getenv("DISPLAY")
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	c := C.xshm_init(cName)
	if c == nil {
		return nil, fmt.Errorf("XShm init failed for display %q", name)
	}

	pc, err := pulse.NewClient(pulse.ClientApplicationName("arisu"))
	if err != nil {
		log.Printf("capture: pulse connect failed, audio unavailable: %v", err)
		pc = nil
	}

	log.Printf("capture: X11 session %dx%d", int(c.width), int(c.height))
	return &x11Session{
		c:        c,
		pulse:    pc,
		next:     1,
		displays: make(map[OutputHandle]*x11Poller),
		audios:   make(map[OutputHandle]*pulse.RecordStream),
	}, nil
}

func (s *x11Session) Size() types.Dimensions {
	return types.Dimensions{Width: uint16(s.c.width), Height: uint16(s.c.height)}
}

func (s *x11Session) AddDisplayOutput(fn DisplayOutputFunc) (OutputHandle, error) {
	h := s.next
	s.next++
	p := &x11Poller{stop: make(chan struct{}), done: make(chan struct{})}
	s.displays[h] = p

	width := int(s.c.width)
	height := int(s.c.height)
	stride := int(s.c.image.bytes_per_line)
	base := unsafe.Slice((*byte)(unsafe.Pointer(s.c.image.data)), stride*height)
	c := s.c

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(time.Second / x11FrameRate)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if C.xshm_grab(c) != 0 {
					continue
				}
				// XShm reports no damage info: zero-sized dirty
				// box means "take the full frame".
				fn(DisplayFrame{
					Base:       base,
					Stride:     stride,
					FullWidth:  width,
					FullHeight: height,
				})
			}
		}
	}()
	return h, nil
}

func (s *x11Session) RemoveDisplayOutput(h OutputHandle) {
	p, ok := s.displays[h]
	if !ok {
		return
	}
	delete(s.displays, h)
	close(p.stop)
	<-p.done
}

// pulseForwarder adapts an AudioOutputFunc to the pulse.Writer interface.
type pulseForwarder struct {
	fn AudioOutputFunc
}

func (p *pulseForwarder) Write(data []byte) (int, error) {
	p.fn(data)
	return len(data), nil
}

func (p *pulseForwarder) Format() byte {
	return proto.FormatFloat32LE
}

func (s *x11Session) AddAudioOutput(fn AudioOutputFunc) (OutputHandle, error) {
	if s.pulse == nil {
		return 0, fmt.Errorf("no PulseAudio connection")
	}
	sink, err := s.pulse.DefaultSink()
	if err != nil {
		return 0, fmt.Errorf("default sink: %w", err)
	}
	stream, err := s.pulse.NewRecord(
		&pulseForwarder{fn: fn},
		pulse.RecordMonitor(sink),
		pulse.RecordMono,
		pulse.RecordSampleRate(SoundSampleRate),
	)
	if err != nil {
		return 0, fmt.Errorf("record stream: %w", err)
	}
	stream.Start()

	h := s.next
	s.next++
	s.audios[h] = stream
	return h, nil
}

func (s *x11Session) RemoveAudioOutput(h OutputHandle) {
	stream, ok := s.audios[h]
	if !ok {
		return
	}
	delete(s.audios, h)
	stream.Stop()
}

func (s *x11Session) Close() {
	for h := range s.displays {
		s.RemoveDisplayOutput(h)
	}
	for h := range s.audios {
		s.RemoveAudioOutput(h)
	}
	if s.pulse != nil {
		s.pulse.Close()
	}
	C.xshm_destroy(s.c)
}
