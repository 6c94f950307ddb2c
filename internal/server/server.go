// Package server is the WHEP HTTP front end: it negotiates WebRTC sessions
// and pumps display updates and server events into the active session.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"arisu/internal/counter"
	"arisu/internal/credential"
	"arisu/internal/session"
	"arisu/internal/types"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Config holds all server configuration.
type Config struct {
	Addr  string
	TLS   *tls.Config
	Creds *credential.Checker
	Stats bool

	Display types.DisplaySource
	Sound   types.SoundSource
	Events  types.EventSender

	NewInputHandler session.InputHandlerFactory

	CaptureInterval *counter.Interval
	SendInterval    *counter.Interval
}

type Server struct {
	cfg Config

	mu   sync.Mutex
	sess *session.Session
}

func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /whep", s.handleWHEPOffer)
	mux.HandleFunc("PATCH /whep/{id}", s.handleWHEPPatch)
	mux.HandleFunc("DELETE /whep/{id}", s.handleWHEPDelete)
	mux.HandleFunc("OPTIONS /whep", s.handleWHEPOptions)
	mux.HandleFunc("OPTIONS /whep/{id}", s.handleWHEPOptions)

	srv := &http.Server{
		Addr:      s.cfg.Addr,
		Handler:   mux,
		TLSConfig: s.cfg.TLS,
	}

	if s.cfg.TLS != nil {
		log.Printf("starting arisu on https://%s", s.cfg.Addr)
		return srv.ListenAndServeTLS("", "")
	}
	log.Printf("starting arisu on http://%s", s.cfg.Addr)
	return srv.ListenAndServe()
}

// Teardown shuts down the active session and releases resources.
// It acquires the lock internally.
func (s *Server) Teardown() {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
}

func (s *Server) handleWHEPOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Expose-Headers", "Location")
	w.WriteHeader(204)
}

func (s *Server) handleWHEPOffer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Location")

	if !s.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="arisu"`)
		http.Error(w, "unauthorized", 401)
		return
	}

	// Single session: tear down existing
	s.mu.Lock()
	if s.sess != nil {
		s.teardownLocked()
	}
	s.mu.Unlock()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", 400)
		return
	}

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  string(body),
	}

	sessionID := uuid.New().String()
	sess, err := session.NewSession(sessionID, s.cfg.NewInputHandler, session.Controls{
		RequestLayout: s.cfg.Display.RequestLayout,
		SoundStart:    s.cfg.Sound.Start,
		SoundStop:     s.cfg.Sound.Stop,
	})
	if err != nil {
		log.Printf("session create error: %v", err)
		http.Error(w, "internal error", 500)
		return
	}

	if err := sess.PC.SetRemoteDescription(offer); err != nil {
		sess.Close()
		log.Printf("set remote desc error: %v", err)
		http.Error(w, "bad SDP offer", 400)
		return
	}

	answer, err := sess.PC.CreateAnswer(nil)
	if err != nil {
		sess.Close()
		log.Printf("create answer error: %v", err)
		http.Error(w, "internal error", 500)
		return
	}

	if err := sess.PC.SetLocalDescription(answer); err != nil {
		sess.Close()
		log.Printf("set local desc error: %v", err)
		http.Error(w, "internal error", 500)
		return
	}

	// Wait for ICE gathering to complete
	gatherComplete := webrtc.GatheringCompletePromise(sess.PC)
	<-gatherComplete

	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()

	// Start capture pipeline
	go s.startPipeline(sess)

	w.Header().Set("Content-Type", "application/sdp")
	w.Header().Set("Location", fmt.Sprintf("/whep/%s", sessionID))
	w.WriteHeader(201)
	w.Write([]byte(sess.PC.LocalDescription().SDP))
}

func (s *Server) handleWHEPPatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", 401)
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess == nil || sess.ID != id {
		http.Error(w, "not found", 404)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", 400)
		return
	}

	candidate := string(body)
	if strings.TrimSpace(candidate) == "" {
		w.WriteHeader(204)
		return
	}

	lines := strings.Split(candidate, "\r\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "a=candidate:") {
			c := strings.TrimPrefix(line, "a=")
			if err := sess.PC.AddICECandidate(webrtc.ICECandidateInit{
				Candidate: c,
			}); err != nil {
				log.Printf("add ice candidate error: %v", err)
			}
		}
	}

	w.WriteHeader(204)
}

func (s *Server) handleWHEPDelete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", 401)
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.sess.ID != id {
		http.Error(w, "not found", 404)
		return
	}

	s.teardownLocked()
	w.WriteHeader(200)
}

func (s *Server) checkAuth(r *http.Request) bool {
	if s.cfg.Creds == nil {
		return true
	}
	user, pass, ok := r.BasicAuth()
	return ok && s.cfg.Creds.Check(user, pass)
}

// startPipeline drives one session: it registers the event sink, starts
// display capture, and pumps updates until the session stops.
func (s *Server) startPipeline(sess *session.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sess.Stop
		cancel()
	}()

	// Wait for the client to open its display channel before starting
	// capture; updates sent earlier would be dropped anyway.
	select {
	case <-sess.DisplayReady():
	case <-sess.Stop:
		return
	}

	events := make(chan types.ServerEvent, 32)
	s.cfg.Events.SetSender(events)
	defer s.cfg.Events.SetSender(nil)
	defer s.cfg.Sound.Stop()

	fwd, err := session.NewOpusForwarder(sess)
	if err != nil {
		log.Printf("opus init failed (continuing without audio): %v", err)
	}

	go func() {
		for {
			select {
			case <-sess.Stop:
				return
			case ev := <-events:
				switch ev.Kind {
				case types.EventSoundWave:
					if fwd != nil {
						fwd.Push(ev.Wave)
					}
				case types.EventResize:
					sess.SendResize(ev.Size)
				}
			}
		}
	}()

	updates, err := s.cfg.Display.Updates(ctx)
	if err != nil {
		log.Printf("display updates error: %v", err)
		return
	}
	defer updates.Close()

	var sent, sendFails, sentBytes int
	lastStats := time.Now()

	for {
		u, err := updates.Next(ctx)
		if err != nil {
			return
		}

		if err := sess.SendDisplayUpdate(u); err != nil {
			sendFails++
			if sendFails <= 5 {
				log.Printf("send update error: %v", err)
			}
		} else {
			sent++
			sentBytes += len(u.Data)
		}

		// Report pipeline stats every 5 seconds (opt-in)
		if s.cfg.Stats && time.Since(lastStats) >= 5*time.Second {
			log.Printf("pipeline: sent=%d sendFail=%d bytes=%d | intervals: capture=%v send=%v",
				sent, sendFails, sentBytes,
				s.cfg.CaptureInterval.Get().Round(time.Microsecond),
				s.cfg.SendInterval.Get().Round(time.Microsecond))
			sent = 0
			sendFails = 0
			sentBytes = 0
			lastStats = time.Now()
		}
	}
}

func (s *Server) teardownLocked() {
	if s.sess != nil {
		s.sess.Close()
		s.sess = nil
	}
}
