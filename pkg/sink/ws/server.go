// Package ws serves link events to browsers over WebSocket, together with
// the latest camera frame, a status snapshot and Prometheus metrics.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/msgs"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

// DefaultScale is the upscale factor of /frame.png, 96 px to 288 px.
const DefaultScale = 3

// ClientQueueSize bounds the pending messages of one client.
const ClientQueueSize = 16

// FrameSource provides the latest frame and its sequence number.
type FrameSource interface {
	Load() (*pixel.Frame, uint64)
}

// Server is an event.Sink broadcasting JSON envelopes to WebSocket clients.
type Server struct {
	Addr  string
	Scale int
	// Frames enables broadcasting of camera frames; /frame.png is always served.
	Frames      bool
	FrameSource FrameSource
	Orientation *pixel.Orientation
	// Status returns a JSON serializable snapshot for /status.
	Status   func() interface{}
	Gatherer prometheus.Gatherer

	lock    sync.RWMutex
	clients map[*client]struct{}
	dropped uint64
}

type client struct {
	ch chan []byte
}

// StatusReply is the body of /status.
type StatusReply struct {
	Monitor  interface{}  `json:"monitor,omitempty"`
	Clients  int          `json:"clients"`
	FrameSeq uint64       `json:"frame_seq"`
	Flags    *pixel.Flags `json:"flags,omitempty"`
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{Addr: addr, Scale: DefaultScale}
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", websocket.Server{Handler: s.serveWS})
	mux.HandleFunc("/frame.png", s.handleFrame)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Name implements framework.Named.
func (s *Server) Name() string { return "http" }

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	glog.Infof("HTTP listening on %s", s.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// Emit implements event.Sink. Slow clients drop messages.
func (s *Server) Emit(ev event.Event) {
	if ev.EventType() == pixel.EventType && !s.Frames {
		return
	}
	s.lock.RLock()
	n := len(s.clients)
	s.lock.RUnlock()
	if n == 0 {
		return
	}
	typed, err := msgs.TypedFrom(ev)
	if err != nil {
		glog.Errorf("websocket %s error: %v", ev.EventType(), err)
		return
	}
	payload, err := typed.EncodeJSON()
	if err != nil {
		glog.Errorf("websocket encode %s error: %v", ev.EventType(), err)
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.clients {
		select {
		case c.ch <- payload:
		default:
			s.dropped++
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.clients)
}

// Dropped returns the number of messages dropped for slow clients.
func (s *Server) Dropped() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.dropped
}

func (s *Server) serveWS(conn *websocket.Conn) {
	c := &client{ch: make(chan []byte, ClientQueueSize)}
	s.lock.Lock()
	if s.clients == nil {
		s.clients = make(map[*client]struct{})
	}
	s.clients[c] = struct{}{}
	s.lock.Unlock()
	glog.V(2).Infof("websocket client %s connected", conn.Request().RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var discard string
		for websocket.Message.Receive(conn, &discard) == nil {
		}
	}()

	defer func() {
		s.lock.Lock()
		delete(s.clients, c)
		s.lock.Unlock()
		conn.Close()
		glog.V(2).Infof("websocket client %s disconnected", conn.Request().RemoteAddr)
	}()
	for {
		select {
		case <-done:
			return
		case payload := <-c.ch:
			if err := websocket.Message.Send(conn, string(payload)); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	var frame *pixel.Frame
	if s.FrameSource != nil {
		frame, _ = s.FrameSource.Load()
	}
	if frame == nil {
		http.Error(w, "no frame", http.StatusNotFound)
		return
	}
	scale := s.Scale
	if scale < 1 {
		scale = DefaultScale
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, frame.Scaled(scale)); err != nil {
		glog.Errorf("encode frame error: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	reply := StatusReply{Clients: s.Clients()}
	if s.Status != nil {
		reply.Monitor = s.Status()
	}
	if s.FrameSource != nil {
		_, reply.FrameSeq = s.FrameSource.Load()
	}
	if s.Orientation != nil {
		flags := s.Orientation.Flags()
		reply.Flags = &flags
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&reply)
}
