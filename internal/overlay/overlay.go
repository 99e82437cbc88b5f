package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/syncloop"
)

const (
	linesBefore = 2
	linesAfter  = 3

	subscriberBuffer = 8
)

type Options struct {
	AllowedOrigins []string
}

// Server exposes display updates to browser overlays: the latest state as
// JSON and a server-sent event stream.
type Server struct {
	mu     sync.RWMutex
	latest syncloop.DisplayUpdate
	have   bool
	subs   map[chan syncloop.DisplayUpdate]struct{}

	handler http.Handler
}

type nowResponse struct {
	syncloop.DisplayUpdate
	Window []lyrics.Line `json:"window"`
}

func New(opts Options) *Server {
	s := &Server{
		latest: syncloop.DisplayUpdate{LineIndex: -1},
		subs:   make(map[chan syncloop.DisplayUpdate]struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/now", s.handleNow).Methods(http.MethodGet)
	router.HandleFunc("/api/lyrics", s.handleLyrics).Methods(http.MethodGet)
	router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	})

	s.handler = c.Handler(loggingMiddleware(router))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Publish records u as the latest state and fans it out to every stream.
// A slow stream loses its oldest pending update so the newest always
// reaches it.
func (s *Server) Publish(u syncloop.DisplayUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = u
	s.have = true
	for ch := range s.subs {
		sendLatest(ch, u)
	}
}

func sendLatest(ch chan syncloop.DisplayUpdate, u syncloop.DisplayUpdate) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("%s listening on %s", logging.Overlay, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("overlay server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) snapshot() (syncloop.DisplayUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.have
}

func (s *Server) subscribe() chan syncloop.DisplayUpdate {
	ch := make(chan syncloop.DisplayUpdate, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	if s.have {
		ch <- s.latest
	}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan syncloop.DisplayUpdate) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	u, _ := s.snapshot()
	writeJSON(w, http.StatusOK, newNowResponse(u))
}

func (s *Server) handleLyrics(w http.ResponseWriter, r *http.Request) {
	u, _ := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"track":  u.Track,
		"source": u.Source,
		"lines":  u.Document.Lines(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case u := <-ch:
			data, err := json.Marshal(newNowResponse(u))
			if err != nil {
				log.Warnf("%s failed to encode update: %v", logging.Overlay, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: update\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func newNowResponse(u syncloop.DisplayUpdate) nowResponse {
	window := u.Document.Window(u.LineIndex, linesBefore, linesAfter)
	if window == nil {
		window = []lyrics.Line{}
	}
	return nowResponse{DisplayUpdate: u, Window: window}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("%s failed to write response: %v", logging.Overlay, err)
	}
}
