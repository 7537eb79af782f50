// Package dashboard serves the browser dashboard: a JSON API over the
// simulator, assistant, reference content and session store, plus a
// websocket that streams simulation ticks as they are produced.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nvandessel/ecosim/internal/assistant"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/logging"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/ratelimit"
	"github.com/nvandessel/ecosim/internal/store"
)

// Options configures a Server. Zero values fall back to defaults where one exists.
type Options struct {
	// Addr is the listen address; "" means "localhost:0".
	Addr string

	// Defaults seeds every simulate request before the body is applied.
	Defaults params.Parameters

	Assistant  *assistant.Assistant
	Library    *content.Library
	Store      store.Store
	AskLimiter *ratelimit.Limiter
	Logger     *slog.Logger
	Trace      *logging.DecisionLogger
}

// Server is the dashboard HTTP server.
type Server struct {
	opts       Options
	hub        *Hub
	handler    http.Handler
	httpServer *http.Server
	mu         sync.Mutex
	addr       string
}

// NewServer creates a dashboard server.
func NewServer(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = "localhost:0"
	}
	if opts.Library == nil {
		opts.Library = content.Default()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Defaults == (params.Parameters{}) {
		opts.Defaults = params.Default()
	}

	s := &Server{opts: opts, hub: NewHub(opts.Logger)}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/defaults", s.handleDefaults)
	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/tips", s.handleTips)
	mux.HandleFunc("GET /api/quiz", s.handleQuiz)
	mux.HandleFunc("POST /api/quiz", s.handleQuizAnswer)
	mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/resources", s.handleResources)
	mux.Handle("GET /ws", s.hub)
	return mux
}

// Handler returns the server's routes, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the tick broadcaster.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe listens on the configured address and blocks until ctx
// is cancelled. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.opts.Logger.Info("dashboard listening", "addr", "http://"+ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
