// Package api serves the retrieval engine over HTTP for search pages and
// scripts.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/search"
	"github.com/Aman-CERP/criterion/internal/telemetry"
)

// Engine is the retrieval surface the handlers call.
type Engine interface {
	SearchVerses(ctx context.Context, q search.VerseQuery) (*search.VerseOutcome, error)
	SearchNarrations(ctx context.Context, q search.NarrationQuery) (*search.NarrationOutcome, error)
	GetByReference(ctx context.Context, refs []string, includeContext bool, contextWindow int) (*search.ReferenceOutcome, error)
	SearchTopic(ctx context.Context, slug string) (*search.TopicOutcome, error)
	Topics() *corpus.TopicCatalog
}

var _ Engine = (*search.Engine)(nil)

// Config tunes the HTTP surface.
type Config struct {
	Addr string

	// RequestTimeout bounds each request. 0 disables the limit.
	RequestTimeout time.Duration

	// BrowseContextWindow is the verse context for /search/api.
	BrowseContextWindow int

	// ReferenceContextWindow is the default ?context= for /quran routes.
	ReferenceContextWindow int

	// NarrationLimit is the default limit for /hadith/search/api.
	NarrationLimit int

	ShutdownTimeout time.Duration
}

// DefaultConfig returns the HTTP defaults.
func DefaultConfig() Config {
	return Config{
		Addr:                   ":8080",
		RequestTimeout:         30 * time.Second,
		BrowseContextWindow:    5,
		ReferenceContextWindow: 5,
		NarrationLimit:         15,
		ShutdownTimeout:        10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.BrowseContextWindow == 0 {
		c.BrowseContextWindow = d.BrowseContextWindow
	}
	if c.ReferenceContextWindow <= 0 {
		c.ReferenceContextWindow = d.ReferenceContextWindow
	}
	if c.NarrationLimit <= 0 {
		c.NarrationLimit = d.NarrationLimit
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// Server is the HTTP API server.
type Server struct {
	engine   Engine
	config   Config
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	router   chi.Router
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer exposes g on /metrics. Without it the route is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer builds the router.
func NewServer(engine Engine, cfg Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	s := &Server{
		engine: engine,
		config: cfg.withDefaults(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", telemetry.Handler(s.gatherer))
	}

	r.Get("/search/api", s.handleVerseSearch)
	r.Get("/hadith/search/api", s.handleNarrationSearch)
	r.Get("/quran/{chapter}/{verse}", s.handleVerse)

	r.Route("/topics", func(r chi.Router) {
		r.Get("/", s.handleTopics)
		r.Get("/{slug}", s.handleTopic)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_server_started", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http_server_stopped")
	return nil
}
