// Package server exposes search, stats, health and indexing over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/ingestion"
	"github.com/poiesic/sift/search"
)

// Searcher answers queries and reports health.
type Searcher interface {
	Search(ctx context.Context, query core.SearchQuery) (*core.SearchResponse, error)
	Health(ctx context.Context) *search.HealthReport
}

// StatsProvider reports index statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (*core.IndexStats, error)
}

// Indexer runs indexing on demand.
type Indexer interface {
	Run(ctx context.Context, scope core.IndexScope, opts *ingestion.RunOptions) (*core.IndexingResult, error)
}

// ErrSearcherRequired is returned when no searcher is provided.
var ErrSearcherRequired = errors.New("searcher required")

// ErrStatsRequired is returned when no stats provider is provided.
var ErrStatsRequired = errors.New("stats provider required")

// Server serves the JSON API.
type Server struct {
	searcher Searcher
	stats    StatsProvider
	indexer  Indexer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithIndexer enables POST /api/v1/index.
func WithIndexer(indexer Indexer) Option {
	return func(s *Server) {
		s.indexer = indexer
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server.
func New(searcher Searcher, stats StatsProvider, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if stats == nil {
		return nil, ErrStatsRequired
	}
	s := &Server{
		searcher: searcher,
		stats:    stats,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/search/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/search/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/index", s.handleIndex)
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
