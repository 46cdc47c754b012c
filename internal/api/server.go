// Package api exposes the review service over HTTP. Handlers translate
// between the wire contract and the ingest/search layers; all domain
// rules live below this package.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/reviewsearch/internal/ingest"
	"github.com/Aman-CERP/reviewsearch/internal/search"
	"github.com/Aman-CERP/reviewsearch/internal/store"
	"github.com/Aman-CERP/reviewsearch/pkg/version"
)

// Server is the HTTP front end of the review service.
type Server struct {
	pipeline *ingest.Pipeline
	engine   *search.Engine
	store    *store.ReviewStore
	logger   *slog.Logger

	addr            string
	shutdownTimeout time.Duration
}

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// NewServer wires the HTTP surface over the given components.
func NewServer(p *ingest.Pipeline, e *search.Engine, s *store.ReviewStore, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		pipeline:        p,
		engine:          e,
		store:           s,
		logger:          opts.Logger,
		addr:            opts.Addr,
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Handler builds the route table with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /reviews", s.handleCreateReview)
	mux.HandleFunc("POST /reviews/bulk", s.handleCreateReviewsBulk)
	mux.HandleFunc("POST /search", s.handleSearch)
	return s.withLogging(withCORS(mux))
}

// Run serves until ctx is cancelled, then drains in-flight requests
// within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening",
			slog.String("addr", s.addr),
			slog.String("version", version.Version))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// withLogging logs one line per request at debug level.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// withCORS answers preflights and marks every response as
// cross-origin-accessible; the service has no browser-facing auth.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
