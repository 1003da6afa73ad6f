// Package server exposes classification jobs over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/jobs"
	"github.com/naka-gawa/github-star-classifier/internal/metrics"
	"github.com/rs/zerolog"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Options holds the dependencies of the HTTP API.
type Options struct {
	Addr           string
	AllowedOrigins []string
	// DefaultToken is used when a request does not carry its own token.
	DefaultToken string
	Manager      *jobs.Manager
	Taxonomy     domain.Taxonomy
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Server is a chi router behind a stdlib http.Server.
type Server struct {
	opts Options
	mux  *chi.Mux
	srv  *http.Server
}

// New creates the server and mounts every route.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{opts: opts, mux: chi.NewRouter()}

	s.mux.Use(
		chimw.RealIP,
		chimw.RequestID,
		accessLog(opts.Logger),
		chimw.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
		}),
	)
	s.routes()

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.Get("/", s.handleRoot)
	s.mux.Get("/health", s.handleHealth)
	s.mux.Get("/taxonomy", s.handleTaxonomy)
	s.mux.Post("/classify", s.handleClassify)
	s.mux.Get("/jobs", s.handleListJobs)
	s.mux.Get("/jobs/{id}", s.handleGetJob)
	s.mux.Delete("/jobs/{id}", s.handleDeleteJob)
	s.mux.Get("/results/{id}", s.handleResults)
	s.mux.Get("/view/{id}", s.handleView)
	if s.opts.Metrics != nil {
		s.mux.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the listening address.
func (s *Server) Addr() string { return s.opts.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info().Str("addr", s.opts.Addr).Msg("HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.opts.Logger.Info().Msg("HTTP server shutting down")
	return s.srv.Shutdown(ctx)
}
