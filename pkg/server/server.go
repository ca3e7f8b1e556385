// Package server exposes the flattening pipeline over HTTP.
//
// # Endpoints
//
//	POST /v1/flatten   body: OBJ mesh, options as query parameters
//	GET  /healthz      liveness probe
//
// Query parameters of /v1/flatten:
//
//   - format: output format, repeatable or comma separated (default json)
//   - angle: target angle sum in degrees as id:deg, repeatable
//   - isometric: keep boundary lengths instead of prescribing angles
//   - in, out: input and output geometry (euclidean or hyperbolic)
//   - width, height, labels: drawing options
//   - refresh: bypass the cache
//
// A single format is answered with the artifact itself and its content
// type. Several formats are answered with a JSON [Response] carrying every
// artifact. Errors are JSON [ErrorResponse] bodies whose status follows
// the error code.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gagern/confoo/pkg/pipeline"
)

// Server defaults.
const (
	DefaultAddr        = ":8080"
	DefaultMaxBodySize = 32 << 20
	DefaultTimeout     = 2 * time.Minute
)

// Server routes HTTP requests to a pipeline runner.
type Server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	maxBody int64
	timeout time.Duration
	router  chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithMaxBodySize limits the size of uploaded meshes.
func WithMaxBodySize(n int64) Option { return func(s *Server) { s.maxBody = n } }

// WithTimeout bounds the processing time of one request.
func WithTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

// New creates a server. A nil logger discards output.
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		runner:  runner,
		logger:  logger,
		maxBody: DefaultMaxBodySize,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Timeout(s.timeout)).Post("/flatten", s.handleFlatten)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:     "not found",
			Code:      "NOT_FOUND",
			RequestID: middleware.GetReqID(r.Context()),
		})
	})
	return r
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
