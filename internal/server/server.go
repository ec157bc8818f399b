// Package server exposes the scheduling pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz               liveness check
//	POST /v1/models             build and export the occupancy model
//	POST /v1/schedules          build, solve and archive a schedule
//	GET  /v1/schedules          list archived runs, newest first
//	GET  /v1/schedules/{id}     one archived run
//
// Request bodies share one layout:
//
//	{
//	  "topology":    {"nodes": [...], "links": [...]},
//	  "mesh":        {"cols": 3, "rows": 3},
//	  "application": {"flows": [...]},
//	  "mapping":     {"task": "node"},
//	  "options":     {"timing": {...}, "pad": 7, "refresh": false}
//	}
//
// Either topology or mesh is required. Errors are returned as
// {"code": "...", "message": "..."}.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/pipeline"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/store"
)

// Defaults.
const (
	DefaultMaxBodyBytes    = 8 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultListLimit       = 50

	readHeaderTimeout = 10 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	Runner *pipeline.Runner
	Store  store.Store
	Solver solver.Solver
	Logger *log.Logger

	// Defaults are the pipeline options requests start from.
	Defaults pipeline.Options

	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// New returns a server with defaults for every unset dependency. A nil
// solver makes POST /v1/schedules answer 503.
func New(runner *pipeline.Runner, st store.Store, s solver.Solver, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	return &Server{
		Runner:          runner,
		Store:           st,
		Solver:          s,
		Logger:          logger,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.route("/healthz", s.handleHealth))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/models", s.route("/v1/models", s.handleModel))
		r.Post("/schedules", s.route("/v1/schedules", s.handleSchedule))
		r.Get("/schedules", s.route("/v1/schedules", s.handleList))
		r.Get("/schedules/{id}", s.route("/v1/schedules/{id}", s.handleGet))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Code:    string(errors.ErrCodeInvalidInput),
			Message: r.Method + " not allowed on " + r.URL.Path,
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
