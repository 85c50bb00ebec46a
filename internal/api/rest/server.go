// Package rest serves job status, run history and the generated artifacts,
// and lets operators trigger runs.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/scheduler"
)

// Triggerer starts a job run in the background.
type Triggerer interface {
	Trigger(name string) error
}

// History lists finished runs, newest first.
type History interface {
	Recent(ctx context.Context, job string, limit int) ([]jobs.Summary, error)
}

// Options wires the server to the rest of the process.
type Options struct {
	Port      string
	Registry  *jobs.Registry
	Tracker   *jobs.Tracker
	Trigger   Triggerer
	History   History
	Schedule  func() []scheduler.Entry
	OutputDir string
	Artifacts map[string]string
	Checks    map[string]func(context.Context) error
	Logger    *logging.Logger
}

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
	logger *logging.Logger
}

// NewServer creates a new REST API server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	logger := opts.Logger.With("component", "api")
	handler := NewHandler(opts)

	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Jobs
	api.HandleFunc("/jobs", handler.ListJobs).Methods("GET")

	// Runs
	api.HandleFunc("/runs", handler.ListRuns).Methods("GET")

	// Artifacts
	api.HandleFunc("/artifacts", handler.ListArtifactDirs).Methods("GET")
	api.HandleFunc("/artifacts/{job}", handler.ListArtifacts).Methods("GET")
	api.HandleFunc("/artifacts/{job}/{name}", handler.GetArtifact).Methods("GET")

	// Trigger. mux drops a method mismatch once a later route is tried, so
	// other methods get an explicit 405.
	api.HandleFunc("/jobs/{job}/run", handler.TriggerJob).Methods("POST")
	api.HandleFunc("/jobs/{job}/run", methodNotAllowed("POST"))

	return &Server{
		port:   opts.Port,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", opts.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	s.logger.Info("api listening", "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
