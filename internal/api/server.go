package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/signalforge/arraysim/internal/logging"
	"github.com/signalforge/arraysim/internal/observability"
	"github.com/signalforge/arraysim/internal/sim/state"
)

const routePrefix = "/api/beamforming"

// Config carries the server's collaborators and listen address.
type Config struct {
	Address string
	Store   *state.Store
	Log     logging.Logger
	Metrics *observability.APICollector
}

// Server is the HTTP surface of the beamforming simulator.
type Server struct {
	address string
	store   *state.Store
	log     logging.Logger
	metrics *observability.APICollector
	server  *http.Server
}

// NewServer wires the route table and returns a server ready to Start.
func NewServer(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = logging.Noop()
	}
	store := cfg.Store
	if store == nil {
		store = state.NewStore(nil, log)
	}

	s := &Server{
		address: cfg.Address,
		store:   store,
		log:     log,
		metrics: cfg.Metrics,
	}
	s.server = &http.Server{
		Addr:    cfg.Address,
		Handler: s.setupRoutes(),
	}
	if s.metrics != nil {
		s.metrics.SetCatalogSize(len(store.Catalog().List()))
	}
	return s
}

// Handler exposes the route table, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures the HTTP routes and handlers.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle(routePrefix+"/create-array", s.instrument("create-array", s.handleCreateArray))
	mux.Handle(routePrefix+"/array-geometry", s.instrument("array-geometry", s.handleArrayGeometry))
	mux.Handle(routePrefix+"/azimuth-pattern", s.instrument("azimuth-pattern", s.handleAzimuthPattern))
	mux.Handle(routePrefix+"/3d-pattern", s.instrument("3d-pattern", s.handle3DPattern))
	mux.Handle(routePrefix+"/interference-pattern", s.instrument("interference-pattern", s.handleInterferencePattern))
	mux.Handle(routePrefix+"/calculate-all", s.instrument("calculate-all", s.handleCalculateAll))
	mux.Handle(routePrefix+"/templates", s.instrument("templates", s.handleTemplates))
	mux.Handle(routePrefix+"/load-scenario/", s.instrument("load-scenario", s.handleLoadScenario))
	mux.Handle(routePrefix+"/scenario-sources", s.instrument("scenario-sources", s.handleScenarioSources))
	mux.Handle(routePrefix+"/snapshot", s.instrument("snapshot", s.handleSnapshot))
	mux.Handle(routePrefix+"/track-pass", s.instrument("track-pass", s.handleTrackPass))
	mux.Handle("/healthz", s.instrument("healthz", s.handleHealthz))

	return mux
}

// Start begins serving in a goroutine and blocks until the context is
// cancelled or the listener fails, then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", logging.String("address", s.address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info(ctx, "shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn(ctx, "http server shutdown failed", logging.Err(err))
		if err := s.server.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the listener immediately.
func (s *Server) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
