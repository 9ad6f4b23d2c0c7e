// Package api provides the HTTP API server for the FlowLens backend.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/flowlens/flowlens-api/internal/config"
	"github.com/flowlens/flowlens-api/internal/services"
	"github.com/flowlens/flowlens-api/internal/store"
)

const (
	serviceName    = "FlowLens API"
	serviceVersion = "1.0.0"
)

// Server wraps the HTTP router, its handlers, and lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	store      *store.Store
	copilot    *services.Copilot
	router     *mux.Router
	httpServer *http.Server
}

// NewServer constructs an HTTP server bound to the configured address.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, incidentStore *store.Store, copilot *services.Copilot) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   incidentStore,
		copilot: copilot,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        cfg.Address,
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// Narrative generation may block on the LLM for up to two minutes.
		WriteTimeout: 150 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware, s.loggingMiddleware)

	s.router.HandleFunc("/", s.handleBanner).Methods(http.MethodGet)
	s.router.HandleFunc("/api/health", s.handleSystemHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/metrics", s.handlePolicyMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/api/incidents", s.handleListIncidents).Methods(http.MethodGet)
	s.router.HandleFunc("/api/incidents/simulate", s.handleSimulateIncident).Methods(http.MethodPost)
	s.router.HandleFunc("/api/incidents/{id}", s.handleGetIncident).Methods(http.MethodGet)
	s.router.HandleFunc("/api/actions/decisions", s.handleDecisions).Methods(http.MethodGet)
	s.router.HandleFunc("/api/actions/{id}/approve", s.handleApproveAction).Methods(http.MethodPost)
	s.router.HandleFunc("/api/actions/{id}/deny", s.handleDenyAction).Methods(http.MethodPost)
	s.router.HandleFunc("/api/narrative", s.handleNarrative).Methods(http.MethodGet)
}

// Router exposes the configured handler (useful for tests).
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves incoming HTTP requests until Shutdown is invoked.
func (s *Server) Start() error {
	s.logger.Info("api server listening", slog.String("address", s.cfg.Address))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown attempts a graceful shutdown within the context deadline.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("api server shutdown", slog.Any("error", err))
	}
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
