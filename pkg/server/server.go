// Package server exposes the workflow service over a small JSON REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/aihub/pkg/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// maxBodyBytes bounds request bodies, including imported documents
	maxBodyBytes = 1 << 20

	shutdownTimeout = 5 * time.Second
)

// Server holds the router and the dependencies its handlers use
type Server struct {
	svc            *service.WorkflowService
	reg            *registry.Registry
	logger         *zap.Logger
	metrics        *Metrics
	router         *mux.Router
	allowedOrigins []string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and error logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithAllowedOrigins sets the origins CORS accepts. Default is "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithMetrics replaces the server's collectors
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a server over svc and reg
func New(svc *service.WorkflowService, reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		reg:            reg,
		logger:         zap.NewNop(),
		router:         mux.NewRouter(),
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.setupRoutes()
	return s
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/workflows", s.listWorkflows).Methods(http.MethodGet)
	api.HandleFunc("/workflows", s.createWorkflow).Methods(http.MethodPost)
	api.HandleFunc("/workflows/import", s.importWorkflow).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{id}", s.getWorkflow).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{id}", s.updateWorkflow).Methods(http.MethodPut)
	api.HandleFunc("/workflows/{id}", s.deleteWorkflow).Methods(http.MethodDelete)
	api.HandleFunc("/workflows/{id}/duplicate", s.duplicateWorkflow).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{id}/export", s.exportWorkflow).Methods(http.MethodGet)

	api.HandleFunc("/node-types", s.listNodeTypes).Methods(http.MethodGet)

	api.Use(s.loggingMiddleware)
}

// Handler returns the router wrapped with panic recovery and CORS
func (s *Server) Handler() http.Handler {
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	)(s.router)

	return handlers.CORS(
		handlers.AllowedOrigins(s.allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID", "Content-Disposition"}),
	)(recovered)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("failed to stop API server: %w", err)
		}
		return nil
	}
}

// recoveryLogger routes panics caught by the recovery handler to zap
type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic in handler", zap.String("panic", fmt.Sprint(v...)))
}
