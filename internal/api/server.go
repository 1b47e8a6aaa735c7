// Package api provides the HTTP REST API for workflow management, run
// control and usage inspection.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/diagnostics"
	"github.com/mlorenz/socialflow/internal/events"
	"github.com/mlorenz/socialflow/internal/runs"
	"github.com/mlorenz/socialflow/internal/usage"
)

// Server exposes REST endpoints over the workflow stores and the run
// coordinator.
type Server struct {
	router      chi.Router
	workflows   core.WorkflowStore
	coordinator *runs.Coordinator
	ledger      *usage.Ledger
	collector   *diagnostics.Collector
	bus         *events.Bus
	logger      *slog.Logger
	corsOrigins []string
	now         func() time.Time
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigins sets the origins allowed by the CORS middleware.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithCollector sets the system metrics collector for the health endpoint.
func WithCollector(collector *diagnostics.Collector) ServerOption {
	return func(s *Server) {
		s.collector = collector
	}
}

// WithEventBus sets the bus streamed by the events endpoint.
func WithEventBus(bus *events.Bus) ServerOption {
	return func(s *Server) {
		s.bus = bus
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates an API server.
func NewServer(workflows core.WorkflowStore, coordinator *runs.Coordinator, ledger *usage.Ledger, opts ...ServerOption) *Server {
	s := &Server{
		workflows:   workflows,
		coordinator: coordinator,
		ledger:      ledger,
		logger:      slog.Default(),
		corsOrigins: []string{"*"},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/api/v1/workflows", s.handleListWorkflows)
		r.Post("/api/v1/workflows", s.handleCreateWorkflow)
		r.Get("/api/v1/workflows/{workflowID}", s.handleGetWorkflow)
		r.Put("/api/v1/workflows/{workflowID}", s.handleUpdateWorkflow)
		r.Delete("/api/v1/workflows/{workflowID}", s.handleDeleteWorkflow)
		r.Get("/api/v1/workflows/{workflowID}/runs", s.handleListRuns)
		r.Get("/api/v1/usage/{metric}", s.handleGetUsage)
		r.Post("/api/v1/classify", s.handleClassify)
	})

	// Run-starting handlers block until the run reaches a terminal state, so
	// the deadline they honor is the coordinator's run timeout, not the
	// router's. The events stream stays open for the life of the client.
	r.Group(func(r chi.Router) {
		r.Post("/api/v1/workflows/{workflowID}/run", s.handleStartRun)
		r.Post("/api/v1/hooks/{workflowID}", s.handleWebhook)
		r.Get("/api/v1/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth returns server health plus a system metrics snapshot.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	}
	if s.collector != nil {
		payload["system"] = s.collector.Collect()
	}
	respondJSON(w, http.StatusOK, payload)
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	return srv.ListenAndServe()
}
