// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handler "github.com/newthinker/signalforge/internal/api/handler/api"
	"github.com/newthinker/signalforge/internal/api/middleware"
	"github.com/newthinker/signalforge/internal/metrics"
	"github.com/newthinker/signalforge/internal/storage/signal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for SignalForge
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	APIKey  string
	Explain bool

	// MetricsPath serves the prometheus registry; empty uses /metrics
	MetricsPath    string
	DisableMetrics bool

	// WriteTimeout must exceed the pipeline deadline plus explanation time.
	WriteTimeout time.Duration
}

// Dependencies holds the components the routes are served from.
type Dependencies struct {
	Pipeline    handler.Runner
	Explainer   handler.Explainer
	SignalStore signal.Store
	Archive     handler.Archive // optional by-id fallback
	Metrics     *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	if deps.SignalStore == nil {
		deps.SignalStore = signal.NewMemoryStore(signal.DefaultMaxSize)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}

	s.setupRoutes(cfg, deps)

	var h http.Handler = mux
	h = metrics.HTTPMiddleware(deps.Metrics)(h)
	h = metrics.LoggingMiddleware(logger)(h)
	s.httpServer.Handler = h

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	auth := middleware.APIKeyAuth(cfg.APIKey)

	analysis := handler.NewAnalysisHandler(deps.Pipeline, deps.Explainer, cfg.Explain, s.logger)
	signals := handler.NewSignalsHandler(deps.SignalStore, deps.Archive)

	s.mux.Handle("GET /api/v1/signals/{ticker}", auth(http.HandlerFunc(analysis.Analyze)))
	s.mux.Handle("GET /api/v1/signals", auth(http.HandlerFunc(signals.List)))
	s.mux.Handle("GET /api/v1/signals/by-id/{id}", auth(http.HandlerFunc(signals.GetByID)))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if !cfg.DisableMetrics {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
