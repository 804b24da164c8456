package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"astraguard/aegis/pkg/audit"
	"astraguard/aegis/pkg/audit/recorder"
	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/policy/engine"
	"astraguard/aegis/pkg/telemetry/health"
	"astraguard/aegis/pkg/telemetry/metrics"
	"astraguard/aegis/pkg/tracker"
)

// Server is the HTTP API for the decision authority. It exposes anomaly
// evaluation, mission phase control, and the audit trail.
type Server struct {
	config     *config.ServerConfig
	engine     *engine.Engine
	tracker    *tracker.Tracker
	recorder   *recorder.Recorder
	auditStore audit.Storage
	metrics    *metrics.Collector
	checker    *health.Checker
	auditQuery config.QueryConfig

	metricsPath string
	version     string
	commit      string
	buildTime   string

	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Dependencies are the components the server exposes over HTTP. Engine is
// required; everything else degrades gracefully when absent.
type Dependencies struct {
	// Engine evaluates anomaly events and owns the mission state machine.
	Engine *engine.Engine

	// Tracker enriches events with recurrence and simultaneous fault
	// counts. Nil disables enrichment.
	Tracker *tracker.Tracker

	// Recorder writes decisions and transitions to the audit trail.
	// Nil disables audit recording.
	Recorder *recorder.Recorder

	// AuditStore serves audit queries. Nil disables /v1/audit/records.
	AuditStore audit.Storage

	// AuditQuery bounds audit query pagination.
	AuditQuery config.QueryConfig

	// Metrics records Prometheus series and serves the metrics endpoint.
	// Nil disables both.
	Metrics *metrics.Collector

	// Checker runs the readiness probes behind /ready.
	Checker *health.Checker

	// MetricsPath is where the metrics handler mounts. Default: "/metrics".
	MetricsPath string

	// Version, Commit, and BuildTime are reported by /version.
	Version   string
	Commit    string
	BuildTime string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New creates the API server. It returns an error when required
// dependencies are missing.
func New(cfg *config.ServerConfig, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("decision engine is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	checker := deps.Checker
	if checker == nil {
		checker = health.New(0)
	}

	metricsPath := deps.MetricsPath
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}

	auditQuery := deps.AuditQuery
	if auditQuery.DefaultLimit <= 0 {
		auditQuery.DefaultLimit = config.DefaultAuditQueryDefaultLimit
	}
	if auditQuery.MaxLimit <= 0 {
		auditQuery.MaxLimit = config.DefaultAuditQueryMaxLimit
	}

	return &Server{
		config:       cfg,
		engine:       deps.Engine,
		tracker:      deps.Tracker,
		recorder:     deps.Recorder,
		auditStore:   deps.AuditStore,
		metrics:      deps.Metrics,
		checker:      checker,
		auditQuery:   auditQuery,
		metricsPath:  metricsPath,
		version:      deps.Version,
		commit:       deps.Commit,
		buildTime:    deps.BuildTime,
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the HTTP server and blocks until shutdown. Shutdown is
// triggered by context cancellation, SIGINT or SIGTERM, a call to
// Shutdown, or a listener error.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", "address", s.config.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop requests shutdown of a server blocked in Start.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
	})
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/decisions", s.handleDecisions)
	mux.HandleFunc("/v1/phase", s.handlePhase)
	mux.HandleFunc("/v1/phase/transitions", s.handleTransitions)
	mux.HandleFunc("/v1/phase/recovery", s.handleRecovery)
	mux.HandleFunc("/v1/phases", s.handlePhaseList)
	mux.HandleFunc("/v1/phases/{phase}/constraints", s.handleConstraints)
	mux.HandleFunc("/v1/audit/records", s.handleAuditRecords)

	health.Mount(mux, s.checker, s.version, s.commit, s.buildTime)

	if s.metrics != nil {
		mux.Handle(s.metricsPath, s.metrics.Handler())
	}

	var handler http.Handler = mux

	if s.metrics != nil {
		handler = s.metricsMiddleware(handler)
	}

	if s.config.RequestTimeout > 0 {
		handler = TimeoutMiddleware(s.config.RequestTimeout)(handler)
	}

	handler = CORSMiddleware(s.config.CORS)(handler)
	handler = RequestIDMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	return handler
}
