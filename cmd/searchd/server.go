package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/api/handlers"
	"github.com/shacharon/searchcore/internal/cache"
	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/internal/dedup"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/internal/llmclient"
	"github.com/shacharon/searchcore/internal/metrics"
	"github.com/shacharon/searchcore/internal/pipeline"
	"github.com/shacharon/searchcore/internal/places"
	"github.com/shacharon/searchcore/internal/pubsub"
	"github.com/shacharon/searchcore/internal/server"
	"github.com/shacharon/searchcore/internal/telemetry"
	"github.com/shacharon/searchcore/internal/tickets"
	"github.com/shacharon/searchcore/ws"
)

// Server wires every searchcore component into two listeners: the public
// HTTP/WS API and a separate Prometheus /metrics endpoint (spec §6.1, §6.5),
// grounded on the teacher's cmd/agentflow Server split of http/metrics
// managers.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	cacheMgr *cache.Manager

	httpManager    *server.Manager
	metricsManager *server.Manager

	otel *telemetry.Providers
}

// NewServer builds every domain collaborator from cfg. When the Redis ping
// fails, production refuses to start (spec §5); development continues with
// cacheMgr == nil and GET /ready reporting not-ready.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger, otel: otelProviders}

	cacheMgr, err := cache.NewManager(cache.Config{
		URL:                 cfg.Redis.URL,
		FailClosed:          cfg.Redis.FailClosed,
		DefaultTTL:          cfg.Dedup.JobTTL,
		MaxRetries:          3,
		PoolSize:            cfg.Redis.PoolSize,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}, logger)
	if err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("server: connect redis: %w", err)
		}
		logger.Warn("redis unavailable, continuing in degraded development mode", zap.Error(err))
	} else {
		s.cacheMgr = cacheMgr
	}

	return s, nil
}

// Start builds the domain graph, registers routes, and starts both
// listeners (non-blocking).
func (s *Server) Start() error {
	collector := metrics.NewCollector("searchcore", s.logger)

	var jobs *jobstore.Store
	var ticketStore *tickets.Store
	var registry *pubsub.Registry
	var orchestrator *pipeline.Orchestrator

	if s.cacheMgr != nil {
		jobs = jobstore.New(s.cacheMgr, s.cfg.Dedup.JobTTL, s.logger)
		ticketStore = tickets.New(s.cacheMgr, s.cfg.Push.TicketTTL, s.logger)
		registry = pubsub.New(s.cfg.Push, s.logger)
		resolver := dedup.New(jobs, s.cfg.Dedup, s.logger)

		llmClient := llmclient.New(s.cfg.LLM, s.logger).WithMetrics(collector)
		placesClient := places.New(s.cfg.Places, s.logger, &http.Client{Timeout: s.cfg.Places.RequestTimeout})

		orchestrator = pipeline.New(pipeline.Deps{
			LLM:       llmClient,
			Places:    placesClient,
			Jobs:      jobs,
			Pubsub:    registry,
			Dedup:     resolver,
			Ranking:   s.cfg.Ranking,
			FieldMask: s.cfg.Places.FieldMask,
			Logger:    s.logger,
			Metrics:   collector,
		})
	} else {
		s.logger.Warn("search pipeline not wired: no store connection")
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux, jobs, ticketStore, registry, orchestrator, collector)

	// Only the two liveness/readiness probes bypass JWTAuth outright — every
	// other route (including the result-polling GET, which has no templated
	// match in an exact-path skip set) relies on cfg.JWT.AllowAnonymous to
	// let unauthenticated callers through, with handlers.Ticket.Issue
	// enforcing its own 401 when no session hash landed in the context.
	skipAuthPaths := []string{"/health", "/ready"}
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		RequestLogger(s.logger),
		MetricsMiddleware(collector),
		SecurityHeaders(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(context.Background(), s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst),
		JWTAuth(s.cfg.JWT, skipAuthPaths, s.logger),
	)

	httpConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.httpManager = server.NewManager(handler, httpConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	s.logger.Info("http server started", zap.Int("port", s.cfg.Server.HTTPPort))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.metricsManager = server.NewManager(metricsMux, metricsConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))

	return nil
}

// registerRoutes wires C14 (HTTP) and C15 (socket) onto mux (spec §6.1, §6.2).
func (s *Server) registerRoutes(
	mux *http.ServeMux,
	jobs *jobstore.Store,
	ticketStore *tickets.Store,
	registry *pubsub.Registry,
	orchestrator *pipeline.Orchestrator,
	collector *metrics.Collector,
) {
	health := &handlers.Health{Store: s.cacheMgr, Logger: s.logger}
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /ready", health.Readiness)

	search := &handlers.Search{
		Orchestrator:  orchestrator,
		Jobs:          jobs,
		RunningMaxAge: s.cfg.Dedup.RunningMaxAge,
		Logger:        s.logger,
	}
	mux.HandleFunc("POST /api/v1/search", search.Submit)
	mux.HandleFunc("GET /api/v1/search/{requestId}/result", search.Result)

	ticketHandler := &handlers.Ticket{
		Store:      ticketStore,
		TTLSeconds: int(s.cfg.Push.TicketTTL.Seconds()),
		Logger:     s.logger,
	}
	mux.HandleFunc("POST /api/v1/auth/ws-ticket", ticketHandler.Issue)

	socket := &ws.Handler{
		Tickets:  ticketStore,
		Jobs:     jobs,
		Registry: registry,
		Logger:   s.logger,
	}
	mux.Handle("/ws", socket)
}

// WaitForShutdown blocks until a shutdown signal or server error, then
// releases every collaborator.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

func (s *Server) Shutdown() {
	s.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}
	if s.cacheMgr != nil {
		if err := s.cacheMgr.Close(); err != nil {
			s.logger.Error("cache close error", zap.Error(err))
		}
	}
	s.logger.Info("shutdown complete")
}
