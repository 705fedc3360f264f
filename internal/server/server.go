// Package server assembles the collector: storage, handlers and middleware
// behind one net/http mux.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/forms"
	"github.com/iudanet/yardsync/internal/server/config"
	"github.com/iudanet/yardsync/internal/server/handlers"
	"github.com/iudanet/yardsync/internal/server/middleware"
	"github.com/iudanet/yardsync/internal/server/storage"
)

// Routes of the collector API
const (
	RouteHealth  = "GET /api/v1/health"
	RouteLogin   = "POST /api/v1/auth/login"
	RouteForms   = "POST /api/v1/forms/{kind}"
	RouteMetrics = "GET /metrics"
)

// Store is the persistence the collector needs
type Store interface {
	storage.UserStorage
	storage.SubmissionStorage
	handlers.Pinger
}

// Server is the collector HTTP server
type Server struct {
	store        Store
	cfg          *config.Config
	logger       *slog.Logger
	clock        clock.Clock
	registry     *prometheus.Registry
	limiter      *middleware.RateLimiter
	loginLimiter *middleware.RateLimiter
	handler      http.Handler
	version      string
}

// New builds the collector over store. clk may be nil
func New(cfg *config.Config, store Store, logger *slog.Logger, version string, clk clock.Clock) (*Server, error) {
	if clk == nil {
		clk = clock.New()
	}
	catalogue, err := forms.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load form catalogue: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		clock:    clk,
		registry: registry,
		version:  version,
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst,
			10*time.Minute, logger),
		loginLimiter: middleware.NewRateLimiter(cfg.LoginRateLimit.RequestsPerSecond, cfg.LoginRateLimit.Burst,
			10*time.Minute, logger),
	}
	s.handler = s.routes(catalogue)
	return s, nil
}

// Registry returns the registry served on /metrics
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the fully wrapped collector handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(catalogue *forms.Catalogue) http.Handler {
	jwtCfg := handlers.JWTConfig{
		Issuer:         handlers.DefaultIssuer,
		Secret:         []byte(s.cfg.JWTSecret),
		AccessTokenTTL: s.cfg.TokenTTL,
	}
	metrics := handlers.NewMetrics(s.registry)
	httpMetrics := middleware.NewHTTPMetrics(s.registry)

	healthHandler := handlers.NewHealthHandler(s.logger, s.store, s.version)
	authHandler := handlers.NewAuthHandler(s.logger, s.store, jwtCfg, s.clock, metrics)
	formsHandler := handlers.NewFormsHandler(s.logger, s.store, catalogue, s.clock, metrics)

	mux := http.NewServeMux()

	mux.Handle(RouteHealth, httpMetrics.Instrument(RouteHealth, http.HandlerFunc(healthHandler.Health)))
	mux.Handle(RouteLogin, httpMetrics.Instrument(RouteLogin,
		s.loginLimiter.Middleware(http.HandlerFunc(authHandler.Login))))
	mux.Handle(RouteForms, httpMetrics.Instrument(RouteForms,
		middleware.AuthMiddleware(s.logger, jwtCfg)(http.HandlerFunc(formsHandler.Submit))))
	mux.Handle(RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger, "/api/v1/health", "/metrics"),
		s.limiter.Middleware,
	)
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("collector listening", "addr", s.cfg.Addr, "version", s.version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down collector")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close stops the background goroutines of the rate limiters
func (s *Server) Close() {
	s.limiter.Stop()
	s.loginLimiter.Stop()
}
