package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actris-cloudnet/pid-service/internal/config"
	"github.com/actris-cloudnet/pid-service/internal/logger"
	"github.com/actris-cloudnet/pid-service/internal/pid"
	"github.com/actris-cloudnet/pid-service/internal/server/handlers"
	pidmiddleware "github.com/actris-cloudnet/pid-service/internal/server/middleware"
	"github.com/actris-cloudnet/pid-service/internal/services"
	"github.com/actris-cloudnet/pid-service/internal/version"
)

type Server struct {
	config   *config.ServerEnvironment
	logger   *slog.Logger
	router   *chi.Mux
	services *services.Services
	registry *prometheus.Registry
	minter   *pid.Minter
}

func NewServer(
	cfg *config.ServerEnvironment,
	svc *services.Services,
	logger *slog.Logger,
) (*Server, error) {
	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		services: svc,
		registry: prometheus.NewRegistry(),
	}

	if err := server.initMinter(); err != nil {
		return nil, fmt.Errorf("failed to initialize minter: %w", err)
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// initMinter registers the metrics and creates the Minter backed by the Handle server client.
func (s *Server) initMinter() error {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := pid.NewMetrics(s.registry)
	if err != nil {
		return err
	}

	s.minter = pid.NewMinter(s.services.HandleServer, s.config.Prefix, s.logger, metrics)
	s.logger.Info("minter initialized", slog.String("prefix", s.config.Prefix))
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	s.router.Use(pidmiddleware.SecurityHeaders(s.config.Environment))
}

func (s *Server) registerRoutes() {
	s.router.Route("/health", func(r chi.Router) {
		r.Get("/live", handlers.HandleHealth)
		r.Get("/ready", handlers.HandleReadiness(s.services.HandleServer))
	})
	s.router.Get("/version", handlers.HandleVersion(version.Get()))
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	mintHandler := handlers.NewMintHandler(s.minter)
	s.router.Group(func(r chi.Router) {
		r.Use(pidmiddleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
		r.Use(pidmiddleware.RequestSizeLimit(s.config.MaxRequestSize))

		r.Post("/pid", mintHandler.HandleMint)
		r.Post("/pid/", mintHandler.HandleMint)
	})
}

// Handler returns the root handler (used by tests to run the server in-process)
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// SessionShutdown closes the Handle server session. Failures are logged and ignored.
func (s *Server) SessionShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer cancel()

	s.services.HandleServer.Teardown(ctx)
	s.logger.Info("Handle server session released")
}
