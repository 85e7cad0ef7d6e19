package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicboard/clinicboard/internal/api/router"
	"github.com/clinicboard/clinicboard/internal/backend"
	"github.com/clinicboard/clinicboard/internal/cache"
	appconfig "github.com/clinicboard/clinicboard/internal/config"
	"github.com/clinicboard/clinicboard/internal/observability/metrics"
	"github.com/clinicboard/clinicboard/internal/session"
	"github.com/clinicboard/clinicboard/internal/view"
	"github.com/clinicboard/clinicboard/pkg/logging"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinicboard reconciliation engine",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	caps, actorID, err := session.CapabilitiesFromToken(cfg.SessionToken, cfg.SessionJWTSecret)
	if err != nil {
		logger.Error("failed to establish session", "error", err)
		os.Exit(1)
	}
	lifecycle := session.NewLifecycle(logger)

	backendClient, err := backend.New(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Token:   cfg.BackendToken,
		ActorID: actorID,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to build backend client", "error", err)
		os.Exit(1)
	}

	snapshotCache, err := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		TLS:      cfg.RedisTLS,
		TTL:      cfg.CacheTTL,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to connect snapshot cache", "error", err)
		os.Exit(1)
	}
	if snapshotCache == nil {
		logger.Info("snapshot cache disabled, no redis address configured")
	}

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	engine, err := view.NewEngine(view.Config{
		Backend:          backendClient,
		Capabilities:     caps,
		Lifecycle:        lifecycle,
		Cache:            snapshotCache,
		Metrics:          engineMetrics,
		Logger:           logger,
		ReadinessTimeout: cfg.ReadinessTimeout,
		RetryBackoff:     cfg.RetryBackoff,
	})
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)

	viewHandler := view.NewHandler(engine, logger)
	r := router.New(&router.Config{
		Logger:         logger,
		ViewHandler:    viewHandler,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Tear the view session down before the server: cancel in-flight fetches
	// so nothing updates state while handlers drain.
	lifecycle.BeginLogout()
	engine.Stop()
	lifecycle.FinishLogout()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
