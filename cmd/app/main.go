package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/api"
	"github.com/Harvey-AU/salesforce-account-updater/internal/app"
	"github.com/Harvey-AU/salesforce-account-updater/internal/config"
	"github.com/Harvey-AU/salesforce-account-updater/internal/observability"
	"github.com/Harvey-AU/salesforce-account-updater/internal/scheduler"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	app.SetupLogging(cfg)

	flush := app.InitSentry(cfg)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obsProviders, shutdownTelemetry := app.InitObservability(ctx, cfg)
	defer shutdownTelemetry()

	var metricsHandler http.Handler
	if obsProviders != nil {
		metricsHandler = obsProviders.MetricsHandler
	}
	if metricsHandler != nil && cfg.MetricsAddr != "" {
		metricsSrv := startMetricsServer(cfg.MetricsAddr, metricsHandler)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn().Err(err).Msg("Graceful shutdown of metrics server failed")
			}
		}()
	}

	// Credentials are checked per run; a misconfigured daemon keeps reporting it hourly
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("Configuration incomplete, runs will fail until it is fixed")
	}

	sched := scheduler.New(app.NewUpdater(cfg))

	mux := http.NewServeMux()
	api.NewHandler(sched, metricsHandler).SetupRoutes(mux)

	var handler http.Handler = mux
	handler = api.LoggingMiddleware(handler)
	handler = api.RequestIDMiddleware(handler)
	handler = api.SecurityHeadersMiddleware(handler)
	handler = observability.WrapHandler(handler, obsProviders)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// POST /run waits for the whole sync
		WriteTimeout: cfg.RunTimeout + 30*time.Second,
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("health", fmt.Sprintf("http://localhost:%s/health", cfg.Port)).
			Dur("interval", scheduler.Interval).
			Msg("Starting ops server and hourly scheduler")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case err, ok := <-serverErr:
		if ok {
			sentry.CaptureException(err)
			log.Error().Err(err).Msg("Server error")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sentry.CaptureException(err)
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	<-schedDone
	log.Info().Msg("Stopped")
}

// startMetricsServer exposes Prometheus metrics on a dedicated listener for scrapers
// that should not reach the ops port.
func startMetricsServer(addr string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}
