// Command update performs a single sync run and exits.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Harvey-AU/salesforce-account-updater/internal/app"
	"github.com/Harvey-AU/salesforce-account-updater/internal/config"
	"github.com/Harvey-AU/salesforce-account-updater/internal/updater"
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

	// No metrics listener for a one-shot run; traces still go to OTLP when configured
	cfg.MetricsAddr = ""
	_, shutdownTelemetry := app.InitObservability(ctx, cfg)
	defer shutdownTelemetry()

	res := app.NewUpdater(cfg).Run(ctx, updater.TriggerManual)

	// Handled failures still exit 0; the outcome is in the logs
	log.Info().
		Str("run_id", res.RunID).
		Str("status", string(res.Status)).
		Dur("duration", res.Duration()).
		Msg("Run complete")
}
