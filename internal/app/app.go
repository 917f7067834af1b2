// Package app builds the runtime shared by the command-line entry points:
// logging, error tracking, telemetry and a fully wired updater.
package app

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/config"
	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
	"github.com/Harvey-AU/salesforce-account-updater/internal/notifications"
	"github.com/Harvey-AU/salesforce-account-updater/internal/observability"
	"github.com/Harvey-AU/salesforce-account-updater/internal/salesforce"
	"github.com/Harvey-AU/salesforce-account-updater/internal/updater"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName tags logs, traces and error reports.
const ServiceName = "salesforce-account-updater"

// SetupLogging configures the global zerolog logger
func SetupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		return
	}

	log.Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// InitSentry initialises error tracking when a DSN is configured. The returned
// function flushes buffered events and is always safe to call.
func InitSentry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		log.Warn().Msg("Sentry DSN not configured, error tracking disabled")
		return func() {}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Env,
		ServerName:  ServiceName,
		TracesSampleRate: func() float64 {
			if cfg.Env == "production" {
				return 0.1
			}
			return 1.0
		}(),
		AttachStacktrace: true,
		Debug:            cfg.Env == "development",
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialise Sentry")
		return func() {}
	}

	log.Info().Str("environment", cfg.Env).Msg("Sentry initialised successfully")
	return func() { sentry.Flush(2 * time.Second) }
}

// InitObservability starts tracing and metrics when enabled. The returned
// shutdown function flushes exporters and is always safe to call.
func InitObservability(ctx context.Context, cfg *config.Config) (*observability.Providers, func()) {
	noop := func() {}
	if !cfg.ObservabilityEnabled {
		return nil, noop
	}

	prov, err := observability.Init(ctx, observability.Config{
		Enabled:        true,
		ServiceName:    ServiceName,
		Environment:    cfg.Env,
		OTLPEndpoint:   strings.TrimSpace(cfg.OTLPEndpoint),
		OTLPHeaders:    cfg.ParseOTLPHeaders(),
		OTLPInsecure:   cfg.OTLPInsecure,
		MetricsAddress: cfg.MetricsAddr,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialise observability providers")
		return nil, noop
	}
	if prov == nil {
		return nil, noop
	}

	return prov, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := prov.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush telemetry providers cleanly")
		}
	}
}

// NewSalesforceClient builds a client for the configured org.
func NewSalesforceClient(cfg *config.Config) *salesforce.Client {
	return salesforce.New(salesforce.Credentials{
		Username:      cfg.SFUsername,
		Password:      cfg.SFPassword,
		SecurityToken: cfg.SFSecurityToken,
	},
		salesforce.WithDomain(cfg.SFDomain),
		salesforce.WithAPIVersion(cfg.SFAPIVersion),
	)
}

// NewUpdater wires the Cube fetcher, a Salesforce connector and, when a
// webhook is configured, Slack notifications.
func NewUpdater(cfg *config.Config, opts ...updater.Option) *updater.Updater {
	sf := NewSalesforceClient(cfg)
	connector := updater.ConnectorFunc(func(ctx context.Context) (updater.Accounts, error) {
		session, err := sf.Login(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	})

	if cfg.SlackWebhookURL != "" {
		opts = append(opts, updater.WithNotifier(notifications.NewSlackNotifier(cfg.SlackWebhookURL)))
	}

	return updater.New(cfg, cube.New(cfg.CubeAPIURL, cfg.CubeAPIToken), connector, opts...)
}
