// Command sf-test checks that the configured Salesforce credentials can log in
// and read an Account.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/app"
	"github.com/Harvey-AU/salesforce-account-updater/internal/config"
	"github.com/Harvey-AU/salesforce-account-updater/internal/salesforce"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	app.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Salesforce connectivity check failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Info().
		Str("username", cfg.SFUsername).
		Int("security_token_length", len(cfg.SFSecurityToken)).
		Str("domain", cfg.SFDomain).
		Msg("Attempting Salesforce connection")

	if err := cfg.ValidateSalesforce(); err != nil {
		return err
	}

	session, err := app.NewSalesforceClient(cfg).Login(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("instance_url", session.InstanceURL).Msg("Successfully connected to Salesforce")

	account, err := session.FirstAccount(ctx)
	switch {
	case errors.Is(err, salesforce.ErrNotFound):
		log.Info().Msg("No accounts found")
	case err != nil:
		return err
	default:
		log.Info().Str("id", account.ID).Str("name", account.Name).Msg("Found account")
	}

	log.Info().Msg("Query successful")
	return nil
}
