// Package config loads process-wide settings from the environment.
//
// Configuration is read once at start-up. Nothing mutates it afterwards; picking
// up new values means restarting the process.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrMissingConfig is returned by the Validate helpers when required keys are unset.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds the application configuration loaded from environment variables
type Config struct {
	// Salesforce credentials and endpoint
	SFUsername      string `env:"SF_USERNAME"`
	SFPassword      string `env:"SF_PASSWORD"`
	SFSecurityToken string `env:"SF_SECURITY_TOKEN"`
	SFDomain        string `env:"SF_DOMAIN" envDefault:"test"` // "test" targets a sandbox
	SFAPIVersion    string `env:"SF_API_VERSION" envDefault:"59.0"`

	// Cube analytics API
	CubeAPIURL   string `env:"CUBE_API_URL"`
	CubeAPIToken string `env:"CUBE_API_TOKEN"`

	TargetAccountName string        `env:"TARGET_ACCOUNT_NAME" envDefault:"Test"`
	RunTimeout        time.Duration `env:"RUN_TIMEOUT" envDefault:"2m"`

	Env             string `env:"APP_ENV" envDefault:"development"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	SentryDSN       string `env:"SENTRY_DSN"`
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`

	// Ops server and telemetry
	Port                 string `env:"PORT" envDefault:"8080"`
	ObservabilityEnabled bool   `env:"OBSERVABILITY_ENABLED" envDefault:"true"`
	MetricsAddr          string `env:"METRICS_ADDR" envDefault:":9464"`
	OTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders          string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OTLPInsecure         bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
}

// Load reads .env files (.env.local takes priority) and parses the environment.
func Load() (*Config, error) {
	// Missing .env files are normal outside local development
	_ = godotenv.Load(".env.local", ".env")

	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ValidateSalesforce checks that all three Salesforce credentials are present.
func (c *Config) ValidateSalesforce() error {
	return missing(map[string]string{
		"SF_USERNAME":       c.SFUsername,
		"SF_PASSWORD":       c.SFPassword,
		"SF_SECURITY_TOKEN": c.SFSecurityToken,
	})
}

// Validate checks every key needed for a sync run.
func (c *Config) Validate() error {
	return missing(map[string]string{
		"SF_USERNAME":       c.SFUsername,
		"SF_PASSWORD":       c.SFPassword,
		"SF_SECURITY_TOKEN": c.SFSecurityToken,
		"CUBE_API_URL":      c.CubeAPIURL,
		"CUBE_API_TOKEN":    c.CubeAPIToken,
	})
}

// ParseOTLPHeaders splits "k=v,k2=v2" into a header map, skipping malformed pairs.
func (c *Config) ParseOTLPHeaders() map[string]string {
	headers := make(map[string]string)
	raw := strings.TrimSpace(c.OTLPHeaders)
	if raw == "" {
		return headers
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}

	return headers
}

func missing(values map[string]string) error {
	var names []string
	for name, value := range values {
		if strings.TrimSpace(value) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(names, ", "))
}
