// Package testutil loads credentials for tests that talk to a real Salesforce org.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Harvey-AU/salesforce-account-updater/internal/config"
	"github.com/joho/godotenv"
)

// sandboxKeys are copied from .env.test into the process environment.
var sandboxKeys = []string{
	"SF_USERNAME",
	"SF_PASSWORD",
	"SF_SECURITY_TOKEN",
	"SF_DOMAIN",
	"SF_API_VERSION",
}

// RequireSalesforceEnv loads .env.test (if present) and skips the test unless
// sandbox credentials are available.
func RequireSalesforceEnv(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("SF_USERNAME") == "" {
		if envPath := findEnvTestFile(); envPath != "" {
			envMap, err := godotenv.Read(envPath)
			if err != nil {
				t.Logf("Warning: failed to read %s: %v", envPath, err)
			}
			for _, key := range sandboxKeys {
				if v, ok := envMap[key]; ok && v != "" {
					t.Setenv(key, v)
				}
			}
		}
	}

	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if err := cfg.ValidateSalesforce(); err != nil {
		t.Skipf("Salesforce sandbox not configured: %v", err)
	}
	return cfg
}

// findEnvTestFile searches for .env.test in current and parent directories
func findEnvTestFile() string {
	dir, _ := os.Getwd()

	for range 5 {
		envPath := filepath.Join(dir, ".env.test")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
