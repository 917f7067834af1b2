package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SF_USERNAME", "ops@example.com")
	t.Setenv("SF_PASSWORD", "hunter2")
	t.Setenv("SF_SECURITY_TOKEN", "tok")
	t.Setenv("CUBE_API_URL", "https://cube.example.com/cubejs-api/v1/load")
	t.Setenv("CUBE_API_TOKEN", "Authorization: abc")
}

func TestParse_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.SFDomain)
	assert.Equal(t, "59.0", cfg.SFAPIVersion)
	assert.Equal(t, "Test", cfg.TargetAccountName)
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.ObservabilityEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestParse_InvalidDuration(t *testing.T) {
	t.Setenv("RUN_TIMEOUT", "soon")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate_ReportsMissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "all_missing",
			cfg:     Config{},
			wantErr: "CUBE_API_TOKEN, CUBE_API_URL, SF_PASSWORD, SF_SECURITY_TOKEN, SF_USERNAME",
		},
		{
			name: "only_token_missing",
			cfg: Config{
				SFUsername: "u", SFPassword: "p",
				CubeAPIURL: "https://cube", CubeAPIToken: "t",
			},
			wantErr: "SF_SECURITY_TOKEN",
		},
		{
			name: "whitespace_counts_as_missing",
			cfg: Config{
				SFUsername: "u", SFPassword: "  ", SFSecurityToken: "s",
				CubeAPIURL: "https://cube", CubeAPIToken: "t",
			},
			wantErr: "SF_PASSWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSalesforce_IgnoresCube(t *testing.T) {
	cfg := Config{SFUsername: "u", SFPassword: "p", SFSecurityToken: "s"}
	assert.NoError(t, cfg.ValidateSalesforce())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingConfig)
}

func TestParseOTLPHeaders(t *testing.T) {
	cfg := Config{OTLPHeaders: " authorization=Bearer x , bad, =empty,team = ops "}
	headers := cfg.ParseOTLPHeaders()

	assert.Equal(t, map[string]string{
		"authorization": "Bearer x",
		"team":          "ops",
	}, headers)
	assert.Empty(t, (&Config{}).ParseOTLPHeaders())
}
