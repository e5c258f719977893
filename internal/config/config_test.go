package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: ledger
    user: ledger
  redis:
    host: localhost
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)

	assert.Equal(t, 0.4, cfg.Scoring.AutomatedWeight)
	assert.Equal(t, 0.6, cfg.Scoring.HumanWeight)
	assert.Equal(t, 70, cfg.Scoring.VerifyThreshold)

	assert.Equal(t, int64(10), cfg.Rewards.BaseUpload)
	assert.Equal(t, int64(15), cfg.Rewards.QualityBonus)
	assert.Equal(t, 80, cfg.Rewards.QualityBonusThreshold)
	assert.Equal(t, int64(25), cfg.Rewards.FirstUploadBonus)
	assert.Equal(t, int64(50), cfg.Rewards.VerificationBonus)

	assert.False(t, cfg.Forwarder.Enabled)
	assert.Equal(t, "@every 30s", cfg.Forwarder.Schedule)
	assert.Equal(t, 5, cfg.Forwarder.MaxAttempts)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	assert.Equal(t, 5*time.Minute, cfg.Database.Redis.BalanceCacheTTL())
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
server:
  port: 9090
scoring:
  automated_weight: 0.5
  human_weight: 0.5
  verify_threshold: 80
rewards:
  base_upload: 20
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Scoring.AutomatedWeight)
	assert.Equal(t, 80, cfg.Scoring.VerifyThreshold)
	assert.Equal(t, int64(20), cfg.Rewards.BaseUpload)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing postgres host",
			content: `
database:
  postgres:
    database: ledger
    user: ledger
  redis:
    host: localhost
`,
		},
		{
			name: "weights do not sum to one",
			content: minimalConfig + `
scoring:
  automated_weight: 0.5
  human_weight: 0.6
`,
		},
		{
			name: "threshold out of range",
			content: minimalConfig + `
scoring:
  verify_threshold: 150
`,
		},
		{
			name: "forwarder enabled without url",
			content: minimalConfig + `
forwarder:
  enabled: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
