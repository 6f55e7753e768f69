package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Service.Host)
	assert.Equal(t, 3000, cfg.Service.Port)
	assert.Equal(t, "localhost:3000", cfg.Service.Addr())
	assert.Equal(t, time.Minute, cfg.Queue.GracePeriod)
	assert.Equal(t, 30*time.Second, cfg.Queue.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.Collab.PendingTTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "grpc", cfg.Telemetry.Protocol)
	assert.False(t, cfg.Chat.Enabled())
	assert.False(t, cfg.Broker.Enabled())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
service:
  host: 0.0.0.0
  port: 8080
queue:
  grace_period: 90s
collaboration:
  pending_ttl: 2m
log:
  format: text
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Service.Addr())
	assert.Equal(t, 90*time.Second, cfg.Queue.GracePeriod)
	assert.Equal(t, 2*time.Minute, cfg.Collab.PendingTTL)
	assert.Equal(t, "text", cfg.Log.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Queue.SweepInterval)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SHOWROOM_SERVICE_PORT", "4443")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 4443, cfg.Service.Port)
	assert.Equal(t, "sk-test", cfg.Chat.APIKey)
	assert.True(t, cfg.Chat.Enabled())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"zero port", "SHOWROOM_SERVICE_PORT", "0", "service.port"},
		{"unknown telemetry protocol", "SHOWROOM_TELEMETRY_PROTOCOL", "smoke", "telemetry.protocol"},
		{"unknown log format", "SHOWROOM_LOG_FORMAT", "xml", "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := LoadConfig("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
