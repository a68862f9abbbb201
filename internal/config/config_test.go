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
	path := filepath.Join(t.TempDir(), "huddle.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
instance_name: team-a
redis_url: redis://redis:6379/1
http:
  addr: ":9090"
store:
  driver: sqlite
  sqlite_path: /var/lib/huddle/sessions.db
dispatch:
  max_write_retries: 5
limits:
  max_entries: 50
relay:
  delivery_timeout: 2s
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "team-a", config.InstanceName)
	assert.Equal(t, "redis://redis:6379/1", config.RedisURL)
	assert.Equal(t, ":9090", config.HTTP.Addr)
	assert.Equal(t, DriverSQLite, config.Store.Driver)
	assert.Equal(t, 5, *config.Dispatch.MaxWriteRetries)
	assert.Equal(t, 50, config.Limits.MaxEntries)
	assert.Equal(t, 2000, config.Limits.MaxTextLength, "unset values take defaults")
	assert.Equal(t, 2*time.Second, config.Relay.DeliveryTimeout)
	assert.True(t, *config.Notify.Enabled)
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "default", config.InstanceName)
	assert.Equal(t, DriverRedis, config.Store.Driver)
	assert.Equal(t, 3, config.WriteRetries())
	assert.Equal(t, 256*1024, config.Dispatch.MaxPayloadBytes)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
instance_name: from-file
http:
  addr: ":9090"
`)
	t.Setenv("HUDDLE_INSTANCE_NAME", "from-env")
	t.Setenv("HUDDLE_MAX_WRITE_RETRIES", "0")
	t.Setenv("HUDDLE_RELAY_DELIVERY_TIMEOUT", "750ms")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.InstanceName)
	assert.Equal(t, ":9090", config.HTTP.Addr, "file value survives when env is unset")
	assert.Equal(t, -1, config.WriteRetries(), "zero retries")
	assert.Equal(t, 750*time.Millisecond, config.Relay.DeliveryTimeout)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/huddle.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
http:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("HUDDLE_MAX_ENTRIES", "lots")
	_, err := Load("")
	assert.ErrorContains(t, err, "failed to parse environment")
}

func TestValidate(t *testing.T) {
	negative := -1

	tests := []struct {
		name          string
		config        HuddleConfig
		errorContains string
	}{
		{"unsupported version", HuddleConfig{Version: "2.0"}, "unsupported version: 2.0"},
		{"bad instance name", HuddleConfig{Version: "1.0", InstanceName: "Team A"}, "instance_name"},
		{"unknown driver", HuddleConfig{Version: "1.0", Store: StoreConfig{Driver: "mongo"}}, "invalid store.driver"},
		{"sqlite without path", HuddleConfig{Version: "1.0", Store: StoreConfig{Driver: DriverSQLite}}, "sqlite_path is required"},
		{"negative retries", HuddleConfig{Version: "1.0", Dispatch: DispatchConfig{MaxWriteRetries: &negative}}, "max_write_retries must be >= 0"},
		{"tiny payload limit", HuddleConfig{Version: "1.0", Dispatch: DispatchConfig{MaxPayloadBytes: 10}}, "max_payload_bytes"},
		{"negative entries", HuddleConfig{Version: "1.0", Limits: LimitsConfig{MaxEntries: -5}}, "max_entries must be positive"},
		{"negative timeout", HuddleConfig{Version: "1.0", Relay: RelayConfig{DeliveryTimeout: -time.Second}}, "delivery_timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}
