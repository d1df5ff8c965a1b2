package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "adb", config.ADB.Path)
	assert.Equal(t, "127.0.0.1:8090", config.Bridge.Listen)
	assert.Equal(t, 5, config.Retry.MaxRetries)
	assert.Equal(t, 30*time.Second, config.Retry.HeartbeatInterval)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adb:\n  path: /opt/sdk/adb\nretry:\n  max_retries: 3\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/sdk/adb", config.ADB.Path)
	assert.Equal(t, 3, config.Retry.MaxRetries)
	// Untouched sections keep their defaults
	assert.Equal(t, "127.0.0.1:8090", config.Bridge.Listen)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	config, err := Default()
	require.NoError(t, err)
	config.Bridge.Listen = "0.0.0.0:9000"
	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", loaded.Bridge.Listen)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty adb path", func(c *Config) { c.ADB.Path = "" }, "adb.path is required"},
		{"empty listen", func(c *Config) { c.Bridge.Listen = "" }, "bridge.listen is required"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store.path is required"},
		{"zero retries", func(c *Config) { c.Retry.MaxRetries = 0 }, "retry.max_retries must be positive"},
		{"zero heartbeat", func(c *Config) { c.Retry.HeartbeatInterval = 0 }, "retry.heartbeat_interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := Default()
			require.NoError(t, err)
			tt.mutate(config)
			require.EqualError(t, config.Validate(), tt.errMsg)
		})
	}
}
