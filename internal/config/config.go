// Package config loads and persists the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration structure
type Config struct {
	ADB    ADBConfig    `yaml:"adb"`
	Bridge BridgeConfig `yaml:"bridge"`
	Store  StoreConfig  `yaml:"store"`
	WebOS  WebOSConfig  `yaml:"webos"`
	Retry  RetryConfig  `yaml:"retry"`
}

// ADBConfig contains settings for the adb binary
type ADBConfig struct {
	Path string `yaml:"path"` // adb executable (default: resolved from PATH)
}

// BridgeConfig contains the REST bridge settings
type BridgeConfig struct {
	Listen string `yaml:"listen"` // bind address for the control API
}

// StoreConfig contains the device registry settings
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// WebOSConfig contains WebOS adapter settings
type WebOSConfig struct {
	KeyDir string `yaml:"key_dir"` // client-key file directory
}

// RetryConfig tunes the session retry and heartbeat policy
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// DefaultDir returns the per-user configuration directory
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(base, "zapp"), nil
}

// Default returns a configuration with all defaults filled in
func Default() (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		ADB:    ADBConfig{Path: "adb"},
		Bridge: BridgeConfig{Listen: "127.0.0.1:8090"},
		Store:  StoreConfig{Path: filepath.Join(dir, "devices.db")},
		WebOS:  WebOSConfig{KeyDir: filepath.Join(dir, "webos-keys")},
		Retry: RetryConfig{
			MaxRetries:        5,
			HeartbeatInterval: 30 * time.Second,
		},
	}, nil
}

// LoadConfig loads configuration from a YAML file, filling omitted fields
// with defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// SaveConfig writes the configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ADB.Path == "" {
		return fmt.Errorf("adb.path is required")
	}
	if c.Bridge.Listen == "" {
		return fmt.Errorf("bridge.listen is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Retry.MaxRetries <= 0 {
		return fmt.Errorf("retry.max_retries must be positive")
	}
	if c.Retry.HeartbeatInterval <= 0 {
		return fmt.Errorf("retry.heartbeat_interval must be positive")
	}
	return nil
}
