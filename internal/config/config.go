package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

var instanceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// HuddleConfig represents the top-level huddle.yml configuration.
// Every field can be overridden by the environment variable named in its
// env tag.
type HuddleConfig struct {
	Version      string         `yaml:"version"`
	InstanceName string         `yaml:"instance_name" env:"HUDDLE_INSTANCE_NAME"`
	RedisURL     string         `yaml:"redis_url"     env:"REDIS_URL"`
	HTTP         HTTPConfig     `yaml:"http"`
	Store        StoreConfig    `yaml:"store"`
	Dispatch     DispatchConfig `yaml:"dispatch"`
	Limits       LimitsConfig   `yaml:"limits"`
	Relay        RelayConfig    `yaml:"relay"`
	Notify       NotifyConfig   `yaml:"notify"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr" env:"HUDDLE_HTTP_ADDR"`
}

// StoreConfig selects where sessions are persisted. Pub/sub, notifications
// and counters always use Redis.
type StoreConfig struct {
	Driver     string `yaml:"driver"      env:"HUDDLE_STORE_DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"HUDDLE_SQLITE_PATH"`
}

// DispatchConfig tunes the action dispatcher.
type DispatchConfig struct {
	MaxWriteRetries *int `yaml:"max_write_retries,omitempty" env:"HUDDLE_MAX_WRITE_RETRIES"` // 0 = no retry, default = 3
	MaxPayloadBytes int  `yaml:"max_payload_bytes,omitempty" env:"HUDDLE_MAX_PAYLOAD_BYTES"`
}

// LimitsConfig are the generic guards applied to every variant.
type LimitsConfig struct {
	MaxTextLength int `yaml:"max_text_length,omitempty" env:"HUDDLE_MAX_TEXT_LENGTH"`
	MaxEntries    int `yaml:"max_entries,omitempty"     env:"HUDDLE_MAX_ENTRIES"`
}

// RelayConfig tunes side-effect delivery.
type RelayConfig struct {
	BufferSize      int           `yaml:"buffer_size,omitempty"      env:"HUDDLE_RELAY_BUFFER_SIZE"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout,omitempty" env:"HUDDLE_RELAY_DELIVERY_TIMEOUT"`
}

// NotifyConfig controls closure notifications.
type NotifyConfig struct {
	Enabled *bool `yaml:"enabled,omitempty" env:"HUDDLE_NOTIFY_ENABLED"` // default = true
}

// Default returns a configuration holding only defaults.
func Default() *HuddleConfig {
	cfg := &HuddleConfig{Version: "1.0"}
	cfg.applyDefaults()
	return cfg
}

// Load reads huddle.yml from path, overlays environment variables and
// validates the result. An empty path skips the file.
func Load(path string) (*HuddleConfig, error) {
	config := HuddleConfig{Version: "1.0"}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	// Unset variables leave file values in place.
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs strict validation on the configuration, applying
// defaults for anything left unset.
func (c *HuddleConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if !instanceNamePattern.MatchString(c.InstanceName) {
		return fmt.Errorf("instance_name %q must be lowercase alphanumeric with dashes", c.InstanceName)
	}

	switch c.Store.Driver {
	case DriverRedis:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required when store.driver is %q", DriverSQLite)
		}
	default:
		return fmt.Errorf("invalid store.driver %q: must be %q or %q", c.Store.Driver, DriverRedis, DriverSQLite)
	}

	if *c.Dispatch.MaxWriteRetries < 0 {
		return fmt.Errorf("dispatch.max_write_retries must be >= 0 (0 = no retry), got %d", *c.Dispatch.MaxWriteRetries)
	}
	if c.Dispatch.MaxPayloadBytes < 1024 {
		return fmt.Errorf("dispatch.max_payload_bytes must be at least 1024, got %d", c.Dispatch.MaxPayloadBytes)
	}
	if c.Limits.MaxTextLength < 1 {
		return fmt.Errorf("limits.max_text_length must be positive, got %d", c.Limits.MaxTextLength)
	}
	if c.Limits.MaxEntries < 1 {
		return fmt.Errorf("limits.max_entries must be positive, got %d", c.Limits.MaxEntries)
	}
	if c.Relay.BufferSize < 1 {
		return fmt.Errorf("relay.buffer_size must be positive, got %d", c.Relay.BufferSize)
	}
	if c.Relay.DeliveryTimeout <= 0 {
		return fmt.Errorf("relay.delivery_timeout must be positive, got %s", c.Relay.DeliveryTimeout)
	}

	return nil
}

func (c *HuddleConfig) applyDefaults() {
	if c.InstanceName == "" {
		c.InstanceName = "default"
	}
	if c.RedisURL == "" {
		c.RedisURL = "redis://localhost:6379"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverRedis
	}
	if c.Dispatch.MaxWriteRetries == nil {
		defaultRetries := 3
		c.Dispatch.MaxWriteRetries = &defaultRetries
	}
	if c.Dispatch.MaxPayloadBytes == 0 {
		c.Dispatch.MaxPayloadBytes = 256 * 1024
	}
	if c.Limits.MaxTextLength == 0 {
		c.Limits.MaxTextLength = 2000
	}
	if c.Limits.MaxEntries == 0 {
		c.Limits.MaxEntries = 200
	}
	if c.Relay.BufferSize == 0 {
		c.Relay.BufferSize = 256
	}
	if c.Relay.DeliveryTimeout == 0 {
		c.Relay.DeliveryTimeout = 5 * time.Second
	}
	if c.Notify.Enabled == nil {
		enabled := true
		c.Notify.Enabled = &enabled
	}
}

// WriteRetries returns the configured retry budget; -1 means none, which is
// how the dispatcher spells zero retries.
func (c *HuddleConfig) WriteRetries() int {
	if *c.Dispatch.MaxWriteRetries == 0 {
		return -1
	}
	return *c.Dispatch.MaxWriteRetries
}
