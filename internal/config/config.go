// Package config loads seedvault settings from an optional YAML file and
// SEEDVAULT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/seedvault/internal/keystore"
	"github.com/illarion/seedvault/internal/session"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "seedvault.yaml"

// Environment variables
const (
	EnvConfig         = "SEEDVAULT_CONFIG"
	EnvDB             = "SEEDVAULT_DB"
	EnvSessionTTL     = "SEEDVAULT_SESSION_TTL"
	EnvLogLevel       = "SEEDVAULT_LOG_LEVEL"
	EnvKeyringService = "SEEDVAULT_KEYRING_SERVICE"
	EnvPIN            = "SEEDVAULT_PIN"
)

// Config holds the seedvault process configuration
type Config struct {
	// Database is the bbolt file holding items and vault metadata
	Database string `yaml:"database"`

	// KeyringService is the OS keyring service name for platform keys
	KeyringService string `yaml:"keyring_service"`

	// SessionTTL is how long Unlock keeps the derived key
	SessionTTL time.Duration `yaml:"session_ttl"`

	// BiometricTTL is the default authentication window
	BiometricTTL time.Duration `yaml:"biometric_ttl"`

	Log LogConfig `yaml:"log"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Database:       ".seedvault",
		KeyringService: keystore.DefaultService,
		SessionTTL:     session.DefaultTTL,
		BiometricTTL:   session.DefaultAuthDuration,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads path on top of the defaults and then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Path returns the config file to load: SEEDVAULT_CONFIG or DefaultFile
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return DefaultFile
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDB); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvKeyringService); v != "" {
		c.KeyringService = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSessionTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSessionTTL, err)
		}
		c.SessionTTL = ttl
	}
	return nil
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.BiometricTTL < session.MinAuthDuration {
		return fmt.Errorf("biometric_ttl must be at least %s", session.MinAuthDuration)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
