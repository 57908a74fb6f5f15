// Package config resolves immich-tools settings from the TOML config file,
// the environment (optionally seeded from a .env file), and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	AppDir     = "immich-tools"
	ConfigFile = "config.toml"
	EnvFile    = ".env"

	DefaultTimeout   = "60s"
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Environment variables consulted by Load.
const (
	EnvHost     = "IMMICH_HOST"
	EnvAPIKey   = "IMMICH_API_KEY"
	EnvLogLevel = "IMMICH_LOG_LEVEL"
)

// Config represents the immich-tools configuration
type Config struct {
	Host           string `toml:"host,omitempty"`
	APIKey         string `toml:"api_key,omitempty"`
	LogLevel       string `toml:"log_level,omitempty"`
	LogFormat      string `toml:"log_format,omitempty"`
	Timeout        string `toml:"timeout,omitempty"`         // Per-request timeout, Go duration syntax
	MaxConcurrency int    `toml:"max_concurrency,omitempty"` // 0 means every request of a wave is in flight at once
	path           string // file the config was read from, empty if none
}

// Default returns a Config holding the built-in defaults
func Default() *Config {
	return &Config{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Timeout:   DefaultTimeout,
	}
}

// DefaultPath returns the per-user config file location
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, AppDir, ConfigFile), nil
}

// Load reads the config file at path, falling back to DefaultPath when path
// is empty. A missing default file is not an error; a missing explicit file is.
// Environment variables are applied on top of the file.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := LoadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, err
		}
		cfg = Default()
	}

	if err := LoadEnvFile(EnvFile); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// LoadFile reads the config file at path on top of the defaults, ignoring the
// environment. The returned error wraps os.ErrNotExist if the file is missing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment without overriding variables that are already set.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration to path with owner-only permissions,
// since it may hold the API key
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	c.path = path
	return nil
}

// RequestTimeout returns the parsed per-request timeout
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// Validate checks that the settings needed to reach the server are present
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("no host configured (use --host, %s, or 'host' in the config file)", EnvHost)
	}
	if c.APIKey == "" {
		return fmt.Errorf("no API key configured (use --api-key, %s, or 'api_key' in the config file)", EnvAPIKey)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative, got %d", c.MaxConcurrency)
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	return nil
}
