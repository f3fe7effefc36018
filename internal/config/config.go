package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultBaseURL        = "http://127.0.0.1:8000"
	defaultTimeoutSeconds = 15
)

// APIConfig holds connection settings for the order-management backend.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout"`
}

// SessionConfig controls where the session credentials are persisted.
type SessionConfig struct {
	Path string `toml:"path"`
}

// LogConfig controls logging output. An empty File logs to stderr.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Config holds all orderdeck configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

// BaseURLOrDefault returns API.BaseURL if set, otherwise the local development backend.
func (c Config) BaseURLOrDefault() string {
	if c.API.BaseURL != "" {
		return c.API.BaseURL
	}
	return defaultBaseURL
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds > 0 {
		return time.Duration(c.API.TimeoutSeconds) * time.Second
	}
	return defaultTimeoutSeconds * time.Second
}

// SessionPathOrDefault returns Session.Path if set, otherwise the default
// session file next to the config file.
func (c Config) SessionPathOrDefault() string {
	if c.Session.Path != "" {
		return c.Session.Path
	}
	return filepath.Join(defaultDir(), "session.toml")
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - ORDERDECK_API_URL      overrides api.base_url
//   - ORDERDECK_SESSION_FILE overrides session.path
//   - ORDERDECK_LOG_LEVEL    overrides log.level
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the orderdeck config file.
func DefaultConfigPath() string {
	return filepath.Join(defaultDir(), "config.toml")
}

func defaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "orderdeck")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ORDERDECK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("ORDERDECK_SESSION_FILE"); v != "" {
		cfg.Session.Path = v
	}
	if v := os.Getenv("ORDERDECK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
