// Package config provides configuration loading and validation for the
// embedding host. Per-user configuration lives in the ConfigStore, not
// here; this file covers deployment-static settings only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Tokens    TokenConfig     `yaml:"tokens"`
	Database  DatabaseConfig  `yaml:"database"`
	Users     UsersConfig     `yaml:"users"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RateLimitConfig configures rate limiting.
// Enabled is a deployment-wide switch read at service construction.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TokenConfig configures single-use token issuance.
type TokenConfig struct {
	DefaultTTL       time.Duration `yaml:"default_ttl"`
	PBKDF2Iterations int           `yaml:"pbkdf2_iterations"`
}

// DatabaseConfig configures the history store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// UsersConfig points at the YAML user directory when the file-backed
// config store is used.
type UsersConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads configuration from a YAML file, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv builds configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOTGATE_RATE_LIMIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RateLimit.Enabled = b
		}
	}
	if v := os.Getenv("BOTGATE_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Tokens.DefaultTTL = d
		}
	}
	if v := os.Getenv("BOTGATE_TOKEN_PBKDF2_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tokens.PBKDF2Iterations = n
		}
	}
	if v := os.Getenv("BOTGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BOTGATE_USERS_PATH"); v != "" {
		cfg.Users.Path = v
	}
	if v := os.Getenv("BOTGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Tokens.DefaultTTL == 0 {
		cfg.Tokens.DefaultTTL = 10 * time.Minute
	}
	if cfg.Tokens.PBKDF2Iterations == 0 {
		cfg.Tokens.PBKDF2Iterations = 100_000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validate(cfg *Config) error {
	if cfg.Tokens.DefaultTTL < 0 {
		return fmt.Errorf("tokens.default_ttl must not be negative")
	}
	if cfg.Tokens.PBKDF2Iterations < 0 {
		return fmt.Errorf("tokens.pbkdf2_iterations must not be negative")
	}
	switch cfg.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("logging.level %q is not a zerolog level", cfg.Logging.Level)
	}
	return nil
}
