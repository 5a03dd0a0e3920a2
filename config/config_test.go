package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/botgate/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
rate_limit:
  enabled: true
tokens:
  default_ttl: 5m
  pbkdf2_iterations: 150000
database:
  path: /var/lib/botgate/history.db
users:
  path: /etc/botgate/users.yaml
logging:
  level: debug
  pretty: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting not enabled")
	}
	if cfg.Tokens.DefaultTTL != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m", cfg.Tokens.DefaultTTL)
	}
	if cfg.Tokens.PBKDF2Iterations != 150000 {
		t.Errorf("iterations = %d, want 150000", cfg.Tokens.PBKDF2Iterations)
	}
	if cfg.Database.Path != "/var/lib/botgate/history.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Pretty {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "rate_limit:\n  enabled: false\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Tokens.DefaultTTL != 10*time.Minute {
		t.Errorf("default ttl = %v, want 10m", cfg.Tokens.DefaultTTL)
	}
	if cfg.Tokens.PBKDF2Iterations != 100_000 {
		t.Errorf("default iterations = %d, want 100000", cfg.Tokens.PBKDF2Iterations)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "rate_limit:\n  enabled: false\n")

	t.Setenv("BOTGATE_RATE_LIMIT_ENABLED", "true")
	t.Setenv("BOTGATE_TOKEN_TTL", "30m")
	t.Setenv("BOTGATE_LOG_LEVEL", "warn")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !cfg.RateLimit.Enabled {
		t.Error("env override for rate_limit.enabled not applied")
	}
	if cfg.Tokens.DefaultTTL != 30*time.Minute {
		t.Errorf("ttl = %v, want 30m", cfg.Tokens.DefaultTTL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: loud\n")

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOTGATE_DATABASE_PATH", "/tmp/history.db")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Database.Path != "/tmp/history.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
}
