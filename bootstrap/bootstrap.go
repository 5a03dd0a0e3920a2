// Package bootstrap wires all dependencies into a running application.
// Embedding hosts call New with a loaded config, use the assembled
// services, and Close on shutdown.
package bootstrap

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/botgate/adapters/clock"
	"github.com/artpar/botgate/adapters/fileconfig"
	"github.com/artpar/botgate/adapters/idgen"
	"github.com/artpar/botgate/adapters/metrics"
	"github.com/artpar/botgate/adapters/random"
	"github.com/artpar/botgate/adapters/sqlite"
	"github.com/artpar/botgate/app"
	"github.com/artpar/botgate/config"
	"github.com/artpar/botgate/ports"
)

// App represents the assembled application.
type App struct {
	Logger  zerolog.Logger
	DB      *sqlite.DB
	Users   *fileconfig.Store
	Metrics *metrics.Collector

	Access *app.AccessService
	Tokens *app.TokenService
}

// Options provides optional overrides for New.
type Options struct {
	// MetricsRegistry enables the prometheus collector when non-nil.
	MetricsRegistry prometheus.Registerer

	// Logger overrides the config-derived logger when non-nil.
	Logger *zerolog.Logger
}

// New assembles the application from configuration.
func New(cfg *config.Config) (*App, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions assembles the application with custom options.
func NewWithOptions(cfg *config.Config, opts Options) (*App, error) {
	logger, err := setupLogger(cfg.Logging, opts.Logger)
	if err != nil {
		return nil, err
	}

	a := &App{Logger: logger}

	a.DB, err = sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := a.DB.Migrate(); err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a.Users, err = fileconfig.New(cfg.Users.Path, logger)
	if err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("load user directory: %w", err)
	}
	if err := a.Users.WatchFile(); err != nil {
		// Hot reload is a convenience; a missing watcher is not fatal.
		logger.Warn().Err(err).Str("path", cfg.Users.Path).Msg("user directory watch unavailable")
	}

	var m ports.Metrics
	if opts.MetricsRegistry != nil {
		a.Metrics = metrics.New(opts.MetricsRegistry)
		m = a.Metrics
		logger.Info().Msg("prometheus metrics enabled")
	}

	history := sqlite.NewHistoryStore(a.DB)

	a.Access = app.NewAccessService(app.AccessDeps{
		Config:  a.Users,
		History: history,
		Clock:   clock.Real{},
		Random:  random.Real{},
		IDGen:   idgen.UUID{},
		Metrics: m,
		Logger:  logger,
	}, app.AccessConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
	})

	a.Tokens = app.NewTokenService(app.TokenDeps{
		Config:  a.Users,
		History: history,
		Clock:   clock.Real{},
		Metrics: m,
		Logger:  logger,
	}, app.TokenConfig{
		PBKDF2Iterations: cfg.Tokens.PBKDF2Iterations,
	})

	logger.Info().
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Str("database", cfg.Database.Path).
		Str("users", cfg.Users.Path).
		Msg("botgate initialized")

	return a, nil
}

// Close releases the application's resources.
func (a *App) Close() error {
	if a.Users != nil {
		a.Users.Stop()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig, override *zerolog.Logger) (zerolog.Logger, error) {
	if override != nil {
		return *override, nil
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}
	var w = zerolog.New(os.Stderr)
	if cfg.Pretty {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return w.Level(level).With().Timestamp().Logger(), nil
}
