// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"flag"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Database types
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
	DatabaseMongo    = "mongo"
)

const DefaultTurnstileURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type Config struct {
	Port         int    `env:"PORT" envDefault:"8000"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`

	// Human verification
	TurnstileSecretKey string        `env:"TURNSTILE_SECRET_KEY"`
	TurnstileURL       string        `env:"TURNSTILE_URL" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
	TurnstileDisabled  bool          `env:"TURNSTILE_DISABLED" envDefault:"false"`
	VerifyTimeout      time.Duration `env:"VERIFY_TIMEOUT" envDefault:"5s"`

	// HTTP
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL" envDefault:"1s"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Poll lifecycle
	PollLifetime  time.Duration `env:"POLL_LIFETIME" envDefault:"168h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// Live results
	BroadcastTimeout time.Duration `env:"BROADCAST_TIMEOUT" envDefault:"5s"`

	// Operations
	SentryDSN string     `env:"SENTRY_DSN"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// ParseFlags reads the environment, then lets flags override it
func ParseFlags(args []string) (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Wrap(err, "invalid environment")
	}

	fs := flag.NewFlagSet("quick-poll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite, postgres or mongo)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TurnstileSecretKey, "turnstile-secret", cfg.TurnstileSecretKey, "Turnstile secret key (prefer env)")
	fs.BoolVar(&cfg.TurnstileDisabled, "no-verify", cfg.TurnstileDisabled, "Skip human verification (development only)")

	fs.TextVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.DatabaseType = strings.ToLower(cfg.DatabaseType)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("invalid port")
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	switch c.DatabaseType {
	case DatabaseSQLite, DatabasePostgres, DatabaseMongo:
	default:
		return errors.Errorf("unsupported database type %q", c.DatabaseType)
	}

	// Secrets - MUST be provided unless verification is explicitly off
	if c.TurnstileSecretKey == "" && !c.TurnstileDisabled {
		return errors.New("TURNSTILE_SECRET_KEY required (or set TURNSTILE_DISABLED for development)")
	}

	if c.VerifyTimeout <= 0 {
		return errors.New("VERIFY_TIMEOUT must be positive")
	}
	if c.BroadcastTimeout <= 0 {
		return errors.New("BROADCAST_TIMEOUT must be positive")
	}
	if c.PollLifetime < time.Hour {
		return errors.New("POLL_LIFETIME must be at least 1h")
	}
	if c.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive")
	}
	if c.RateLimitBurst <= 0 || c.RateLimitInterval <= 0 {
		return errors.New("rate limit interval and burst must be positive")
	}

	return nil
}

// MaxDurationHours is the longest acceptance window a poll may ask for,
// keeping active_until at or before expire_at
func (c Config) MaxDurationHours() int {
	return int(c.PollLifetime / time.Hour)
}
