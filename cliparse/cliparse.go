// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	UserKeySalt  string `env:"USER_KEY_SALT"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// Optional admin profile created at startup
	BootstrapAdminID    string `env:"BOOTSTRAP_ADMIN_ID"`
	BootstrapAdminEmail string `env:"BOOTSTRAP_ADMIN_EMAIL" envDefault:"admin@campus.local"`

	// Messaging webhook; disabled when the token is empty
	TelegramToken    string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
	TelegramEndpoint string `env:"TELEGRAM_API_ENDPOINT"`

	// Workflow tuning
	VoteThreshold  float64       `env:"VOTE_THRESHOLD" envDefault:"25"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	ResponseWindow time.Duration `env:"DRIVER_RESPONSE_WINDOW" envDefault:"10m"`
	VoteCooldown   time.Duration `env:"VOTE_COOLDOWN" envDefault:"30m"`
	VoteTTL        time.Duration `env:"VOTE_TTL" envDefault:"1h"`
}

// LoadDotEnv loads a .env file into the process environment.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// ParseFlags reads the environment, then lets CLI flags override it
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("extrabus", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.UserKeySalt, "user-salt", cfg.UserKeySalt, "User key salt (prefer env)")

	fs.Float64Var(&cfg.VoteThreshold, "threshold", cfg.VoteThreshold, "Weighted votes needed to escalate a request")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Interval between expiry/threshold sweeps")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("invalid database type %q (want sqlite or postgres)", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.UserKeySalt == "" {
		return Config{}, errors.New("USER_KEY_SALT required")
	}

	if cfg.VoteThreshold <= 0 {
		return Config{}, errors.New("vote threshold must be positive")
	}
	if cfg.PollInterval <= 0 {
		return Config{}, errors.New("poll interval must be positive")
	}
	if cfg.ResponseWindow <= 0 {
		return Config{}, errors.New("driver response window must be positive")
	}
	if cfg.VoteCooldown <= 0 {
		return Config{}, errors.New("vote cooldown must be positive")
	}
	if cfg.VoteTTL <= 0 {
		return Config{}, errors.New("vote TTL must be positive")
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return Config{}, errors.New("TELEGRAM_CHAT_ID required when TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}
