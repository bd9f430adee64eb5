// Package config defines the top-level configuration for the round engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

const secondsPerDay = 86400

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ROUNDENGINE_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Engine   EngineConfig   `toml:"engine"`
	Games    []GameConfig   `toml:"games"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. When DSN is set it
// wins over the discrete fields.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the round
// archiver. Disabled by default; rounds are still fully persisted in
// Postgres without it.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds round lifecycle and outcome selection parameters.
type EngineConfig struct {
	// FreezeMarginSec is how many seconds before the period boundary betting
	// closes. A remaining time at or below the margin rejects bets.
	FreezeMarginSec int `toml:"freeze_margin_sec"`
	// ProtectionThreshold is the distinct-bettor count below which outcome
	// selection prefers house-favourable outcomes.
	ProtectionThreshold int `toml:"protection_threshold"`
	// ResolveTimeout bounds one selection attempt against the ledger.
	ResolveTimeout duration `toml:"resolve_timeout"`
	// ResolveRetries is how many selection attempts run before the
	// deterministic fallback outcome is used.
	ResolveRetries int      `toml:"resolve_retries"`
	RetryBackoff   duration `toml:"retry_backoff"`
	// GraceWindow is how long ledger and registry data outlives settlement
	// before expiry.
	GraceWindow duration `toml:"grace_window"`
	// ResultSecret keys the HMAC verification hash published with every
	// result and the fallback outcome derivation.
	ResultSecret string `toml:"result_secret"`
	// Timezone anchors the daily period numbering. Period IDs restart at
	// sequence 0 at local midnight in this zone.
	Timezone string `toml:"timezone"`
}

// GameConfig enables one game with its period durations and parallel
// timelines.
type GameConfig struct {
	Name      string   `toml:"name"`
	Durations []int    `toml:"durations"`
	Timelines []string `toml:"timelines"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "roundengine",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "roundengine-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Engine: EngineConfig{
			FreezeMarginSec:     5,
			ProtectionThreshold: 100,
			ResolveTimeout:      duration{3 * time.Second},
			ResolveRetries:      3,
			RetryBackoff:        duration{200 * time.Millisecond},
			GraceWindow:         duration{10 * time.Minute},
			Timezone:            "Local",
		},
		Games: []GameConfig{
			{Name: "wingo", Durations: []int{30, 60, 180, 300}, Timelines: []string{"a"}},
			{Name: "k3", Durations: []int{60, 180, 300}, Timelines: []string{"a"}},
			{Name: "5d", Durations: []int{60, 180, 300}, Timelines: []string{"a"}},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"selection_fallback", "result_commit_failed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scheduler": true,
	"broadcast": true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scheduler, broadcast, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Redis backs the ledger, registry, and coordination bus in every mode.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	// Postgres backs the result store in every mode.
	if c.Postgres.DSN == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty when dsn is unset")
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty when dsn is unset")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port %d out of range", c.Postgres.Port))
		}
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when s3 is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when s3 is enabled")
		}
	}

	// Engine parameters only drive resolution, which scheduler and full run.
	resolves := mode == "scheduler" || mode == "full"
	if resolves && c.Engine.ResultSecret == "" {
		errs = append(errs, "engine: result_secret must be set for mode "+c.Mode)
	}
	if c.Engine.FreezeMarginSec < 0 {
		errs = append(errs, "engine: freeze_margin_sec must not be negative")
	}
	if c.Engine.ProtectionThreshold < 0 {
		errs = append(errs, "engine: protection_threshold must not be negative")
	}
	if c.Engine.ResolveRetries < 0 {
		errs = append(errs, "engine: resolve_retries must not be negative")
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("engine: unknown timezone %q", c.Engine.Timezone))
	}

	if len(c.Games) == 0 {
		errs = append(errs, "games: at least one game must be configured")
	}
	seen := map[string]bool{}
	for _, g := range c.Games {
		if g.Name == "" {
			errs = append(errs, "games: name must not be empty")
			continue
		}
		if seen[g.Name] {
			errs = append(errs, fmt.Sprintf("games: %s configured twice", g.Name))
		}
		seen[g.Name] = true
		if len(g.Durations) == 0 {
			errs = append(errs, fmt.Sprintf("games: %s has no durations", g.Name))
		}
		for _, d := range g.Durations {
			switch {
			case d <= 0:
				errs = append(errs, fmt.Sprintf("games: %s duration %d must be positive", g.Name, d))
			case secondsPerDay%d != 0:
				// Durations must tile the day exactly so period numbering
				// restarts cleanly at midnight.
				errs = append(errs, fmt.Sprintf("games: %s duration %d does not divide %d", g.Name, d, secondsPerDay))
			case c.Engine.FreezeMarginSec >= d:
				errs = append(errs, fmt.Sprintf("games: %s duration %d is not longer than freeze_margin_sec %d", g.Name, d, c.Engine.FreezeMarginSec))
			}
		}
		for _, t := range g.Timelines {
			if strings.TrimSpace(t) == "" {
				errs = append(errs, fmt.Sprintf("games: %s has an empty timeline", g.Name))
			}
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	// Notify channels need their full credential set or none at all.
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %d problem(s):\n  - %s", len(errs), strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location resolves the configured timezone. Call after Validate.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Engine.Timezone)
}
