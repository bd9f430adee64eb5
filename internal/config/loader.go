package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ROUNDENGINE_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ROUNDENGINE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ROUNDENGINE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ROUNDENGINE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ROUNDENGINE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ROUNDENGINE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ROUNDENGINE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ROUNDENGINE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ROUNDENGINE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ROUNDENGINE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ROUNDENGINE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ROUNDENGINE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ROUNDENGINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ROUNDENGINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ROUNDENGINE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ROUNDENGINE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ROUNDENGINE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ROUNDENGINE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ROUNDENGINE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ROUNDENGINE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ROUNDENGINE_S3_REGION")
	setStr(&cfg.S3.Bucket, "ROUNDENGINE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ROUNDENGINE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ROUNDENGINE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ROUNDENGINE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ROUNDENGINE_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setInt(&cfg.Engine.FreezeMarginSec, "ROUNDENGINE_ENGINE_FREEZE_MARGIN_SEC")
	setInt(&cfg.Engine.ProtectionThreshold, "ROUNDENGINE_ENGINE_PROTECTION_THRESHOLD")
	setDuration(&cfg.Engine.ResolveTimeout, "ROUNDENGINE_ENGINE_RESOLVE_TIMEOUT")
	setInt(&cfg.Engine.ResolveRetries, "ROUNDENGINE_ENGINE_RESOLVE_RETRIES")
	setDuration(&cfg.Engine.RetryBackoff, "ROUNDENGINE_ENGINE_RETRY_BACKOFF")
	setDuration(&cfg.Engine.GraceWindow, "ROUNDENGINE_ENGINE_GRACE_WINDOW")
	setStr(&cfg.Engine.ResultSecret, "ROUNDENGINE_ENGINE_RESULT_SECRET")
	setStr(&cfg.Engine.Timezone, "ROUNDENGINE_ENGINE_TIMEZONE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ROUNDENGINE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ROUNDENGINE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ROUNDENGINE_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ROUNDENGINE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ROUNDENGINE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ROUNDENGINE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ROUNDENGINE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ROUNDENGINE_MODE")
	setStr(&cfg.LogLevel, "ROUNDENGINE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
