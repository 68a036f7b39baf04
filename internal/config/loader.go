package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PACTAS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PACTAS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "PACTAS_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "PACTAS_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PACTAS_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PACTAS_DATABASE_NAME")
	setStr(&cfg.Database.User, "PACTAS_DATABASE_USER")
	setStr(&cfg.Database.Password, "PACTAS_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PACTAS_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "PACTAS_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PACTAS_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PACTAS_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PACTAS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PACTAS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PACTAS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PACTAS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PACTAS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PACTAS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PACTAS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PACTAS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PACTAS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PACTAS_S3_REGION")
	setStr(&cfg.S3.Bucket, "PACTAS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PACTAS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PACTAS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PACTAS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PACTAS_S3_FORCE_PATH_STYLE")

	// ── Settlement ──
	setInt64(&cfg.Settlement.FeeBps, "PACTAS_SETTLEMENT_FEE_BPS")
	setInt64(&cfg.Settlement.OrgShareBps, "PACTAS_SETTLEMENT_ORG_SHARE_BPS")

	// ── Notify ──
	setStr(&cfg.Notify.WebhookURL, "PACTAS_NOTIFY_WEBHOOK_URL")
	setInt(&cfg.Notify.QueueSize, "PACTAS_NOTIFY_QUEUE_SIZE")
	setInt(&cfg.Notify.Workers, "PACTAS_NOTIFY_WORKERS")

	// ── Sweeper ──
	setBool(&cfg.Sweeper.Enabled, "PACTAS_SWEEPER_ENABLED")
	setDuration(&cfg.Sweeper.Interval, "PACTAS_SWEEPER_INTERVAL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "PACTAS_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "PACTAS_ARCHIVE_INTERVAL")
	setDuration(&cfg.Archive.Retention, "PACTAS_ARCHIVE_RETENTION")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PACTAS_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
