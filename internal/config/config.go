// Package config defines the top-level configuration for the settlement
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PACTAS_* environment variables.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Settlement SettlementConfig `toml:"settlement"`
	Notify     NotifyConfig     `toml:"notify"`
	Sweeper    SweeperConfig    `toml:"sweeper"`
	Archive    ArchiveConfig    `toml:"archive"`
	LogLevel   string           `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// RedisConfig holds Redis connection parameters. Redis is optional: when
// Enabled is false the engine runs without the pool cache and signal bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for settlement
// reports and ledger archives. Optional: when Enabled is false nothing is
// archived.
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

// SettlementConfig holds the fee split applied at resolution, in basis
// points. FeeBps is taken off the total pool first; OrgShareBps is the
// organization's cut of what remains.
type SettlementConfig struct {
	FeeBps      int64 `toml:"fee_bps"`
	OrgShareBps int64 `toml:"org_share_bps"`
}

// NotifyConfig holds notification fan-out parameters. WebhookURL is the
// downstream delivery endpoint; when empty only bus events are emitted.
type NotifyConfig struct {
	WebhookURL string `toml:"webhook_url"`
	QueueSize  int    `toml:"queue_size"`
	Workers    int    `toml:"workers"`
}

// SweeperConfig controls the background loop that closes questions past
// their deadline.
type SweeperConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// ArchiveConfig controls the ledger archive loop. Retention is how far back
// entries stay un-archived.
type ArchiveConfig struct {
	Enabled   bool     `toml:"enabled"`
	Interval  duration `toml:"interval"`
	Retention duration `toml:"retention"`
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

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pactas",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "pactas-archive",
			ForcePathStyle: true,
		},
		Settlement: SettlementConfig{
			FeeBps:      500,
			OrgShareBps: 5000,
		},
		Notify: NotifyConfig{
			QueueSize: 256,
			Workers:   2,
		},
		Sweeper: SweeperConfig{
			Enabled:  true,
			Interval: duration{time.Minute},
		},
		Archive: ArchiveConfig{
			Enabled:   false,
			Interval:  duration{24 * time.Hour},
			Retention: duration{90 * 24 * time.Hour},
		},
		LogLevel: "info",
	}
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

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Database.DSN == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host is required when dsn is not set")
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database name is required when dsn is not set")
		}
		if c.Database.User == "" {
			errs = append(errs, "database: user is required when dsn is not set")
		}
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, fmt.Sprintf("database: pool_min_conns (%d) exceeds pool_max_conns (%d)",
			c.Database.PoolMinConns, c.Database.PoolMaxConns))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr is required when redis is enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket is required when s3 is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region is required when s3 is enabled")
		}
	}

	if c.Settlement.FeeBps < 0 || c.Settlement.FeeBps > 10_000 {
		errs = append(errs, fmt.Sprintf("settlement: fee_bps %d out of range [0, 10000]", c.Settlement.FeeBps))
	}
	if c.Settlement.OrgShareBps < 0 || c.Settlement.OrgShareBps > 10_000 {
		errs = append(errs, fmt.Sprintf("settlement: org_share_bps %d out of range [0, 10000]", c.Settlement.OrgShareBps))
	}

	if c.Notify.QueueSize <= 0 {
		errs = append(errs, "notify: queue_size must be positive")
	}
	if c.Notify.Workers <= 0 {
		errs = append(errs, "notify: workers must be positive")
	}

	if c.Sweeper.Enabled && c.Sweeper.Interval.Duration <= 0 {
		errs = append(errs, "sweeper: interval must be positive when enabled")
	}

	if c.Archive.Enabled {
		if !c.S3.Enabled {
			errs = append(errs, "archive: requires s3 to be enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive when enabled")
		}
		if c.Archive.Retention.Duration <= 0 {
			errs = append(errs, "archive: retention must be positive when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
