package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"

[database]
host = "db.internal"
database = "pactas_prod"

[settlement]
fee_bps = 250

[sweeper]
interval = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "pactas_prod", cfg.Database.Database)
	assert.Equal(t, int64(250), cfg.Settlement.FeeBps)
	assert.Equal(t, 30*time.Second, cfg.Sweeper.Interval.Duration)
	// Untouched fields keep their defaults.
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int64(5000), cfg.Settlement.OrgShareBps)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PACTAS_DATABASE_DSN", "postgres://u:p@h:5432/d")
	t.Setenv("PACTAS_SETTLEMENT_FEE_BPS", "750")
	t.Setenv("PACTAS_REDIS_ENABLED", "true")
	t.Setenv("PACTAS_SWEEPER_INTERVAL", "5m")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "postgres://u:p@h:5432/d", cfg.Database.DSN)
	assert.Equal(t, int64(750), cfg.Settlement.FeeBps)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval.Duration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "trace"
	cfg.Settlement.FeeBps = 10_001
	cfg.Database.PoolMinConns = 20
	cfg.Archive.Enabled = true // without s3

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "fee_bps")
	assert.Contains(t, err.Error(), "pool_min_conns")
	assert.Contains(t, err.Error(), "requires s3")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.S3.SecretKey = "sekrit"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Database.Password)
}
