package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "medivault.db", cfg.Database.DSN)
	assert.Equal(t, "sqlite3", cfg.Database.DriverName())
	assert.Equal(t, "blobs", cfg.Blobs.Root)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 3, cfg.Jobs.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Jobs.BaseDelayDuration())
	assert.Equal(t, 30*time.Second, cfg.HTTP.TimeoutDuration())
	assert.Equal(t, "medivault", cfg.Tracing.Service)

	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	raw := []byte(`
database:
  dialect: postgres
  dsn: postgres://localhost/medivault?sslmode=disable
logging:
  level: debug
  format: json
jobs:
  workers: 4
`)
	cfg, err := Load(raw)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "postgres", cfg.Database.DriverName())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Jobs.Workers)
	// Untouched sections still get defaults.
	assert.Equal(t, 3, cfg.Jobs.MaxAttempts)
	assert.Equal(t, "blobs", cfg.Blobs.Root)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load([]byte("database:\n  dialect: oracle\n  dsn: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database dialect")

	_, err = Load([]byte("logging:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MEDIVAULT_TEST_DSN", "postgres://db/prod")

	cfg, err := Load([]byte("database:\n  dialect: postgres\n  dsn: ${MEDIVAULT_TEST_DSN}\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/prod", cfg.Database.DSN)

	cfg, err = Load([]byte("blobs:\n  root: ${MEDIVAULT_UNSET_VAR:-/tmp/blobs}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/blobs", cfg.Blobs.Root)
}
