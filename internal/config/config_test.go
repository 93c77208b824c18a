package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data/taskd.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASKD_ADDR", "127.0.0.1:9000")
	t.Setenv("TASKD_DB_PATH", "/tmp/tasks.db")
	t.Setenv("TASKD_TOKEN_TTL", "90m")
	t.Setenv("TASKD_BCRYPT_COST", "10")
	t.Setenv("TASKD_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "/tmp/tasks.db", cfg.DBPath)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("TASKD_TOKEN_TTL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		t.Setenv("TASKD_TOKEN_TTL", "0s")
		_, err := Load()
		assert.Error(t, err)
	})
}
