package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, ".", cfg.DSN)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, time.Hour, cfg.CursorTTL)
	assert.Equal(t, 256, cfg.CompileCacheSize)
	assert.False(t, cfg.CaseSensitive)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "jsonquery.yaml")
	require.NoError(t, os.WriteFile(file, []byte("backend: sqlite\ndsn: /from/file\ncursor_ttl: 10m\nlog:\n  level: ERROR\n"), 0o644))

	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("JSONQUERY_DSN=/from/dotenv\nJSONQUERY_DRIVER=sqlite3\n"), 0o644))

	t.Setenv("JSONQUERY_DRIVER", "sqlite")
	t.Setenv("JSONQUERY_CASE_SENSITIVE", "true")
	t.Setenv("JSONQUERY_LOG_FORMAT", "json")

	cfg, err := load(file, dotenv)
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv", cfg.DSN)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, 10*time.Minute, cfg.CursorTTL)
	assert.True(t, cfg.CaseSensitive)
	assert.Equal(t, "ERROR", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadValidation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("JSONQUERY_BACKEND", "redis")
	cfg, err := load("", missing)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	t.Setenv("JSONQUERY_BACKEND", "postgres")
	cfg, err = load("", missing)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	t.Setenv("JSONQUERY_DSN", "postgres://localhost/db")
	cfg, err = load("", missing)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "jsonquery", cfg.Schema)

	cfg.Backend = "sqlite"
	cfg.Driver = "pure"
	assert.Error(t, cfg.Validate())
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "JSONQUERY_LOG_LEVEL", EnvName("log.level"))
	assert.Equal(t, "JSONQUERY_CURSOR_TTL", EnvName("cursor_ttl"))
}
