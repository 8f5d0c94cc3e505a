package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SergeiKhy/tinylink/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
	assert.Equal(t, config.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "tinylink.db", cfg.DB.Path)
	assert.Equal(t, "tinylink:events", cfg.Events.Channel)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.App.IsDevelopment())
}

func TestLoadFile_FromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nDB_DRIVER=postgres\nDB_NAME=links\nAPP_BASE_URL=https://tiny.example/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Окружение имеет приоритет над файлом
	t.Setenv("APP_PORT", "7070")
	t.Setenv("REDIS_HOST", "redis")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, config.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "links", cfg.DB.Name)
	assert.Equal(t, "https://tiny.example", cfg.App.BaseURL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "6379", cfg.Redis.Port)
}

func TestLoadFile_UnsupportedDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
