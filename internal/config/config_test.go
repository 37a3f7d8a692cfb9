package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "localhost")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverClickHouse, cfg.StorageDriver)
	assert.Equal(t, 9000, cfg.ClickHousePort)
	assert.Equal(t, "default", cfg.ClickHouseDatabase)
	assert.Equal(t, "@every 6h", cfg.ReconcileSchedule)
	assert.False(t, cfg.BotEnabled())
}

func TestLoadFromEnv_MockOverridesDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("USE_MOCK_DB", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverMock, cfg.StorageDriver)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"clickhouse without host", map[string]string{"STORAGE_DRIVER": "clickhouse"}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "postgres"}},
		{"webhook without url", map[string]string{"STORAGE_DRIVER": "mock", "TELEGRAM_BOT_TOKEN": "t", "WEBHOOK_MODE": "true"}},
		{"bad port", map[string]string{"STORAGE_DRIVER": "clickhouse", "CLICKHOUSE_HOST": "h", "CLICKHOUSE_PORT": "nan"}},
		{"bad log format", map[string]string{"STORAGE_DRIVER": "mock", "LOG_FORMAT": "xml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
		})
	}
}

func TestLoadFromEnv_SQLite(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", " SQLite ")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.True(t, cfg.BotEnabled())
}
