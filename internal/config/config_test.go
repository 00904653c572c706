package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimum environment needed to pass validation.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LINGOSHOP_DATABASE_URL", "postgres://localhost:5432/lingoshop_test")
	t.Setenv("LINGOSHOP_AUTH_JWT_SECRET", "test-jwt-secret-value-that-is-long-enough")
	t.Setenv("LINGOSHOP_GATEWAY_ENDPOINT", "https://storefront.test/graphql")
	t.Setenv("LINGOSHOP_GATEWAY_ACCESS_TOKEN", "test-access-token")
	t.Setenv("LINGOSHOP_PROVIDERS_GEMINI_API_KEY", "test-gemini-key")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.Equal(t, 100, cfg.Task.QueueSize)
	assert.Equal(t, 1, cfg.Task.WorkerCount)
	assert.Equal(t, 10, cfg.Task.StuckTaskAgeMinutes)
	assert.Equal(t, 24, cfg.Task.TaskExpiryHours)
	assert.Equal(t, 5, cfg.Task.ProgressFlushPercent)

	assert.Equal(t, 2, cfg.Gateway.MaxRequestsPerSecond)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
	assert.Equal(t, 1000, cfg.Gateway.RetryDelayMillis)

	assert.Equal(t, "gemini-2.0-flash", cfg.Providers.GeminiModel)

	assert.Equal(t, []string{"en"}, cfg.Sync.Locales)
	assert.Equal(t, 250, cfg.Sync.PageSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LINGOSHOP_SERVER_PORT", "9090")
	t.Setenv("LINGOSHOP_SERVER_LOG_LEVEL", "debug")
	t.Setenv("LINGOSHOP_TASK_WORKER_COUNT", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 4, cfg.Task.WorkerCount)
}

func TestLoad_MissingRequiredValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LINGOSHOP_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Run("bad log level", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("LINGOSHOP_SERVER_LOG_LEVEL", "chatty")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("short jwt secret", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("LINGOSHOP_AUTH_JWT_SECRET", "short")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("page size above provider cap", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("LINGOSHOP_SYNC_PAGE_SIZE", "500")

		_, err := Load()
		assert.Error(t, err)
	})
}
