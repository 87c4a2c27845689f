package config_test

import (
	"testing"

	"eventcore/framework/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Identifier)
	assert.False(t, cfg.AsyncEnabled)
	assert.Equal(t, 10, cfg.AsyncWorkers)
	assert.Equal(t, 1000, cfg.MaxSubscribersPerEvent)
	assert.False(t, cfg.Delayed.Enabled)
	assert.Equal(t, 2, cfg.Delayed.CoreWorkers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EVENTBUS_IDENTIFIER", "orders")
	t.Setenv("EVENTBUS_ASYNC_ENABLED", "true")
	t.Setenv("EVENTBUS_ASYNC_WORKERS", "25")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.Identifier)
	assert.True(t, cfg.AsyncEnabled)
	assert.Equal(t, 25, cfg.AsyncWorkers)
}

func TestLoadDotenv_MissingFileIsNotAnError(t *testing.T) {
	err := config.LoadDotenv("this-file-does-not-exist.env")
	assert.NoError(t, err)
}

func TestConfig_AsyncOptionsBuildsWithoutPanicking(t *testing.T) {
	cfg := &config.Config{
		AsyncWorkers: 5,
		Delayed:      config.DelayedConfig{CoreWorkers: 1, ThreadNamePrefix: "test-"},
	}
	opts := cfg.AsyncOptions()
	assert.Len(t, opts, 2)
}
