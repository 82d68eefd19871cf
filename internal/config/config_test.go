package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "events", cfg.StreamKey)
	assert.Equal(t, "manager", cfg.GroupName)
	assert.Equal(t, time.Second, cfg.BlockTimeout)
	assert.Equal(t, 60*time.Second, cfg.AutoclaimInterval)
	assert.Equal(t, 5*time.Minute, cfg.AutoclaimIdleTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.ReconnectPollInterval)
	assert.Equal(t, int64(128), cfg.StreamMaxLen)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod)
	assert.Equal(t, ":8100", cfg.ListenAddr)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestNewOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTPLANE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("EVENTPLANE_REDIS_DB", "4")
	t.Setenv("EVENTPLANE_STREAM_KEY", "ctrl-events")
	t.Setenv("EVENTPLANE_BLOCK_TIMEOUT", "250ms")
	t.Setenv("EVENTPLANE_STREAM_MAXLEN", "512")
	t.Setenv("EVENTPLANE_ENABLE_METRICS", "false")
	t.Setenv("EVENTPLANE_LOG_FORMAT", "console")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 4, cfg.RedisDB)
	assert.Equal(t, "ctrl-events", cfg.StreamKey)
	assert.Equal(t, 250*time.Millisecond, cfg.BlockTimeout)
	assert.Equal(t, int64(512), cfg.StreamMaxLen)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestNewValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTPLANE_LOG_FORMAT", "xml")
	_, err := New()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("EVENTPLANE_STREAM_MAXLEN", "-1")
	_, err = New()
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CONFIG_TEST_STR", "value")
	assert.Equal(t, "value", EnvOrDefault("CONFIG_TEST_STR", "def"))
	assert.Equal(t, "def", EnvOrDefault("CONFIG_TEST_MISSING", "def"))

	t.Setenv("CONFIG_TEST_INT", "42")
	assert.Equal(t, 42, EnvIntOrDefault("CONFIG_TEST_INT", 1))
	t.Setenv("CONFIG_TEST_INT", "junk")
	assert.Equal(t, 1, EnvIntOrDefault("CONFIG_TEST_INT", 1))

	t.Setenv("CONFIG_TEST_BOOL", "true")
	assert.True(t, EnvBoolOrDefault("CONFIG_TEST_BOOL", false))

	t.Setenv("CONFIG_TEST_DUR", "1m30s")
	assert.Equal(t, 90*time.Second, EnvDurationOrDefault("CONFIG_TEST_DUR", time.Second))
	t.Setenv("CONFIG_TEST_DUR", "junk")
	assert.Equal(t, time.Second, EnvDurationOrDefault("CONFIG_TEST_DUR", time.Second))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EVENTPLANE_NODE_ID", "EVENTPLANE_SOURCE",
		"EVENTPLANE_REDIS_ADDR", "EVENTPLANE_REDIS_DB", "EVENTPLANE_REDIS_PASSWORD",
		"EVENTPLANE_STREAM_KEY", "EVENTPLANE_GROUP_NAME",
		"EVENTPLANE_BLOCK_TIMEOUT", "EVENTPLANE_AUTOCLAIM_INTERVAL",
		"EVENTPLANE_AUTOCLAIM_IDLE_TIMEOUT", "EVENTPLANE_RECONNECT_POLL_INTERVAL",
		"EVENTPLANE_STREAM_MAXLEN", "EVENTPLANE_GRACE_PERIOD",
		"EVENTPLANE_LISTEN_ADDR", "EVENTPLANE_ENABLE_METRICS", "EVENTPLANE_METRICS_PATH",
		"EVENTPLANE_LOG_LEVEL", "EVENTPLANE_LOG_FORMAT", "EVENTPLANE_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}
