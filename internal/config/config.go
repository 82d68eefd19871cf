// Package config handles application configuration loading and validation
// from environment variables, providing a type-safe configuration structure.
package config

import (
	"fmt"
	"time"
)

// Config holds all event-plane configuration values loaded from environment
// variables.
type Config struct {
	// Identity
	NodeID string // stable node identifier; falls back to the hostname
	Source string // source id stamped on produced events

	// Stream engine
	RedisAddr     string // Redis server address (e.g. "localhost:6379")
	RedisDB       int    // Redis database number
	RedisPassword string // Redis password (empty for none)

	// Message queue
	StreamKey             string        // base stream key; broadcast derives from it
	GroupName             string        // anycast consumer-group name
	BlockTimeout          time.Duration // XREAD/XREADGROUP block timeout
	AutoclaimInterval     time.Duration // pending-entry scan interval
	AutoclaimIdleTimeout  time.Duration // min idle before reclaim
	ReconnectPollInterval time.Duration // retry sleep after transient errors
	StreamMaxLen          int64         // approximate stream cap

	// Dispatcher
	GracePeriod time.Duration // shutdown wait for in-flight handlers

	// API server
	ListenAddr    string // address for the SSE/health/metrics server
	EnableMetrics bool   // expose /metrics
	MetricsPath   string // path for the metrics endpoint

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json or console
	LogFile   string // path to log file (empty for stdout)
}

// New creates a configuration from environment variables, applying defaults
// where variables are not set, and validates it.
func New() (*Config, error) {
	cfg := &Config{
		NodeID: EnvOrDefault("EVENTPLANE_NODE_ID", ""),
		Source: EnvOrDefault("EVENTPLANE_SOURCE", "manager"),

		RedisAddr:     EnvOrDefault("EVENTPLANE_REDIS_ADDR", "localhost:6379"),
		RedisDB:       EnvIntOrDefault("EVENTPLANE_REDIS_DB", 0),
		RedisPassword: EnvOrDefault("EVENTPLANE_REDIS_PASSWORD", ""),

		StreamKey:             EnvOrDefault("EVENTPLANE_STREAM_KEY", "events"),
		GroupName:             EnvOrDefault("EVENTPLANE_GROUP_NAME", "manager"),
		BlockTimeout:          EnvDurationOrDefault("EVENTPLANE_BLOCK_TIMEOUT", time.Second),
		AutoclaimInterval:     EnvDurationOrDefault("EVENTPLANE_AUTOCLAIM_INTERVAL", 60*time.Second),
		AutoclaimIdleTimeout:  EnvDurationOrDefault("EVENTPLANE_AUTOCLAIM_IDLE_TIMEOUT", 5*time.Minute),
		ReconnectPollInterval: EnvDurationOrDefault("EVENTPLANE_RECONNECT_POLL_INTERVAL", 300*time.Millisecond),
		StreamMaxLen:          EnvInt64OrDefault("EVENTPLANE_STREAM_MAXLEN", 128),

		GracePeriod: EnvDurationOrDefault("EVENTPLANE_GRACE_PERIOD", 30*time.Second),

		ListenAddr:    EnvOrDefault("EVENTPLANE_LISTEN_ADDR", ":8100"),
		EnableMetrics: EnvBoolOrDefault("EVENTPLANE_ENABLE_METRICS", true),
		MetricsPath:   EnvOrDefault("EVENTPLANE_METRICS_PATH", "/metrics"),

		LogLevel:  EnvOrDefault("EVENTPLANE_LOG_LEVEL", "info"),
		LogFormat: EnvOrDefault("EVENTPLANE_LOG_FORMAT", "json"),
		LogFile:   EnvOrDefault("EVENTPLANE_LOG_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("redis address must not be empty")
	}
	if c.StreamKey == "" {
		return fmt.Errorf("stream key must not be empty")
	}
	if c.GroupName == "" {
		return fmt.Errorf("consumer group name must not be empty")
	}
	if c.StreamMaxLen <= 0 {
		return fmt.Errorf("stream maxlen must be positive, got %d", c.StreamMaxLen)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.LogFormat)
	}
	return nil
}
