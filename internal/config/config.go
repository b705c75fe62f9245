// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Neynar API access.
	NeynarBaseURL   string `koanf:"neynar_base_url"`
	NeynarAPIKey    string `koanf:"neynar_api_key"`
	NeynarTimeoutMS int    `koanf:"neynar_timeout_ms"`

	// CacheBackend selects where profiles and check-ins are kept:
	// memory or redis.
	CacheBackend string `koanf:"cache_backend"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// ProfileTTLSeconds is how long a fetched profile is served from cache.
	ProfileTTLSeconds int `koanf:"profile_ttl_seconds"`

	// ProfileCacheSize bounds the in-memory profile cache.
	ProfileCacheSize int `koanf:"profile_cache_size"`

	// CheckInCapacity bounds the in-memory check-in ledger.
	CheckInCapacity int `koanf:"checkin_capacity"`

	// ShareDBPath is the SQLite file holding share preferences. Empty keeps
	// them in memory.
	ShareDBPath string `koanf:"share_db_path"`

	// QueueSize bounds the in-memory refresh queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// FetchBatch is how many queued refreshes a worker fetches in one
	// upstream call. Below 2 every refresh is fetched on its own.
	FetchBatch int `koanf:"fetch_batch"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxRefreshBatch caps the number of fids in one POST /api/refresh.
	MaxRefreshBatch int `koanf:"max_refresh_batch"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		NeynarBaseURL:       "https://api.neynar.com",
		NeynarTimeoutMS:     10_000,
		CacheBackend:        BackendMemory,
		RedisAddr:           "localhost:6379",
		ProfileTTLSeconds:   3600,
		ProfileCacheSize:    50_000,
		CheckInCapacity:     100_000,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		FetchBatch:          25,
		MaxLeaderboardLimit: 100,
		MaxRefreshBatch:     100,
	}
}

// ProfileTTL returns ProfileTTLSeconds as a duration.
func (c *Config) ProfileTTL() time.Duration {
	return time.Duration(c.ProfileTTLSeconds) * time.Second
}

// NeynarTimeout returns NeynarTimeoutMS as a duration.
func (c *Config) NeynarTimeout() time.Duration {
	return time.Duration(c.NeynarTimeoutMS) * time.Millisecond
}
