package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvPrefix = "QUOTIENT_"
	EnvFile   = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if QUOTIENT_CONFIG is set
//  3. env (prefix QUOTIENT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// QUOTIENT_NEYNAR_API_KEY -> neynar_api_key. Keys stay flat so
	// underscores match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.CacheBackend != BackendMemory && c.CacheBackend != BackendRedis:
		return fmt.Errorf("%w: cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	case c.CacheBackend == BackendRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
	case c.ProfileTTLSeconds <= 0:
		return fmt.Errorf("%w: profile_ttl_seconds must be positive", ErrInvalidConfig)
	case c.NeynarTimeoutMS <= 0:
		return fmt.Errorf("%w: neynar_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.MaxRefreshBatch <= 0:
		return fmt.Errorf("%w: max_refresh_batch must be positive", ErrInvalidConfig)
	}
	return nil
}
