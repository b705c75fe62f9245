package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/quotient/internal/domain/model"
)

// Redis is a Cache shared between service replicas. Values are JSON encoded
// profiles that expire with the configured TTL.
type Redis struct {
	client *redis.Client
	cfg    settings
}

var _ Cache = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts ...Option) *Redis {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Redis{client: client, cfg: cfg}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, fid uint64) (model.Profile, bool, error) {
	raw, err := r.client.Get(ctx, profileKey(fid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Profile{}, false, nil
	}
	if err != nil {
		return model.Profile{}, false, fmt.Errorf("cache get %d: %w", fid, err)
	}

	var p model.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		// Corrupt entries are treated as misses and overwritten on the next Set.
		return model.Profile{}, false, nil
	}
	return p, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, p model.Profile) error {
	if p.FID == 0 {
		return ErrInvalidProfile
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache encode %d: %w", p.FID, err)
	}
	if err := r.client.Set(ctx, profileKey(p.FID), data, r.cfg.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %d: %w", p.FID, err)
	}
	return nil
}

// Invalidate implements Cache.
func (r *Redis) Invalidate(ctx context.Context, fid uint64) error {
	if err := r.client.Del(ctx, profileKey(fid)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %d: %w", fid, err)
	}
	return nil
}
