package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/quotient/internal/domain/checkin"
)

const (
	checkinPrefix = "quotient:checkin:"
	// minTTL keeps a key alive briefly even when recorded at 23:59:59.999.
	minTTL = time.Second
)

// Ledger is a checkin.Ledger stored in Redis. Each key holds the UTC day it
// was recorded on and expires at the following UTC midnight, so stale
// entries disappear on their own.
type Ledger struct {
	client *redis.Client
}

var _ checkin.Ledger = (*Ledger)(nil)

// NewLedger wraps an existing client.
func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

// Status implements checkin.Ledger.
func (l *Ledger) Status(ctx context.Context, key string, now time.Time) (checkin.Status, error) {
	if key == "" {
		return checkin.Status{}, checkin.ErrInvalidKey
	}
	day, err := l.client.Get(ctx, checkinPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return checkin.NewStatus(key, now, false), nil
	}
	if err != nil {
		return checkin.Status{}, fmt.Errorf("checkin status %s: %w", key, err)
	}
	if day != checkin.Day(now) {
		// Clock skew between replicas can leave yesterday's key alive briefly.
		l.client.Del(ctx, checkinPrefix+key)
		return checkin.NewStatus(key, now, false), nil
	}
	return checkin.NewStatus(key, now, true), nil
}

// Record implements checkin.Ledger.
func (l *Ledger) Record(ctx context.Context, key string, now time.Time) (bool, error) {
	if key == "" {
		return false, checkin.ErrInvalidKey
	}
	today := checkin.Day(now)
	ttl := max(checkin.NextMidnight(now).Sub(now), minTTL)

	for range 2 {
		ok, err := l.client.SetNX(ctx, checkinPrefix+key, today, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("checkin record %s: %w", key, err)
		}
		if ok {
			return false, nil
		}

		day, err := l.client.Get(ctx, checkinPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("checkin record %s: %w", key, err)
		}
		if day == today {
			return true, nil
		}
		if err := l.client.Del(ctx, checkinPrefix+key).Err(); err != nil {
			return false, fmt.Errorf("checkin record %s: %w", key, err)
		}
	}
	// Lost the race twice; another writer holds today's slot.
	return true, nil
}

// Clear implements checkin.Ledger.
func (l *Ledger) Clear(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, checkinPrefix+key).Err(); err != nil {
		return fmt.Errorf("checkin clear %s: %w", key, err)
	}
	return nil
}

// Size implements checkin.Ledger by scanning the check-in key space.
func (l *Ledger) Size(ctx context.Context) (int64, error) {
	var (
		n      int64
		cursor uint64
	)
	for {
		keys, next, err := l.client.Scan(ctx, cursor, checkinPrefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("checkin size: %w", err)
		}
		n += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}
