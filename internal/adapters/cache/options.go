package cache

import "time"

type settings struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func defaultSettings() settings {
	return settings{ttl: DefaultTTL, maxEntries: 10_000, now: time.Now}
}

// Option configures a cache.
type Option func(*settings)

// WithTTL sets how long entries stay valid.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the in-memory cache. Ignored by the Redis cache.
func WithMaxEntries(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock overrides the time source of the in-memory cache.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
