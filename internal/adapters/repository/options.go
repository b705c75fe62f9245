package repository

import "time"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(s *TreapStore) {
		if now != nil {
			s.now = now
		}
	}
}
