package checkin

// Option applies a configuration option to the in-memory ledger.
type Option func(*memoryLedger)

// WithMaxSize bounds the number of tracked keys.
// If maxSize > 0: oldest entries are evicted first.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(l *memoryLedger) {
		l.maxSize = maxSize
	}
}
