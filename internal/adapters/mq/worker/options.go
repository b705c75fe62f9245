package worker

import (
	"github.com/okian/quotient/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithCache makes the worker write refreshed profiles back to the cache.
func WithCache(c Cache) Option {
	return func(w *InMemoryWorker) {
		if c != nil {
			w.cache = c
		}
	}
}

// WithOnRanked registers a hook called after each successful refresh.
func WithOnRanked(fn func(Result)) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.onRanked = fn
		}
	}
}

// WithBatchSize lets a worker fetch up to n queued profiles in one call
// when its fetcher implements BatchFetcher. Values below 2 disable batching.
func WithBatchSize(n int) Option {
	return func(w *InMemoryWorker) {
		w.batchSize = n
	}
}
