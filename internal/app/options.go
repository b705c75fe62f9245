package service

import (
	"time"

	"github.com/okian/quotient/internal/adapters/cache"
	"github.com/okian/quotient/internal/domain/checkin"
	"github.com/okian/quotient/internal/domain/share"
	"github.com/okian/quotient/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the social-graph provider. Required.
func WithProvider(p Provider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

// WithCache replaces the default in-memory profile cache.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLedger replaces the default in-memory check-in ledger.
func WithLedger(l checkin.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithShareGate replaces the default in-memory share gate.
func WithShareGate(g share.Gate) Option {
	return func(s *Service) {
		if g != nil {
			s.gate = g
		}
	}
}

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithFetchBatch sets how many queued refreshes a worker fetches per
// upstream call when the provider supports bulk lookups.
func WithFetchBatch(n int) Option {
	return func(s *Service) {
		s.fetchBatch = n
	}
}

// WithQueueSize sets the capacity of the refresh queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for check-ins.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
