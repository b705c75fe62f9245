// Package service composes the ranking engine with the profile provider,
// caches, check-in ledger, share gate and leaderboard, and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/quotient/internal/adapters/cache"
	"github.com/okian/quotient/internal/adapters/mq/queue"
	"github.com/okian/quotient/internal/adapters/mq/worker"
	"github.com/okian/quotient/internal/adapters/neynar"
	"github.com/okian/quotient/internal/adapters/repository"
	"github.com/okian/quotient/internal/domain/checkin"
	"github.com/okian/quotient/internal/domain/model"
	"github.com/okian/quotient/internal/domain/quotient"
	"github.com/okian/quotient/internal/domain/share"
	"github.com/okian/quotient/internal/domain/types"
	"github.com/okian/quotient/pkg/logger"
	"github.com/okian/quotient/pkg/metrics"
)

const (
	defaultQueueSize    = 10_000
	defaultFetchBatch   = 25
	stopTimeout         = 10 * time.Second
	defaultChannelLimit = 25
	maxChannelLimit     = 100
)

// Provider is the social-graph source of profiles and channels.
type Provider interface {
	UserByFID(ctx context.Context, fid uint64) (model.Profile, error)
	UserByUsername(ctx context.Context, username string) (model.Profile, error)
	UserChannels(ctx context.Context, fid uint64, limit int) ([]model.Channel, error)
}

var (
	_ Provider            = (*neynar.Client)(nil)
	_ worker.BatchFetcher = (*neynar.Client)(nil)
)

// Service implements the API dependencies of the quotient service.
type Service struct {
	mu sync.RWMutex

	provider Provider
	cache    cache.Cache
	ledger   checkin.Ledger
	gate     share.Gate

	// Created on Start.
	leaderboard *repository.TreapStore
	queue       *queue.InMemoryQueue
	pool        *worker.Pool

	workerCount int
	queueSize   int
	fetchBatch  int
	now         func() time.Time

	started bool

	logger logger.Logger
}

// New constructs a Service. Unset stores default to in-memory implementations.
func New(opts ...Option) *Service {
	s := &Service{
		cache:       cache.NewMemory(),
		ledger:      checkin.NewMemoryLedger(),
		gate:        share.NewMemory(),
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		fetchBatch:  defaultFetchBatch,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start creates the leaderboard and starts the refresh workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.provider == nil {
		return ErrNoProvider
	}

	s.logger.Info(ctx, "starting quotient service...")

	s.leaderboard = repository.NewTreapStore(ctx)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.provider, s.leaderboard,
		worker.WithCache(s.cache),
		worker.WithBatchSize(s.fetchBatch),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "quotient service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains the refresh queue and releases the leaderboard.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping quotient service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "refresh workers did not drain", logger.Error(err))
	}
	_ = s.leaderboard.Close()

	s.started = false
	s.logger.Info(ctx, "quotient service stopped")
}

// running returns the leaderboard if the service is started.
func (s *Service) running() (*repository.TreapStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.leaderboard, nil
}

// Score runs the ranking engine on caller-supplied metrics.
func (s *Service) Score(m quotient.UserMetrics) types.Assessment {
	start := time.Now()
	a := types.Assess(m)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	return a
}

// Lookup resolves a FID or username, ranks the profile and records it on the
// leaderboard.
func (s *Service) Lookup(ctx context.Context, ident string) (types.ProfileReport, error) {
	lb, err := s.running()
	if err != nil {
		return types.ProfileReport{}, err
	}
	fid, username, err := ParseIdentifier(ident)
	if err != nil {
		return types.ProfileReport{}, err
	}

	var (
		p      model.Profile
		source string
	)
	if fid != 0 {
		p, source, err = s.profile(ctx, fid)
	} else {
		p, err = s.provider.UserByUsername(ctx, username)
		source = metrics.SourceUpstream
		if err == nil {
			s.cacheSet(ctx, p)
		}
	}
	if err != nil {
		return types.ProfileReport{}, providerError(err)
	}
	metrics.RecordLookup(source)

	a := s.Score(p.Metrics())
	metrics.RecordRanked(string(a.Quotient.Tier))
	metrics.RecordSpamVerdict(string(a.Spam.Confidence))

	if _, err := lb.Upsert(ctx, p.FID, p.Username, a.Quotient.CompositeScore); err != nil {
		s.logger.Warn(ctx, "leaderboard update failed", logger.Uint64("fid", p.FID), logger.Error(err))
	}

	enabled, err := s.gate.Enabled(ctx, p.FID)
	if err != nil {
		return types.ProfileReport{}, fmt.Errorf("share gate: %w", err)
	}

	return types.ProfileReport{
		Profile:            p,
		Assessment:         a,
		PublicShareEnabled: enabled,
		Source:             source,
	}, nil
}

// PublicStats returns the shareable summary for fid. It returns
// ErrShareDisabled when the account opted out.
func (s *Service) PublicStats(ctx context.Context, fid uint64) (types.PublicStats, error) {
	if fid == 0 {
		return types.PublicStats{}, ErrInvalidFID
	}
	enabled, err := s.gate.Enabled(ctx, fid)
	if err != nil {
		return types.PublicStats{}, fmt.Errorf("share gate: %w", err)
	}
	if !enabled {
		return types.PublicStats{}, ErrShareDisabled
	}

	p, source, err := s.profile(ctx, fid)
	if err != nil {
		return types.PublicStats{}, providerError(err)
	}
	metrics.RecordLookup(source)

	a := s.Score(p.Metrics())
	return types.NewPublicStats(&p, &a), nil
}

// profile reads fid through the cache. A failing cache is logged and skipped.
func (s *Service) profile(ctx context.Context, fid uint64) (model.Profile, string, error) {
	p, ok, err := s.cache.Get(ctx, fid)
	switch {
	case err != nil:
		metrics.RecordCacheError("get")
		s.logger.Warn(ctx, "cache read failed", logger.Uint64("fid", fid), logger.Error(err))
	case ok:
		metrics.RecordCacheHit()
		return p, metrics.SourceCache, nil
	default:
		metrics.RecordCacheMiss()
	}

	p, err = s.provider.UserByFID(ctx, fid)
	if err != nil {
		return model.Profile{}, "", err
	}
	s.cacheSet(ctx, p)
	return p, metrics.SourceUpstream, nil
}

func (s *Service) cacheSet(ctx context.Context, p model.Profile) {
	if err := s.cache.Set(ctx, p); err != nil {
		metrics.RecordCacheError("set")
		s.logger.Warn(ctx, "cache write failed", logger.Uint64("fid", p.FID), logger.Error(err))
	}
}

// providerError maps provider failures onto service kinds.
func providerError(err error) error {
	switch {
	case errors.Is(err, neynar.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, neynar.ErrInvalidIdentifier):
		return fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}

// Channels lists the channels fid belongs to. limit <= 0 selects the
// default; larger values are capped.
func (s *Service) Channels(ctx context.Context, fid uint64, limit int) ([]model.Channel, error) {
	if fid == 0 {
		return nil, ErrInvalidFID
	}
	switch {
	case limit <= 0:
		limit = defaultChannelLimit
	case limit > maxChannelLimit:
		limit = maxChannelLimit
	}
	channels, err := s.provider.UserChannels(ctx, fid, limit)
	if err != nil {
		return nil, providerError(err)
	}
	return channels, nil
}

// CheckInStatus reports whether raw (a FID or wallet address) has checked in
// today.
func (s *Service) CheckInStatus(ctx context.Context, raw string) (checkin.Status, error) {
	key, ok := checkin.ParseKey(raw)
	if !ok {
		return checkin.Status{}, ErrInvalidKey
	}
	return s.ledger.Status(ctx, key, s.now())
}

// RecordCheckIn marks raw as checked in today. The boolean is true if it
// already was.
func (s *Service) RecordCheckIn(ctx context.Context, raw string) (checkin.Status, bool, error) {
	key, ok := checkin.ParseKey(raw)
	if !ok {
		return checkin.Status{}, false, ErrInvalidKey
	}
	now := s.now()
	already, err := s.ledger.Record(ctx, key, now)
	if err != nil {
		metrics.RecordCheckIn("error")
		return checkin.Status{}, false, fmt.Errorf("record check-in: %w", err)
	}
	if already {
		metrics.RecordCheckIn("duplicate")
	} else {
		metrics.RecordCheckIn("recorded")
	}
	return checkin.NewStatus(key, now, true), already, nil
}

// ClearCheckIn forgets today's check-in for raw.
func (s *Service) ClearCheckIn(ctx context.Context, raw string) error {
	key, ok := checkin.ParseKey(raw)
	if !ok {
		return ErrInvalidKey
	}
	if err := s.ledger.Clear(ctx, key); err != nil {
		return fmt.Errorf("clear check-in: %w", err)
	}
	metrics.RecordCheckIn("cleared")
	return nil
}

// ShareEnabled reports the public share preference of fid.
func (s *Service) ShareEnabled(ctx context.Context, fid uint64) (bool, error) {
	if fid == 0 {
		return false, ErrInvalidFID
	}
	return s.gate.Enabled(ctx, fid)
}

// SetShareEnabled stores the public share preference of fid.
func (s *Service) SetShareEnabled(ctx context.Context, fid uint64, enabled bool) error {
	if fid == 0 {
		return ErrInvalidFID
	}
	if err := s.gate.SetEnabled(ctx, fid, enabled); err != nil {
		return fmt.Errorf("set share preference: %w", err)
	}
	metrics.RecordShareToggle(enabled)
	return nil
}

// EnqueueRefresh queues background refreshes and returns how many were
// accepted. It stops at the first rejected FID and returns ErrBackpressure.
func (s *Service) EnqueueRefresh(ctx context.Context, fids []uint64) (int, error) {
	if _, err := s.running(); err != nil {
		return 0, err
	}
	for _, fid := range fids {
		if fid == 0 {
			return 0, ErrInvalidFID
		}
	}

	now := s.now()
	for i, fid := range fids {
		if !s.queue.Enqueue(ctx, model.NewRefreshRequest(fid, now)) {
			s.logger.Warn(ctx, "refresh queue rejected request",
				logger.Uint64("fid", fid),
				logger.Int("accepted", i),
			)
			return i, ErrBackpressure
		}
	}
	return len(fids), nil
}

// TopN returns the top n leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	lb, err := s.running()
	if err != nil {
		return nil, err
	}
	entries, err := lb.TopN(ctx, n)
	if errors.Is(err, repository.ErrInvalidLimit) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
	}
	return entries, err
}

// RankedAt reports when fid's leaderboard row last changed.
func (s *Service) RankedAt(fid uint64) (time.Time, bool) {
	lb, err := s.running()
	if err != nil {
		return time.Time{}, false
	}
	return lb.UpdatedAt(fid)
}

// Rank returns the leaderboard position of fid.
func (s *Service) Rank(ctx context.Context, fid uint64) (types.Entry, error) {
	lb, err := s.running()
	if err != nil {
		return types.Entry{}, err
	}
	if fid == 0 {
		return types.Entry{}, ErrInvalidFID
	}
	entry, err := lb.Rank(ctx, fid)
	if errors.Is(err, repository.ErrNotFound) {
		return types.Entry{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return entry, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if n, err := s.ledger.Size(ctx); err == nil {
		stats["checkIns"] = n
	}

	if s.started {
		ranked := s.leaderboard.Count(ctx)
		stats["queueLength"] = s.queue.Len(ctx)
		stats["activeWorkers"] = s.pool.Active()
		stats["rankedProfiles"] = ranked
		metrics.UpdateRepositoryRecordsTotal(ranked)
	}

	return stats
}
