// Package worker refreshes profiles in the background: fetch from the
// provider, rank, update the leaderboard and the profile cache.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/quotient/internal/adapters/mq/queue"
	"github.com/okian/quotient/internal/domain/model"
	"github.com/okian/quotient/internal/domain/quotient"
	"github.com/okian/quotient/pkg/logger"
	"github.com/okian/quotient/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // refreshes are I/O bound on one upstream
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Request abstracts what workers read off the queue.
type Request = queue.Request

// Fetcher loads a fresh profile from the provider.
type Fetcher interface {
	UserByFID(ctx context.Context, fid uint64) (model.Profile, error)
}

// BatchFetcher loads many profiles in one upstream round trip. Unknown FIDs
// are absent from the result.
type BatchFetcher interface {
	UsersByFID(ctx context.Context, fids ...uint64) ([]model.Profile, error)
}

// ErrMissingProfile means a batch lookup returned no profile for a FID.
var ErrMissingProfile = errors.New("profile missing from batch response")

// Updater stores the latest score of a profile.
type Updater interface {
	Upsert(ctx context.Context, fid uint64, username string, score int) (bool, error)
}

// Cache receives refreshed profiles.
type Cache interface {
	Set(ctx context.Context, p model.Profile) error
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Result describes one completed refresh.
type Result struct {
	Request Request
	Profile model.Profile
	Rank    quotient.QuotientRank
}

// Worker processes refresh requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	fetcher  Fetcher
	updater  Updater
	cache    Cache
	onRanked func(Result)
	name     string

	// batchSize > 1 enables bulk fetches when the fetcher supports them.
	batchSize int

	// active is shared with the pool for the busy gauge.
	active *atomic.Int64

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, fetcher Fetcher, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		fetcher:  fetcher,
		updater:  updater,
		name:     "worker",
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			batch := w.collect(r, requests)
			if len(batch) > 1 {
				w.processBatch(ctx, batch)
				continue
			}
			if err := w.process(ctx, r); err != nil {
				w.fail(ctx, r, err)
			}
		}
	}
}

// collect drains whatever is immediately available behind first, up to the
// batch size. It never blocks.
func (w *InMemoryWorker) collect(first Request, requests <-chan Request) []Request {
	batch := []Request{first}
	if _, ok := w.fetcher.(BatchFetcher); !ok || w.batchSize < 2 {
		return batch
	}
	for len(batch) < w.batchSize {
		select {
		case r, ok := <-requests:
			if !ok {
				return batch
			}
			batch = append(batch, r)
		default:
			return batch
		}
	}
	return batch
}

func (w *InMemoryWorker) fail(ctx context.Context, r Request, err error) {
	w.logger.Error(ctx, "refresh failed",
		logger.String("requestID", r.RequestID),
		logger.Uint64("fid", r.FID),
		logger.Error(err),
	)
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// process handles a single request.
func (w *InMemoryWorker) process(ctx context.Context, r Request) error {
	w.active.Add(1)
	start := time.Now()
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	p, err := w.fetcher.UserByFID(ctx, r.FID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "fetch_error")
		return fmt.Errorf("fetch fid %d: %w", r.FID, err)
	}
	return w.apply(ctx, r, p)
}

// processBatch fetches every profile of batch in one call and applies them
// one by one. A failed fetch fails the whole batch.
func (w *InMemoryWorker) processBatch(ctx context.Context, batch []Request) {
	w.active.Add(1)
	start := time.Now()
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	fids := make([]uint64, len(batch))
	for i, r := range batch {
		fids[i] = r.FID
	}
	profiles, err := w.fetcher.(BatchFetcher).UsersByFID(ctx, fids...)
	if err != nil {
		for _, r := range batch {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "fetch_error")
			w.fail(ctx, r, fmt.Errorf("fetch fid %d: %w", r.FID, err))
		}
		return
	}

	byFID := make(map[uint64]model.Profile, len(profiles))
	for _, p := range profiles {
		byFID[p.FID] = p
	}
	for _, r := range batch {
		p, ok := byFID[r.FID]
		if !ok {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "fetch_error")
			w.fail(ctx, r, fmt.Errorf("fetch fid %d: %w", r.FID, ErrMissingProfile))
			continue
		}
		if err := w.apply(ctx, r, p); err != nil {
			w.fail(ctx, r, err)
		}
	}
}

// apply ranks a fetched profile and stores the result.
func (w *InMemoryWorker) apply(ctx context.Context, r Request, p model.Profile) error {
	metrics.RecordLookup(metrics.SourceUpstream)

	scoreStart := time.Now()
	m := p.Metrics()
	rank := quotient.Rank(m)
	spam := quotient.DetectSpam(m)
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)
	metrics.RecordRanked(string(rank.Tier))
	metrics.RecordSpamVerdict(string(spam.Confidence))

	if _, err := w.updater.Upsert(ctx, p.FID, p.Username, rank.CompositeScore); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "leaderboard_error")
		return fmt.Errorf("leaderboard update fid %d: %w", r.FID, err)
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, p); err != nil {
			// The leaderboard is already updated; a stale cache only costs a refetch.
			metrics.RecordCacheError("set")
			w.logger.Warn(ctx, "cache write failed", logger.Uint64("fid", p.FID), logger.Error(err))
		}
	}

	w.logger.Debug(ctx, "profile refreshed",
		logger.Uint64("fid", p.FID),
		logger.Int("score", rank.CompositeScore),
		logger.String("tier", string(rank.Tier)),
		logger.Duration("queued", time.Since(r.EnqueuedAt)),
	)
	if w.onRanked != nil {
		w.onRanked(Result{Request: r, Profile: p, Rank: rank})
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  *atomic.Int64

	shutdown  chan struct{}
	closeOnce sync.Once

	logger logger.Logger
}

// NewPool creates a new worker pool. Options are applied to every worker.
func NewPool(workerCount int, queue Queue, fetcher Fetcher, updater Updater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(queue, fetcher, updater, wopts...)
		w.active = pool.active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Active returns how many workers are processing a request right now.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater starts a background goroutine that updates worker metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			active := p.Active()
			metrics.UpdateWorkerActiveCount(active)
			metrics.UpdateWorkerIdleCount(len(p.workers) - active)
		}
	}
}

func (p *Pool) signal() {
	p.closeOnce.Do(func() { close(p.shutdown) })
}

// Stop signals every worker to stop without draining the queue. It is safe
// to call more than once, and before or after Shutdown.
func (p *Pool) Stop() {
	p.signal()
	for _, worker := range p.workers {
		worker.stop()
	}

	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for workers to drain it. Repeated calls
// wait on the same workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.signal()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	return nil
}
