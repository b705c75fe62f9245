// Package queue holds pending profile refresh requests.
//
// The queue is bounded and in-memory. A FID that is already waiting is not
// queued twice; the second request is coalesced into the first.
package queue

import (
	"context"
	"sync"

	"github.com/okian/quotient/internal/domain/model"
	"github.com/okian/quotient/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Request is the payload type flowing through the queue.
type Request = model.RefreshRequest

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request to the queue.
	// Returns false if the queue is full or closed and the request was dropped.
	Enqueue(ctx context.Context, r Request) bool

	// Dequeue returns a channel that will receive requests as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the current number of queued requests.
	Len(ctx context.Context) int

	// Capacity returns the maximum number of queued requests.
	Capacity() int

	// Close gracefully shuts down the queue.
	// After closing, no new requests can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int

	mu     sync.RWMutex
	closed bool

	pendingMu sync.Mutex
	pending   map[uint64]struct{}
}

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of distinct FIDs waiting at once.
// Non-positive values keep the default.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		pending:  make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a request to the queue. A request for a FID that is already
// pending is accepted without being queued again.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	if _, dup := q.pending[r.FID]; dup {
		return true
	}

	select {
	case q.requests <- r:
		q.pending[r.FID] = struct{}{}
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive requests as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	out := make(chan Request)
	go func() {
		defer close(out)
		for r := range q.requests {
			q.pendingMu.Lock()
			delete(q.pending, r.FID)
			q.pendingMu.Unlock()

			select {
			case out <- r:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued requests.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return q.observe()
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

func (q *InMemoryQueue) observe() int {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	// Close the channel to signal consumers to stop
	close(q.requests)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
