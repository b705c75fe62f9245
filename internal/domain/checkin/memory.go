package checkin

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxSize = 100_000

// node is one entry in the recency list; head is the newest check-in.
type node struct {
	key  string
	day  string
	prev *node
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.day = ""
	n.prev = nil
	n.next = nil
}

// memoryLedger implements Ledger with a map plus a doubly linked list so the
// oldest entry can be evicted in O(1) when the ledger is full.
type memoryLedger struct {
	mu       sync.Mutex
	entries  map[string]*node
	head     *node
	tail     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewMemoryLedger creates an in-memory ledger with configuration options.
func NewMemoryLedger(opts ...Option) Ledger {
	l := &memoryLedger{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.entries = make(map[string]*node)
	l.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return l
}

// Status implements Ledger.
func (l *memoryLedger) Status(_ context.Context, key string, now time.Time) (Status, error) {
	if key == "" {
		return Status{}, ErrInvalidKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	return NewStatus(key, now, l.currentLocked(key, Day(now)) != nil), nil
}

// Record implements Ledger.
func (l *memoryLedger) Record(_ context.Context, key string, now time.Time) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}
	today := Day(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentLocked(key, today) != nil {
		return true, nil
	}

	if l.maxSize > 0 && len(l.entries) >= l.maxSize {
		l.removeLocked(l.tail)
	}

	n := l.nodePool.Get().(*node)
	n.key = key
	n.day = today
	l.pushFrontLocked(n)
	l.entries[key] = n
	l.size.Add(1)
	return false, nil
}

// Clear implements Ledger.
func (l *memoryLedger) Clear(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n, ok := l.entries[key]; ok {
		l.removeLocked(n)
	}
	return nil
}

// Size implements Ledger.
func (l *memoryLedger) Size(context.Context) (int64, error) {
	return l.size.Load(), nil
}

// currentLocked returns key's entry if it belongs to today, dropping a stale
// one from an earlier day.
func (l *memoryLedger) currentLocked(key, today string) *node {
	n, ok := l.entries[key]
	if !ok {
		return nil
	}
	if n.day != today {
		l.removeLocked(n)
		return nil
	}
	return n
}

func (l *memoryLedger) pushFrontLocked(n *node) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *memoryLedger) removeLocked(n *node) {
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	delete(l.entries, n.key)
	n.reset()
	l.nodePool.Put(n)
	l.size.Add(-1)
}
