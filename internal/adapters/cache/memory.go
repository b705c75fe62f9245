package cache

import (
	"context"
	"sync"
	"time"

	"github.com/okian/quotient/internal/domain/model"
)

type memoryEntry struct {
	profile   model.Profile
	expiresAt time.Time
}

// Memory is a process-local Cache. Expired entries are dropped on access;
// when full, an expired entry or else an arbitrary one is evicted.
type Memory struct {
	mu      sync.RWMutex
	entries map[uint64]memoryEntry
	cfg     settings
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an in-memory cache.
func NewMemory(opts ...Option) *Memory {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory{entries: make(map[uint64]memoryEntry), cfg: cfg}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, fid uint64) (model.Profile, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[fid]
	m.mu.RUnlock()
	if !ok {
		return model.Profile{}, false, nil
	}
	if !m.cfg.now().Before(e.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[fid]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(m.entries, fid)
		}
		m.mu.Unlock()
		return model.Profile{}, false, nil
	}
	return e.profile, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, p model.Profile) error {
	if p.FID == 0 {
		return ErrInvalidProfile
	}
	now := m.cfg.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[p.FID]; !exists && len(m.entries) >= m.cfg.maxEntries {
		m.evictLocked(now)
	}
	m.entries[p.FID] = memoryEntry{profile: p, expiresAt: now.Add(m.cfg.ttl)}
	return nil
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, fid uint64) error {
	m.mu.Lock()
	delete(m.entries, fid)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) evictLocked(now time.Time) {
	var victim uint64
	found := false
	for fid, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, fid)
			return
		}
		if !found {
			victim, found = fid, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}
