// Package share decides whether an account's stats may be shown publicly.
//
// Sharing is opt-out: an account that never stated a preference is public.
package share

import (
	"context"
	"errors"
	"sync"
)

// ErrInvalidFID is returned for the zero FID.
var ErrInvalidFID = errors.New("invalid fid")

// Gate stores per-account public share preferences.
type Gate interface {
	Enabled(ctx context.Context, fid uint64) (bool, error)
	SetEnabled(ctx context.Context, fid uint64, enabled bool) error
}

// Memory is a process-local Gate, used in tests and as a fallback.
type Memory struct {
	mu       sync.RWMutex
	disabled map[uint64]struct{}
}

var _ Gate = (*Memory)(nil)

// NewMemory returns an empty gate; every account starts enabled.
func NewMemory() *Memory {
	return &Memory{disabled: make(map[uint64]struct{})}
}

// Enabled implements Gate.
func (m *Memory) Enabled(_ context.Context, fid uint64) (bool, error) {
	if fid == 0 {
		return false, ErrInvalidFID
	}
	m.mu.RLock()
	_, off := m.disabled[fid]
	m.mu.RUnlock()
	return !off, nil
}

// SetEnabled implements Gate.
func (m *Memory) SetEnabled(_ context.Context, fid uint64, enabled bool) error {
	if fid == 0 {
		return ErrInvalidFID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		delete(m.disabled, fid)
	} else {
		m.disabled[fid] = struct{}{}
	}
	return nil
}
