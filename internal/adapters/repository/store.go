// Package repository holds the leaderboard of ranked profiles.
package repository

import (
	"context"

	"github.com/okian/quotient/internal/domain/types"
)

// Store provides read/write access to the leaderboard.
type Store interface {
	// Upsert records the latest score for fid, replacing any previous one.
	// Returns true if the stored row changed.
	Upsert(ctx context.Context, fid uint64, username string, score int) (bool, error)

	// Remove drops fid from the leaderboard. Unknown FIDs are ignored.
	Remove(ctx context.Context, fid uint64) error

	// Rank returns the current position of fid.
	// Returns ErrNotFound if fid is not ranked.
	Rank(ctx context.Context, fid uint64) (types.Entry, error)

	// TopN returns the top-N entries ordered by score desc, fid asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of ranked profiles.
	Count(ctx context.Context) int
}
