// Package cache keeps recently fetched profiles so repeated lookups skip the
// upstream provider.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/okian/quotient/internal/domain/model"
)

// DefaultTTL matches the upstream revalidation window of the public stats route.
const DefaultTTL = time.Hour

// Sentinel kinds for cache errors.
var (
	ErrInvalidProfile = errors.New("profile has no fid")
)

// Cache stores profiles by FID.
type Cache interface {
	// Get returns the cached profile. A miss is (zero, false, nil).
	Get(ctx context.Context, fid uint64) (model.Profile, bool, error)
	// Set stores p until the configured TTL elapses.
	Set(ctx context.Context, p model.Profile) error
	// Invalidate drops fid. Unknown FIDs are ignored.
	Invalidate(ctx context.Context, fid uint64) error
}

// profileKey is the storage key of fid.
func profileKey(fid uint64) string {
	return "quotient:profile:" + strconv.FormatUint(fid, 10)
}
