// Package checkin tracks advisory "already checked in today" state.
//
// The ledger is a soft cache for UX only. The authoritative cooldown is
// enforced by the reward contract; nothing here is a security boundary.
package checkin

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// dayLayout formats the UTC calendar day an entry belongs to.
const dayLayout = "2006-01-02"

// Status describes a key's check-in state for the day containing Now.
type Status struct {
	Key          string    `json:"key"`
	Day          string    `json:"day"`
	CheckedIn    bool      `json:"checkedIn"`
	NextEligible time.Time `json:"nextEligible"`
}

// Ledger records at most one check-in per key per UTC day.
type Ledger interface {
	// Status reports whether key has checked in on now's day. Entries from
	// earlier days are treated as absent and dropped.
	Status(ctx context.Context, key string, now time.Time) (Status, error)

	// Record marks key as checked in for now's day. It returns true if the
	// key had already checked in that day.
	Record(ctx context.Context, key string, now time.Time) (bool, error)

	// Clear forgets key, e.g. after a failed on-chain transaction.
	Clear(ctx context.Context, key string) error

	// Size returns the number of tracked keys.
	Size(ctx context.Context) (int64, error)
}

// Day returns the UTC calendar day of t.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// NextMidnight returns the start of the UTC day after t.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// NewStatus builds a Status for key on now's day.
func NewStatus(key string, now time.Time, checkedIn bool) Status {
	s := Status{Key: key, Day: Day(now), CheckedIn: checkedIn, NextEligible: now.UTC()}
	if checkedIn {
		s.NextEligible = NextMidnight(now)
	}
	return s
}

// KeyForFID builds the ledger key for a Farcaster account.
func KeyForFID(fid uint64) string {
	return "fid:" + strconv.FormatUint(fid, 10)
}

// KeyForAddress builds the ledger key for a wallet address. Addresses are
// case-insensitive.
func KeyForAddress(addr string) string {
	return "addr:" + strings.ToLower(strings.TrimSpace(addr))
}

// ParseKey normalises a raw identifier: a decimal FID, a 0x-prefixed
// address, or an already prefixed key. It returns false for anything else.
func ParseKey(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", false
	case strings.HasPrefix(raw, "fid:"):
		fid, err := strconv.ParseUint(strings.TrimPrefix(raw, "fid:"), 10, 64)
		if err != nil {
			return "", false
		}
		return KeyForFID(fid), true
	case strings.HasPrefix(raw, "addr:"):
		return ParseKey(strings.TrimPrefix(raw, "addr:"))
	case strings.HasPrefix(strings.ToLower(raw), "0x") && len(raw) > 2:
		return KeyForAddress(raw), true
	}
	fid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return "", false
	}
	return KeyForFID(fid), true
}
