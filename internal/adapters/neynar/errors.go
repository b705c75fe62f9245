package neynar

import "errors"

// Sentinel kinds for provider errors.
var (
	ErrNotFound          = errors.New("farcaster user not found")
	ErrUpstream          = errors.New("neynar request failed")
	ErrInvalidIdentifier = errors.New("invalid farcaster identifier")
)
