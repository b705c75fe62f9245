package service

import "errors"

// Sentinel kinds returned by the service. The HTTP layer maps them to status
// codes with errors.Is.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrNoProvider        = errors.New("no profile provider configured")
	ErrInvalidIdentifier = errors.New("invalid fid or username")
	ErrInvalidFID        = errors.New("invalid fid")
	ErrInvalidKey        = errors.New("invalid check-in key")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrNotFound          = errors.New("not found")
	ErrUpstream          = errors.New("profile provider unavailable")
	ErrBackpressure      = errors.New("refresh queue full")
	ErrShareDisabled     = errors.New("public share disabled")
)
