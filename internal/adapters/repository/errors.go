package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("profile not ranked")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidFID   = errors.New("invalid fid")
)
