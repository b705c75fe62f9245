package checkin

import "errors"

// Sentinel kinds for check-in errors.
var (
	ErrInvalidKey = errors.New("invalid check-in key")
)
