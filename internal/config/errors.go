package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrLoadConfig wraps failures reading the YAML file or the environment.
	ErrLoadConfig = errors.New("loading configuration")
)
