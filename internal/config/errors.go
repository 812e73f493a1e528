package config

import "errors"

// Errors returned by list behaviors.
var (
	// ErrMissingCallback indicates a list config has no function in a slot
	// that has no sensible fallback.
	ErrMissingCallback = errors.New("missing callback")
)
