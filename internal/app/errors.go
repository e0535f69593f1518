package app

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNoSources is returned when configuration names no data sources
	// at all; this is the one batch-fatal collection condition.
	ErrNoSources = errors.New("no data sources configured")
)
