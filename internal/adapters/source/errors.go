package source

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrTransient marks failures worth retrying: timeouts, connection
	// resets, upstream hiccups.
	ErrTransient = errors.New("transient source error")

	// ErrPermanent marks failures retrying cannot fix: malformed
	// responses, adapter bugs.
	ErrPermanent = errors.New("permanent source error")

	// ErrUnknownKind is returned when configuration names a source kind
	// no factory was registered for.
	ErrUnknownKind = errors.New("unknown source kind")
)

// IsTransient classifies an adapter error for retry purposes. Timeout and
// connection-class errors are transient; everything else, including anything
// wrapping ErrPermanent, is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
