package collect

import (
	"time"

	"github.com/gridfeed/gridfeed/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the worker pool size; 1 means sequential collection.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithGlobalTimeout bounds the whole batch. The global timeout is mandatory;
// non-positive values are ignored.
func WithGlobalTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.globalTimeout = d
		}
	}
}

// WithPerSourceTimeout bounds one source's total retry sequence. Zero
// disables the per-source bound.
func WithPerSourceTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.perSourceTimeout = d
		}
	}
}

// WithRetries sets the transient-failure retry count and the linear backoff
// base between attempts.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		if maxRetries >= 0 {
			o.maxRetries = maxRetries
		}
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
