// Package source defines the contract between the collection orchestrator
// and pluggable data-source adapters, plus the registry that builds adapters
// from configuration.
package source

import (
	"context"
	"time"

	"github.com/gridfeed/gridfeed/internal/domain/model"
)

// Adapter collects raw events for a target date from one external provider.
//
// CollectEvents must be safe to cancel mid-call via ctx and must not panic
// on malformed upstream content; malformed content is a zero-result or
// recoverable-error outcome. Transient failures should wrap ErrTransient so
// the orchestrator retries them.
type Adapter interface {
	// Name identifies the source in stats and logs.
	Name() string

	// Priority is the source's tie-break weight; higher wins during
	// duplicate merging.
	Priority() int

	// CollectEvents fetches the raw events relevant to targetDate.
	CollectEvents(ctx context.Context, targetDate time.Time) ([]model.RawEvent, error)
}
