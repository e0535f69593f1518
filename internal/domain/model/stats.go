package model

import "time"

// CollectionResult is the immutable outcome of one source's collection
// attempt. Exactly one of EventCount/Error is meaningful depending on OK.
type CollectionResult struct {
	Source   string
	OK       bool
	Events   int
	Error    string
	Attempts int
	Duration time.Duration
}

// CollectionStats aggregates per-source results for one orchestrator run.
// It is finalized when Collect returns and never mutated afterwards.
type CollectionStats struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Attempted   int
	Succeeded   int
	Failed      int
	TotalEvents int
	Results     []CollectionResult
}

// ResultFor returns the recorded result for a source name, if present.
func (s CollectionStats) ResultFor(source string) (CollectionResult, bool) {
	for _, r := range s.Results {
		if r.Source == source {
			return r, true
		}
	}
	return CollectionResult{}, false
}
