// Package dedupe groups near-identical normalized events and collapses each
// group into one canonical record.
package dedupe

import (
	"context"
	"sort"
	"time"

	"github.com/gridfeed/gridfeed/internal/domain/model"
	"github.com/gridfeed/gridfeed/internal/domain/similarity"
	"github.com/gridfeed/gridfeed/pkg/metrics"
)

// Engine implements pairwise-similarity duplicate grouping.
//
// Grouping is single-pass and anchor-based: events are visited in
// (timestamp, id) order, the first unvisited event anchors a group, and every
// later unvisited event similar to the anchor joins it.
// This is intentionally not transitive-closure clustering; two mutually
// similar events can in principle land in different groups when neither links
// to the other's anchor. Kept for behavioral compatibility with the original
// consolidation engine.
type Engine struct {
	timeTolerance time.Duration

	nameThreshold     float64
	locationThreshold float64
	categoryThreshold float64

	semantic          bool
	semanticThreshold float64
	embedder          similarity.Embedder
}

// New constructs an Engine with default thresholds.
func New(opts ...Option) *Engine {
	e := &Engine{
		timeTolerance:     30 * time.Minute,
		nameThreshold:     0.85,
		locationThreshold: 0.80,
		categoryThreshold: 0.80,
		semanticThreshold: 0.85,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deduplicate collapses duplicate groups into canonical records. Events are
// sorted by (timestamp, id) before grouping, so anchors are fixed by event
// identity rather than by the order collection happened to complete in, and
// the result is deterministic for a fixed event set regardless of input
// order. Idempotent: running it on its own output returns the same canonical
// records.
func (e *Engine) Deduplicate(ctx context.Context, input []model.NormalizedEvent) []model.NormalizedEvent {
	events := make([]model.NormalizedEvent, len(input))
	copy(events, input)
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].ID < events[j].ID
	})

	out := make([]model.NormalizedEvent, 0, len(events))
	visited := make([]bool, len(events))

	for i := range events {
		if visited[i] {
			continue
		}
		visited[i] = true
		group := []model.NormalizedEvent{events[i]}
		for j := i + 1; j < len(events); j++ {
			if visited[j] {
				continue
			}
			if e.Similar(ctx, events[i], events[j]) {
				visited[j] = true
				group = append(group, events[j])
			}
		}
		if len(group) > 1 {
			metrics.RecordDuplicatesMerged(len(group) - 1)
		}
		out = append(out, merge(group))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Similar reports whether two events describe the same real-world session.
// Hard guard rails run first; only then is the name score consulted.
func (e *Engine) Similar(ctx context.Context, a, b model.NormalizedEvent) bool {
	if !a.Timestamp.IsZero() && !b.Timestamp.IsZero() {
		diff := a.Timestamp.Sub(b.Timestamp)
		if diff < 0 {
			diff = -diff
		}
		if diff > e.timeTolerance {
			return false
		}
	}
	if a.Category != "" && b.Category != "" {
		if similarity.Best(a.Category, b.Category) < e.categoryThreshold {
			return false
		}
	}
	if a.Location != "" && b.Location != "" {
		if similarity.Best(a.Location, b.Location) < e.locationThreshold {
			return false
		}
	}

	nameScore := similarity.Ratio(a.Name, b.Name)
	if !e.semantic {
		return nameScore >= e.nameThreshold
	}
	return e.compositeScore(ctx, a, b, nameScore) >= e.semanticThreshold
}

// compositeScore blends the fuzzy name ratio with the mean cosine similarity
// of name and location embeddings. Pairs lacking embeddings contribute
// nothing; with no embeddings at all the fuzzy ratio carries full weight.
func (e *Engine) compositeScore(ctx context.Context, a, b model.NormalizedEvent, nameScore float64) float64 {
	if e.embedder == nil {
		return nameScore
	}
	var cosines []float64
	if va, ok := e.embedder.Embed(ctx, a.Name); ok {
		if vb, ok := e.embedder.Embed(ctx, b.Name); ok {
			cosines = append(cosines, similarity.Cosine(va, vb))
		}
	}
	if a.Location != "" && b.Location != "" {
		if va, ok := e.embedder.Embed(ctx, a.Location); ok {
			if vb, ok := e.embedder.Embed(ctx, b.Location); ok {
				cosines = append(cosines, similarity.Cosine(va, vb))
			}
		}
	}
	if len(cosines) == 0 {
		return nameScore
	}
	var sum float64
	for _, c := range cosines {
		sum += c
	}
	return 0.5*nameScore + 0.5*(sum/float64(len(cosines)))
}

// merge picks the canonical record of a group and folds the rest into it.
func merge(group []model.NormalizedEvent) model.NormalizedEvent {
	sort.Slice(group, func(i, j int) bool { return canonicalLess(group[i], group[j]) })

	canonical := group[0]
	for _, member := range group[1:] {
		canonical.AddStreamLinks(member.StreamLinks...)
		if canonical.OfficialURL == "" && member.OfficialURL != "" {
			canonical.OfficialURL = member.OfficialURL
		}
		if canonical.Location == "" && member.Location != "" {
			canonical.Location = member.Location
		}
	}
	return canonical
}

// canonicalLess is the total order for canonical selection: source priority
// desc, streaming link count desc, name length desc, has official URL desc,
// event id asc. Total and stable so permuted input yields the same pick.
func canonicalLess(a, b model.NormalizedEvent) bool {
	if a.SourcePriority != b.SourcePriority {
		return a.SourcePriority > b.SourcePriority
	}
	if len(a.StreamLinks) != len(b.StreamLinks) {
		return len(a.StreamLinks) > len(b.StreamLinks)
	}
	if len(a.Name) != len(b.Name) {
		return len(a.Name) > len(b.Name)
	}
	aURL, bURL := a.OfficialURL != "", b.OfficialURL != ""
	if aURL != bURL {
		return aURL
	}
	return a.ID < b.ID
}
