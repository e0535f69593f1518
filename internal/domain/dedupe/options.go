package dedupe

import (
	"time"

	"github.com/gridfeed/gridfeed/internal/domain/similarity"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTimeTolerance sets the maximum start-time gap between duplicates.
func WithTimeTolerance(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeTolerance = d
		}
	}
}

// WithNameThreshold sets the fuzzy name threshold, 0-1 scale.
func WithNameThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.nameThreshold = t
		}
	}
}

// WithLocationThreshold sets the location guard-rail threshold, 0-1 scale.
func WithLocationThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.locationThreshold = t
		}
	}
}

// WithCategoryThreshold sets the category guard-rail threshold, 0-1 scale.
func WithCategoryThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.categoryThreshold = t
		}
	}
}

// WithSemanticMatching enables the blended embedding score with its own
// threshold. A nil embedder leaves semantic matching off.
func WithSemanticMatching(emb similarity.Embedder, threshold float64) Option {
	return func(e *Engine) {
		if emb == nil {
			return
		}
		e.semantic = true
		e.embedder = emb
		if threshold > 0 && threshold <= 1 {
			e.semanticThreshold = threshold
		}
	}
}
