// Package category maps free-text category labels onto the canonical
// motorsport taxonomy with confidence scores.
package category

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gridfeed/gridfeed/internal/domain/model"
	"github.com/gridfeed/gridfeed/internal/domain/normalize"
	"github.com/gridfeed/gridfeed/internal/domain/similarity"
	"github.com/gridfeed/gridfeed/pkg/metrics"
)

// Phonetic matching only runs when fuzzy scoring stayed below this.
const phoneticCutoff = 0.9

// Result is one detection outcome.
type Result struct {
	Category   string
	Confidence float64
	// Method records how the match was made: exact, fuzzy, phonetic,
	// enriched, or none.
	Method string
}

// Detector scores category labels against the taxonomy. Safe for concurrent
// use; learning mutates the variant lists under the lock.
type Detector struct {
	mu        sync.Mutex
	taxonomy  map[string][]string
	learned   map[string][]string
	threshold float64
	learning  bool
}

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithThreshold sets the minimum confidence for a detection, 0-1 scale.
func WithThreshold(t float64) Option {
	return func(d *Detector) {
		if t > 0 && t <= 1 {
			d.threshold = t
		}
	}
}

// WithLearning toggles dynamic variant learning.
func WithLearning(enabled bool) Option {
	return func(d *Detector) { d.learning = enabled }
}

// WithVariants merges extra variants (e.g. a persisted knowledge base) into
// the taxonomy. Unknown canonical names create new categories.
func WithVariants(extra map[string][]string) Option {
	return func(d *Detector) {
		for canonical, variants := range extra {
			d.taxonomy[canonical] = append(d.taxonomy[canonical], variants...)
		}
	}
}

// New constructs a Detector over the built-in taxonomy.
func New(opts ...Option) *Detector {
	d := &Detector{
		taxonomy:  DefaultTaxonomy(),
		learned:   make(map[string][]string),
		threshold: 0.75,
		learning:  true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectBatch detects every event's category in input order. Learning from
// one event only affects events after it, so detection for earlier events in
// the same batch never depends on later ones.
func (d *Detector) DetectBatch(ctx context.Context, events []model.NormalizedEvent) []Result {
	results := make([]Result, len(events))
	for i := range events {
		select {
		case <-ctx.Done():
			for ; i < len(events); i++ {
				results[i] = Result{Category: Unknown, Method: "none"}
			}
			return results
		default:
		}
		results[i] = d.Detect(events[i])
	}
	return results
}

// Detect resolves one event's category. The raw label is tried first; if it
// is empty or scores below threshold, the label enriched with the event name
// is tried and the better of the two attempts wins. A miss is Unknown with
// zero confidence, never an error.
func (d *Detector) Detect(ev model.NormalizedEvent) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	best := scored{}
	if ev.Category != "" {
		best = d.match(ev.Category)
	}
	if best.confidence < d.threshold {
		enriched := strings.TrimSpace(ev.Category + " " + ev.DisplayName)
		if attempt := d.match(enriched); attempt.confidence > best.confidence {
			attempt.method = "enriched"
			best = attempt
		}
	}

	if best.confidence < d.threshold {
		metrics.RecordCategoryMiss()
		return Result{Category: Unknown, Confidence: 0, Method: "none"}
	}

	d.learn(best)
	return Result{Category: best.category, Confidence: best.confidence, Method: best.method}
}

type scored struct {
	category   string
	confidence float64
	method     string
	text       string // normalized input text that matched
}

// match scores text against every known variant. Exact variant matches
// short-circuit at 1.0; otherwise the maximum fuzzy measure wins, with a
// phonetic pass when nothing fuzzy reached the cutoff.
func (d *Detector) match(text string) scored {
	key := normalize.Name(text)
	if key == "" {
		return scored{}
	}

	best := scored{text: key, method: "fuzzy"}
	for _, canonical := range d.sortedCategories() {
		for _, variant := range d.allVariants(canonical, d.taxonomy[canonical]) {
			if variant == key {
				return scored{category: canonical, confidence: 1, method: "exact", text: key}
			}
			if score := similarity.Best(key, variant); score > best.confidence {
				best.category = canonical
				best.confidence = score
			}
		}
	}

	if best.confidence < phoneticCutoff {
		for _, canonical := range d.sortedCategories() {
			for _, variant := range d.allVariants(canonical, d.taxonomy[canonical]) {
				if score := similarity.Phonetic(key, variant); score > best.confidence {
					best.category = canonical
					best.confidence = score
					best.method = "phonetic"
				}
			}
		}
	}
	return best
}

// sortedCategories fixes the scan order so equal scores resolve the same
// way on every run.
func (d *Detector) sortedCategories() []string {
	out := make([]string, 0, len(d.taxonomy))
	for canonical := range d.taxonomy {
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out
}

// allVariants yields the canonical name plus its variants, normalized.
func (d *Detector) allVariants(canonical string, variants []string) []string {
	out := make([]string, 0, len(variants)+1)
	out = append(out, normalize.Name(canonical))
	for _, v := range variants {
		out = append(out, normalize.Name(v))
	}
	return out
}

// learn appends a confidently matched but unknown text as a new variant of
// its category, for the remainder of the run.
func (d *Detector) learn(s scored) {
	if !d.learning || s.confidence >= 1 || s.confidence < d.threshold {
		return
	}
	for _, v := range d.allVariants(s.category, d.taxonomy[s.category]) {
		if v == s.text {
			return
		}
	}
	d.taxonomy[s.category] = append(d.taxonomy[s.category], s.text)
	d.learned[s.category] = append(d.learned[s.category], s.text)
	metrics.RecordVariantLearned()
}

// Learned reports the variants added during this run, keyed by category.
func (d *Detector) Learned() map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.learned) == 0 {
		return nil
	}
	out := make(map[string][]string, len(d.learned))
	for canonical, variants := range d.learned {
		out[canonical] = append([]string(nil), variants...)
	}
	return out
}
