// Package similarity provides the string and vector similarity measures
// shared by category detection and duplicate grouping. All scores are on a
// 0.0-1.0 scale.
package similarity

import (
	"context"
	"math"

	"github.com/antzucaro/matchr"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Score a metaphone match is worth at minimum when the edit-distance ratio
// comes out lower.
const phoneticFloor = 0.85

// Ratio is the plain character-overlap ratio.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return float64(fuzzy.Ratio(a, b)) / 100
}

// Best returns the maximum of the ratio, partial-substring, token-sort and
// token-set measures.
func Best(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	best := fuzzy.Ratio(a, b)
	if v := fuzzy.PartialRatio(a, b); v > best {
		best = v
	}
	if v := fuzzy.TokenSortRatio(a, b); v > best {
		best = v
	}
	if v := fuzzy.TokenSetRatio(a, b); v > best {
		best = v
	}
	return float64(best) / 100
}

// Phonetic scores two strings by optimal-string-alignment distance, boosted
// to a floor when their primary metaphone encodings agree.
func Phonetic(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	score := osaRatio(a, b)
	pa, _ := matchr.DoubleMetaphone(a)
	pb, _ := matchr.DoubleMetaphone(b)
	if pa != "" && pa == pb && score < phoneticFloor {
		score = phoneticFloor
	}
	return score
}

func osaRatio(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := matchr.OSA(a, b)
	if dist > longest {
		dist = longest
	}
	return 1 - float64(dist)/float64(longest)
}

// Embedder produces dense embeddings for semantic matching. Implementations
// live outside this module; ok is false when no embedding is available for
// the text.
type Embedder interface {
	Embed(ctx context.Context, text string) (vec []float32, ok bool)
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or their dimensions disagree.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
