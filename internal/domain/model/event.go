// Package model contains domain models passed between pipeline stages.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// SessionType classifies a motorsport session.
type SessionType string

// Known session types. Race is the fallback when a source does not say.
const (
	SessionPractice   SessionType = "practice"
	SessionQualifying SessionType = "qualifying"
	SessionSprint     SessionType = "sprint"
	SessionRace       SessionType = "race"
)

// ParseSessionType maps free-text session labels onto the enum.
func ParseSessionType(s string) SessionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "practice", "free practice", "fp", "fp1", "fp2", "fp3", "test", "testing", "warmup", "warm-up":
		return SessionPractice
	case "qualifying", "quali", "qualification", "q", "pole", "shootout", "time trial":
		return SessionQualifying
	case "sprint", "sprint race", "sprint qualifying":
		return SessionSprint
	default:
		return SessionRace
	}
}

// RawEvent is the untyped record a source adapter hands to the pipeline.
// Fields may be empty or malformed; nothing is validated at this stage.
type RawEvent struct {
	Name     string
	Category string
	Date     string // free-form date string, multiple formats accepted
	Time     string // free-form time string, may be empty
	Timezone string // IANA zone name, may be empty
	Location string
	Country  string
	Session  string

	// Links may contain plain URL strings or {name, url} pairs
	// (string, StreamLink, or map[string]any from decoded payloads).
	Links []any

	OfficialURL string

	Source         string
	SourcePriority int
}

// StreamLink is a named streaming URL attached to an event.
type StreamLink struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NormalizedEvent is the canonical schema every downstream stage consumes.
// Timestamp always carries a resolved location once normalization succeeds.
type NormalizedEvent struct {
	ID string

	Name        string // normalized matching key
	DisplayName string // original casing for output

	Category           string
	CategoryConfidence float64

	Timestamp time.Time
	Location  string
	Country   string
	Session   SessionType

	StreamLinks []StreamLink
	OfficialURL string

	Source         string
	SourcePriority int
}

// EventID derives the stable content hash identifying an event:
// name + date + time + location + source.
func EventID(name string, ts time.Time, location, source string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(name)))
	h.Write([]byte{0})
	h.Write([]byte(ts.UTC().Format("2006-01-02")))
	h.Write([]byte{0})
	h.Write([]byte(ts.UTC().Format("15:04")))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(location)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(source)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// AddStreamLinks appends links to the event, skipping entries whose URL is
// already present. Order of first appearance is kept.
func (e *NormalizedEvent) AddStreamLinks(links ...StreamLink) {
	seen := make(map[string]struct{}, len(e.StreamLinks)+len(links))
	for _, l := range e.StreamLinks {
		seen[l.URL] = struct{}{}
	}
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		e.StreamLinks = append(e.StreamLinks, l)
	}
}

// SortedStreamLinks returns the links ordered by URL, for stable output.
func (e *NormalizedEvent) SortedStreamLinks() []StreamLink {
	out := make([]StreamLink, len(e.StreamLinks))
	copy(out, e.StreamLinks)
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
