// Package normalize converts raw source records into the canonical event
// schema. Normalization is deterministic: a pure function of the record and
// the configured default timezone.
package normalize

import (
	"net/url"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gridfeed/gridfeed/internal/domain/model"
)

// Missing times default to local noon rather than midnight so that an
// undated-time event stays inside its own day under small zone shifts.
const defaultHour = 12

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"02-01-2006",
	"02/01/2006",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// Accepted time-of-day layouts, tried in order.
var timeLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

// Normalizer turns RawEvents into NormalizedEvents.
type Normalizer struct {
	loc *time.Location
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithLocation sets the default timezone for sources that do not supply one.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// New constructs a Normalizer. The default timezone is UTC.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{loc: time.UTC}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one raw record. ok is false when the record lacks a
// usable name or a resolvable timestamp; such records are dropped, never
// passed downstream.
func (n *Normalizer) Normalize(raw model.RawEvent) (model.NormalizedEvent, bool) {
	name := Name(raw.Name)
	if name == "" {
		return model.NormalizedEvent{}, false
	}

	ts, ok := n.resolveTimestamp(raw)
	if !ok {
		return model.NormalizedEvent{}, false
	}

	ev := model.NormalizedEvent{
		Name:           name,
		DisplayName:    collapseSpace(raw.Name),
		Category:       CategoryAlias(raw.Category),
		Timestamp:      ts,
		Location:       collapseSpace(raw.Location),
		Country:        collapseSpace(raw.Country),
		Session:        model.ParseSessionType(raw.Session),
		Source:         raw.Source,
		SourcePriority: raw.SourcePriority,
	}
	ev.ID = model.EventID(name, ts, ev.Location, raw.Source)

	if u := cleanURL(raw.OfficialURL); u != "" {
		ev.OfficialURL = u
	}
	ev.AddStreamLinks(extractLinks(raw.Links)...)

	return ev, true
}

// resolveTimestamp parses the raw date/time strings into a timezone-aware
// timestamp. A record whose timezone cannot be resolved is invalid.
func (n *Normalizer) resolveTimestamp(raw model.RawEvent) (time.Time, bool) {
	loc := n.loc
	if tz := strings.TrimSpace(raw.Timezone); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, false
		}
		loc = parsed
	}

	date, ok := parseDate(raw.Date)
	if !ok {
		return time.Time{}, false
	}

	hour, minute, sec := defaultHour, 0, 0
	if t := strings.TrimSpace(raw.Time); t != "" {
		tod, ok := parseTimeOfDay(t)
		if !ok {
			return time.Time{}, false
		}
		hour, minute, sec = tod.Hour(), tod.Minute(), tod.Second()
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, sec, 0, loc), true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimeOfDay(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Name produces the normalized matching key: lower case, diacritics
// stripped, whitespace collapsed, known abbreviations expanded.
func Name(s string) string {
	s = strings.ToLower(stripDiacritics(s))
	s = collapseSpace(s)
	return expandAliases(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// extractLinks accepts links given as plain strings, StreamLink values, or
// decoded {name, url} maps; only absolute http(s) URLs survive.
func extractLinks(links []any) []model.StreamLink {
	out := make([]model.StreamLink, 0, len(links))
	for _, raw := range links {
		switch v := raw.(type) {
		case string:
			if u := cleanURL(v); u != "" {
				out = append(out, model.StreamLink{URL: u})
			}
		case model.StreamLink:
			if u := cleanURL(v.URL); u != "" {
				out = append(out, model.StreamLink{Name: collapseSpace(v.Name), URL: u})
			}
		case map[string]any:
			name, _ := v["name"].(string)
			rawURL, _ := v["url"].(string)
			if u := cleanURL(rawURL); u != "" {
				out = append(out, model.StreamLink{Name: collapseSpace(name), URL: u})
			}
		}
	}
	return out
}

func cleanURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return s
}
