// Package icsfeed implements the source.Adapter contract for iCalendar
// subscription feeds: conditional HTTP fetch, VEVENT parsing, and RRULE
// recurrence expansion around the target date.
package icsfeed

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/gridfeed/gridfeed/internal/adapters/source"
	"github.com/gridfeed/gridfeed/internal/config"
	"github.com/gridfeed/gridfeed/internal/domain/model"
)

// Occurrence expansion range around the target date. Window filtering
// downstream trims this further; the range only bounds feed expansion.
const (
	lookBehindDays = 3
	lookAheadDays  = 10

	maxOccurrencesPerEvent = 500
)

// Adapter collects events from one ICS feed.
type Adapter struct {
	name     string
	url      string
	priority int
	timezone string
	fetcher  *fetcher
}

// Factory returns a source.Factory constructing ICS adapters whose HTTP
// cache lives under cacheDir.
func Factory(cacheDir string) source.Factory {
	return func(cfg config.SourceConfig) (source.Adapter, error) {
		if cfg.URL == "" {
			return nil, fmt.Errorf("ics source %q: url is required", cfg.Name)
		}
		return &Adapter{
			name:     cfg.Name,
			url:      cfg.URL,
			priority: cfg.Priority,
			timezone: cfg.Timezone,
			fetcher:  newFetcher(cacheDir),
		}, nil
	}
}

// Name implements source.Adapter.
func (a *Adapter) Name() string { return a.name }

// Priority implements source.Adapter.
func (a *Adapter) Priority() int { return a.priority }

// CollectEvents fetches the feed and emits one RawEvent per occurrence
// inside the expansion range around targetDate. Malformed VEVENTs are
// skipped individually; a malformed calendar is a permanent error.
func (a *Adapter) CollectEvents(ctx context.Context, targetDate time.Time) ([]model.RawEvent, error) {
	body, err := a.fetcher.fetch(ctx, a.url)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse calendar: %w", source.ErrPermanent, err)
	}

	loc := targetDate.Location()
	if a.timezone != "" {
		if parsed, lerr := time.LoadLocation(a.timezone); lerr == nil {
			loc = parsed
		}
	}
	rangeStart := targetDate.AddDate(0, 0, -lookBehindDays)
	rangeEnd := targetDate.AddDate(0, 0, lookAheadDays)

	var out []model.RawEvent
	for _, ve := range cal.Events() {
		occurrences, perr := expand(ve, rangeStart, rangeEnd)
		if perr != nil {
			// Skip this VEVENT, keep the rest of the feed.
			continue
		}
		for _, occ := range occurrences {
			out = append(out, a.rawEvent(ve, occ.In(loc)))
		}
	}
	return out, nil
}

// rawEvent maps one occurrence to the pipeline's raw record.
func (a *Adapter) rawEvent(ve *ical.VEvent, start time.Time) model.RawEvent {
	summary := propValue(ve, ical.ComponentPropertySummary)
	raw := model.RawEvent{
		Name:           summary,
		Category:       propValue(ve, ical.ComponentPropertyCategories),
		Date:           start.Format("2006-01-02"),
		Time:           start.Format("15:04"),
		Timezone:       start.Location().String(),
		Location:       propValue(ve, ical.ComponentPropertyLocation),
		Session:        sessionHint(summary),
		OfficialURL:    propValue(ve, ical.ComponentPropertyUrl),
		Source:         a.name,
		SourcePriority: a.priority,
	}
	if desc := propValue(ve, ical.ComponentPropertyDescription); desc != "" {
		for _, link := range linksFromDescription(desc) {
			raw.Links = append(raw.Links, link)
		}
	}
	return raw
}

// expand resolves the concrete start times of a VEVENT inside the range:
// the event itself when non-recurring, otherwise its RRULE occurrences
// minus EXDATE exceptions.
func expand(ve *ical.VEvent, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("vevent without DTSTART: %w", err)
	}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		if start.Before(rangeStart) || start.After(rangeEnd) {
			return nil, nil
		}
		return []time.Time{start}, nil
	}

	ropt, err := rrule.StrToROption(rruleProp.Value)
	if err != nil {
		return nil, fmt.Errorf("parse RRULE: %w", err)
	}
	ropt.Dtstart = start
	rule, err := rrule.NewRRule(*ropt)
	if err != nil {
		return nil, fmt.Errorf("build RRULE: %w", err)
	}

	occurrences := rule.Between(rangeStart, rangeEnd, true)
	if len(occurrences) > maxOccurrencesPerEvent {
		occurrences = occurrences[:maxOccurrencesPerEvent]
	}

	exdates := exdateSet(ve)
	if len(exdates) == 0 {
		return occurrences, nil
	}
	kept := occurrences[:0]
	for _, occ := range occurrences {
		if _, skip := exdates[occ.UTC().Format("20060102T1504")]; !skip {
			kept = append(kept, occ)
		}
	}
	return kept, nil
}

var exdateLayouts = []string{"20060102T150405Z", "20060102T150405", "20060102"}

// exdateSet collects EXDATE values keyed by minute-resolution UTC stamp.
func exdateSet(ve *ical.VEvent) map[string]struct{} {
	out := make(map[string]struct{})
	for _, prop := range ve.Properties {
		if !strings.EqualFold(prop.IANAToken, string(ical.ComponentPropertyExdate)) {
			continue
		}
		for _, value := range strings.Split(prop.Value, ",") {
			for _, layout := range exdateLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
					out[t.UTC().Format("20060102T1504")] = struct{}{}
					break
				}
			}
		}
	}
	return out
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// sessionHint derives the session type from the summary text, when obvious.
func sessionHint(summary string) string {
	s := strings.ToLower(summary)
	switch {
	case strings.Contains(s, "practice") || strings.Contains(s, "fp1") ||
		strings.Contains(s, "fp2") || strings.Contains(s, "fp3") || strings.Contains(s, "warm"):
		return "practice"
	case strings.Contains(s, "sprint"):
		return "sprint"
	case strings.Contains(s, "qualifying") || strings.Contains(s, "quali") ||
		strings.Contains(s, "shootout") || strings.Contains(s, "pole"):
		return "qualifying"
	default:
		return ""
	}
}

// linksFromDescription extracts http(s) URLs embedded in free text. The
// normalizer validates them again; this only has to find candidates.
func linksFromDescription(desc string) []string {
	var out []string
	for _, field := range strings.Fields(desc) {
		field = strings.Trim(field, "<>()[],;")
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			out = append(out, field)
		}
	}
	return out
}
