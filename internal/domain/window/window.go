// Package window restricts event lists to time windows: the target race
// weekend, and configured quiet windows removed from the export.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/gridfeed/gridfeed/internal/domain/model"
)

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Weekend computes the race weekend containing or following target:
// Friday 00:00 minus extension through Sunday 23:59:59 plus extension,
// in loc. A target already on Friday/Saturday/Sunday selects the weekend in
// progress; earlier weekdays select the upcoming one.
func Weekend(target time.Time, extension time.Duration, loc *time.Location) Window {
	t := target.In(loc)
	// Monday=0 .. Sunday=6
	iso := (int(t.Weekday()) + 6) % 7
	const fridayIdx = 4
	var friday time.Time
	if iso >= fridayIdx {
		friday = t.AddDate(0, 0, -(iso - fridayIdx))
	} else {
		friday = t.AddDate(0, 0, fridayIdx-iso)
	}
	start := time.Date(friday.Year(), friday.Month(), friday.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 2).Add(24*time.Hour - time.Second)
	return Window{Start: start.Add(-extension), End: end.Add(extension)}
}

// WeekendOfEarliest derives the weekend window from the earliest event's own
// timestamp. ok is false for an empty list.
func WeekendOfEarliest(events []model.NormalizedEvent, extension time.Duration, loc *time.Location) (Window, bool) {
	if len(events) == 0 {
		return Window{}, false
	}
	earliest := events[0].Timestamp
	for _, ev := range events[1:] {
		if ev.Timestamp.Before(earliest) {
			earliest = ev.Timestamp
		}
	}
	return Weekend(earliest, extension, loc), true
}

// FilterWindow keeps only events whose timestamp lies inside w.
func FilterWindow(events []model.NormalizedEvent, w Window) []model.NormalizedEvent {
	out := make([]model.NormalizedEvent, 0, len(events))
	for _, ev := range events {
		if w.Contains(ev.Timestamp) {
			out = append(out, ev)
		}
	}
	return out
}

// QuietWindow is a recurring day/time range whose events are excluded from
// the export but kept for the audit trail.
type QuietWindow struct {
	Name  string
	Day   time.Weekday
	Start int // seconds since local midnight, inclusive
	End   int // seconds since local midnight, inclusive; End < Start crosses midnight
}

// ParseQuiet builds a QuietWindow from its configured string form.
func ParseQuiet(name, day, start, end string) (QuietWindow, error) {
	wd, err := ParseWeekday(day)
	if err != nil {
		return QuietWindow{}, err
	}
	s, err := parseTimeOfDay(start)
	if err != nil {
		return QuietWindow{}, fmt.Errorf("start %q: %w", start, err)
	}
	e, err := parseTimeOfDay(end)
	if err != nil {
		return QuietWindow{}, fmt.Errorf("end %q: %w", end, err)
	}
	return QuietWindow{Name: name, Day: wd, Start: s, End: e}, nil
}

// Matches reports whether t falls inside the quiet window. An end time
// numerically before the start time means the range crosses midnight, so the
// time-of-day qualifies when it is at or after start OR at or before end.
func (q QuietWindow) Matches(t time.Time) bool {
	if t.Weekday() != q.Day {
		return false
	}
	tod := t.Hour()*3600 + t.Minute()*60 + t.Second()
	if q.End < q.Start {
		return tod >= q.Start || tod <= q.End
	}
	return tod >= q.Start && tod <= q.End
}

// Removal is an event excluded by a quiet window, retained for audit.
type Removal struct {
	Event  model.NormalizedEvent
	Window string
}

// FilterQuiet splits events into the kept schedule and the audited removals.
// The first matching window claims an event.
func FilterQuiet(events []model.NormalizedEvent, windows []QuietWindow) ([]model.NormalizedEvent, []Removal) {
	kept := make([]model.NormalizedEvent, 0, len(events))
	var removed []Removal
	for _, ev := range events {
		claimed := false
		for _, q := range windows {
			if q.Matches(ev.Timestamp) {
				removed = append(removed, Removal{Event: ev, Window: q.Name})
				claimed = true
				break
			}
		}
		if !claimed {
			kept = append(kept, ev)
		}
	}
	return kept, removed
}

// ParseWeekday resolves a weekday name, long or three-letter form.
func ParseWeekday(day string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(day)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("unknown weekday: %q", day)
	}
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}
