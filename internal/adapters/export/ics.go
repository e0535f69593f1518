// Package export writes the consolidated schedule as an iCalendar file.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/gridfeed/gridfeed/internal/domain/model"
)

// Sessions have no reliable end time in the feeds; a fixed duration keeps
// calendar clients from rendering zero-length events.
const defaultEventDuration = 2 * time.Hour

// Writer serializes normalized events to an ICS calendar.
type Writer struct {
	calendarName string
}

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithCalendarName sets the X-WR-CALNAME of the exported calendar.
func WithCalendarName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.calendarName = name
		}
	}
}

// NewWriter constructs a Writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{calendarName: "Motorsport Weekend"}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write serializes events to path, one VEVENT per schedule entry.
func (w *Writer) Write(path string, events []model.NormalizedEvent) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//gridfeed//schedule//EN")
	cal.SetName(w.calendarName)
	cal.SetXWRCalName(w.calendarName)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID + "@gridfeed")
		ve.SetSummary(summary(ev))
		ve.SetStartAt(ev.Timestamp)
		ve.SetEndAt(ev.Timestamp.Add(defaultEventDuration))
		ve.SetDtStampTime(time.Now().UTC())
		if ev.Location != "" {
			ve.SetLocation(location(ev))
		}
		if ev.OfficialURL != "" {
			ve.SetURL(ev.OfficialURL)
		}
		if desc := description(ev); desc != "" {
			ve.SetDescription(desc)
		}
	}

	if err := os.WriteFile(path, []byte(cal.Serialize()), 0o644); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

func summary(ev model.NormalizedEvent) string {
	if ev.Category != "" && ev.Category != "Unknown" &&
		!strings.Contains(strings.ToLower(ev.DisplayName), strings.ToLower(ev.Category)) {
		return ev.Category + ": " + ev.DisplayName
	}
	return ev.DisplayName
}

func location(ev model.NormalizedEvent) string {
	if ev.Country != "" {
		return ev.Location + ", " + ev.Country
	}
	return ev.Location
}

func description(ev model.NormalizedEvent) string {
	var lines []string
	lines = append(lines, "Session: "+string(ev.Session))
	if ev.Category != "" {
		lines = append(lines, "Series: "+ev.Category)
	}
	for _, link := range ev.SortedStreamLinks() {
		if link.Name != "" {
			lines = append(lines, link.Name+": "+link.URL)
		} else {
			lines = append(lines, link.URL)
		}
	}
	lines = append(lines, "Source: "+ev.Source)
	return strings.Join(lines, "\\n")
}
