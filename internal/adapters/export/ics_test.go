package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/gridfeed/gridfeed/internal/adapters/export"
	"github.com/gridfeed/gridfeed/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWrite(t *testing.T) {
	Convey("Given a consolidated schedule", t, func() {
		events := []model.NormalizedEvent{
			{
				ID:          "abc123",
				Name:        "canadian grand prix race",
				DisplayName: "Canadian Grand Prix - Race",
				Category:    "Formula 1",
				Timestamp:   time.Date(2025, 6, 8, 14, 0, 0, 0, time.UTC),
				Location:    "Montreal",
				Country:     "Canada",
				Session:     model.SessionRace,
				OfficialURL: "https://example.org/canada",
				StreamLinks: []model.StreamLink{{Name: "Main", URL: "https://stream.example/live"}},
				Source:      "primary",
			},
			{
				ID:          "def456",
				Name:        "motogp qualifying",
				DisplayName: "MotoGP Qualifying",
				Category:    "MotoGP",
				Timestamp:   time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC),
				Session:     model.SessionQualifying,
				Source:      "secondary",
			},
		}
		path := filepath.Join(t.TempDir(), "schedule.ics")

		Convey("When written with a custom calendar name", func() {
			w := export.NewWriter(export.WithCalendarName("Race Weekend"))
			So(w.Write(path, events), ShouldBeNil)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			body := string(data)

			Convey("Then the calendar identifies itself", func() {
				So(body, ShouldContainSubstring, "BEGIN:VCALENDAR")
				So(body, ShouldContainSubstring, "X-WR-CALNAME:Race Weekend")
				So(body, ShouldContainSubstring, "METHOD:PUBLISH")
			})

			Convey("Then the file parses back with every event", func() {
				cal, err := ical.ParseCalendar(bytes.NewReader(data))
				So(err, ShouldBeNil)
				So(cal.Events(), ShouldHaveLength, 2)
			})

			Convey("Then summaries carry the series prefix when missing from the name", func() {
				So(body, ShouldContainSubstring, "Formula 1: Canadian Grand Prix")
				// Already named after its series; no double prefix.
				So(body, ShouldNotContainSubstring, "MotoGP: MotoGP")
			})

			Convey("Then entries carry start, location, and link details", func() {
				So(body, ShouldContainSubstring, "UID:abc123@gridfeed")
				So(body, ShouldContainSubstring, "DTSTART:20250608T140000Z")
				So(body, ShouldContainSubstring, "DTEND:20250608T160000Z")
				So(body, ShouldContainSubstring, "Montreal")
				So(body, ShouldContainSubstring, "https://example.org/canada")
			})
		})

		Convey("When written with defaults", func() {
			So(export.NewWriter().Write(path, nil), ShouldBeNil)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "X-WR-CALNAME:Motorsport Weekend")
		})

		Convey("When the target directory does not exist", func() {
			err := export.NewWriter().Write(filepath.Join(t.TempDir(), "missing", "out.ics"), events)
			So(err, ShouldNotBeNil)
		})
	})
}
