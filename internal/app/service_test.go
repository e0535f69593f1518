package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridfeed/gridfeed/internal/adapters/source"
	"github.com/gridfeed/gridfeed/internal/app"
	"github.com/gridfeed/gridfeed/internal/config"
	"github.com/gridfeed/gridfeed/internal/domain/category"
	"github.com/gridfeed/gridfeed/internal/domain/model"
	"github.com/gridfeed/gridfeed/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// stubAdapter serves canned raw events for pipeline tests.
type stubAdapter struct {
	name     string
	priority int
	events   []model.RawEvent
	err      error
}

func (s *stubAdapter) Name() string  { return s.name }
func (s *stubAdapter) Priority() int { return s.priority }
func (s *stubAdapter) CollectEvents(context.Context, time.Time) ([]model.RawEvent, error) {
	return s.events, s.err
}

// stubRegistry wires a "stub" source kind whose payload is looked up by the
// configured source name.
func stubRegistry(payloads map[string][]model.RawEvent) *source.Registry {
	r := source.NewRegistry()
	r.Register("stub", func(cfg config.SourceConfig) (source.Adapter, error) {
		return &stubAdapter{name: cfg.Name, priority: cfg.Priority, events: payloads[cfg.Name]}, nil
	})
	return r
}

func baseConfig() *config.Config {
	cfg := config.New()
	cfg.Weekend.TargetDate = "2025-06-06"
	cfg.Sources = []config.SourceConfig{
		{Name: "primary", Kind: "stub", Priority: 90},
		{Name: "secondary", Kind: "stub", Priority: 50},
	}
	return cfg
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given two sources reporting overlapping weekend events", t, func() {
		payloads := map[string][]model.RawEvent{
			"primary": {
				{
					Name: "Monaco Grand Prix", Category: "F1",
					Date: "2025-06-08", Time: "14:00", Location: "monte carlo",
					Links: []any{"https://stream.example/a"},
				},
				{Name: "Thursday Test", Category: "F1", Date: "2025-06-05", Time: "10:00"},
				{Name: "Broken Entry", Date: "sometime"},
			},
			"secondary": {
				{
					Name: "Monaco GP", Category: "f1",
					Date: "2025-06-08", Time: "14:10", Location: "monte carlo",
					Links: []any{"https://stream.example/b"},
				},
				{Name: "Sunday Warmup", Date: "2025-06-08", Time: "07:00"},
			},
		}
		cfg := baseConfig()
		cfg.Quiet = []config.QuietWindowConfig{
			{Name: "sunday morning", Day: "sunday", Start: "06:00", End: "09:00", Enabled: true},
		}

		svc, err := app.New(cfg, app.WithRegistry(stubRegistry(payloads)))
		So(err, ShouldBeNil)

		Convey("When the pipeline runs", func() {
			result, err := svc.Run(ctx)

			Convey("Then the schedule holds one consolidated event", func() {
				So(err, ShouldBeNil)
				So(result.Events, ShouldHaveLength, 1)
				ev := result.Events[0]
				So(ev.Name, ShouldEqual, "monaco grand prix")
				So(ev.Category, ShouldEqual, "Formula 1")
				So(ev.Source, ShouldEqual, "primary")
				So(ev.StreamLinks, ShouldHaveLength, 2)
			})

			Convey("Then the quiet-window removal is retained for audit", func() {
				So(err, ShouldBeNil)
				So(result.Removed, ShouldHaveLength, 1)
				So(result.Removed[0].Window, ShouldEqual, "sunday morning")
				So(result.Removed[0].Event.DisplayName, ShouldEqual, "Sunday Warmup")
			})

			Convey("Then the stats cover both sources", func() {
				So(err, ShouldBeNil)
				So(result.Stats.Succeeded, ShouldEqual, 2)
				So(result.Stats.Failed, ShouldEqual, 0)
				So(result.Stats.TotalEvents, ShouldEqual, 5)
			})

			Convey("Then the window brackets the target weekend", func() {
				So(err, ShouldBeNil)
				So(result.Window.Start, ShouldEqual, time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC))
				So(result.Window.End, ShouldEqual, time.Date(2025, 6, 8, 23, 59, 59, 0, time.UTC))
			})
		})

		Convey("When a source is excluded by name", func() {
			cfg.Collection.ExcludeSources = []string{"secondary"}
			result, err := svc.Run(ctx)

			So(err, ShouldBeNil)
			So(result.Stats.Attempted, ShouldEqual, 1)
			So(result.Events, ShouldHaveLength, 1)
			So(result.Events[0].StreamLinks, ShouldHaveLength, 1)
			So(result.Removed, ShouldBeEmpty)
		})
	})

	Convey("Given no configured sources", t, func() {
		cfg := config.New()
		svc, err := app.New(cfg, app.WithRegistry(stubRegistry(nil)))
		So(err, ShouldBeNil)

		_, err = svc.Run(ctx)
		So(errors.Is(err, app.ErrNoSources), ShouldBeTrue)
	})

	Convey("Given a source of an unregistered kind", t, func() {
		cfg := baseConfig()
		cfg.Sources = []config.SourceConfig{{Name: "feed", Kind: "rss"}}
		svc, err := app.New(cfg, app.WithRegistry(stubRegistry(nil)))
		So(err, ShouldBeNil)

		_, err = svc.Run(ctx)
		So(errors.Is(err, source.ErrUnknownKind), ShouldBeTrue)
	})

	Convey("Given no target date and no usable events", t, func() {
		cfg := baseConfig()
		cfg.Weekend.TargetDate = ""
		cfg.Sources = cfg.Sources[:1]
		svc, err := app.New(cfg, app.WithRegistry(stubRegistry(map[string][]model.RawEvent{
			"primary": {{Name: "Broken", Date: "not a date"}},
		})))
		So(err, ShouldBeNil)

		Convey("Then the run is an empty success", func() {
			result, err := svc.Run(ctx)
			So(err, ShouldBeNil)
			So(result.Events, ShouldBeEmpty)
			So(result.Stats.Succeeded, ShouldEqual, 1)
		})
	})

	Convey("Given no target date and parseable events", t, func() {
		cfg := baseConfig()
		cfg.Weekend.TargetDate = ""
		cfg.Sources = cfg.Sources[:1]
		svc, err := app.New(cfg, app.WithRegistry(stubRegistry(map[string][]model.RawEvent{
			"primary": {{Name: "Race", Category: "F1", Date: "2025-06-08", Time: "14:00"}},
		})))
		So(err, ShouldBeNil)

		Convey("Then the weekend derives from the earliest event", func() {
			result, err := svc.Run(ctx)
			So(err, ShouldBeNil)
			So(result.Window.Start, ShouldEqual, time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC))
			So(result.Events, ShouldHaveLength, 1)
		})
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	Convey("Given a run that learned a category variant", t, func() {
		knowledge := filepath.Join(t.TempDir(), "knowledge.yaml")
		cfg := baseConfig()
		cfg.Sources = cfg.Sources[:1]
		cfg.Detection.KnowledgeFile = knowledge

		svc, err := app.New(cfg, app.WithRegistry(stubRegistry(map[string][]model.RawEvent{
			"primary": {{Name: "Race", Category: "Formule 1", Date: "2025-06-08", Time: "14:00"}},
		})))
		So(err, ShouldBeNil)

		_, err = svc.Run(ctx)
		So(err, ShouldBeNil)

		Convey("When the service closes", func() {
			So(svc.Close(ctx), ShouldBeNil)

			Convey("Then the variant is persisted", func() {
				variants, err := category.LoadKnowledge(knowledge)
				So(err, ShouldBeNil)
				So(variants["Formula 1"], ShouldContain, "formule 1")
			})
		})
	})

	Convey("Given a run with nothing learned", t, func() {
		cfg := baseConfig()
		svc, err := app.New(cfg, app.WithRegistry(stubRegistry(nil)))
		So(err, ShouldBeNil)

		Convey("Then Close is a no-op", func() {
			So(svc.Close(ctx), ShouldBeNil)
		})
	})
}
