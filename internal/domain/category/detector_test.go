package category_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gridfeed/gridfeed/internal/domain/category"
	"github.com/gridfeed/gridfeed/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDetect(t *testing.T) {
	Convey("Given a detector over the built-in taxonomy", t, func() {
		d := category.New()

		Convey("When the label is an exact variant", func() {
			r := d.Detect(model.NormalizedEvent{Category: "F1"})

			So(r.Category, ShouldEqual, "Formula 1")
			So(r.Confidence, ShouldEqual, 1.0)
			So(r.Method, ShouldEqual, "exact")
		})

		Convey("When the label matches only case- and diacritic-folded", func() {
			r := d.Detect(model.NormalizedEvent{Category: "MOTO GP"})

			So(r.Category, ShouldEqual, "MotoGP")
			So(r.Confidence, ShouldEqual, 1.0)
		})

		Convey("When the label is a close misspelling", func() {
			r := d.Detect(model.NormalizedEvent{Category: "Formule 1"})

			So(r.Category, ShouldEqual, "Formula 1")
			So(r.Confidence, ShouldBeGreaterThanOrEqualTo, 0.75)
			So(r.Confidence, ShouldBeLessThan, 1.0)
		})

		Convey("When the label is empty but the name is telling", func() {
			r := d.Detect(model.NormalizedEvent{DisplayName: "Monaco Grand Prix"})

			So(r.Category, ShouldEqual, "Formula 1")
			So(r.Method, ShouldEqual, "enriched")
		})

		Convey("When nothing in the taxonomy comes close", func() {
			r := d.Detect(model.NormalizedEvent{Category: "underwater basket weaving"})

			So(r.Category, ShouldEqual, category.Unknown)
			So(r.Confidence, ShouldEqual, 0.0)
			So(r.Method, ShouldEqual, "none")
		})
	})

	Convey("Given a detector with learning enabled", t, func() {
		d := category.New(category.WithLearning(true))

		Convey("When a near-variant is detected", func() {
			first := d.Detect(model.NormalizedEvent{Category: "Formule 1"})
			So(first.Category, ShouldEqual, "Formula 1")
			So(first.Confidence, ShouldBeLessThan, 1.0)

			Convey("Then the variant is remembered for the rest of the run", func() {
				learned := d.Learned()
				So(learned, ShouldContainKey, "Formula 1")
				So(learned["Formula 1"], ShouldContain, "formule 1")

				second := d.Detect(model.NormalizedEvent{Category: "Formule 1"})
				So(second.Confidence, ShouldEqual, 1.0)
				So(second.Method, ShouldEqual, "exact")
			})
		})

		Convey("When an exact variant is detected", func() {
			d.Detect(model.NormalizedEvent{Category: "F1"})

			Convey("Then nothing new is learned", func() {
				So(d.Learned(), ShouldBeNil)
			})
		})
	})

	Convey("Given a detector with learning disabled", t, func() {
		d := category.New(category.WithLearning(false))

		d.Detect(model.NormalizedEvent{Category: "Formule 1"})
		So(d.Learned(), ShouldBeNil)
	})

	Convey("Given a detector seeded with persisted variants", t, func() {
		d := category.New(category.WithVariants(map[string][]string{
			"Formula 1": {"grande premio"},
		}))

		r := d.Detect(model.NormalizedEvent{Category: "Grande Premio"})
		So(r.Category, ShouldEqual, "Formula 1")
		So(r.Confidence, ShouldEqual, 1.0)
	})
}

func TestDetectBatch(t *testing.T) {
	Convey("Given a batch of events", t, func() {
		d := category.New()
		events := []model.NormalizedEvent{
			{Category: "F1", DisplayName: "Monaco Grand Prix"},
			{Category: "wsbk", DisplayName: "Assen Round"},
			{DisplayName: "24 Hours of Le Mans"},
		}

		Convey("When detected in order", func() {
			results := d.DetectBatch(context.Background(), events)

			So(results, ShouldHaveLength, 3)
			So(results[0].Category, ShouldEqual, "Formula 1")
			So(results[1].Category, ShouldEqual, "World Superbike")
			So(results[2].Category, ShouldEqual, "WEC")
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			results := d.DetectBatch(ctx, events)

			Convey("Then the remainder is Unknown, not an error", func() {
				So(results, ShouldHaveLength, 3)
				for _, r := range results {
					So(r.Category, ShouldEqual, category.Unknown)
				}
			})
		})
	})
}

func TestKnowledge(t *testing.T) {
	Convey("Given a knowledge file path", t, func() {
		path := filepath.Join(t.TempDir(), "knowledge.yaml")

		Convey("When no file exists yet", func() {
			variants, err := category.LoadKnowledge(path)
			So(err, ShouldBeNil)
			So(variants, ShouldBeNil)
		})

		Convey("When learned variants are saved and reloaded", func() {
			err := category.SaveKnowledge(path, map[string][]string{
				"Formula 1": {"formule 1"},
				"MotoGP":    {"motomondiale"},
			})
			So(err, ShouldBeNil)

			variants, err := category.LoadKnowledge(path)
			So(err, ShouldBeNil)
			So(variants["Formula 1"], ShouldContain, "formule 1")
			So(variants["MotoGP"], ShouldContain, "motomondiale")
		})

		Convey("When saving again with overlapping variants", func() {
			So(category.SaveKnowledge(path, map[string][]string{"WEC": {"le mans classic"}}), ShouldBeNil)
			So(category.SaveKnowledge(path, map[string][]string{"WEC": {"le mans classic", "sebring"}}), ShouldBeNil)

			variants, err := category.LoadKnowledge(path)
			So(err, ShouldBeNil)
			So(variants["WEC"], ShouldHaveLength, 2)
		})
	})
}
