package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gridfeed/gridfeed/internal/adapters/source"
	"github.com/gridfeed/gridfeed/internal/config"
	"github.com/gridfeed/gridfeed/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type nopAdapter struct {
	name     string
	priority int
}

func (n nopAdapter) Name() string  { return n.name }
func (n nopAdapter) Priority() int { return n.priority }
func (n nopAdapter) CollectEvents(context.Context, time.Time) ([]model.RawEvent, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry with a stub kind", t, func() {
		r := source.NewRegistry()
		r.Register("stub", func(cfg config.SourceConfig) (source.Adapter, error) {
			return nopAdapter{name: cfg.Name, priority: cfg.Priority}, nil
		})

		cfgs := []config.SourceConfig{
			{Name: "low", Kind: "stub", Priority: 10},
			{Name: "high", Kind: "STUB", Priority: 90},
			{Name: "mid", Kind: "stub", Priority: 50},
		}

		Convey("When building all sources", func() {
			adapters, err := r.Build(cfgs, nil)

			Convey("Then kinds match case-insensitively and order is by priority", func() {
				So(err, ShouldBeNil)
				So(adapters, ShouldHaveLength, 3)
				So(adapters[0].Name(), ShouldEqual, "high")
				So(adapters[1].Name(), ShouldEqual, "mid")
				So(adapters[2].Name(), ShouldEqual, "low")
			})
		})

		Convey("When excluding a source by name", func() {
			adapters, err := r.Build(cfgs, []string{"HIGH"})

			Convey("Then exclusion is case-insensitive", func() {
				So(err, ShouldBeNil)
				So(adapters, ShouldHaveLength, 2)
				So(adapters[0].Name(), ShouldEqual, "mid")
			})
		})

		Convey("When every source is excluded", func() {
			adapters, err := r.Build(cfgs, []string{"low", "mid", "high"})
			So(err, ShouldBeNil)
			So(adapters, ShouldBeEmpty)
		})

		Convey("When a kind is not registered", func() {
			_, err := r.Build([]config.SourceConfig{{Name: "x", Kind: "rss"}}, nil)
			So(errors.Is(err, source.ErrUnknownKind), ShouldBeTrue)
		})

		Convey("When a factory rejects its config", func() {
			r.Register("picky", func(config.SourceConfig) (source.Adapter, error) {
				return nil, errors.New("missing url")
			})
			_, err := r.Build([]config.SourceConfig{{Name: "x", Kind: "picky"}}, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestIsTransient(t *testing.T) {
	Convey("Given the error classifier", t, func() {
		So(source.IsTransient(source.ErrTransient), ShouldBeTrue)
		So(source.IsTransient(context.DeadlineExceeded), ShouldBeTrue)
		So(source.IsTransient(source.ErrPermanent), ShouldBeFalse)
		So(source.IsTransient(errors.New("unclassified")), ShouldBeFalse)
		So(source.IsTransient(nil), ShouldBeFalse)
	})
}
