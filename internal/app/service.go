// Package app wires the collection orchestrator and the consolidation
// stages into the single batch pipeline a run executes.
package app

import (
	"context"
	"time"

	"github.com/gridfeed/gridfeed/internal/adapters/source"
	"github.com/gridfeed/gridfeed/internal/adapters/source/icsfeed"
	"github.com/gridfeed/gridfeed/internal/collect"
	"github.com/gridfeed/gridfeed/internal/config"
	"github.com/gridfeed/gridfeed/internal/domain/category"
	"github.com/gridfeed/gridfeed/internal/domain/dedupe"
	"github.com/gridfeed/gridfeed/internal/domain/model"
	"github.com/gridfeed/gridfeed/internal/domain/normalize"
	"github.com/gridfeed/gridfeed/internal/domain/similarity"
	"github.com/gridfeed/gridfeed/internal/domain/window"
	"github.com/gridfeed/gridfeed/pkg/logger"
	"github.com/gridfeed/gridfeed/pkg/metrics"
)

// Result is one pipeline run's output: the final schedule, the quiet-window
// removals kept for audit, and the collection statistics.
type Result struct {
	Events  []model.NormalizedEvent
	Removed []window.Removal
	Stats   model.CollectionStats
	Window  window.Window
}

// Service owns the pipeline components for one process.
type Service struct {
	cfg      *config.Config
	registry *source.Registry
	detector *category.Detector
	embedder similarity.Embedder
	logger   logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry replaces the default source registry, e.g. for tests or for
// embedding additional adapter kinds.
func WithRegistry(r *source.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithEmbedder provides the embedding backend for semantic duplicate
// matching. Without one, matching stays fuzzy-only even when enabled.
func WithEmbedder(e similarity.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// New constructs the Service: builds the default adapter registry, loads the
// persisted category knowledge base, and configures the detector.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}
	if s.registry == nil {
		s.registry = source.NewRegistry()
		s.registry.Register("ics", icsfeed.Factory(cfg.CacheDir))
	}

	detectorOpts := []category.Option{
		category.WithThreshold(cfg.Detection.ConfidenceThreshold),
		category.WithLearning(cfg.Detection.LearningEnabled),
	}
	if cfg.Detection.KnowledgeFile != "" {
		known, err := category.LoadKnowledge(cfg.Detection.KnowledgeFile)
		if err != nil {
			return nil, err
		}
		if known != nil {
			detectorOpts = append(detectorOpts, category.WithVariants(known))
		}
	}
	s.detector = category.New(detectorOpts...)

	return s, nil
}

// Run executes one collection-and-consolidation batch. Per-source and
// per-record problems degrade gracefully into stats and logs; only
// batch-fatal conditions (no sources configured, misconfigured registry)
// return an error.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	defer func() { metrics.RecordRunDuration(time.Since(start).Seconds()) }()

	if len(s.cfg.Sources) == 0 {
		return nil, ErrNoSources
	}

	adapters, err := s.registry.Build(s.cfg.Sources, s.cfg.Collection.ExcludeSources)
	if err != nil {
		return nil, err
	}

	loc := s.cfg.Location()
	targetDate := time.Now().In(loc)
	explicitTarget := false
	if s.cfg.Weekend.TargetDate != "" {
		targetDate, err = time.ParseInLocation("2006-01-02", s.cfg.Weekend.TargetDate, loc)
		if err != nil {
			return nil, err
		}
		explicitTarget = true
	}

	orchestrator := collect.New(adapters,
		collect.WithConcurrency(s.cfg.Collection.Concurrency),
		collect.WithGlobalTimeout(time.Duration(s.cfg.Collection.GlobalTimeoutSeconds)*time.Second),
		collect.WithPerSourceTimeout(time.Duration(s.cfg.Collection.PerSourceTimeoutSeconds)*time.Second),
		collect.WithRetries(s.cfg.Collection.MaxRetries, time.Duration(s.cfg.Collection.BackoffSeconds*float64(time.Second))),
	)
	raw, stats := orchestrator.Collect(ctx, targetDate)
	s.logger.Info(ctx, "collection finished",
		logger.String("run_id", stats.RunID),
		logger.Int("sources_ok", stats.Succeeded),
		logger.Int("sources_failed", stats.Failed),
		logger.Int("raw_events", stats.TotalEvents),
	)

	events := s.normalizeAll(raw, loc)
	s.detectAll(ctx, events)

	extension := time.Duration(s.cfg.Weekend.ExtensionHours) * time.Hour
	var weekend window.Window
	if explicitTarget {
		weekend = window.Weekend(targetDate, extension, loc)
	} else {
		derived, ok := window.WeekendOfEarliest(events, extension, loc)
		if !ok {
			// Zero usable events is an empty successful result.
			return &Result{Stats: stats}, nil
		}
		weekend = derived
	}
	inWindow := window.FilterWindow(events, weekend)
	for range len(events) - len(inWindow) {
		metrics.RecordEventDropped("outside_window")
	}

	engine := s.newEngine()
	deduped := engine.Deduplicate(ctx, inWindow)

	kept, removed := window.FilterQuiet(deduped, s.quietWindows(ctx))
	for _, r := range removed {
		metrics.RecordQuietRemoval(r.Window)
		s.logger.Info(ctx, "event removed by quiet window",
			logger.String("window", r.Window),
			logger.String("event", r.Event.DisplayName),
			logger.Time("timestamp", r.Event.Timestamp),
		)
	}

	metrics.UpdateScheduleEvents(len(kept))
	s.logger.Info(ctx, "consolidation finished",
		logger.Int("normalized", len(events)),
		logger.Int("in_window", len(inWindow)),
		logger.Int("deduplicated", len(deduped)),
		logger.Int("final", len(kept)),
	)

	return &Result{Events: kept, Removed: removed, Stats: stats, Window: weekend}, nil
}

// Close persists the category knowledge base when learning occurred.
func (s *Service) Close(ctx context.Context) error {
	if s.cfg.Detection.KnowledgeFile == "" {
		return nil
	}
	learned := s.detector.Learned()
	if learned == nil {
		return nil
	}
	s.logger.Info(ctx, "persisting learned category variants",
		logger.Int("categories", len(learned)),
		logger.String("file", s.cfg.Detection.KnowledgeFile),
	)
	return category.SaveKnowledge(s.cfg.Detection.KnowledgeFile, learned)
}

func (s *Service) normalizeAll(raw []model.RawEvent, loc *time.Location) []model.NormalizedEvent {
	normalizer := normalize.New(normalize.WithLocation(loc))
	events := make([]model.NormalizedEvent, 0, len(raw))
	for _, r := range raw {
		ev, ok := normalizer.Normalize(r)
		if !ok {
			metrics.RecordEventDropped("unparseable")
			continue
		}
		metrics.RecordEventNormalized()
		events = append(events, ev)
	}
	return events
}

func (s *Service) detectAll(ctx context.Context, events []model.NormalizedEvent) {
	results := s.detector.DetectBatch(ctx, events)
	for i := range events {
		events[i].Category = results[i].Category
		events[i].CategoryConfidence = results[i].Confidence
	}
}

func (s *Service) newEngine() *dedupe.Engine {
	opts := []dedupe.Option{
		dedupe.WithTimeTolerance(time.Duration(s.cfg.Dedupe.TimeToleranceMinutes) * time.Minute),
		dedupe.WithNameThreshold(s.cfg.Dedupe.NameThreshold),
		dedupe.WithLocationThreshold(s.cfg.Dedupe.LocationThreshold),
		dedupe.WithCategoryThreshold(s.cfg.Dedupe.CategoryThreshold),
	}
	if s.cfg.Dedupe.SemanticEnabled && s.embedder != nil {
		opts = append(opts, dedupe.WithSemanticMatching(s.embedder, s.cfg.Dedupe.SemanticThreshold))
	}
	return dedupe.New(opts...)
}

func (s *Service) quietWindows(ctx context.Context) []window.QuietWindow {
	var out []window.QuietWindow
	for _, q := range s.cfg.Quiet {
		if !q.Enabled {
			continue
		}
		qw, err := window.ParseQuiet(q.Name, q.Day, q.Start, q.End)
		if err != nil {
			// validate() already rejected these at load time.
			s.logger.Warn(ctx, "skipping malformed quiet window", logger.String("window", q.Name), logger.Error(err))
			continue
		}
		out = append(out, qw)
	}
	return out
}
