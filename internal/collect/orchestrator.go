// Package collect drives source adapters concurrently under timeout, retry,
// and cancellation discipline, and aggregates their raw events and stats.
package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridfeed/gridfeed/internal/adapters/source"
	"github.com/gridfeed/gridfeed/internal/domain/model"
	"github.com/gridfeed/gridfeed/pkg/logger"
	"github.com/gridfeed/gridfeed/pkg/metrics"
)

// Default orchestration constants.
const (
	defaultConcurrency   = 4
	defaultGlobalTimeout = 300 * time.Second
	defaultMaxRetries    = 2
	defaultBackoff       = 1 * time.Second

	// How long after the global deadline the aggregator keeps draining
	// results from workers observing cancellation.
	cancelGracePeriod = 2 * time.Second
)

// Orchestrator runs one bounded collection batch over its adapters.
type Orchestrator struct {
	adapters []source.Adapter

	concurrency      int
	globalTimeout    time.Duration
	perSourceTimeout time.Duration // 0 disables the per-source bound
	maxRetries       int
	backoff          time.Duration

	logger logger.Logger
}

// outcome carries one source's result to the aggregator. Immutable once
// sent; the aggregator goroutine is the only writer of shared stats.
type outcome struct {
	result model.CollectionResult
	events []model.RawEvent
}

// New constructs an Orchestrator over the given adapters.
func New(adapters []source.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters:      adapters,
		concurrency:   defaultConcurrency,
		globalTimeout: defaultGlobalTimeout,
		maxRetries:    defaultMaxRetries,
		backoff:       defaultBackoff,
		logger:        logger.Get().Named("collect"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Collect gathers raw events for targetDate from every adapter. Individual
// source failures never surface as errors; they are recorded in the stats
// and the failing source contributes nothing. Wall time is bounded by the
// global timeout plus a short grace period.
func (o *Orchestrator) Collect(ctx context.Context, targetDate time.Time) ([]model.RawEvent, model.CollectionStats) {
	stats := model.CollectionStats{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Attempted: len(o.adapters),
	}

	if len(o.adapters) == 0 {
		stats.FinishedAt = time.Now()
		return nil, stats
	}

	ctx, cancel := context.WithTimeout(ctx, o.globalTimeout)
	defer cancel()

	workers := o.concurrency
	if workers > len(o.adapters) {
		workers = len(o.adapters)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan source.Adapter)
	results := make(chan outcome, len(o.adapters))

	for i := 0; i < workers; i++ {
		go func() {
			for adapter := range jobs {
				results <- o.collectOne(ctx, adapter, targetDate)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, adapter := range o.adapters {
			select {
			case jobs <- adapter:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Single-aggregator loop: results are merged here and nowhere else.
	var events []model.RawEvent
	reported := make(map[string]bool, len(o.adapters))
	pending := len(o.adapters)

	for pending > 0 {
		select {
		case out := <-results:
			o.record(&stats, reported, out)
			events = append(events, out.events...)
			pending--
		case <-ctx.Done():
			o.drain(results, &stats, reported, &events, pending)
			pending = 0
		}
	}

	// Sources still in flight past the deadline are discarded; their
	// adapters were cancelled cooperatively via ctx.
	for _, adapter := range o.adapters {
		if reported[adapter.Name()] {
			continue
		}
		metrics.RecordSourceFailure()
		stats.Failed++
		stats.Results = append(stats.Results, model.CollectionResult{
			Source: adapter.Name(),
			Error:  "cancelled: global timeout",
		})
		o.logger.Warn(ctx, "source cancelled at global deadline", logger.String("source", adapter.Name()))
	}

	stats.TotalEvents = len(events)
	stats.FinishedAt = time.Now()
	return events, stats
}

// drain gives workers a grace period after cancellation to report what they
// finished. It returns how many outcomes were received.
func (o *Orchestrator) drain(results <-chan outcome, stats *model.CollectionStats, reported map[string]bool, events *[]model.RawEvent, pending int) int {
	timer := time.NewTimer(cancelGracePeriod)
	defer timer.Stop()

	received := 0
	for received < pending {
		select {
		case out := <-results:
			o.record(stats, reported, out)
			*events = append(*events, out.events...)
			received++
		case <-timer.C:
			return received
		}
	}
	return received
}

func (o *Orchestrator) record(stats *model.CollectionStats, reported map[string]bool, out outcome) {
	reported[out.result.Source] = true
	stats.Results = append(stats.Results, out.result)
	if out.result.OK {
		stats.Succeeded++
	} else {
		stats.Failed++
	}
}

// collectOne runs a single source's full attempt sequence: optional
// per-source timeout bounding all retries, linear backoff between transient
// failures, no retry for permanent errors.
func (o *Orchestrator) collectOne(ctx context.Context, adapter source.Adapter, targetDate time.Time) outcome {
	start := time.Now()
	name := adapter.Name()
	metrics.RecordSourceAttempt()

	srcCtx := ctx
	if o.perSourceTimeout > 0 {
		var cancel context.CancelFunc
		srcCtx, cancel = context.WithTimeout(ctx, o.perSourceTimeout)
		defer cancel()
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		attempts++
		events, err := safeCollect(srcCtx, adapter, targetDate)
		if err == nil {
			duration := time.Since(start)
			metrics.RecordSourceSuccess()
			metrics.RecordSourceDuration(name, duration.Seconds())
			metrics.RecordEventsCollected(len(events))
			o.logger.Info(srcCtx, "source collected",
				logger.String("source", name),
				logger.Int("events", len(events)),
				logger.Duration("duration", duration),
			)
			// Tag each event with its source identity and priority.
			for i := range events {
				events[i].Source = name
				events[i].SourcePriority = adapter.Priority()
			}
			return outcome{
				result: model.CollectionResult{
					Source:   name,
					OK:       true,
					Events:   len(events),
					Attempts: attempts,
					Duration: duration,
				},
				events: events,
			}
		}

		lastErr = err
		if !source.IsTransient(err) || srcCtx.Err() != nil || attempt == o.maxRetries {
			break
		}

		metrics.RecordSourceRetry()
		backoff := o.backoff * time.Duration(attempt+1)
		o.logger.Warn(srcCtx, "source attempt failed; retrying",
			logger.String("source", name),
			logger.Int("attempt", attempts),
			logger.Duration("backoff", backoff),
			logger.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-srcCtx.Done():
			attempt = o.maxRetries // deadline bounds the retry sequence
		}
	}

	duration := time.Since(start)
	metrics.RecordSourceFailure()
	metrics.RecordSourceDuration(name, duration.Seconds())
	o.logger.Warn(srcCtx, "source failed",
		logger.String("source", name),
		logger.Int("attempts", attempts),
		logger.Error(lastErr),
	)
	return outcome{
		result: model.CollectionResult{
			Source:   name,
			Error:    lastErr.Error(),
			Attempts: attempts,
			Duration: duration,
		},
	}
}

// safeCollect shields the orchestrator from adapter panics; a panicking
// adapter is a permanent per-source failure, not a batch crash.
func safeCollect(ctx context.Context, adapter source.Adapter, targetDate time.Time) (events []model.RawEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("%w: adapter panic: %v", source.ErrPermanent, r)
		}
	}()
	return adapter.CollectEvents(ctx, targetDate)
}
