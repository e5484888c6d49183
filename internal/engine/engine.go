// Package engine runs the detectors concurrently each cycle, merges and
// deduplicates their output, and tracks opportunities across cycles.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/metrics"
)

// Result is the outcome of one detection cycle.
type Result struct {
	Observation
	// Failed lists the detectors that errored or panicked this cycle.
	Failed   []string
	Duration time.Duration
}

// Engine owns the detector set and the tracker. Cycles never overlap.
type Engine struct {
	detectors []arbitrage.Detector
	tracker   *Tracker
	running   sync.Mutex
	logger    *slog.Logger
}

// New creates an Engine.
func New(detectors []arbitrage.Detector, tracker *Tracker, logger *slog.Logger) *Engine {
	return &Engine{
		detectors: detectors,
		tracker:   tracker,
		logger:    logger.With(slog.String("component", "detection_engine")),
	}
}

// Tracker exposes the tracking map for read-side consumers.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Detectors returns the enabled detector names.
func (e *Engine) Detectors() []string {
	names := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		names[i] = d.Name()
	}
	return names
}

// RunCycle runs every detector against markets. It returns
// domain.ErrCycleInProgress if a previous cycle is still running.
func (e *Engine) RunCycle(ctx context.Context, markets []domain.MarketSnapshot) (Result, error) {
	if !e.running.TryLock() {
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return Result{}, domain.ErrCycleInProgress
	}
	defer e.running.Unlock()

	start := time.Now()
	outputs := make([][]domain.Opportunity, len(e.detectors))
	failed := make([]bool, len(e.detectors))

	var g errgroup.Group
	for i, d := range e.detectors {
		g.Go(func() error {
			outputs[i], failed[i] = e.runDetector(ctx, d, markets)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	merged := Merge(outputs...)
	res := Result{Observation: e.tracker.Observe(merged)}
	for i, f := range failed {
		if f {
			res.Failed = append(res.Failed, e.detectors[i].Name())
		}
	}
	res.Duration = time.Since(start)

	for _, o := range res.Active {
		metrics.OpportunitiesDetected.WithLabelValues(string(o.Type)).Inc()
	}
	for _, o := range res.Fresh {
		metrics.OpportunitiesNew.WithLabelValues(string(o.Type)).Inc()
	}
	metrics.OpportunitiesExpired.Add(float64(len(res.Expired)))
	metrics.TrackedOpportunities.Set(float64(e.tracker.Len()))
	metrics.CycleDuration.Observe(res.Duration.Seconds())
	metrics.CyclesTotal.WithLabelValues("ok").Inc()

	e.logger.InfoContext(ctx, "detection cycle complete",
		slog.Int("markets", len(markets)),
		slog.Int("active", len(res.Active)),
		slog.Int("fresh", len(res.Fresh)),
		slog.Int("expired", len(res.Expired)),
		slog.Int("failed_detectors", len(res.Failed)),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// runDetector isolates one detector: errors and panics are logged and yield
// no opportunities.
func (e *Engine) runDetector(ctx context.Context, d arbitrage.Detector, markets []domain.MarketSnapshot) (opps []domain.Opportunity, failed bool) {
	name := d.Name()
	start := time.Now()
	defer func() {
		metrics.DetectorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "detector panicked",
				slog.String("detector", name),
				slog.String("panic", fmt.Sprint(r)),
			)
			metrics.DetectorFailures.WithLabelValues(name).Inc()
			opps, failed = nil, true
		}
	}()

	opps, err := d.Detect(ctx, markets)
	if err != nil {
		e.logger.WarnContext(ctx, "detector failed",
			slog.String("detector", name),
			slog.String("error", err.Error()),
		)
		metrics.DetectorFailures.WithLabelValues(name).Inc()
		return nil, true
	}
	return opps, false
}

// Merge concatenates detector outputs, sorts by profit descending, and keeps
// the highest-profit instance of each canonical key.
func Merge(outputs ...[]domain.Opportunity) []domain.Opportunity {
	var all []domain.Opportunity
	for _, o := range outputs {
		all = append(all, o...)
	}
	arbitrage.SortByProfit(all)

	seen := make(map[string]bool, len(all))
	out := all[:0]
	for _, o := range all {
		k := o.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, o)
	}
	return out
}
