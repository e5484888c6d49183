package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/engine"
	"github.com/alanyoungcy/polyarb/internal/executor"
	"github.com/alanyoungcy/polyarb/internal/notify"
	"github.com/alanyoungcy/polyarb/internal/service"
)

// CycleLockKey is the distributed lock held while a cycle runs.
const CycleLockKey = "polyarb:cycle"

// Config controls the cycle loop.
type Config struct {
	Interval time.Duration
	// Paper enables risk gating and simulated execution after detection.
	Paper bool
	// LockTTL bounds how long a crashed instance can hold the cycle lock.
	LockTTL time.Duration
}

// Orchestrator drives detection cycles on a timer: feed, engine, sinks, and
// in paper mode risk and execution. Cycles never overlap.
type Orchestrator struct {
	cfg      Config
	source   domain.MarketSource
	engine   *engine.Engine
	opps     *service.OpportunityService
	risk     *service.RiskManager
	exec     *executor.Executor
	execs    *service.ExecutionService
	locks    domain.LockManager
	notifier service.Notifier
	trigger  chan struct{}
	logger   *slog.Logger

	// lastCycle is the unix-nano end of the last cycle that did not fail.
	lastCycle atomic.Int64
}

// NewOrchestrator creates an Orchestrator. risk, exec, and execs are required
// only in paper mode; locks and notifier may be nil.
func NewOrchestrator(
	cfg Config,
	source domain.MarketSource,
	eng *engine.Engine,
	opps *service.OpportunityService,
	risk *service.RiskManager,
	exec *executor.Executor,
	execs *service.ExecutionService,
	locks domain.LockManager,
	notifier service.Notifier,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * cfg.Interval
	}
	return &Orchestrator{
		cfg:      cfg,
		source:   source,
		engine:   eng,
		opps:     opps,
		risk:     risk,
		exec:     exec,
		execs:    execs,
		locks:    locks,
		notifier: notifier,
		trigger:  make(chan struct{}, 1),
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Run executes a cycle immediately and then on every tick until ctx is
// cancelled. A failed cycle is logged and the loop continues.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "orchestrator starting",
		slog.Duration("interval", o.cfg.Interval),
		slog.String("source", o.source.Name()),
		slog.Bool("paper", o.cfg.Paper),
	)

	o.tick(ctx)

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopped")
			return ctx.Err()
		case <-ticker.C:
			o.tick(ctx)
		case <-o.trigger:
			o.logger.InfoContext(ctx, "manual cycle triggered")
			o.tick(ctx)
		}
	}
}

// Trigger requests an extra cycle from Run. It reports false when a request
// is already pending.
func (o *Orchestrator) Trigger() bool {
	select {
	case o.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	err := o.RunCycle(ctx)
	switch {
	case err == nil:
		o.lastCycle.Store(time.Now().UnixNano())
	case ctx.Err() == nil:
		o.logger.ErrorContext(ctx, "cycle failed", slog.String("error", err.Error()))
	}
}

// LastCycle returns when the last successful cycle ended, or the zero time
// before the first one.
func (o *Orchestrator) LastCycle() time.Time {
	v := o.lastCycle.Load()
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v)
}

// RunCycle runs one full cycle. Another instance holding the cycle lock, or a
// cycle still running here, skips this one without error.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, CycleLockKey, o.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			o.logger.DebugContext(ctx, "cycle lock held elsewhere, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipeline: acquire cycle lock: %w", err)
		}
		defer unlock()
	}

	markets, err := o.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: fetch markets: %w", err)
	}

	res, err := o.engine.RunCycle(ctx, markets)
	if errors.Is(err, domain.ErrCycleInProgress) {
		o.logger.WarnContext(ctx, "previous cycle still running, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("pipeline: detect: %w", err)
	}

	if len(res.Failed) > 0 && o.notifier != nil {
		msg := "Failed detectors: " + strings.Join(res.Failed, ", ")
		if err := o.notifier.Notify(ctx, notify.EventDetectorFailed, "Detector failure", msg); err != nil {
			o.logger.WarnContext(ctx, "detector failure alert failed", slog.String("error", err.Error()))
		}
	}

	tracker := o.engine.Tracker()
	ids := make(map[string]string, len(res.Fresh))
	for _, opp := range res.Fresh {
		id := o.opps.Record(ctx, opp)
		tracker.SetID(opp.Key(), id)
		ids[opp.Key()] = id
	}
	o.opps.Expire(ctx, res.Expired)

	if !o.cfg.Paper {
		return nil
	}
	for _, opp := range res.Active {
		// Shutdown lets an in-flight execution finish but starts no new one.
		if err := ctx.Err(); err != nil {
			return err
		}
		if id, ok := ids[opp.Key()]; ok {
			opp.ID = id
		}
		if err := o.trade(ctx, opp); err != nil {
			return err
		}
	}
	return nil
}

// trade runs one opportunity through sizing, admission, and execution.
// Only a closed executor stops the cycle.
func (o *Orchestrator) trade(ctx context.Context, opp domain.Opportunity) error {
	if opp.Status == domain.OppStatusExecuted || o.exec.Recent(opp) {
		return nil
	}
	size := o.exec.Size(opp)
	if size <= 0 {
		o.logger.DebugContext(ctx, "bankroll too small to size trade", slog.String("key", opp.Key()))
		return nil
	}
	if dec := o.risk.Check(ctx, opp, size); !dec.Approved {
		return nil
	}

	res, err := o.exec.Execute(ctx, opp, size)
	switch {
	case errors.Is(err, executor.ErrClosed):
		return err
	case err != nil:
		o.logger.WarnContext(ctx, "execution skipped",
			slog.String("key", opp.Key()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	o.risk.Record(ctx, res)
	o.execs.Record(ctx, res)
	o.opps.MarkExecuted(ctx, opp.ID)
	o.engine.Tracker().MarkExecuted(opp.Key())
	return nil
}
