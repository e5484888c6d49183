package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/executor"
)

// ReportWriter stores one archive batch: executions since the previous batch
// and a performance snapshot.
type ReportWriter interface {
	WriteReport(ctx context.Context, at time.Time, executions []domain.ExecutionResult, stats any) error
}

// ExecutionHistory is the paper executor's read side.
type ExecutionHistory interface {
	History() []domain.ExecutionResult
	Stats() executor.Stats
}

// Archiver copies executor history and statistics to cold storage.
type Archiver struct {
	writer ReportWriter
	source ExecutionHistory
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	archived int
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer ReportWriter, source ExecutionHistory, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Run writes the executions not yet archived together with current stats.
func (a *Archiver) Run(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	history := a.source.History()
	batch := history[min(a.archived, len(history)):]
	stats := a.source.Stats()

	if err := a.writer.WriteReport(ctx, a.now(), batch, stats); err != nil {
		return fmt.Errorf("pipeline: archive %d executions: %w", len(batch), err)
	}
	a.archived = len(history)

	a.logger.InfoContext(ctx, "archive run complete",
		slog.Int("executions", len(batch)),
		slog.Float64("bankroll", stats.Bankroll),
	)
	return nil
}

// RunCron archives on a cron schedule until ctx is cancelled, then writes a
// final batch. It supports the standard 5-field format
// "minute hour day-of-month month day-of-week" with "*", lists, ranges, and
// steps, e.g. "*/15 * * * *".
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	sched, err := parseCron(cronExpr)
	if err != nil {
		return fmt.Errorf("pipeline: parse cron %q: %w", cronExpr, err)
	}
	a.logger.Info("archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := sched.next(a.now())
		if err != nil {
			return fmt.Errorf("pipeline: cron %q: %w", cronExpr, err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			a.final(ctx)
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *Archiver) final(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		a.logger.Error("final archive failed", slog.String("error", err.Error()))
	}
}
