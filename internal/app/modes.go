package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyarb/internal/blob/s3"
	"github.com/alanyoungcy/polyarb/internal/config"
	"github.com/alanyoungcy/polyarb/internal/engine"
	"github.com/alanyoungcy/polyarb/internal/executor"
	"github.com/alanyoungcy/polyarb/internal/pipeline"
	"github.com/alanyoungcy/polyarb/internal/server"
	"github.com/alanyoungcy/polyarb/internal/server/handler"
	"github.com/alanyoungcy/polyarb/internal/server/ws"
	"github.com/alanyoungcy/polyarb/internal/service"
	"github.com/alanyoungcy/polyarb/internal/slippage"
)

// components are the long-lived objects shared by both modes.
type components struct {
	source       string
	detectors    []string
	engine       *engine.Engine
	opps         *service.OpportunityService
	execs        *service.ExecutionService
	risk         *service.RiskManager
	executor     *executor.Executor
	orchestrator *pipeline.Orchestrator
}

// build assembles the detection pipeline. Paper-only pieces are nil in scan
// mode.
func (a *App) build(deps *Dependencies) (*components, error) {
	cfg := a.cfg
	logger := a.logger

	src, err := buildSource(cfg.Feed, deps, logger)
	if err != nil {
		return nil, err
	}
	reg := buildDetectors(cfg, deps.InferenceCache, deps.RateLimiter, logger)
	if len(reg.List()) == 0 {
		return nil, errors.New("app: no detectors enabled")
	}

	c := &components{
		source:    src.Name(),
		detectors: reg.List(),
		engine:    engine.New(reg.All(), engine.NewTracker(cfg.Detection.TrackingTTL.Duration), logger),
		opps:      service.NewOpportunityService(deps.OpportunityStore, deps.SignalBus, deps.Notifier, logger),
		execs:     service.NewExecutionService(deps.ExecutionStore, deps.SignalBus, deps.Notifier, logger),
	}

	paper := cfg.Paper()
	if paper {
		c.risk = service.NewRiskManager(riskConfig(cfg.Risk), logger)

		slip := slippage.DefaultConfig()
		slip.BaseBps = cfg.Slippage.BaseBps
		slip.ImpactFactor = cfg.Slippage.ImpactFactor
		slip.Noise = cfg.Slippage.Noise
		model := slippage.New(slip, newRand(cfg.Execution.Seed, 1))

		c.executor = executor.New(executorConfig(cfg), model, newRand(cfg.Execution.Seed, 2), logger)
	}

	orchCfg := pipeline.Config{
		Interval: cfg.Detection.Interval.Duration,
		Paper:    paper,
	}
	c.orchestrator = pipeline.NewOrchestrator(orchCfg, src, c.engine, c.opps, c.risk, c.executor, c.execs, deps.LockManager, deps.Notifier, logger)
	return c, nil
}

func riskConfig(r config.RiskConfig) service.RiskConfig {
	return service.RiskConfig{
		MaxPositionSize:  r.MaxPositionSize,
		MaxTotalExposure: r.MaxTotalExposure,
		MaxDailyLoss:     r.MaxDailyLoss,
		MinLiquidity:     r.MinLiquidity,
		Cooldown:         r.Cooldown.Duration,
		MinNetProfitPct:  r.MinNetProfitPct,
	}
}

func executorConfig(cfg *config.Config) executor.Config {
	ec := executor.DefaultConfig()
	ec.StartingBankroll = cfg.Execution.StartingBankroll
	ec.MaxPositionSize = cfg.Risk.MaxPositionSize
	ec.Delay = cfg.Execution.ExecutionDelay.Duration
	ec.Leg1FailureRate = cfg.Execution.Leg1FailureRate
	ec.Leg2FailureRate = cfg.Execution.Leg2FailureRate
	ec.PartialFillRate = cfg.Execution.PartialFillRate
	ec.DedupTTL = cfg.Execution.DedupTTL.Duration
	ec.FeePct = cfg.Detection.FeePct / 100
	return ec
}

// ScanMode runs detection only: opportunities are tracked, persisted and
// broadcast, but never traded.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "running in scan mode")

	c, err := a.build(deps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.orchestrator.Run(gctx) })
	a.startHTTPServer(gctx, g, deps, c)

	return g.Wait()
}

// PaperMode runs detection plus risk-gated simulated execution, with the
// resolution poller and report archiver when their backends are enabled.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	if !a.cfg.Paper() {
		a.logger.WarnContext(ctx, "execution disabled; paper mode falls back to scan")
		return a.ScanMode(ctx, deps)
	}
	a.logger.InfoContext(ctx, "running in paper mode",
		slog.Float64("starting_bankroll", a.cfg.Execution.StartingBankroll),
	)

	c, err := a.build(deps)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, c.executor.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.orchestrator.Run(gctx) })

	if deps.ExecutionStore != nil && a.cfg.Resolution.Enabled {
		resolver := service.NewResolutionService(deps.ExecutionStore, deps.Gamma, c.risk, a.logger)
		g.Go(func() error { return resolver.Run(gctx, a.cfg.Resolution.Interval.Duration) })
	}

	if deps.BlobWriter != nil && a.cfg.Execution.ArchiveCron != "" {
		archiver := pipeline.NewArchiver(s3blob.NewReportArchiver(deps.BlobWriter, a.logger), c.executor, a.logger)
		g.Go(func() error { return archiver.RunCron(gctx, a.cfg.Execution.ArchiveCron) })
	}

	a.startHTTPServer(gctx, g, deps, c)

	return g.Wait()
}

// startHTTPServer launches the WebSocket hub and API server in the errgroup
// when the server is enabled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *components) {
	cfg := a.cfg
	if !cfg.Server.Enabled {
		return
	}
	startedAt := time.Now()

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{Mode: cfg.Mode, StartedAt: startedAt})
	g.Go(func() error { return hub.Run(ctx) })

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(c.orchestrator, c.engine.Tracker(), 3*cfg.Detection.Interval.Duration, a.logger),
		Status:        handler.NewStatusHandler(cfg.Mode, c.source, c.detectors, startedAt),
		Opportunities: handler.NewOpportunityHandler(c.engine.Tracker(), c.opps, c.execs, a.logger),
		Pipeline:      handler.NewPipelineHandler(c.orchestrator, a.logger),
	}
	// Nil concrete pointers must not leak into the handler interfaces.
	if c.executor != nil {
		handlers.Stats = handler.NewStatsHandler(c.executor, c.risk)
		handlers.Risk = handler.NewRiskHandler(c.risk, deps.Notifier, a.logger)
	} else {
		handlers.Stats = handler.NewStatsHandler(nil, nil)
		handlers.Risk = handler.NewRiskHandler(nil, deps.Notifier, a.logger)
	}

	srvCfg := server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}
	if deps.RateLimiter != nil {
		srvCfg.RateLimit = cfg.Server.RateLimitPerMinute
		srvCfg.RateWindow = time.Minute
	}
	srv := server.NewServer(srvCfg, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server starting", slog.Int("port", cfg.Server.Port))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})
}
