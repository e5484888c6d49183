package executor

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/slippage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func spreadOpp(id string) domain.Opportunity {
	return domain.Opportunity{
		Type:       domain.OppMultiOutcome,
		Primary:    domain.MarketRef{ID: id, Question: "Will it rain?", Price: 0.45, Liquidity: 50_000},
		ProfitPct:  5,
		Confidence: 0.9,
		Direction:  domain.DirectionUnderpriced,
		MultiOutcome: &domain.MultiOutcomeDetail{
			YesPrice: 0.45, NoPrice: 0.50, Sum: 0.95,
		},
	}
}

// newTestExecutor has no delay, no noise, and no failures unless cfg says so.
func newTestExecutor(mod func(*Config)) *Executor {
	cfg := DefaultConfig()
	cfg.Delay = 0
	cfg.Leg1FailureRate = 0
	cfg.Leg2FailureRate = 0
	cfg.PartialFillRate = 0
	if mod != nil {
		mod(&cfg)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	slip := slippage.New(slippage.Config{BaseBps: 2, ImpactFactor: 0.1, Noise: 0}, rng)
	return New(cfg, slip, rng, discardLogger())
}

func TestExecutor_CleanFill(t *testing.T) {
	e := newTestExecutor(nil)
	opp := spreadOpp("m1")

	size := e.Size(opp)
	require.InDelta(t, 100, size, 1e-9)

	res, err := e.Execute(context.Background(), opp, size)
	require.NoError(t, err)

	assert.Equal(t, domain.ExecComplete, res.Status)
	assert.True(t, res.Success())
	require.Len(t, res.Legs, 2)
	for _, leg := range res.Legs {
		assert.Equal(t, domain.LegFilled, leg.Status)
		assert.InDelta(t, 50, leg.FilledSize, 1e-9)
		assert.InDelta(t, 3, leg.SlippageBps, 1e-9)
		assert.Greater(t, leg.ExecutedPrice, leg.ExpectedPrice)
	}
	assert.InDelta(t, 5, res.ExpectedProfit, 1e-9)
	assert.InDelta(t, 0.03, res.SlippageCost, 1e-9)
	assert.InDelta(t, 1, res.Fees, 1e-9)
	assert.InDelta(t, 3.97, res.RealizedProfit, 1e-9)
	assert.InDelta(t, 1_003.97, e.Bankroll(), 1e-9)
	assert.InDelta(t, 1_003.97, res.BankrollAfter, 1e-9)
	assert.Equal(t, 0.25, res.KellyFraction)
}

func TestExecutor_Leg1Failure(t *testing.T) {
	e := newTestExecutor(func(c *Config) { c.Leg1FailureRate = 1 })

	res, err := e.Execute(context.Background(), spreadOpp("m1"), 100)
	require.NoError(t, err)

	assert.Equal(t, domain.ExecFailed, res.Status)
	assert.Equal(t, domain.FailureLeg1, res.FailureReason)
	assert.InDelta(t, -0.5, res.RealizedProfit, 1e-9)
	assert.False(t, res.Success())
	for _, leg := range res.Legs {
		assert.Equal(t, domain.LegFailed, leg.Status)
		assert.Zero(t, leg.FilledSize)
	}
	assert.InDelta(t, 999.5, e.Bankroll(), 1e-9)
	assert.InDelta(t, 0.0005, e.Stats().MaxDrawdown, 1e-12)
}

func TestExecutor_Leg2Failure(t *testing.T) {
	e := newTestExecutor(func(c *Config) { c.Leg2FailureRate = 1 })

	res, err := e.Execute(context.Background(), spreadOpp("m1"), 100)
	require.NoError(t, err)

	assert.Equal(t, domain.FailureLeg2, res.FailureReason)
	assert.Equal(t, domain.LegFilled, res.Legs[0].Status)
	assert.Equal(t, domain.LegFailed, res.Legs[1].Status)
	assert.InDelta(t, -2, res.RealizedProfit, 1e-9)
	assert.InDelta(t, 998, e.Bankroll(), 1e-9)
}

func TestExecutor_PartialFill(t *testing.T) {
	e := newTestExecutor(func(c *Config) { c.PartialFillRate = 1 })

	res, err := e.Execute(context.Background(), spreadOpp("m1"), 100)
	require.NoError(t, err)

	assert.Equal(t, domain.ExecComplete, res.Status)
	assert.GreaterOrEqual(t, res.FillRatio, 0.5)
	assert.Less(t, res.FillRatio, 1.0)
	for _, leg := range res.Legs {
		assert.Equal(t, domain.LegPartial, leg.Status)
		assert.InDelta(t, 50*res.FillRatio, leg.FilledSize, 1e-9)
	}
	want := 5*res.FillRatio - 0.03*res.FillRatio - 1
	assert.InDelta(t, want, res.RealizedProfit, 1e-9)
}

func TestExecutor_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate", func(t *testing.T) {
		e := newTestExecutor(nil)
		_, err := e.Execute(ctx, spreadOpp("m1"), 50)
		require.NoError(t, err)
		before := e.Bankroll()

		assert.True(t, e.Recent(spreadOpp("m1")))
		_, err = e.Execute(ctx, spreadOpp("m1"), 50)
		assert.ErrorIs(t, err, domain.ErrDuplicateExecution)
		assert.Equal(t, before, e.Bankroll())
	})

	t.Run("bankroll", func(t *testing.T) {
		e := newTestExecutor(nil)
		_, err := e.Execute(ctx, spreadOpp("m1"), 2_000)
		assert.ErrorIs(t, err, domain.ErrInsufficientBankroll)
		_, err = e.Execute(ctx, spreadOpp("m1"), 0)
		assert.ErrorIs(t, err, domain.ErrInsufficientBankroll)
		assert.Empty(t, e.History())
	})

	t.Run("closed", func(t *testing.T) {
		e := newTestExecutor(nil)
		e.Close()
		_, err := e.Execute(ctx, spreadOpp("m1"), 50)
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("no legs", func(t *testing.T) {
		e := newTestExecutor(nil)
		opp := spreadOpp("m1")
		opp.MultiOutcome = nil
		res, err := e.Execute(ctx, opp, 50)
		require.NoError(t, err)
		assert.Equal(t, domain.FailureUnresolvable, res.FailureReason)
		assert.Equal(t, 1_000.0, e.Bankroll())
	})
}

func TestExecutor_FinishesDespiteCancel(t *testing.T) {
	e := newTestExecutor(func(c *Config) { c.Delay = 30 * time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	res, err := e.Execute(ctx, spreadOpp("m1"), 50)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, domain.ExecComplete, res.Status)
	assert.InDelta(t, 1_000+res.RealizedProfit, e.Bankroll(), 1e-9)
}

func TestExecutor_Stats(t *testing.T) {
	e := newTestExecutor(nil)
	ctx := context.Background()
	_, err := e.Execute(ctx, spreadOpp("m1"), 100)
	require.NoError(t, err)

	e.cfg.Leg1FailureRate = 1
	_, err = e.Execute(ctx, spreadOpp("m2"), 100)
	require.NoError(t, err)

	s := e.Stats()
	assert.Equal(t, 2, s.Trades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.InDelta(t, 3.47, s.TotalProfit, 1e-9)
	assert.InDelta(t, 1_003.97, s.PeakBankroll, 1e-9)
	assert.InDelta(t, 0.5/1_003.97, s.MaxDrawdown, 1e-12)
	assert.Equal(t, TypeStats{Trades: 2, Wins: 1, WinRate: 0.5, TotalProfit: s.TotalProfit},
		s.ByType[domain.OppMultiOutcome])
	assert.Greater(t, s.Sharpe, 0.0)
}
