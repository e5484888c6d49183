package executor

import "math"

const (
	// lossOnFailure is the assumed fraction lost when an arbitrage fails.
	lossOnFailure   = 0.02
	kellyMultiplier = 0.5

	MinKellyFraction = 0.01
	MaxKellyFraction = 0.25

	minWinProb  = 0.5
	maxWinProb  = 0.95
	minBankroll = 10.0
	minSize     = 5.0
	// maxBankrollShare caps a single position regardless of Kelly.
	maxBankrollShare = 0.25
)

// KellyFraction returns the half-Kelly share of bankroll for an opportunity
// with the given detector confidence and expected profit percentage. The
// result always lies in [MinKellyFraction, MaxKellyFraction].
func KellyFraction(confidence, profitPct float64) float64 {
	p := clamp(confidence, minWinProb, maxWinProb)
	q := 1 - p
	odds := (profitPct / 100) / lossOnFailure
	if odds <= 0 {
		return MinKellyFraction
	}
	raw := (odds*p - q) / odds
	return clamp(raw*kellyMultiplier, MinKellyFraction, MaxKellyFraction)
}

// PositionSize converts a Kelly fraction into dollars. It returns zero when
// the bankroll is too small to trade.
func PositionSize(fraction, bankroll, maxPosition float64) float64 {
	if bankroll < minBankroll {
		return 0
	}
	size := fraction * bankroll
	if maxPosition > 0 {
		size = math.Min(size, maxPosition)
	}
	size = math.Min(size, maxBankrollShare*bankroll)
	return math.Max(size, minSize)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
