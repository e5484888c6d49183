package arbitrage

import (
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() clock { return func() time.Time { return testNow } }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func market(id, question string, yes, liquidity float64) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		ID:        id,
		Question:  question,
		YesPrice:  yes,
		NoPrice:   1 - yes,
		Liquidity: liquidity,
	}
}
