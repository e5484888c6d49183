// Package feed supplies market snapshots to the detection cycle.
package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/platform/polymarket"
)

// MarketLister is the slice of the Gamma client a GammaSource needs.
type MarketLister interface {
	GetMarkets(ctx context.Context, limit, offset int) ([]polymarket.APIMarket, error)
}

// GammaSource pages the Gamma markets endpoint into snapshots.
type GammaSource struct {
	client     MarketLister
	pageSize   int
	maxMarkets int
	logger     *slog.Logger
}

var _ domain.MarketSource = (*GammaSource)(nil)

// NewGammaSource creates a GammaSource. maxMarkets <= 0 means no cap.
func NewGammaSource(client MarketLister, pageSize, maxMarkets int, logger *slog.Logger) *GammaSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &GammaSource{
		client:     client,
		pageSize:   pageSize,
		maxMarkets: maxMarkets,
		logger:     logger.With(slog.String("component", "gamma_source")),
	}
}

func (s *GammaSource) Name() string { return "gamma" }

// Fetch pages until a short page or the market cap. Markets that are not
// binary or carry no prices are dropped.
func (s *GammaSource) Fetch(ctx context.Context) ([]domain.MarketSnapshot, error) {
	var out []domain.MarketSnapshot
	seen := make(map[string]bool)
	skipped := 0
	for offset := 0; ; offset += s.pageSize {
		page, err := s.client.GetMarkets(ctx, s.pageSize, offset)
		if err != nil {
			if len(out) > 0 && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "market page failed, using partial set",
					slog.Int("offset", offset),
					slog.Int("markets", len(out)),
					slog.String("error", err.Error()),
				)
				break
			}
			return nil, fmt.Errorf("feed: gamma offset %d: %w", offset, err)
		}
		for i := range page {
			snap, ok := page[i].ToSnapshot()
			if !ok || seen[snap.ID] {
				skipped++
				continue
			}
			seen[snap.ID] = true
			out = append(out, snap)
			if s.maxMarkets > 0 && len(out) >= s.maxMarkets {
				return out, nil
			}
		}
		if len(page) < s.pageSize {
			break
		}
	}

	s.logger.DebugContext(ctx, "markets fetched",
		slog.Int("markets", len(out)),
		slog.Int("skipped", skipped),
	)
	return out, nil
}
