package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/platform/polymarket"
)

type pagedLister struct {
	total    int
	failing  bool
	failFrom int
	offsets  []int
}

func (p *pagedLister) GetMarkets(_ context.Context, limit, offset int) ([]polymarket.APIMarket, error) {
	p.offsets = append(p.offsets, offset)
	if p.failing && offset >= p.failFrom {
		return nil, errors.New("gateway timeout")
	}
	var out []polymarket.APIMarket
	for i := offset; i < offset+limit && i < p.total; i++ {
		out = append(out, polymarket.APIMarket{
			ID:            fmt.Sprintf("m%d", i),
			Question:      fmt.Sprintf("Question %d?", i),
			Outcomes:      `["Yes","No"]`,
			OutcomePrices: `["0.4","0.6"]`,
		})
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGammaSource_Pages(t *testing.T) {
	l := &pagedLister{total: 25}
	src := NewGammaSource(l, 10, 0, discardLogger())

	snaps, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Len(t, snaps, 25)
	assert.Equal(t, []int{0, 10, 20}, l.offsets)
}

func TestGammaSource_Cap(t *testing.T) {
	l := &pagedLister{total: 100}
	snaps, err := NewGammaSource(l, 10, 15, discardLogger()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 15)
	assert.Equal(t, []int{0, 10}, l.offsets)
}

func TestGammaSource_PartialOnLaterFailure(t *testing.T) {
	l := &pagedLister{total: 100, failing: true, failFrom: 20}
	snaps, err := NewGammaSource(l, 10, 0, discardLogger()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 20)
}

func TestGammaSource_FirstPageFailure(t *testing.T) {
	l := &pagedLister{total: 100, failing: true}
	_, err := NewGammaSource(l, 10, 0, discardLogger()).Fetch(context.Background())
	assert.ErrorContains(t, err, "gateway timeout")
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"a","question":"Will it rain?","yes_price":0.3,"liquidity":1000},
		{"id":"b","question":"Will it snow?","yes_price":0.2,"no_price":0.75,"event_id":"weather","neg_risk":true},
		{"question":"no id"}
	]`), 0o600))

	snaps, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.InDelta(t, 0.7, snaps[0].NoPrice, 1e-12)
	assert.InDelta(t, 0.75, snaps[1].NoPrice, 1e-12)
	assert.Equal(t, "weather", snaps[1].EventID)
	assert.True(t, snaps[1].NegRisk)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Fetch(context.Background())
	assert.Error(t, err)
}
