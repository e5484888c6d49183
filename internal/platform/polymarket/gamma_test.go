package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const marketsPage = `[
  {"id":"1","question":"Will BTC hit $100k?","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.62\",\"0.40\"]",
   "liquidity":"25000.5","volume":12000,"endDate":"2026-12-31T00:00:00Z","active":true,"closed":false,
   "events":[{"id":"ev9","negRisk":true,"category":"Crypto"}]},
  {"id":"2","question":"Three way","outcomes":"[\"A\",\"B\",\"C\"]","outcomePrices":"[\"0.3\",\"0.3\",\"0.4\"]"}
]`

func TestGammaClient_GetMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		w.Write([]byte(marketsPage))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	markets, err := g.GetMarkets(context.Background(), 100, 0)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	snap, ok := markets[0].ToSnapshot()
	require.True(t, ok)
	assert.Equal(t, "1", snap.ID)
	assert.InDelta(t, 0.62, snap.YesPrice, 1e-12)
	assert.InDelta(t, 0.40, snap.NoPrice, 1e-12)
	assert.InDelta(t, 25000.5, snap.Liquidity, 1e-9)
	assert.InDelta(t, 12000, snap.Volume, 1e-9)
	assert.Equal(t, "ev9", snap.EventID)
	assert.True(t, snap.NegRisk)
	assert.Equal(t, "Crypto", snap.Category)
	require.NotNil(t, snap.CloseTime)
	assert.Equal(t, 2026, snap.CloseTime.Year())

	_, ok = markets[1].ToSnapshot()
	assert.False(t, ok)
}

func TestAPIMarket_PricesFollowOutcomeOrder(t *testing.T) {
	m := APIMarket{Outcomes: `["No","Yes"]`, OutcomePrices: `["0.7","0.3"]`}
	yes, no, ok := m.Prices()
	require.True(t, ok)
	assert.InDelta(t, 0.3, yes, 1e-12)
	assert.InDelta(t, 0.7, no, 1e-12)
}

func TestGammaClient_Resolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/won":
			w.Write([]byte(`{"id":"won","closed":true,"outcomePrices":"[\"1\",\"0\"]","closedTime":"2026-03-01 12:00:00+00"}`))
		case "/markets/token":
			w.Write([]byte(`{"id":"token","closed":"true","tokens":[{"outcome":"Yes","winner":true}]}`))
		case "/markets/open":
			w.Write([]byte(`{"id":"open","closed":false,"outcomePrices":"[\"0.5\",\"0.5\"]"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	g := NewGammaClient(srv.URL, time.Second)
	ctx := context.Background()

	res, err := g.Resolution(ctx, "won")
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.True(t, res.YesWon)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), res.ResolvedAt)

	res, err = g.Resolution(ctx, "token")
	require.NoError(t, err)
	assert.True(t, res.YesWon)

	res, err = g.Resolution(ctx, "open")
	require.NoError(t, err)
	assert.False(t, res.Closed)

	_, err = g.Resolution(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckHTTPStatus(t *testing.T) {
	assert.NoError(t, checkHTTPStatus(http.StatusOK, nil))
	assert.ErrorIs(t, checkHTTPStatus(http.StatusTooManyRequests, []byte("slow")), domain.ErrRateLimited)
	assert.EqualError(t, checkHTTPStatus(http.StatusBadGateway, []byte("oops")), "HTTP 502: oops")
}
