package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventTradeExecuted}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventOpportunityDetected, "a", ""))
	require.NoError(t, n.Notify(context.Background(), EventTradeExecuted, "b", ""))
	require.NoError(t, n.NotifyAll(context.Background(), "c", ""))

	assert.Equal(t, []string{"b", "c"}, s.titles)
}

func TestNotifier_ContinuesAfterFailure(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventTradeExecuted, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.titles, 1)
}

func TestTelegramSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Equal(t, "*Title*\nBody", body["text"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTelegramSender(srv.URL, "TOKEN", "42")
	assert.NoError(t, s.Send(context.Background(), "Title", "Body"))
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid webhook"))
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestFormatOpportunity(t *testing.T) {
	o := domain.Opportunity{
		Type:      domain.OppRelatedMarket,
		Primary:   domain.MarketRef{ID: "a", Question: "Make playoffs?", Price: 0.4},
		ProfitPct: 4,
		Direction: domain.DirectionBuyPrimary,
		Related:   &domain.RelatedMarketDetail{Secondary: domain.MarketRef{ID: "b", Question: "Win finals?", Price: 0.45}, Rule: "playoffs_implies_championship"},
	}
	title, msg := FormatOpportunity(o)
	assert.Equal(t, "Arb: related_market 4.00%", title)
	assert.Contains(t, msg, "Primary: Make playoffs? @ 0.400")
	assert.Contains(t, msg, "Leg 2: Win finals? @ 0.450")
	assert.Contains(t, msg, "Rule: playoffs_implies_championship")
}

func TestFormatExecution(t *testing.T) {
	title, msg := FormatExecution(domain.ExecutionResult{
		OpportunityType: domain.OppNegRisk,
		Status:          domain.ExecFailed,
		FailureReason:   domain.FailureLeg1,
		Size:            50,
		RealizedProfit:  -0.25,
		BankrollAfter:   999.75,
	})
	assert.Equal(t, "Paper trade FAILED: negrisk", title)
	assert.Contains(t, msg, "Reason: leg1_failed")
	assert.Contains(t, msg, "Bankroll: $999.75")
}
