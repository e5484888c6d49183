package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordProfit(t *testing.T) {
	profit := counterValue(t, RealizedProfit)
	loss := counterValue(t, RealizedLoss)

	RecordProfit(2.5)
	RecordProfit(-1.25)

	assert.InDelta(t, profit+2.5, counterValue(t, RealizedProfit), 1e-9)
	assert.InDelta(t, loss+1.25, counterValue(t, RealizedLoss), 1e-9)
}

func TestHandlerExposesCollectors(t *testing.T) {
	CyclesTotal.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "polyarb_engine_cycles_total"))
}
