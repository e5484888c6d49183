package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	m.types[path] = contentType
	return nil
}

func (m *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(ctx, path, data, "multipart")
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var reportTime = time.Date(2026, 10, 18, 15, 4, 5, 0, time.UTC)

func TestReportArchiver_WritesBatchAndStats(t *testing.T) {
	w := newMemWriter()
	a := NewReportArchiver(w, discard())

	execs := []domain.ExecutionResult{
		{ID: "e1", OpportunityKey: "multi_outcome_spread:m1"},
		{ID: "e2", OpportunityKey: "neg_risk:ev1"},
	}
	require.NoError(t, a.WriteReport(context.Background(), reportTime, execs, map[string]float64{"bankroll": 1003.97}))

	batch := w.objects["reports/2026-10-18/executions-20261018T150405Z.jsonl"]
	require.NotNil(t, batch)
	lines := strings.Split(strings.TrimSpace(string(batch)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"e1"`)
	assert.Equal(t, "application/x-ndjson", w.types["reports/2026-10-18/executions-20261018T150405Z.jsonl"])

	stats := w.objects["reports/2026-10-18/stats-20261018T150405Z.json"]
	assert.JSONEq(t, `{"bankroll":1003.97}`, string(stats))
}

func TestReportArchiver_EmptyBatchWritesStatsOnly(t *testing.T) {
	w := newMemWriter()
	a := NewReportArchiver(w, discard())

	require.NoError(t, a.WriteReport(context.Background(), reportTime, nil, map[string]int{"trades": 0}))

	assert.Len(t, w.objects, 1)
	assert.Contains(t, w.objects, "reports/2026-10-18/stats-20261018T150405Z.json")
}

func TestReportArchiver_UploadError(t *testing.T) {
	w := newMemWriter()
	w.err = errors.New("bucket gone")
	a := NewReportArchiver(w, discard())

	err := a.WriteReport(context.Background(), reportTime, []domain.ExecutionResult{{ID: "e1"}}, nil)
	assert.ErrorContains(t, err, "bucket gone")
}

func TestReportPath_UsesUTC(t *testing.T) {
	local := time.Date(2026, 10, 18, 1, 0, 0, 0, time.FixedZone("X", 3*3600))
	assert.Equal(t, "reports/2026-10-17/stats-20261017T220000Z.json", reportPath(local, "stats", "json"))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "reports/a.json", "reports/a.json"},
		{"polyarb", "reports/a.json", "polyarb/reports/a.json"},
		{"/polyarb/", "/reports/a.json", "polyarb/reports/a.json"},
	}
	for _, tt := range tests {
		c := &Client{prefix: normalisePrefix(tt.prefix)}
		assert.Equal(t, tt.want, c.Key(tt.path))
	}
}

func TestMarshalJSONL_NoHTMLEscaping(t *testing.T) {
	out, err := marshalJSONL([]map[string]string{{"q": "a<b"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(out, []byte("\n")))
	assert.Contains(t, string(out), "a<b")
}
