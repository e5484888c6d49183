package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// multipartThreshold is the batch size above which executions are uploaded
// in parts.
const multipartThreshold = 8 * 1024 * 1024

// ReportArchiver writes execution batches as JSONL and performance snapshots
// as JSON, partitioned by UTC date:
//
//	reports/2026-10-18/executions-20261018T150405Z.jsonl
//	reports/2026-10-18/stats-20261018T150405Z.json
type ReportArchiver struct {
	writer domain.BlobWriter
	logger *slog.Logger
}

// NewReportArchiver creates a ReportArchiver over writer.
func NewReportArchiver(writer domain.BlobWriter, logger *slog.Logger) *ReportArchiver {
	return &ReportArchiver{
		writer: writer,
		logger: logger.With(slog.String("component", "s3_reports")),
	}
}

// WriteReport uploads the batch (skipped when empty) and then the stats
// snapshot.
func (r *ReportArchiver) WriteReport(ctx context.Context, at time.Time, executions []domain.ExecutionResult, stats any) error {
	if len(executions) > 0 {
		buf, err := marshalJSONL(executions)
		if err != nil {
			return fmt.Errorf("s3blob: marshal executions: %w", err)
		}
		path := reportPath(at, "executions", "jsonl")
		if len(buf) > multipartThreshold {
			err = r.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
		} else {
			err = r.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
		}
		if err != nil {
			return fmt.Errorf("s3blob: upload executions: %w", err)
		}
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal stats: %w", err)
	}
	path := reportPath(at, "stats", "json")
	if err := r.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: upload stats: %w", err)
	}

	r.logger.DebugContext(ctx, "report uploaded",
		slog.String("stats_path", path),
		slog.Int("executions", len(executions)),
	)
	return nil
}

func reportPath(at time.Time, kind, ext string) string {
	at = at.UTC()
	return fmt.Sprintf("reports/%s/%s-%s.%s", at.Format(time.DateOnly), kind, at.Format("20060102T150405Z"), ext)
}

// marshalJSONL encodes each record as one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
