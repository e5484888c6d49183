package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// FileSource reads snapshots from a JSON array on disk on every Fetch, so
// the file can be edited while the process runs.
type FileSource struct {
	path string
}

var _ domain.MarketSource = (*FileSource)(nil)

// NewFileSource creates a FileSource.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

// fileMarket is the on-disk shape of a snapshot.
type fileMarket struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Category  string     `json:"category"`
	Slug      string     `json:"slug"`
	YesPrice  float64    `json:"yes_price"`
	NoPrice   float64    `json:"no_price"`
	Liquidity float64    `json:"liquidity"`
	Volume    float64    `json:"volume"`
	CloseTime *time.Time `json:"close_time"`
	EventID   string     `json:"event_id"`
	NegRisk   bool       `json:"neg_risk"`
}

// Fetch decodes the file. A missing NoPrice defaults to 1 - YesPrice.
func (s *FileSource) Fetch(ctx context.Context) ([]domain.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("feed: read %s: %w", s.path, err)
	}
	var raw []fileMarket
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("feed: decode %s: %w", s.path, err)
	}

	out := make([]domain.MarketSnapshot, 0, len(raw))
	for _, m := range raw {
		if m.ID == "" {
			continue
		}
		no := m.NoPrice
		if no == 0 && m.YesPrice > 0 {
			no = 1 - m.YesPrice
		}
		out = append(out, domain.MarketSnapshot{
			ID:        m.ID,
			Question:  m.Question,
			Category:  m.Category,
			Slug:      m.Slug,
			YesPrice:  m.YesPrice,
			NoPrice:   no,
			Liquidity: m.Liquidity,
			Volume:    m.Volume,
			CloseTime: m.CloseTime,
			EventID:   m.EventID,
			NegRisk:   m.NegRisk,
		})
	}
	return out, nil
}
