package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore. The full opportunity
// is kept as JSONB next to the columns used for filtering.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)

// NewOpportunityStore creates a new OpportunityStore backed by pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Create inserts opp and returns its new ID.
func (s *OpportunityStore) Create(ctx context.Context, opp domain.Opportunity) (string, error) {
	id := opp.ID
	if id == "" {
		id = uuid.NewString()
	}
	opp.ID = id
	if opp.Status == "" {
		opp.Status = domain.OppStatusActive
	}
	payload, err := json.Marshal(opp)
	if err != nil {
		return "", fmt.Errorf("postgres: marshal opportunity: %w", err)
	}

	const query = `
		INSERT INTO opportunities (
			id, opp_key, opp_type, primary_market_id, direction,
			spread, profit_pct, confidence, status, payload, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = s.pool.Exec(ctx, query,
		id, opp.Key(), string(opp.Type), opp.Primary.ID, opp.Direction,
		opp.Spread, opp.ProfitPct, opp.Confidence, string(opp.Status), payload, opp.DetectedAt,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: insert opportunity %s: %w", opp.Key(), err)
	}
	return id, nil
}

// UpdateStatus sets the lifecycle status of an opportunity.
func (s *OpportunityStore) UpdateStatus(ctx context.Context, id string, status domain.OpportunityStatus) error {
	const query = `
		UPDATE opportunities SET
			status     = $2,
			payload    = jsonb_set(payload, '{status}', to_jsonb($2::text)),
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("postgres: update opportunity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: opportunity %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns the newest opportunities first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	const query = `
		SELECT payload FROM opportunities
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		var opp domain.Opportunity
		if err := json.Unmarshal(payload, &opp); err != nil {
			return nil, fmt.Errorf("postgres: decode opportunity: %w", err)
		}
		out = append(out, opp)
	}
	return out, rows.Err()
}
