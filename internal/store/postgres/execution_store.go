package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore with an executions table
// and one execution_legs row per leg.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

var _ domain.ExecutionStore = (*ExecutionStore)(nil)

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// primaryMarket is the market resolution is tracked against: the first leg.
func primaryMarket(res domain.ExecutionResult) string {
	if len(res.Legs) == 0 {
		return ""
	}
	return res.Legs[0].MarketID
}

// Create inserts an execution and its legs in one transaction.
func (s *ExecutionStore) Create(ctx context.Context, res domain.ExecutionResult) (string, error) {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oppID *string
	if res.OpportunityID != "" {
		oppID = &res.OpportunityID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO executions (
			id, opportunity_id, opportunity_key, opportunity_type, primary_market_id,
			status, failure_reason, size, kelly_fraction, fees, slippage_cost,
			expected_profit, realized_profit, fill_ratio, bankroll_after,
			started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		res.ID, oppID, res.OpportunityKey, string(res.OpportunityType), primaryMarket(res),
		string(res.Status), res.FailureReason, res.Size, res.KellyFraction, res.Fees, res.SlippageCost,
		res.ExpectedProfit, res.RealizedProfit, res.FillRatio, res.BankrollAfter,
		res.StartedAt, res.CompletedAt,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: insert execution: %w", err)
	}

	batch := &pgx.Batch{}
	for i, leg := range res.Legs {
		batch.Queue(`
			INSERT INTO execution_legs (
				execution_id, leg_index, market_id, outcome, side, requested_size,
				filled_size, expected_price, executed_price, slippage_bps, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			res.ID, i, leg.MarketID, string(leg.Outcome), string(leg.Side), leg.RequestedSize,
			leg.FilledSize, leg.ExpectedPrice, leg.ExecutedPrice, leg.SlippageBps, string(leg.Status),
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return "", fmt.Errorf("postgres: insert execution legs: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("postgres: commit execution: %w", err)
	}
	return res.ID, nil
}

const executionSelectCols = `id, COALESCE(opportunity_id, ''), opportunity_key, opportunity_type,
	status, failure_reason, size, kelly_fraction, fees, slippage_cost,
	expected_profit, realized_profit, fill_ratio, bankroll_after, started_at, completed_at`

// ListRecent returns the newest executions with their legs.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+executionSelectCols+` FROM executions ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanExecution)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan executions: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	index := make(map[string]int, len(out))
	ids := make([]string, len(out))
	for i, r := range out {
		index[r.ID] = i
		ids[i] = r.ID
	}
	legRows, err := s.pool.Query(ctx, `
		SELECT execution_id, market_id, outcome, side, requested_size, filled_size,
			expected_price, executed_price, slippage_bps, status
		FROM execution_legs
		WHERE execution_id = ANY($1)
		ORDER BY execution_id, leg_index`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: list execution legs: %w", err)
	}
	defer legRows.Close()
	for legRows.Next() {
		var (
			execID                string
			leg                   domain.ExecutionLeg
			outcome, side, status string
		)
		if err := legRows.Scan(&execID, &leg.MarketID, &outcome, &side, &leg.RequestedSize,
			&leg.FilledSize, &leg.ExpectedPrice, &leg.ExecutedPrice, &leg.SlippageBps, &status); err != nil {
			return nil, fmt.Errorf("postgres: scan execution leg: %w", err)
		}
		leg.Outcome, leg.Side, leg.Status = domain.Outcome(outcome), domain.Side(side), domain.LegStatus(status)
		i := index[execID]
		out[i].Legs = append(out[i].Legs, leg)
	}
	return out, legRows.Err()
}

func scanExecution(row pgx.CollectableRow) (domain.ExecutionResult, error) {
	var (
		r             domain.ExecutionResult
		oppType, stat string
	)
	err := row.Scan(&r.ID, &r.OpportunityID, &r.OpportunityKey, &oppType,
		&stat, &r.FailureReason, &r.Size, &r.KellyFraction, &r.Fees, &r.SlippageCost,
		&r.ExpectedProfit, &r.RealizedProfit, &r.FillRatio, &r.BankrollAfter, &r.StartedAt, &r.CompletedAt)
	r.OpportunityType = domain.OpportunityType(oppType)
	r.Status = domain.ExecutionStatus(stat)
	return r, err
}

// ListUnresolved returns completed executions whose primary market has no
// recorded resolution, oldest first.
func (s *ExecutionStore) ListUnresolved(ctx context.Context, limit int) ([]domain.UnresolvedExecution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, primary_market_id, completed_at
		FROM executions
		WHERE NOT resolved AND status = 'complete' AND primary_market_id <> ''
		ORDER BY completed_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unresolved executions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.UnresolvedExecution, error) {
		var u domain.UnresolvedExecution
		err := row.Scan(&u.ExecutionID, &u.MarketID, &u.CompletedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan unresolved executions: %w", err)
	}
	return out, nil
}

// MarkResolved records the market outcome on an execution.
func (s *ExecutionStore) MarkResolved(ctx context.Context, id string, res domain.Resolution) error {
	resolvedAt := res.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE executions SET
			resolved     = TRUE,
			resolved_yes = $2,
			resolved_at  = $3
		WHERE id = $1`, id, res.YesWon, resolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: mark execution %s resolved: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: execution %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
