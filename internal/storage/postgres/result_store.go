package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// InsertRun adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *ResultStore) InsertRun(ctx context.Context, run *storage.ComparisonRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO comparison_runs (
			run_id, symbol, frequency, range_start, range_end, row_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.Symbol,
		string(run.Frequency),
		run.Start,
		run.End,
		run.Rows,
		run.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert comparison run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetRun(ctx context.Context, runID string) (*storage.ComparisonRun, error) {
	query := `
		SELECT run_id, symbol, frequency, range_start, range_end, row_count, created_at
		FROM comparison_runs
		WHERE run_id = $1
	`

	var run storage.ComparisonRun
	var freq string
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.RunID, &run.Symbol, &freq, &run.Start, &run.End, &run.Rows, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get comparison run: %w", err)
	}
	run.Frequency = domain.Frequency(freq)
	return &run, nil
}

// InsertResults adds the results of a run in batch order.
func (s *ResultStore) InsertResults(ctx context.Context, runID string, results []domain.SimulationResult) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	query := `
		INSERT INTO simulation_results (
			run_id, position, strategy_id, strategy_name, kind,
			total_invested, current_value, units_held, avg_buy_price,
			absolute_return, return_pct, xirr, xirr_valid,
			parked_remaining, num_deployments, warnings,
			failed, failure_reason
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, r := range results {
		var xirrVal *float64
		if r.XIRRValid {
			v := r.XIRR
			xirrVal = &v
		}
		_, err := tx.Exec(ctx, query,
			runID, i, r.StrategyID, r.StrategyName, string(r.Kind),
			r.TotalInvested, r.CurrentValue, r.UnitsHeld, r.AvgBuyPrice,
			r.AbsoluteReturn, r.ReturnPct, xirrVal, r.XIRRValid,
			r.ParkedRemaining, r.NumDeployments, r.Warnings,
			r.Failed, r.FailureReason,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// GetResults retrieves all results for a run in insertion order.
func (s *ResultStore) GetResults(ctx context.Context, runID string) ([]domain.SimulationResult, error) {
	query := `
		SELECT strategy_id, strategy_name, kind,
			total_invested, current_value, units_held, avg_buy_price,
			absolute_return, return_pct, xirr, xirr_valid,
			parked_remaining, num_deployments, warnings,
			failed, failure_reason
		FROM simulation_results
		WHERE run_id = $1
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	defer rows.Close()

	var results []domain.SimulationResult
	for rows.Next() {
		var r domain.SimulationResult
		var kind string
		var xirrVal *float64
		err := rows.Scan(
			&r.StrategyID, &r.StrategyName, &kind,
			&r.TotalInvested, &r.CurrentValue, &r.UnitsHeld, &r.AvgBuyPrice,
			&r.AbsoluteReturn, &r.ReturnPct, &xirrVal, &r.XIRRValid,
			&r.ParkedRemaining, &r.NumDeployments, &r.Warnings,
			&r.Failed, &r.FailureReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Kind = domain.Kind(kind)
		if xirrVal != nil {
			r.XIRR = *xirrVal
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	if len(results) == 0 {
		return nil, storage.ErrNotFound
	}
	return results, nil
}
