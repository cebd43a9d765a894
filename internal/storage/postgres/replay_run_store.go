package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// ReplayRunStore implements storage.ReplayRunStore using PostgreSQL.
type ReplayRunStore struct {
	pool *Pool
}

// NewReplayRunStore creates a new ReplayRunStore.
func NewReplayRunStore(pool *Pool) *ReplayRunStore {
	return &ReplayRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReplayRunStore = (*ReplayRunStore)(nil)

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *ReplayRunStore) Insert(ctx context.Context, r *domain.ReplayRun) error {
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats of run %s: %w", r.RunID, err)
	}

	query := `
		INSERT INTO replay_runs (run_id, strategy_id, profile_id, blueprint_count, stats, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.StrategyID, r.ProfileID, r.BlueprintCount, stats, r.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert replay run: %w", err)
	}
	return nil
}

// GetByID retrieves a run summary. Returns ErrNotFound if not exists.
func (s *ReplayRunStore) GetByID(ctx context.Context, runID string) (*domain.ReplayRun, error) {
	query := `
		SELECT run_id, strategy_id, profile_id, blueprint_count, stats, created_at_ms
		FROM replay_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanReplayRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get replay run by id: %w", err)
	}
	return r, nil
}

// GetByStrategyID retrieves all runs for a strategy, ordered by created_at ASC.
func (s *ReplayRunStore) GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.ReplayRun, error) {
	query := `
		SELECT run_id, strategy_id, profile_id, blueprint_count, stats, created_at_ms
		FROM replay_runs
		WHERE strategy_id = $1
		ORDER BY created_at_ms ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get replay runs by strategy id: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ReplayRun
	for rows.Next() {
		r, err := scanReplayRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan replay run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replay run rows: %w", err)
	}

	return runs, nil
}

// scanReplayRun scans a single row into a ReplayRun.
func scanReplayRun(row pgx.Row) (*domain.ReplayRun, error) {
	var r domain.ReplayRun
	var stats []byte

	err := row.Scan(&r.RunID, &r.StrategyID, &r.ProfileID, &r.BlueprintCount, &stats, &r.CreatedAtMs)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stats, &r.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats of run %s: %w", r.RunID, err)
	}
	return &r, nil
}
