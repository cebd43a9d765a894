package clickhouse

import (
	"context"
	"fmt"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// StrategyAggregateStore implements storage.StrategyAggregateStore using ClickHouse.
type StrategyAggregateStore struct {
	conn *Conn
}

// NewStrategyAggregateStore creates a new StrategyAggregateStore.
func NewStrategyAggregateStore(conn *Conn) *StrategyAggregateStore {
	return &StrategyAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)

const aggregateColumns = `
	strategy_id, profile_id, run_id,
	positions, wins, losses, win_rate,
	total_pnl, avg_pnl, median_pnl, p90_pnl,
	avg_hold_minutes, hit_2x_rate, hit_5x_rate, hit_10x_rate,
	max_consecutive_losses, fees_total, computed_at_ms`

// Insert adds a new aggregate. Returns ErrDuplicateKey if the
// (strategy_id, profile_id, run_id) key already has a row; MergeTree
// does not enforce uniqueness so the check runs before the insert.
func (s *StrategyAggregateStore) Insert(ctx context.Context, a *domain.StrategyAggregate) error {
	exists, err := s.exists(ctx, a.StrategyID, a.ProfileID, a.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO strategy_aggregates (` + aggregateColumns + `
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		a.StrategyID, a.ProfileID, a.RunID,
		a.Positions, a.Wins, a.Losses, a.WinRate,
		a.TotalPnL, a.AvgPnL, a.MedianPnL, a.P90PnL,
		a.AvgHoldMinutes, a.Hit2xRate, a.Hit5xRate, a.Hit10xRate,
		a.MaxConsecutiveLosses, a.FeesTotal, a.ComputedAtMs,
	)
	if err != nil {
		return fmt.Errorf("insert strategy aggregate: %w", err)
	}
	return nil
}

// GetByStrategyID retrieves all aggregates for a strategy, ordered by
// computed_at ASC so reruns under new profiles append at the end.
func (s *StrategyAggregateStore) GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.StrategyAggregate, error) {
	query := `
		SELECT ` + aggregateColumns + `
		FROM strategy_aggregates FINAL
		WHERE strategy_id = ?
		ORDER BY computed_at_ms ASC, profile_id ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("query by strategy: %w", err)
	}
	defer rows.Close()

	return scanStrategyAggregates(rows)
}

// exists checks if an aggregate with the given key exists.
func (s *StrategyAggregateStore) exists(ctx context.Context, strategyID, profileID, runID string) (bool, error) {
	query := `
		SELECT count(*) FROM strategy_aggregates FINAL
		WHERE strategy_id = ? AND profile_id = ? AND run_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, strategyID, profileID, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanStrategyAggregates scans multiple rows into a slice.
func scanStrategyAggregates(rows chRows) ([]*domain.StrategyAggregate, error) {
	var aggregates []*domain.StrategyAggregate

	for rows.Next() {
		var a domain.StrategyAggregate
		err := rows.Scan(
			&a.StrategyID, &a.ProfileID, &a.RunID,
			&a.Positions, &a.Wins, &a.Losses, &a.WinRate,
			&a.TotalPnL, &a.AvgPnL, &a.MedianPnL, &a.P90PnL,
			&a.AvgHoldMinutes, &a.Hit2xRate, &a.Hit5xRate, &a.Hit10xRate,
			&a.MaxConsecutiveLosses, &a.FeesTotal, &a.ComputedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		aggregates = append(aggregates, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	return aggregates, nil
}
