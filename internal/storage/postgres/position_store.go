package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
// Rows are scoped by run_id; the fills ledger and reset flags live in
// the meta JSONB column.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionInsertQuery = `
	INSERT INTO positions (
		run_id, position_id, signal_id, strategy_id, contract_address,
		entry_time_ms, entry_price_raw, entry_price, size, status, meta,
		exit_time_ms, exit_price, exit_reason, pnl, pnl_pct, fees_total
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17
	)
`

const positionSelectColumns = `
	position_id, signal_id, strategy_id, contract_address,
	entry_time_ms, entry_price_raw, entry_price, size, status, meta,
	exit_time_ms, exit_price, exit_reason, pnl, pnl_pct, fees_total
`

// InsertBulk adds the positions of one replay run atomically. Fails
// entire batch on any duplicate (run_id, position_id).
func (s *PositionStore) InsertBulk(ctx context.Context, runID string, positions []*domain.Position) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range positions {
		meta, err := json.Marshal(p.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta of position %s: %w", p.PositionID, err)
		}

		_, err = tx.Exec(ctx, positionInsertQuery,
			runID, p.PositionID, p.SignalID, p.StrategyID, p.ContractAddress,
			p.EntryTimeMs, p.EntryPriceRaw, p.EntryPrice, p.Size, p.Status, meta,
			p.ExitTimeMs, p.ExitPrice, p.ExitReason, p.PnL, p.PnLPct, p.FeesTotal,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert position in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all positions of a run, ordered by entry_time ASC.
func (s *PositionStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionSelectColumns + `
		FROM positions
		WHERE run_id = $1
		ORDER BY entry_time_ms ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get positions by run id: %w", err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}

// GetByID retrieves one position of a run. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, runID, positionID string) (*domain.Position, error) {
	query := `
		SELECT ` + positionSelectColumns + `
		FROM positions
		WHERE run_id = $1 AND position_id = $2
	`

	row := s.pool.QueryRow(ctx, query, runID, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var meta []byte

	err := row.Scan(
		&p.PositionID, &p.SignalID, &p.StrategyID, &p.ContractAddress,
		&p.EntryTimeMs, &p.EntryPriceRaw, &p.EntryPrice, &p.Size, &p.Status, &meta,
		&p.ExitTimeMs, &p.ExitPrice, &p.ExitReason, &p.PnL, &p.PnLPct, &p.FeesTotal,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(meta, &p.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta of position %s: %w", p.PositionID, err)
	}
	return &p, nil
}
