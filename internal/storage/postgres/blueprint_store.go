package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// BlueprintStore implements storage.BlueprintStore using PostgreSQL.
// Ladder structure (partial exits, final exit) is stored as JSONB.
type BlueprintStore struct {
	pool *Pool
}

// NewBlueprintStore creates a new BlueprintStore.
func NewBlueprintStore(pool *Pool) *BlueprintStore {
	return &BlueprintStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BlueprintStore = (*BlueprintStore)(nil)

const blueprintInsertQuery = `
	INSERT INTO trade_blueprints (
		signal_id, strategy_id, contract_address,
		entry_time_ms, entry_price_raw,
		partial_exits, final_exit, realized_multiple
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Insert adds a new blueprint. Returns ErrDuplicateKey if signal_id exists.
func (s *BlueprintStore) Insert(ctx context.Context, b *domain.TradeBlueprint) error {
	partials, finalExit, err := marshalLadder(b)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, blueprintInsertQuery,
		b.SignalID, b.StrategyID, b.ContractAddress,
		b.EntryTimeMs, b.EntryPriceRaw,
		partials, finalExit, b.RealizedMultiple,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert blueprint: %w", err)
	}
	return nil
}

// InsertBulk adds multiple blueprints atomically. Fails entire batch on any duplicate.
func (s *BlueprintStore) InsertBulk(ctx context.Context, blueprints []*domain.TradeBlueprint) error {
	if len(blueprints) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range blueprints {
		partials, finalExit, err := marshalLadder(b)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, blueprintInsertQuery,
			b.SignalID, b.StrategyID, b.ContractAddress,
			b.EntryTimeMs, b.EntryPriceRaw,
			partials, finalExit, b.RealizedMultiple,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert blueprint in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySignalID retrieves a blueprint by signal_id. Returns ErrNotFound if not exists.
func (s *BlueprintStore) GetBySignalID(ctx context.Context, signalID string) (*domain.TradeBlueprint, error) {
	query := `
		SELECT
			signal_id, strategy_id, contract_address,
			entry_time_ms, entry_price_raw,
			partial_exits, final_exit, realized_multiple
		FROM trade_blueprints
		WHERE signal_id = $1
	`

	row := s.pool.QueryRow(ctx, query, signalID)
	b, err := scanBlueprint(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get blueprint by signal id: %w", err)
	}
	return b, nil
}

// GetByStrategyID retrieves all blueprints for a strategy, ordered by entry_time ASC.
func (s *BlueprintStore) GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.TradeBlueprint, error) {
	query := `
		SELECT
			signal_id, strategy_id, contract_address,
			entry_time_ms, entry_price_raw,
			partial_exits, final_exit, realized_multiple
		FROM trade_blueprints
		WHERE strategy_id = $1
		ORDER BY entry_time_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get blueprints by strategy id: %w", err)
	}
	defer rows.Close()

	var blueprints []*domain.TradeBlueprint
	for rows.Next() {
		b, err := scanBlueprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blueprint row: %w", err)
		}
		blueprints = append(blueprints, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blueprint rows: %w", err)
	}

	return blueprints, nil
}

// marshalLadder serializes the blueprint's ladder columns. A nil final
// exit becomes SQL NULL.
func marshalLadder(b *domain.TradeBlueprint) ([]byte, []byte, error) {
	partials, err := json.Marshal(b.PartialExits)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal partial exits of %s: %w", b.SignalID, err)
	}

	var finalExit []byte
	if b.FinalExit != nil {
		finalExit, err = json.Marshal(b.FinalExit)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal final exit of %s: %w", b.SignalID, err)
		}
	}
	return partials, finalExit, nil
}

// scanBlueprint scans a single row into a TradeBlueprint.
func scanBlueprint(row pgx.Row) (*domain.TradeBlueprint, error) {
	var b domain.TradeBlueprint
	var partials, finalExit []byte

	err := row.Scan(
		&b.SignalID, &b.StrategyID, &b.ContractAddress,
		&b.EntryTimeMs, &b.EntryPriceRaw,
		&partials, &finalExit, &b.RealizedMultiple,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(partials, &b.PartialExits); err != nil {
		return nil, fmt.Errorf("unmarshal partial exits of %s: %w", b.SignalID, err)
	}
	if finalExit != nil {
		b.FinalExit = &domain.PlannedFinalExit{}
		if err := json.Unmarshal(finalExit, b.FinalExit); err != nil {
			return nil, fmt.Errorf("unmarshal final exit of %s: %w", b.SignalID, err)
		}
	}
	return &b, nil
}
