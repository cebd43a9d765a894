package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL. The
// execution payload is stored as JSONB; NULL marks reset events, which
// carry none.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventInsertQuery = `
	INSERT INTO portfolio_events (
		event_id, run_id, seq, timestamp_ms, event_type,
		strategy_id, signal_id, contract_address, position_id,
		reason, execution, reset_closed_count
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const eventSelectColumns = `
	event_id, seq, timestamp_ms, event_type,
	strategy_id, signal_id, contract_address, position_id,
	reason, execution, reset_closed_count
`

// InsertBulk adds the event ledger of one replay run atomically,
// preserving seq order. Fails entire batch on any duplicate event_id.
func (s *EventStore) InsertBulk(ctx context.Context, runID string, events []*domain.PortfolioEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ev := range events {
		var execution []byte
		if ev.Execution != nil {
			execution, err = json.Marshal(ev.Execution)
			if err != nil {
				return fmt.Errorf("marshal execution of event %s: %w", ev.EventID, err)
			}
		}

		_, err = tx.Exec(ctx, eventInsertQuery,
			ev.EventID, runID, ev.Seq, ev.TimestampMs, ev.Type,
			ev.StrategyID, ev.SignalID, ev.ContractAddress, ev.PositionID,
			ev.Reason, execution, ev.ResetClosedCount,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves the full ledger of a run, ordered by seq ASC.
func (s *EventStore) GetByRunID(ctx context.Context, runID string) ([]*domain.PortfolioEvent, error) {
	query := `
		SELECT ` + eventSelectColumns + `
		FROM portfolio_events
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get events by run id: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByPositionID retrieves a position's events within a run, ordered by seq ASC.
func (s *EventStore) GetByPositionID(ctx context.Context, runID, positionID string) ([]*domain.PortfolioEvent, error) {
	query := `
		SELECT ` + eventSelectColumns + `
		FROM portfolio_events
		WHERE run_id = $1 AND position_id = $2
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, positionID)
	if err != nil {
		return nil, fmt.Errorf("get events by position id: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// scanEvents scans multiple rows into a slice of PortfolioEvent.
func scanEvents(rows pgx.Rows) ([]*domain.PortfolioEvent, error) {
	var events []*domain.PortfolioEvent

	for rows.Next() {
		var ev domain.PortfolioEvent
		var execution []byte

		err := rows.Scan(
			&ev.EventID, &ev.Seq, &ev.TimestampMs, &ev.Type,
			&ev.StrategyID, &ev.SignalID, &ev.ContractAddress, &ev.PositionID,
			&ev.Reason, &execution, &ev.ResetClosedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		if execution != nil {
			ev.Execution = &domain.ExecutionDetail{}
			if err := json.Unmarshal(execution, ev.Execution); err != nil {
				return nil, fmt.Errorf("unmarshal execution of event %s: %w", ev.EventID, err)
			}
		}

		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
