package storage

import (
	"context"

	"solana-strategy-tester/internal/domain"
)

// PriceSeriesStore provides access to price_series storage.
type PriceSeriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (contract_address, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByContract retrieves all points for a contract, ordered by timestamp ASC.
	GetByContract(ctx context.Context, contractAddress string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a contract within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, contractAddress string, start, end int64) ([]*domain.PricePoint, error)
}

// BlueprintStore provides access to trade_blueprints storage.
type BlueprintStore interface {
	// Insert adds a new blueprint. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, b *domain.TradeBlueprint) error

	// InsertBulk adds multiple blueprints atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, blueprints []*domain.TradeBlueprint) error

	// GetBySignalID retrieves a blueprint by signal_id. Returns ErrNotFound if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.TradeBlueprint, error)

	// GetByStrategyID retrieves all blueprints for a strategy, ordered by entry_time ASC.
	GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.TradeBlueprint, error)
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// InsertBulk adds the positions of one replay run atomically.
	// Fails entire batch on any duplicate (run_id, position_id).
	InsertBulk(ctx context.Context, runID string, positions []*domain.Position) error

	// GetByRunID retrieves all positions of a run, ordered by entry_time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Position, error)

	// GetByID retrieves one position of a run. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID, positionID string) (*domain.Position, error)
}

// EventStore provides access to portfolio_events storage.
type EventStore interface {
	// InsertBulk adds the event ledger of one replay run atomically,
	// preserving seq order. Fails entire batch on any duplicate event_id.
	InsertBulk(ctx context.Context, runID string, events []*domain.PortfolioEvent) error

	// GetByRunID retrieves the full ledger of a run, ordered by seq ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.PortfolioEvent, error)

	// GetByPositionID retrieves a position's events within a run, ordered by seq ASC.
	GetByPositionID(ctx context.Context, runID, positionID string) ([]*domain.PortfolioEvent, error)
}

// ReplayRunStore provides access to replay_runs storage.
type ReplayRunStore interface {
	// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ReplayRun) error

	// GetByID retrieves a run summary. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ReplayRun, error)

	// GetByStrategyID retrieves all runs for a strategy, ordered by created_at ASC.
	GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.ReplayRun, error)
}

// EquityCurveStore provides access to equity_curve analytics storage.
type EquityCurveStore interface {
	// InsertBulk adds the equity curve of one replay run.
	InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) error

	// GetByRunID retrieves the curve of a run, ordered by timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}

// StrategyAggregateStore provides access to strategy_aggregates analytics storage.
type StrategyAggregateStore interface {
	// Insert adds a computed aggregate row.
	Insert(ctx context.Context, a *domain.StrategyAggregate) error

	// GetByStrategyID retrieves all aggregates for a strategy, ordered by computed_at ASC.
	GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.StrategyAggregate, error)
}
