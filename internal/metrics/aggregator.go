package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// ErrNoPositions is returned when no closed positions are available for aggregation.
var ErrNoPositions = errors.New("no closed positions available for aggregation")

// Aggregator computes strategy aggregates from the positions of a replay run.
type Aggregator struct {
	positionStore storage.PositionStore
	runStore      storage.ReplayRunStore
	aggStore      storage.StrategyAggregateStore

	// now supplies ComputedAtMs. Overridable in tests.
	now func() int64
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(positionStore storage.PositionStore, runStore storage.ReplayRunStore, aggStore storage.StrategyAggregateStore) *Aggregator {
	return &Aggregator{
		positionStore: positionStore,
		runStore:      runStore,
		aggStore:      aggStore,
		now:           func() int64 { return time.Now().UnixMilli() },
	}
}

// ComputeAggregate computes the aggregate for one replay run. Loads the
// run summary for the (strategy_id, profile_id) key, loads the run's
// positions, keeps only closed ones, computes all metrics.
// Returns ErrNoPositions if the run closed no positions.
func (a *Aggregator) ComputeAggregate(ctx context.Context, runID string) (*domain.StrategyAggregate, error) {
	run, err := a.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	positions, err := a.positionStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load positions of run %s: %w", runID, err)
	}

	closed := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		if p.Status == domain.PositionClosed {
			closed = append(closed, p)
		}
	}
	if len(closed) == 0 {
		return nil, ErrNoPositions
	}

	agg := computeFromPositions(closed)
	agg.StrategyID = run.StrategyID
	agg.ProfileID = run.ProfileID
	agg.RunID = runID
	agg.ComputedAtMs = a.now()

	return agg, nil
}

// ComputeAndStore computes and persists the aggregate for one replay run.
func (a *Aggregator) ComputeAndStore(ctx context.Context, runID string) (*domain.StrategyAggregate, error) {
	agg, err := a.ComputeAggregate(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := a.aggStore.Insert(ctx, agg); err != nil {
		return nil, fmt.Errorf("persist aggregate for run %s: %w", runID, err)
	}

	return agg, nil
}
