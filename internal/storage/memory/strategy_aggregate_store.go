package memory

import (
	"context"
	"sort"
	"sync"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// StrategyAggregateStore is an in-memory implementation of
// storage.StrategyAggregateStore.
type StrategyAggregateStore struct {
	mu   sync.RWMutex
	data []*domain.StrategyAggregate
}

// NewStrategyAggregateStore creates a new in-memory aggregate store.
func NewStrategyAggregateStore() *StrategyAggregateStore {
	return &StrategyAggregateStore{}
}

// Insert adds a computed aggregate row.
func (s *StrategyAggregateStore) Insert(_ context.Context, a *domain.StrategyAggregate) error {
	if a == nil || a.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	aggCopy := *a
	s.data = append(s.data, &aggCopy)
	return nil
}

// GetByStrategyID retrieves all aggregates for a strategy, ordered by computed_at ASC.
func (s *StrategyAggregateStore) GetByStrategyID(_ context.Context, strategyID string) ([]*domain.StrategyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyAggregate
	for _, a := range s.data {
		if a.StrategyID == strategyID {
			aggCopy := *a
			result = append(result, &aggCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ComputedAtMs < result[j].ComputedAtMs
	})
	return result, nil
}

// Ensure StrategyAggregateStore implements storage.StrategyAggregateStore
var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)
