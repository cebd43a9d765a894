package memory

import (
	"context"
	"sort"
	"sync"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// BlueprintStore is an in-memory implementation of storage.BlueprintStore.
type BlueprintStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeBlueprint // keyed by signal_id
}

// NewBlueprintStore creates a new in-memory blueprint store.
func NewBlueprintStore() *BlueprintStore {
	return &BlueprintStore{
		data: make(map[string]*domain.TradeBlueprint),
	}
}

// Insert adds a new blueprint. Returns ErrDuplicateKey if signal_id exists.
func (s *BlueprintStore) Insert(_ context.Context, b *domain.TradeBlueprint) error {
	if b == nil || b.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[b.SignalID] = copyBlueprint(b)
	return nil
}

// InsertBulk adds multiple blueprints atomically. Fails entire batch on any duplicate.
func (s *BlueprintStore) InsertBulk(_ context.Context, blueprints []*domain.TradeBlueprint) error {
	if len(blueprints) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool)
	for _, b := range blueprints {
		if b == nil || b.SignalID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[b.SignalID]; exists || batch[b.SignalID] {
			return storage.ErrDuplicateKey
		}
		batch[b.SignalID] = true
	}

	for _, b := range blueprints {
		s.data[b.SignalID] = copyBlueprint(b)
	}
	return nil
}

// GetBySignalID retrieves a blueprint by signal_id. Returns ErrNotFound if not exists.
func (s *BlueprintStore) GetBySignalID(_ context.Context, signalID string) (*domain.TradeBlueprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyBlueprint(b), nil
}

// GetByStrategyID retrieves all blueprints for a strategy, ordered by entry_time ASC.
func (s *BlueprintStore) GetByStrategyID(_ context.Context, strategyID string) ([]*domain.TradeBlueprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeBlueprint
	for _, b := range s.data {
		if b.StrategyID == strategyID {
			result = append(result, copyBlueprint(b))
		}
	}

	// Stable order: entry_time ASC, signal_id breaks ties
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryTimeMs != result[j].EntryTimeMs {
			return result[i].EntryTimeMs < result[j].EntryTimeMs
		}
		return result[i].SignalID < result[j].SignalID
	})
	return result, nil
}

// copyBlueprint deep-copies a blueprint so callers cannot mutate
// stored state through shared slices.
func copyBlueprint(b *domain.TradeBlueprint) *domain.TradeBlueprint {
	blueprintCopy := *b
	if b.PartialExits != nil {
		blueprintCopy.PartialExits = make([]domain.PlannedExit, len(b.PartialExits))
		copy(blueprintCopy.PartialExits, b.PartialExits)
	}
	if b.FinalExit != nil {
		finalCopy := *b.FinalExit
		blueprintCopy.FinalExit = &finalCopy
	}
	return &blueprintCopy
}

// Ensure BlueprintStore implements storage.BlueprintStore
var _ storage.BlueprintStore = (*BlueprintStore)(nil)
