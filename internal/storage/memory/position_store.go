package memory

import (
	"context"
	"sort"
	"sync"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.Position // run_id -> position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]map[string]*domain.Position),
	}
}

// InsertBulk adds the positions of one replay run atomically.
// Fails entire batch on any duplicate (run_id, position_id).
func (s *PositionStore) InsertBulk(_ context.Context, runID string, positions []*domain.Position) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(positions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run := s.data[runID]
	batch := make(map[string]bool)
	for _, p := range positions {
		if p == nil || p.PositionID == "" {
			return storage.ErrInvalidInput
		}
		if batch[p.PositionID] {
			return storage.ErrDuplicateKey
		}
		if run != nil {
			if _, exists := run[p.PositionID]; exists {
				return storage.ErrDuplicateKey
			}
		}
		batch[p.PositionID] = true
	}

	if run == nil {
		run = make(map[string]*domain.Position)
		s.data[runID] = run
	}
	for _, p := range positions {
		run[p.PositionID] = copyPosition(p)
	}
	return nil
}

// GetByRunID retrieves all positions of a run, ordered by entry_time ASC.
func (s *PositionStore) GetByRunID(_ context.Context, runID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := s.data[runID]
	result := make([]*domain.Position, 0, len(run))
	for _, p := range run {
		result = append(result, copyPosition(p))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryTimeMs != result[j].EntryTimeMs {
			return result[i].EntryTimeMs < result[j].EntryTimeMs
		}
		return result[i].PositionID < result[j].PositionID
	})
	return result, nil
}

// GetByID retrieves one position of a run. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, runID, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[runID][positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPosition(p), nil
}

// copyPosition deep-copies a position including its meta slices.
func copyPosition(p *domain.Position) *domain.Position {
	positionCopy := *p
	if p.Meta.LevelsHit != nil {
		positionCopy.Meta.LevelsHit = make([]float64, len(p.Meta.LevelsHit))
		copy(positionCopy.Meta.LevelsHit, p.Meta.LevelsHit)
	}
	if p.Meta.Fills != nil {
		positionCopy.Meta.Fills = make([]domain.Fill, len(p.Meta.Fills))
		copy(positionCopy.Meta.Fills, p.Meta.Fills)
	}
	return &positionCopy
}

// Ensure PositionStore implements storage.PositionStore
var _ storage.PositionStore = (*PositionStore)(nil)
