package memory

import (
	"context"
	"sort"
	"sync"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// ReplayRunStore is an in-memory implementation of storage.ReplayRunStore.
type ReplayRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReplayRun // keyed by run_id
}

// NewReplayRunStore creates a new in-memory replay run store.
func NewReplayRunStore() *ReplayRunStore {
	return &ReplayRunStore{
		data: make(map[string]*domain.ReplayRun),
	}
}

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *ReplayRunStore) Insert(_ context.Context, r *domain.ReplayRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run summary. Returns ErrNotFound if not exists.
func (s *ReplayRunStore) GetByID(_ context.Context, runID string) (*domain.ReplayRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *r
	return &runCopy, nil
}

// GetByStrategyID retrieves all runs for a strategy, ordered by created_at ASC.
func (s *ReplayRunStore) GetByStrategyID(_ context.Context, strategyID string) ([]*domain.ReplayRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReplayRun
	for _, r := range s.data {
		if r.StrategyID == strategyID {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs != result[j].CreatedAtMs {
			return result[i].CreatedAtMs < result[j].CreatedAtMs
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

// Ensure ReplayRunStore implements storage.ReplayRunStore
var _ storage.ReplayRunStore = (*ReplayRunStore)(nil)
