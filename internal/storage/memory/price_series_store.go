package memory

import (
	"context"
	"sort"
	"sync"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PricePoint // keyed by contract_address
	keys map[priceKey]bool               // duplicate detection
}

type priceKey struct {
	contract    string
	timestampMs int64
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[string][]*domain.PricePoint),
		keys: make(map[priceKey]bool),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (contract_address, timestamp_ms).
func (s *PriceSeriesStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch first, including intra-batch duplicates
	batch := make(map[priceKey]bool)
	for _, p := range points {
		if p == nil || p.ContractAddress == "" {
			return storage.ErrInvalidInput
		}
		k := priceKey{contract: p.ContractAddress, timestampMs: p.TimestampMs}
		if s.keys[k] || batch[k] {
			return storage.ErrDuplicateKey
		}
		batch[k] = true
	}

	for _, p := range points {
		pointCopy := *p
		s.data[p.ContractAddress] = append(s.data[p.ContractAddress], &pointCopy)
		s.keys[priceKey{contract: p.ContractAddress, timestampMs: p.TimestampMs}] = true
	}
	return nil
}

// GetByContract retrieves all points for a contract, ordered by timestamp ASC.
func (s *PriceSeriesStore) GetByContract(_ context.Context, contractAddress string) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[contractAddress]
	result := make([]*domain.PricePoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// GetByTimeRange retrieves points for a contract within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(_ context.Context, contractAddress string, start, end int64) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data[contractAddress] {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// Ensure PriceSeriesStore implements storage.PriceSeriesStore
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)
