package memory

import (
	"context"
	"sort"
	"sync"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
// Events are append-only: no update or delete exists.
type EventStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PortfolioEvent // keyed by run_id, seq order
	ids  map[string]bool                     // event_id uniqueness across runs
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string][]*domain.PortfolioEvent),
		ids:  make(map[string]bool),
	}
}

// InsertBulk adds the event ledger of one replay run atomically,
// preserving seq order. Fails entire batch on any duplicate event_id.
func (s *EventStore) InsertBulk(_ context.Context, runID string, events []*domain.PortfolioEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool)
	for _, ev := range events {
		if ev == nil || ev.EventID == "" {
			return storage.ErrInvalidInput
		}
		if s.ids[ev.EventID] || batch[ev.EventID] {
			return storage.ErrDuplicateKey
		}
		batch[ev.EventID] = true
	}

	for _, ev := range events {
		s.data[runID] = append(s.data[runID], copyEvent(ev))
		s.ids[ev.EventID] = true
	}
	return nil
}

// GetByRunID retrieves the full ledger of a run, ordered by seq ASC.
func (s *EventStore) GetByRunID(_ context.Context, runID string) ([]*domain.PortfolioEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.data[runID]
	result := make([]*domain.PortfolioEvent, 0, len(events))
	for _, ev := range events {
		result = append(result, copyEvent(ev))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// GetByPositionID retrieves a position's events within a run, ordered by seq ASC.
func (s *EventStore) GetByPositionID(_ context.Context, runID, positionID string) ([]*domain.PortfolioEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioEvent
	for _, ev := range s.data[runID] {
		if ev.PositionID == positionID {
			result = append(result, copyEvent(ev))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func copyEvent(ev *domain.PortfolioEvent) *domain.PortfolioEvent {
	eventCopy := *ev
	if ev.Execution != nil {
		execCopy := *ev.Execution
		eventCopy.Execution = &execCopy
	}
	return &eventCopy
}

// Ensure EventStore implements storage.EventStore
var _ storage.EventStore = (*EventStore)(nil)
