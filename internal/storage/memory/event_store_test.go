package memory

import (
	"context"
	"errors"
	"testing"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

func testEvent(eventID, positionID string, seq int, evType domain.EventType) *domain.PortfolioEvent {
	ev := &domain.PortfolioEvent{
		EventID:     eventID,
		Seq:         seq,
		TimestampMs: int64(1000 + seq),
		Type:        evType,
		PositionID:  positionID,
	}
	if evType.IsTradeEvent() {
		ev.Execution = &domain.ExecutionDetail{RawPrice: 1.0, ExecPrice: 1.0}
	}
	return ev
}

func TestEventStore_LedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	events := []*domain.PortfolioEvent{
		testEvent("ev-1", "pos-a", 0, domain.EventPositionOpened),
		testEvent("ev-2", "pos-b", 1, domain.EventPositionOpened),
		testEvent("ev-3", "pos-a", 2, domain.EventPositionClosed),
	}
	if err := store.InsertBulk(ctx, "run-1", events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, ev := range got {
		if ev.Seq != i {
			t.Errorf("event %d seq = %d, seq order lost", i, ev.Seq)
		}
	}

	byPos, err := store.GetByPositionID(ctx, "run-1", "pos-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(byPos) != 2 {
		t.Errorf("pos-a events = %d, want 2", len(byPos))
	}
}

func TestEventStore_DuplicateEventID(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	if err := store.InsertBulk(ctx, "run-1", []*domain.PortfolioEvent{
		testEvent("ev-1", "pos-a", 0, domain.EventPositionOpened),
	}); err != nil {
		t.Fatal(err)
	}

	err := store.InsertBulk(ctx, "run-2", []*domain.PortfolioEvent{
		testEvent("ev-1", "pos-a", 0, domain.EventPositionOpened),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("error = %v, want ErrDuplicateKey", err)
	}

	got, _ := store.GetByRunID(ctx, "run-2")
	if len(got) != 0 {
		t.Error("failed batch leaked into the store")
	}
}

func TestEventStore_EmptyRun(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	got, err := store.GetByRunID(ctx, "run-missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
