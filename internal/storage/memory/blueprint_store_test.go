package memory

import (
	"context"
	"errors"
	"testing"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

func testBlueprint(signalID string, entryMs int64) *domain.TradeBlueprint {
	return &domain.TradeBlueprint{
		SignalID:        signalID,
		StrategyID:      "ladder-tp-v1",
		ContractAddress: "So11111111111111111111111111111111111111112",
		EntryTimeMs:     entryMs,
		EntryPriceRaw:   1.0,
		PartialExits: []domain.PlannedExit{
			{TimestampMs: entryMs + 1000, TargetMultiple: 2.0, Fraction: 0.4},
		},
	}
}

func TestBlueprintStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewBlueprintStore()

	bp := testBlueprint("sig-1", 1000)
	if err := store.Insert(ctx, bp); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetBySignalID(ctx, "sig-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StrategyID != bp.StrategyID || got.EntryTimeMs != bp.EntryTimeMs {
		t.Errorf("got %+v, want %+v", got, bp)
	}

	// Duplicate insert is rejected.
	if err := store.Insert(ctx, testBlueprint("sig-1", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate error = %v, want ErrDuplicateKey", err)
	}

	// Missing key.
	if _, err := store.GetBySignalID(ctx, "sig-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing error = %v, want ErrNotFound", err)
	}
}

func TestBlueprintStore_InsertBulkAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewBlueprintStore()

	err := store.InsertBulk(ctx, []*domain.TradeBlueprint{
		testBlueprint("sig-1", 1000),
		testBlueprint("sig-1", 2000), // intra-batch duplicate
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("error = %v, want ErrDuplicateKey", err)
	}

	// Nothing from the failed batch may be visible.
	if _, err := store.GetBySignalID(ctx, "sig-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("failed batch leaked: %v", err)
	}
}

func TestBlueprintStore_GetByStrategyID_Ordered(t *testing.T) {
	ctx := context.Background()
	store := NewBlueprintStore()

	for _, bp := range []*domain.TradeBlueprint{
		testBlueprint("sig-c", 3000),
		testBlueprint("sig-a", 1000),
		testBlueprint("sig-b", 2000),
	} {
		if err := store.Insert(ctx, bp); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetByStrategyID(ctx, "ladder-tp-v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].EntryTimeMs > got[i].EntryTimeMs {
			t.Error("results not ordered by entry_time ASC")
		}
	}
}

func TestBlueprintStore_CopyOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewBlueprintStore()

	if err := store.Insert(ctx, testBlueprint("sig-1", 1000)); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetBySignalID(ctx, "sig-1")
	got.PartialExits[0].Fraction = 0.99

	again, _ := store.GetBySignalID(ctx, "sig-1")
	if again.PartialExits[0].Fraction != 0.4 {
		t.Error("mutation through returned copy leaked into the store")
	}
}
