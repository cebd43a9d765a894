package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

func testEvents(prefix string) []*domain.PortfolioEvent {
	return []*domain.PortfolioEvent{
		{
			EventID: prefix + "-ev-0", Seq: 0, TimestampMs: 1000,
			Type:       domain.EventPositionOpened,
			StrategyID: "ladder-tp-v1", SignalID: "sig-1",
			ContractAddress: testMint, PositionID: "pos-1",
			Execution: &domain.ExecutionDetail{
				RawPrice: 0.0001, ExecPrice: 0.000102, QuantityDelta: 100, Fees: 0.3,
			},
		},
		{
			EventID: prefix + "-ev-1", Seq: 1, TimestampMs: 2000,
			Type:       domain.EventPositionClosed,
			StrategyID: "ladder-tp-v1", SignalID: "sig-1",
			ContractAddress: testMint, PositionID: "pos-1",
			Reason: domain.ReasonProfitReset,
			Execution: &domain.ExecutionDetail{
				RawPrice: 0.0002, ExecPrice: 0.000197, QuantityDelta: -100, Fees: 0.6, PnLDelta: 92.4,
			},
		},
		{
			EventID: prefix + "-ev-2", Seq: 2, TimestampMs: 2000,
			Type:       domain.EventPortfolioResetTriggered,
			StrategyID: "ladder-tp-v1", SignalID: "sig-1",
			ContractAddress: testMint, PositionID: "pos-1",
			Reason:           domain.ReasonProfitReset,
			ResetClosedCount: 1,
		},
	}
}

func TestEventStore_InsertBulkAndGetByRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)

	require.NoError(t, store.InsertBulk(ctx, "run-1", testEvents("a")))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, ev := range got {
		assert.Equal(t, i, ev.Seq)
	}
	// Trade events round-trip their execution payload; reset events stay bare.
	require.NotNil(t, got[1].Execution)
	assert.InDelta(t, 92.4, got[1].Execution.PnLDelta, 1e-9)
	assert.Nil(t, got[2].Execution)
	assert.Equal(t, 1, got[2].ResetClosedCount)
}

func TestEventStore_GetByPositionID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)

	events := testEvents("a")
	events[2].PositionID = "pos-other"
	require.NoError(t, store.InsertBulk(ctx, "run-1", events))

	got, err := store.GetByPositionID(ctx, "run-1", "pos-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEventStore_DuplicateEventIDAcrossRuns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)

	require.NoError(t, store.InsertBulk(ctx, "run-1", testEvents("a")))

	// Event ids are globally unique; replaying the same ledger under a
	// new run id must fail without landing anything.
	err := store.InsertBulk(ctx, "run-2", testEvents("a"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, got)
}
