package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

func TestPriceSeriesStore_InsertBulkAndGetByContract(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(pool)

	points := []*domain.PricePoint{
		{ContractAddress: testMint, TimestampMs: 3000, Price: 0.0003},
		{ContractAddress: testMint, TimestampMs: 1000, Price: 0.0001},
		{ContractAddress: testMint, TimestampMs: 2000, Price: 0.0002},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByContract(ctx, testMint)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[2].TimestampMs)
	assert.InDelta(t, 0.0002, got[1].Price, 1e-12)
}

func TestPriceSeriesStore_GetByTimeRangeInclusive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PricePoint{
		{ContractAddress: testMint, TimestampMs: 1000, Price: 0.0001},
		{ContractAddress: testMint, TimestampMs: 2000, Price: 0.0002},
		{ContractAddress: testMint, TimestampMs: 3000, Price: 0.0003},
		{ContractAddress: testMint, TimestampMs: 4000, Price: 0.0004},
	}))

	got, err := store.GetByTimeRange(ctx, testMint, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)
}

func TestPriceSeriesStore_DuplicateObservation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PricePoint{
		{ContractAddress: testMint, TimestampMs: 1000, Price: 0.0001},
	}))

	err := store.InsertBulk(ctx, []*domain.PricePoint{
		{ContractAddress: testMint, TimestampMs: 2000, Price: 0.0002},
		{ContractAddress: testMint, TimestampMs: 1000, Price: 0.0001},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByContract(ctx, testMint)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
