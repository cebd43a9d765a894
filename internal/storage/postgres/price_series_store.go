package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using PostgreSQL.
type PriceSeriesStore struct {
	pool *Pool
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(pool *Pool) *PriceSeriesStore {
	return &PriceSeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple points atomically. Fails entire batch on
// duplicate (contract_address, timestamp_ms).
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_series (contract_address, timestamp_ms, price)
		VALUES ($1, $2, $3)
	`

	for _, pt := range points {
		_, err := tx.Exec(ctx, query, pt.ContractAddress, pt.TimestampMs, pt.Price)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price point in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByContract retrieves all points for a contract, ordered by timestamp ASC.
func (s *PriceSeriesStore) GetByContract(ctx context.Context, contractAddress string) ([]*domain.PricePoint, error) {
	query := `
		SELECT contract_address, timestamp_ms, price
		FROM price_series
		WHERE contract_address = $1
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, contractAddress)
	if err != nil {
		return nil, fmt.Errorf("get price series by contract: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByTimeRange retrieves points for a contract within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(ctx context.Context, contractAddress string, start, end int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT contract_address, timestamp_ms, price
		FROM price_series
		WHERE contract_address = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, contractAddress, start, end)
	if err != nil {
		return nil, fmt.Errorf("get price series by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// scanPricePoints scans multiple rows into a slice of PricePoint.
func scanPricePoints(rows pgx.Rows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var pt domain.PricePoint

		if err := rows.Scan(&pt.ContractAddress, &pt.TimestampMs, &pt.Price); err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}

		points = append(points, &pt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
