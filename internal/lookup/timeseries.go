package lookup

import (
	"errors"

	"solana-strategy-tester/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoPriceData = errors.New("no price data available")
)

// PriceAt returns the price at or before the target timestamp.
// If no price exists before target, returns the first available price.
// Returns ErrNoPriceData if the slice is empty.
func PriceAt(target int64, prices []*domain.PricePoint) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrNoPriceData
	}

	// Find closest price at or before target
	for i := len(prices) - 1; i >= 0; i-- {
		if prices[i].TimestampMs <= target {
			return prices[i].Price, nil
		}
	}

	// If no price before target, use first available
	return prices[0].Price, nil
}

// MaxMultipleBetween returns the highest price multiple relative to
// entryPrice observed in (from, to]. Returns 0 if no points fall in
// the window.
func MaxMultipleBetween(from, to int64, entryPrice float64, prices []*domain.PricePoint) float64 {
	if entryPrice <= 0 {
		return 0
	}
	max := 0.0
	for _, p := range prices {
		if p.TimestampMs <= from || p.TimestampMs > to {
			continue
		}
		m := p.Price / entryPrice
		if m > max {
			max = m
		}
	}
	return max
}
