package metrics

import (
	"sort"

	"solana-strategy-tester/internal/domain"
)

// computeFromPositions calculates all aggregate metrics from closed
// positions of one (strategy_id, profile_id, run_id). Positions are
// sorted by EntryTimeMs ASC, PositionID ASC before computing
// order-dependent metrics (MaxConsecutiveLosses).
func computeFromPositions(positions []*domain.Position) *domain.StrategyAggregate {
	n := len(positions)
	if n == 0 {
		return &domain.StrategyAggregate{}
	}

	// Sort deterministically by EntryTimeMs ASC, PositionID ASC
	sorted := make([]*domain.Position, n)
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EntryTimeMs != sorted[j].EntryTimeMs {
			return sorted[i].EntryTimeMs < sorted[j].EntryTimeMs
		}
		return sorted[i].PositionID < sorted[j].PositionID
	})

	wins, losses := 0, 0
	hit2x, hit5x, hit10x := 0, 0, 0
	feesTotal := 0.0
	totalPnL := 0.0
	holdSumMinutes := 0.0

	pnls := make([]float64, n)
	for i, p := range sorted {
		pnls[i] = p.PnL
		totalPnL += p.PnL
		feesTotal += p.FeesTotal
		holdSumMinutes += float64(p.HoldDurationMs()) / 60_000.0

		if p.PnL >= 0 {
			wins++
		} else {
			losses++
		}
		maxMult := p.MaxMultiple()
		if maxMult >= 2.0 {
			hit2x++
		}
		if maxMult >= 5.0 {
			hit5x++
		}
		if maxMult >= 10.0 {
			hit10x++
		}
	}

	sortedPnLs := make([]float64, n)
	copy(sortedPnLs, pnls)
	sort.Float64s(sortedPnLs)

	return &domain.StrategyAggregate{
		Positions: n,
		Wins:      wins,
		Losses:    losses,
		WinRate:   float64(wins) / float64(n),

		TotalPnL:  totalPnL,
		AvgPnL:    totalPnL / float64(n),
		MedianPnL: computePercentile(sortedPnLs, 0.50),
		P90PnL:    computePercentile(sortedPnLs, 0.90),

		AvgHoldMinutes: holdSumMinutes / float64(n),
		Hit2xRate:      float64(hit2x) / float64(n),
		Hit5xRate:      float64(hit5x) / float64(n),
		Hit10xRate:     float64(hit10x) / float64(n),

		MaxConsecutiveLosses: computeMaxConsecutiveLosses(pnls),
		FeesTotal:            feesTotal,
	}
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxConsecutiveLosses finds the longest streak of pnl < 0.
// PnLs must be in chronological order.
func computeMaxConsecutiveLosses(pnls []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, pnl := range pnls {
		if pnl < 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
