package metrics

import (
	"math"
	"testing"

	"solana-strategy-tester/internal/domain"
)

// closedPosition builds a closed position with one fill whose exec
// multiple doubles as the position's max multiple.
func closedPosition(id string, entryMs int64, pnl, fees, maxMult float64, holdMinutes int64) *domain.Position {
	p := &domain.Position{
		PositionID:  id,
		EntryTimeMs: entryMs,
		Status:      domain.PositionClosed,
		ExitTimeMs:  entryMs + holdMinutes*60_000,
		PnL:         pnl,
		FeesTotal:   fees,
	}
	p.Meta.AddFill(domain.Fill{
		TimestampMs:  p.ExitTimeMs,
		ExecMultiple: maxMult,
		Fraction:     1.0,
		Final:        true,
	})
	return p
}

func TestComputeFromPositions_Counts(t *testing.T) {
	positions := []*domain.Position{
		closedPosition("p1", 1000, 50.0, 1.0, 3.0, 10),
		closedPosition("p2", 2000, -20.0, 1.0, 0.8, 20),
		closedPosition("p3", 3000, 0.0, 1.0, 1.0, 30),
		closedPosition("p4", 4000, 120.0, 1.0, 6.0, 40),
	}

	agg := computeFromPositions(positions)

	if agg.Positions != 4 {
		t.Errorf("expected 4 positions, got %d", agg.Positions)
	}
	// Breakeven counts as a win
	if agg.Wins != 3 || agg.Losses != 1 {
		t.Errorf("expected 3 wins / 1 loss, got %d / %d", agg.Wins, agg.Losses)
	}
	if math.Abs(agg.WinRate-0.75) > 1e-9 {
		t.Errorf("expected win rate 0.75, got %f", agg.WinRate)
	}
	if math.Abs(agg.TotalPnL-150.0) > 1e-9 {
		t.Errorf("expected total pnl 150, got %f", agg.TotalPnL)
	}
	if math.Abs(agg.AvgPnL-37.5) > 1e-9 {
		t.Errorf("expected avg pnl 37.5, got %f", agg.AvgPnL)
	}
	if math.Abs(agg.FeesTotal-4.0) > 1e-9 {
		t.Errorf("expected fees 4.0, got %f", agg.FeesTotal)
	}
	if math.Abs(agg.AvgHoldMinutes-25.0) > 1e-9 {
		t.Errorf("expected avg hold 25 minutes, got %f", agg.AvgHoldMinutes)
	}
}

func TestComputeFromPositions_HitRates(t *testing.T) {
	positions := []*domain.Position{
		closedPosition("p1", 1000, 10.0, 0, 1.5, 10),   // no threshold
		closedPosition("p2", 2000, 20.0, 0, 2.0, 10),   // 2x exactly
		closedPosition("p3", 3000, 50.0, 0, 5.5, 10),   // 2x and 5x
		closedPosition("p4", 4000, 200.0, 0, 12.0, 10), // all three
	}

	agg := computeFromPositions(positions)

	if math.Abs(agg.Hit2xRate-0.75) > 1e-9 {
		t.Errorf("expected 2x rate 0.75, got %f", agg.Hit2xRate)
	}
	if math.Abs(agg.Hit5xRate-0.5) > 1e-9 {
		t.Errorf("expected 5x rate 0.5, got %f", agg.Hit5xRate)
	}
	if math.Abs(agg.Hit10xRate-0.25) > 1e-9 {
		t.Errorf("expected 10x rate 0.25, got %f", agg.Hit10xRate)
	}
}

func TestComputeFromPositions_MedianAndP90(t *testing.T) {
	// PnLs sorted: -30, -10, 10, 50, 100
	positions := []*domain.Position{
		closedPosition("p1", 1000, 100.0, 0, 4.0, 10),
		closedPosition("p2", 2000, -30.0, 0, 0.5, 10),
		closedPosition("p3", 3000, 10.0, 0, 1.2, 10),
		closedPosition("p4", 4000, 50.0, 0, 2.5, 10),
		closedPosition("p5", 5000, -10.0, 0, 0.9, 10),
	}

	agg := computeFromPositions(positions)

	if math.Abs(agg.MedianPnL-10.0) > 1e-9 {
		t.Errorf("expected median 10, got %f", agg.MedianPnL)
	}
	// idx = 0.9 * 4 = 3.6 → 50 + 0.6*(100-50) = 80
	if math.Abs(agg.P90PnL-80.0) > 1e-9 {
		t.Errorf("expected p90 80, got %f", agg.P90PnL)
	}
}

func TestComputeFromPositions_StreaksUseEntryOrder(t *testing.T) {
	// Delivered out of order; chronological pnl order is
	// +10, -5, -5, -5, +10 → longest loss streak 3.
	positions := []*domain.Position{
		closedPosition("p4", 4000, -5.0, 0, 0.9, 10),
		closedPosition("p1", 1000, 10.0, 0, 2.0, 10),
		closedPosition("p5", 5000, 10.0, 0, 2.0, 10),
		closedPosition("p2", 2000, -5.0, 0, 0.9, 10),
		closedPosition("p3", 3000, -5.0, 0, 0.9, 10),
	}

	agg := computeFromPositions(positions)

	if agg.MaxConsecutiveLosses != 3 {
		t.Errorf("expected max consecutive losses 3, got %d", agg.MaxConsecutiveLosses)
	}
}

func TestComputeFromPositions_Empty(t *testing.T) {
	agg := computeFromPositions(nil)
	if agg.Positions != 0 || agg.WinRate != 0 {
		t.Errorf("expected zero aggregate, got %+v", agg)
	}
}

func TestComputePercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"minimum", 0.0, 1.0},
		{"median", 0.5, 3.0},
		{"interpolated", 0.6, 3.4},
		{"maximum", 1.0, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computePercentile(sorted, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("percentile %.2f: expected %f, got %f", tt.p, tt.want, got)
			}
		})
	}
}

func TestComputePercentile_SmallInputs(t *testing.T) {
	if got := computePercentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
	if got := computePercentile([]float64{7.0}, 0.9); got != 7.0 {
		t.Errorf("expected sole value 7.0, got %f", got)
	}
}

func TestComputeMaxConsecutiveLosses(t *testing.T) {
	tests := []struct {
		name string
		pnls []float64
		want int
	}{
		{"empty", nil, 0},
		{"all wins", []float64{1, 2, 3}, 0},
		{"breakeven breaks streak", []float64{-1, -1, 0, -1}, 2},
		{"trailing streak", []float64{1, -1, -1, -1}, 3},
		{"all losses", []float64{-1, -2, -3, -4}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeMaxConsecutiveLosses(tt.pnls); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
