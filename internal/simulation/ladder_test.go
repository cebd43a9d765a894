package simulation

import (
	"errors"
	"testing"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/lookup"
)

func series(pairs ...[2]float64) []*domain.PricePoint {
	out := make([]*domain.PricePoint, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, &domain.PricePoint{
			ContractAddress: "mint",
			TimestampMs:     int64(p[0]),
			Price:           p[1],
		})
	}
	return out
}

func TestLadderSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    LadderSpec
		wantErr error
	}{
		{name: "default ladder", spec: DefaultLadder, wantErr: nil},
		{name: "empty", spec: LadderSpec{}, wantErr: ErrEmptyLadder},
		{
			name: "not ascending",
			spec: LadderSpec{Levels: []LadderLevel{
				{TargetMultiple: 5.0, Fraction: 0.5},
				{TargetMultiple: 2.0, Fraction: 0.5},
			}},
			wantErr: ErrLadderNotSorted,
		},
		{
			name: "fractions under 1",
			spec: LadderSpec{Levels: []LadderLevel{
				{TargetMultiple: 2.0, Fraction: 0.4},
			}},
			wantErr: ErrLadderFractionSum,
		},
		{
			name: "multiple at 1x",
			spec: LadderSpec{Levels: []LadderLevel{
				{TargetMultiple: 1.0, Fraction: 1.0},
			}},
			wantErr: ErrLadderNotSorted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLadderSpec_ID(t *testing.T) {
	if got := DefaultLadder.ID(); got != "LADDER_TP_2x40_5x40_10x20" {
		t.Errorf("id = %s", got)
	}
}

func TestBuildBlueprint_AllLevelsHit(t *testing.T) {
	prices := series(
		[2]float64{1000, 1.0},
		[2]float64{2000, 2.5},  // 2x hit
		[2]float64{3000, 6.0},  // 5x hit
		[2]float64{4000, 11.0}, // 10x hit
	)

	bp, err := DefaultLadder.BuildBlueprint("sig-1", "strat", "mint", 1000, prices)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(bp.PartialExits) != 2 {
		t.Fatalf("partial exits = %d, want 2", len(bp.PartialExits))
	}
	if bp.PartialExits[0].TargetMultiple != 2.0 || bp.PartialExits[0].TimestampMs != 2000 {
		t.Errorf("first exit = %+v", bp.PartialExits[0])
	}
	if bp.PartialExits[1].TargetMultiple != 5.0 || bp.PartialExits[1].TimestampMs != 3000 {
		t.Errorf("second exit = %+v", bp.PartialExits[1])
	}

	if bp.FinalExit == nil {
		t.Fatal("fully hit ladder must carry a final exit")
	}
	if bp.FinalExit.Reason != domain.ReasonLadderTP || bp.FinalExit.TargetMultiple != 10.0 {
		t.Errorf("final exit = %+v", bp.FinalExit)
	}

	// realized_multiple = 0.4*2 + 0.4*5 + 0.2*10 = 4.8
	if bp.RealizedMultiple < 4.8-1e-9 || bp.RealizedMultiple > 4.8+1e-9 {
		t.Errorf("realized multiple = %v, want 4.8", bp.RealizedMultiple)
	}

	if err := bp.Validate(); err != nil {
		t.Errorf("built blueprint fails validation: %v", err)
	}
}

func TestBuildBlueprint_LevelsHitInSequenceOnly(t *testing.T) {
	// Price reaches 2x and then fades without touching 5x.
	prices := series(
		[2]float64{1000, 1.0},
		[2]float64{2000, 2.1}, // 2x hit
		[2]float64{3000, 1.5},
		[2]float64{4000, 1.2},
	)

	bp, err := DefaultLadder.BuildBlueprint("sig-1", "strat", "mint", 1000, prices)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(bp.PartialExits) != 1 {
		t.Fatalf("partial exits = %d, want 1", len(bp.PartialExits))
	}
	if bp.FinalExit != nil {
		t.Error("partially hit ladder must not carry a final exit")
	}
}

func TestBuildBlueprint_SinglePointHitsOneLevelOnly(t *testing.T) {
	// One observation at 12x: levels fill in sequence, one per
	// observation, so only 2x fills from it.
	prices := series(
		[2]float64{1000, 1.0},
		[2]float64{2000, 12.0},
		[2]float64{3000, 12.0},
		[2]float64{4000, 12.0},
	)

	bp, err := DefaultLadder.BuildBlueprint("sig-1", "strat", "mint", 1000, prices)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(bp.PartialExits) != 2 || bp.FinalExit == nil {
		t.Fatalf("exits = %d, final = %v; want full ladder across three observations",
			len(bp.PartialExits), bp.FinalExit)
	}
}

func TestBuildBlueprint_NoPriceData(t *testing.T) {
	_, err := DefaultLadder.BuildBlueprint("sig-1", "strat", "mint", 1000, nil)
	if !errors.Is(err, lookup.ErrNoPriceData) {
		t.Errorf("error = %v, want ErrNoPriceData", err)
	}
}
