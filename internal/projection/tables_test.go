package projection

import (
	"reflect"
	"strings"
	"testing"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/portfolio"
)

const testMint = "So11111111111111111111111111111111111111112"

func replayFixture(t *testing.T) *domain.PortfolioResult {
	t.Helper()

	cfg := domain.DefaultPortfolioConfig()
	cfg.Execution = domain.ExecutionProfileFrictionless
	cfg.ProfitReset.Enabled = false
	cfg.CapacityPrune.Enabled = false
	cfg.MaxHoldMinutes = 60

	e, err := portfolio.NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	t0 := int64(1_700_000_000_000)
	res, err := e.Replay([]*domain.TradeBlueprint{
		{
			SignalID:        "sig-1",
			StrategyID:      "ladder-tp-v1",
			ContractAddress: testMint,
			EntryTimeMs:     t0,
			EntryPriceRaw:   1.0,
			PartialExits: []domain.PlannedExit{
				{TimestampMs: t0 + 60_000, TargetMultiple: 2.0, Fraction: 0.4},
				{TimestampMs: t0 + 120_000, TargetMultiple: 5.0, Fraction: 0.4},
			},
			FinalExit: &domain.PlannedFinalExit{
				TimestampMs:    t0 + 180_000,
				Reason:         domain.ReasonLadderTP,
				TargetMultiple: 10.0,
			},
		},
		{
			SignalID:        "sig-2",
			StrategyID:      "ladder-tp-v1",
			ContractAddress: testMint,
			EntryTimeMs:     t0 + 30_000,
			EntryPriceRaw:   2.0,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestBuildPositionRows(t *testing.T) {
	res := replayFixture(t)
	rows := BuildPositionRows(res.Positions)

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	r := rows[0]
	if r.SignalID != "sig-1" {
		t.Fatalf("first row = %s, want sig-1 (entry order)", r.SignalID)
	}
	if !r.Hit2x || !r.Hit5x || !r.Hit10x {
		t.Errorf("hit flags = %v/%v/%v, want all true", r.Hit2x, r.Hit5x, r.Hit10x)
	}
	if r.ExitReason != string(domain.ReasonLadderTP) {
		t.Errorf("exit reason = %s", r.ExitReason)
	}
	if r.HoldMinutes != 3 {
		t.Errorf("hold minutes = %v, want 3", r.HoldMinutes)
	}

	r2 := rows[1]
	if r2.Hit2x {
		t.Error("sig-2 never exited, no hit flags expected")
	}
	if r2.ExitReason != string(domain.ReasonMaxHold) {
		t.Errorf("sig-2 exit reason = %s, want max_hold_minutes", r2.ExitReason)
	}
}

func TestBuildEventRows_AndExecutions(t *testing.T) {
	res := replayFixture(t)

	eventRows, err := BuildEventRows(res.Events)
	if err != nil {
		t.Fatal(err)
	}
	if len(eventRows) != len(res.Events) {
		t.Fatalf("event rows = %d, want %d", len(eventRows), len(res.Events))
	}
	for i, r := range eventRows {
		if r.Seq != i {
			t.Errorf("row %d seq = %d, ledger order lost", i, r.Seq)
		}
		if r.MetaJSON == "" {
			t.Errorf("row %d has empty meta blob", i)
		}
	}

	execRows := BuildExecutionRows(res.Events)
	// Trade events and execution payloads form a 1:1 bijection.
	trades := 0
	for _, ev := range res.Events {
		if ev.Type.IsTradeEvent() {
			trades++
		}
	}
	if len(execRows) != trades {
		t.Errorf("execution rows = %d, trade events = %d", len(execRows), trades)
	}
}

func TestProjections_Idempotent(t *testing.T) {
	res := replayFixture(t)

	p1 := BuildPositionRows(res.Positions)
	p2 := BuildPositionRows(res.Positions)
	if !reflect.DeepEqual(p1, p2) {
		t.Error("position rows differ between regenerations")
	}

	e1, err := BuildEventRows(res.Events)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := BuildEventRows(res.Events)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(e1, e2) {
		t.Error("event rows differ between regenerations")
	}

	x1 := BuildExecutionRows(res.Events)
	x2 := BuildExecutionRows(res.Events)
	if !reflect.DeepEqual(x1, x2) {
		t.Error("execution rows differ between regenerations")
	}

	if RenderPositionsCSV(p1) != RenderPositionsCSV(p2) {
		t.Error("positions CSV differs between regenerations")
	}
}

func TestRenderCSV_Shape(t *testing.T) {
	res := replayFixture(t)

	posCSV := RenderPositionsCSV(BuildPositionRows(res.Positions))
	lines := strings.Split(strings.TrimRight(posCSV, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("positions csv lines = %d, want header + 2 rows", len(lines))
	}
	wantCols := strings.Count(lines[0], ",")
	for i, line := range lines[1:] {
		if strings.Count(line, ",") != wantCols {
			t.Errorf("row %d column count mismatch", i)
		}
	}

	execCSV := RenderExecutionsCSV(BuildExecutionRows(res.Events))
	if !strings.HasPrefix(execCSV, "event_id,position_id,") {
		t.Error("executions csv missing header")
	}
}
