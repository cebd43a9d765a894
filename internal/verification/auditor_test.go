package verification

import (
	"strings"
	"testing"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/portfolio"
)

// WSOL mint; any well-formed 32-byte base58 address works here.
const testMint = "So11111111111111111111111111111111111111112"

const t0 = int64(1_700_000_000_000)

func ladderBlueprint(signalID string, entryMs int64) *domain.TradeBlueprint {
	return &domain.TradeBlueprint{
		SignalID:        signalID,
		StrategyID:      "ladder-tp-v1",
		ContractAddress: testMint,
		EntryTimeMs:     entryMs,
		EntryPriceRaw:   1.0,
		PartialExits: []domain.PlannedExit{
			{TimestampMs: entryMs + 60_000, TargetMultiple: 2.0, Fraction: 0.4},
			{TimestampMs: entryMs + 120_000, TargetMultiple: 5.0, Fraction: 0.4},
		},
		FinalExit: &domain.PlannedFinalExit{
			TimestampMs:    entryMs + 180_000,
			Reason:         domain.ReasonLadderTP,
			TargetMultiple: 10.0,
		},
	}
}

func replayFixture(t *testing.T, cfg domain.PortfolioConfig, blueprints []*domain.TradeBlueprint) *domain.PortfolioResult {
	t.Helper()
	engine, err := portfolio.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	result, err := engine.Replay(blueprints)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return result
}

func fixtureConfig() domain.PortfolioConfig {
	return domain.PortfolioConfig{
		InitialBalance: 1000,
		AllocationMode: domain.AllocationFixed,
		AllocationPct:  0.1,
		Execution:      domain.ExecutionProfileRealistic,
	}
}

func TestAudit_CleanReplayPasses(t *testing.T) {
	cfg := fixtureConfig()
	cfg.ProfitReset = domain.ProfitResetConfig{
		Enabled:  true,
		Multiple: 1.5,
		Basis:    domain.ResetBasisBalance,
	}
	result := replayFixture(t, cfg, []*domain.TradeBlueprint{
		ladderBlueprint("sig-1", t0),
		ladderBlueprint("sig-2", t0+30_000),
		ladderBlueprint("sig-3", t0+600_000),
	})

	audit := Audit(result)
	if !audit.OK() {
		t.Fatalf("expected clean audit, got violations: %+v", audit.Violations)
	}
}

func TestAudit_DetectsSeqGap(t *testing.T) {
	result := replayFixture(t, fixtureConfig(), []*domain.TradeBlueprint{ladderBlueprint("sig-1", t0)})
	result.Events[2].Seq = 99

	audit := Audit(result)
	assertViolation(t, audit, "sequencing")
}

func TestAudit_DetectsMissingExecution(t *testing.T) {
	result := replayFixture(t, fixtureConfig(), []*domain.TradeBlueprint{ladderBlueprint("sig-1", t0)})
	result.Events[1].Execution = nil

	audit := Audit(result)
	assertViolation(t, audit, "bijection")
}

func TestAudit_DetectsNonMonotonicTimestamps(t *testing.T) {
	result := replayFixture(t, fixtureConfig(), []*domain.TradeBlueprint{ladderBlueprint("sig-1", t0)})
	// Drag the close before the second partial exit.
	result.Events[3].TimestampMs = result.Events[1].TimestampMs - 1

	audit := Audit(result)
	assertViolation(t, audit, "monotonic")
}

func TestAudit_DetectsPnLDrift(t *testing.T) {
	result := replayFixture(t, fixtureConfig(), []*domain.TradeBlueprint{ladderBlueprint("sig-1", t0)})
	result.Positions[0].PnL += 0.5

	audit := Audit(result)
	assertViolation(t, audit, "pnl-conservation")
}

func TestAudit_DetectsBrokenResetChain(t *testing.T) {
	cfg := fixtureConfig()
	cfg.ProfitReset = domain.ProfitResetConfig{
		Enabled:  true,
		Multiple: 4.0,
		Basis:    domain.ResetBasisBalance,
	}
	// Two 30x winners exit their full fraction but never final-close, so
	// both sit in the open book when the threshold trips at sig-3.
	winner := func(signalID string, entryMs int64) *domain.TradeBlueprint {
		return &domain.TradeBlueprint{
			SignalID: signalID, StrategyID: "ladder-tp-v1", ContractAddress: testMint,
			EntryTimeMs: entryMs, EntryPriceRaw: 1.0,
			PartialExits: []domain.PlannedExit{
				{TimestampMs: entryMs + 60_000, TargetMultiple: 30.0, Fraction: 1.0},
			},
		}
	}
	trigger := &domain.TradeBlueprint{
		SignalID: "sig-3", StrategyID: "ladder-tp-v1", ContractAddress: testMint,
		EntryTimeMs: t0 + 600_000, EntryPriceRaw: 1.0,
	}
	result := replayFixture(t, cfg, []*domain.TradeBlueprint{
		winner("sig-1", t0),
		winner("sig-2", t0+120_000),
		trigger,
	})

	var reset *domain.PortfolioEvent
	for _, ev := range result.Events {
		if ev.Type == domain.EventPortfolioResetTriggered {
			reset = ev
		}
	}
	if reset == nil {
		t.Fatal("fixture produced no reset event")
	}
	if audit := Audit(result); !audit.OK() {
		t.Fatalf("expected clean audit before tampering, got %+v", audit.Violations)
	}

	reset.ResetClosedCount++
	audit := Audit(result)
	assertViolation(t, audit, "reset-chain")
}

func assertViolation(t *testing.T, audit *AuditResult, check string) {
	t.Helper()
	if audit.OK() {
		t.Fatalf("expected %s violation, audit passed", check)
	}
	for _, v := range audit.Violations {
		if v.Check == check {
			return
		}
	}
	t.Fatalf("expected a %s violation, got: %+v", check, audit.Violations)
}

func TestAudit_ViolationDetailNamesEntity(t *testing.T) {
	result := replayFixture(t, fixtureConfig(), []*domain.TradeBlueprint{ladderBlueprint("sig-1", t0)})
	result.Events[1].Execution = nil

	audit := Audit(result)
	if audit.OK() {
		t.Fatal("expected violation")
	}
	if !strings.Contains(audit.Violations[0].Detail, result.Events[1].EventID) {
		t.Errorf("violation detail %q does not name the offending event", audit.Violations[0].Detail)
	}
}
