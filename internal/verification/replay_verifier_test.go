package verification

import (
	"context"
	"errors"
	"testing"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/idhash"
	"solana-strategy-tester/internal/storage/memory"
)

// newVerifierFixture replays two ladder blueprints, lets the caller
// tamper with the result before persistence, persists it to memory
// stores, and returns a verifier wired to them plus the run id.
func newVerifierFixture(t *testing.T, tamper func(*domain.PortfolioResult)) (*ReplayVerifier, string) {
	t.Helper()
	ctx := context.Background()

	blueprintStore := memory.NewBlueprintStore()
	positionStore := memory.NewPositionStore()
	eventStore := memory.NewEventStore()
	runStore := memory.NewReplayRunStore()

	blueprints := []*domain.TradeBlueprint{
		ladderBlueprint("sig-1", t0),
		ladderBlueprint("sig-2", t0+300_000),
	}
	if err := blueprintStore.InsertBulk(ctx, blueprints); err != nil {
		t.Fatalf("seed blueprints: %v", err)
	}

	cfg := fixtureConfig()
	result := replayFixture(t, cfg, blueprints)
	if tamper != nil {
		tamper(result)
	}

	runID := idhash.ComputeRunID("ladder-tp-v1", cfg.Execution.ProfileID, []string{"sig-1", "sig-2"})
	if err := runStore.Insert(ctx, &domain.ReplayRun{
		RunID:      runID,
		StrategyID: "ladder-tp-v1",
		ProfileID:  cfg.Execution.ProfileID,
		Stats:      result.Stats,
	}); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	if err := positionStore.InsertBulk(ctx, runID, result.Positions); err != nil {
		t.Fatalf("seed positions: %v", err)
	}
	if err := eventStore.InsertBulk(ctx, runID, result.Events); err != nil {
		t.Fatalf("seed events: %v", err)
	}

	verifier := NewReplayVerifier(ReplayVerifierOptions{
		BlueprintStore: blueprintStore,
		PositionStore:  positionStore,
		EventStore:     eventStore,
		RunStore:       runStore,
		BaseConfig:     cfg,
	})
	return verifier, runID
}

func TestVerifyRun_MatchesStoredRun(t *testing.T) {
	verifier, runID := newVerifierFixture(t, nil)

	result, err := verifier.VerifyRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("VerifyRun: %v", err)
	}
	if !result.Match {
		t.Fatalf("expected reproducible run, got divergences: %+v", result.Divergences)
	}
	if result.RunID != runID {
		t.Errorf("run id = %s, want %s", result.RunID, runID)
	}
}

func TestVerifyRun_DetectsTamperedPosition(t *testing.T) {
	var tamperedID string
	verifier, runID := newVerifierFixture(t, func(r *domain.PortfolioResult) {
		tamperedID = r.Positions[0].PositionID
		r.Positions[0].PnL += 1.0
	})

	result, err := verifier.VerifyRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("VerifyRun: %v", err)
	}
	if result.Match {
		t.Fatal("expected divergence after tampering with stored pnl")
	}
	found := false
	for _, d := range result.Divergences {
		if d.Field == tamperedID+".PnL" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a PnL divergence, got: %+v", result.Divergences)
	}
}

func TestVerifyRun_DetectsTamperedEvent(t *testing.T) {
	verifier, runID := newVerifierFixture(t, func(r *domain.PortfolioResult) {
		r.Events[1].Reason = domain.ReasonStopLoss
	})

	result, err := verifier.VerifyRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("VerifyRun: %v", err)
	}
	if result.Match {
		t.Fatal("expected divergence after tampering with a stored event reason")
	}
}

func TestVerifyRun_UnknownRun(t *testing.T) {
	verifier, _ := newVerifierFixture(t, nil)

	_, err := verifier.VerifyRun(context.Background(), "missing-run")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
