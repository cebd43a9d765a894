package portfolio

import (
	"testing"

	"solana-strategy-tester/internal/domain"
)

func testConfig() domain.PortfolioConfig {
	cfg := domain.DefaultPortfolioConfig()
	cfg.Execution = domain.ExecutionProfileFrictionless
	cfg.ProfitReset.Enabled = false
	cfg.CapacityPrune.Enabled = false
	cfg.MaxHoldMinutes = 0
	cfg.MaxExposure = 0
	cfg.MaxOpenPositions = 0
	return cfg
}

func openTestPosition(s *replayState, id string, size float64) *domain.Position {
	p := &domain.Position{
		PositionID: id,
		Size:       size,
		Status:     domain.PositionOpen,
		EntryPrice: 1.0,
	}
	s.open = append(s.open, p)
	s.all = append(s.all, p)
	return p
}

func TestCanOpen_MaxOpenPositions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxOpenPositions = 2
	s := newReplayState(cfg)

	if !canOpen(s, &cfg) {
		t.Fatal("empty book should admit")
	}
	openTestPosition(s, "a", 100)
	openTestPosition(s, "b", 100)
	if canOpen(s, &cfg) {
		t.Error("full book should refuse")
	}
}

func TestCanOpen_MaxExposure(t *testing.T) {
	cfg := testConfig()
	cfg.MaxExposure = 0.5
	s := newReplayState(cfg)
	s.balance = 1000

	openTestPosition(s, "a", 400)
	if !canOpen(s, &cfg) {
		t.Error("exposure 0.4 under cap 0.5 should admit")
	}

	openTestPosition(s, "b", 100)
	if canOpen(s, &cfg) {
		t.Error("exposure at cap should refuse")
	}
}

func TestPositionSize_Modes(t *testing.T) {
	cfg := testConfig()
	cfg.InitialBalance = 1000
	cfg.AllocationPct = 0.1

	s := newReplayState(cfg)
	s.balance = 500 // half the initial balance realized away

	cfg.AllocationMode = domain.AllocationFixed
	if got := positionSize(s, &cfg); got != 100 {
		t.Errorf("fixed size = %v, want 100 (10%% of initial)", got)
	}

	cfg.AllocationMode = domain.AllocationDynamic
	if got := positionSize(s, &cfg); got != 50 {
		t.Errorf("dynamic size = %v, want 50 (10%% of current)", got)
	}
}

func TestPositionSize_ClampedToBalance(t *testing.T) {
	cfg := testConfig()
	cfg.InitialBalance = 1000
	cfg.AllocationMode = domain.AllocationFixed
	cfg.AllocationPct = 0.5

	s := newReplayState(cfg)
	s.balance = 100

	if got := positionSize(s, &cfg); got != 100 {
		t.Errorf("size = %v, want clamp to balance 100", got)
	}

	s.balance = -5
	if got := positionSize(s, &cfg); got != 0 {
		t.Errorf("size = %v, want 0 on negative balance", got)
	}
}
