package portfolio

import "solana-strategy-tester/internal/domain"

// replayState is the process state of one replay run. Constructed per
// Replay call, discarded when it returns; never shared between runs.
type replayState struct {
	balance        float64
	initialBalance float64
	feesTotal      float64

	// open is ordered by entry (admission order); all holds every
	// position ever opened, in the same order, for the final result.
	open   []*domain.Position
	closed []*domain.Position
	all    []*domain.Position

	ledger      *Ledger
	equityCurve []domain.EquityPoint
	skipped     []domain.SkippedBlueprint

	equityPeak     float64
	maxDrawdownPct float64

	// Reset bookkeeping. The counters are disjoint and mutated only
	// by applyReset.
	runnerResetCount    int // capacity prunes
	portfolioResetCount int // profit resets
	cycleStartEquity    float64
	cycleStartBalance   float64
	equityPeakInCycle   float64
	lastResetTimeMs     int64
	lastPruneTimeMs     int64

	// Capacity-pressure signals, measured since the last prune.
	blockedInCycle  int
	admittedInCycle int

	blockedTotal int
	seen         int
}

func newReplayState(cfg domain.PortfolioConfig) *replayState {
	return &replayState{
		balance:           cfg.InitialBalance,
		initialBalance:    cfg.InitialBalance,
		ledger:            NewLedger(),
		equityPeak:        cfg.InitialBalance,
		cycleStartEquity:  cfg.InitialBalance,
		cycleStartBalance: cfg.InitialBalance,
		equityPeakInCycle: cfg.InitialBalance,
	}
}

// openNotional returns the committed capital still held in open
// positions, at cost (not marked).
func (s *replayState) openNotional() float64 {
	total := 0.0
	for _, p := range s.open {
		total += p.Size * p.RemainingFraction()
	}
	return total
}

// equityAt returns balance plus the marked value of the open book.
func (s *replayState) equityAt() float64 {
	eq := s.balance
	for _, p := range s.open {
		eq += p.Size * p.RemainingFraction() * p.MarkMultiple()
	}
	return eq
}

// removeOpen removes p from the open set, preserving order.
func (s *replayState) removeOpen(p *domain.Position) {
	for i, q := range s.open {
		if q == p {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}

// sampleEquity records one equity-curve point and updates the peak
// and drawdown trackers.
func (s *replayState) sampleEquity(ts int64) {
	eq := s.equityAt()
	if eq > s.equityPeak {
		s.equityPeak = eq
	}
	if eq > s.equityPeakInCycle {
		s.equityPeakInCycle = eq
	}

	dd := 0.0
	if s.equityPeak > 0 {
		dd = (s.equityPeak - eq) / s.equityPeak
	}
	if dd*100 > s.maxDrawdownPct {
		s.maxDrawdownPct = dd * 100
	}

	exposure := 0.0
	if s.balance > 0 {
		exposure = s.openNotional() / s.balance
	}

	s.equityCurve = append(s.equityCurve, domain.EquityPoint{
		TimestampMs: ts,
		Equity:      eq,
		Balance:     s.balance,
		Drawdown:    dd,
		Exposure:    exposure,
	})
}
