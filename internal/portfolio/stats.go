package portfolio

import "solana-strategy-tester/internal/domain"

// buildStats assembles the run summary after all positions closed.
// A position with pnl >= 0 counts as a win.
func buildStats(s *replayState) domain.ReplayStats {
	wins, losses := 0, 0
	for _, p := range s.all {
		if p.PnL >= 0 {
			wins++
		} else {
			losses++
		}
	}

	winRate := 0.0
	if len(s.all) > 0 {
		winRate = float64(wins) / float64(len(s.all))
	}

	returnPct := 0.0
	if s.initialBalance > 0 {
		returnPct = (s.balance - s.initialBalance) / s.initialBalance * 100
	}

	return domain.ReplayStats{
		InitialBalance: s.initialBalance,
		FinalBalance:   s.balance,
		Profit:         s.balance - s.initialBalance,
		ReturnPct:      returnPct,

		Positions: len(s.all),
		Wins:      wins,
		Losses:    losses,
		WinRate:   winRate,

		EquityPeak:     s.equityPeak,
		MaxDrawdownPct: s.maxDrawdownPct,
		FeesTotal:      s.feesTotal,

		BlueprintsSeen:    s.seen,
		BlueprintsOpened:  len(s.all),
		BlueprintsBlocked: s.blockedTotal,
		BlueprintsSkipped: len(s.skipped),

		RunnerResets:    s.runnerResetCount,
		PortfolioResets: s.portfolioResetCount,
	}
}
