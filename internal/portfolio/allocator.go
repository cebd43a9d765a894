package portfolio

import "solana-strategy-tester/internal/domain"

// canOpen decides whether a new position may open given the current
// book. A refusal is a business decision, not an error.
func canOpen(s *replayState, cfg *domain.PortfolioConfig) bool {
	if cfg.MaxOpenPositions > 0 && len(s.open) >= cfg.MaxOpenPositions {
		return false
	}
	if cfg.MaxExposure > 0 {
		if s.balance <= 0 {
			return false
		}
		if s.openNotional()/s.balance >= cfg.MaxExposure {
			return false
		}
	}
	return true
}

// positionSize returns the capital to commit for a new position.
// Fixed mode sizes off the initial balance, dynamic off the current
// balance; the choice changes compounding behavior.
func positionSize(s *replayState, cfg *domain.PortfolioConfig) float64 {
	base := s.initialBalance
	if cfg.AllocationMode == domain.AllocationDynamic {
		base = s.balance
	}
	size := base * cfg.AllocationPct
	if size > s.balance {
		size = s.balance
	}
	if size < 0 {
		return 0
	}
	return size
}
