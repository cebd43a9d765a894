package portfolio

import (
	"fmt"
	"math"
	"sort"

	"solana-strategy-tester/internal/domain"
)

// profitResetEligible reports whether the profit-taking reset should
// fire at the given logical time.
//
// The baseline-positivity guard is an explicit precondition: a
// baseline at or below zero makes any multiple threshold trivially
// satisfied and would cause runaway repeated resets.
func profitResetEligible(s *replayState, cfg *domain.PortfolioConfig) bool {
	if !cfg.ProfitReset.Enabled {
		return false
	}

	var baseline, peak float64
	switch cfg.ProfitReset.Basis {
	case domain.ResetBasisBalance:
		baseline = s.cycleStartBalance
		peak = s.balance
	default:
		baseline = s.cycleStartEquity
		peak = s.equityPeakInCycle
	}

	if baseline <= 0 {
		return false
	}
	return peak >= baseline*cfg.ProfitReset.Multiple
}

// capacityPruneEligible reports whether the capacity prune should fire.
// Every configured signal (threshold > 0) must be exceeded; a prune
// with no configured signal never fires. The cooldown window gates
// repeated prunes.
func capacityPruneEligible(s *replayState, cfg *domain.PortfolioConfig, nowMs int64) bool {
	pc := cfg.CapacityPrune
	if !pc.Enabled || len(s.open) == 0 {
		return false
	}
	if pc.CooldownMinutes > 0 && s.lastPruneTimeMs > 0 &&
		nowMs-s.lastPruneTimeMs < pc.CooldownMinutes*60_000 {
		return false
	}

	configured := false
	if pc.BlockedRatioThreshold > 0 {
		configured = true
		total := s.blockedInCycle + s.admittedInCycle
		if total == 0 {
			return false
		}
		if float64(s.blockedInCycle)/float64(total) < pc.BlockedRatioThreshold {
			return false
		}
	}
	if pc.AvgHoldMinutesThreshold > 0 {
		configured = true
		sum := 0.0
		for _, p := range s.open {
			sum += float64(nowMs-p.EntryTimeMs) / 60_000.0
		}
		if sum/float64(len(s.open)) < pc.AvgHoldMinutesThreshold {
			return false
		}
	}
	return configured
}

// pruneCohort selects the subset of the open book a capacity prune
// closes: ceil(fraction * book size), at least one, ordered by policy.
// Worst takes the lowest current mark multiple first, oldest the
// earliest entry first; ties break on position id for determinism.
func pruneCohort(s *replayState, cfg *domain.PortfolioConfig) []*domain.Position {
	n := int(math.Ceil(cfg.CapacityPrune.PruneFraction * float64(len(s.open))))
	if n < 1 {
		n = 1
	}
	if n > len(s.open) {
		n = len(s.open)
	}

	candidates := make([]*domain.Position, len(s.open))
	copy(candidates, s.open)

	switch cfg.CapacityPrune.Policy {
	case domain.PruneOldest:
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].EntryTimeMs != candidates[j].EntryTimeMs {
				return candidates[i].EntryTimeMs < candidates[j].EntryTimeMs
			}
			return candidates[i].PositionID < candidates[j].PositionID
		})
	default: // worst
		sort.SliceStable(candidates, func(i, j int) bool {
			mi, mj := candidates[i].MarkMultiple(), candidates[j].MarkMultiple()
			if mi != mj {
				return mi < mj
			}
			return candidates[i].PositionID < candidates[j].PositionID
		})
	}
	return candidates[:n]
}

// selectMarker picks the marker position of a reset cohort: the
// lexicographically smallest position id. Pure function, no ties
// possible because position ids are unique.
func selectMarker(cohort []*domain.Position) (*domain.Position, error) {
	if len(cohort) == 0 {
		return nil, ErrNoResetMarker
	}
	marker := cohort[0]
	for _, p := range cohort[1:] {
		if p.PositionID < marker.PositionID {
			marker = p
		}
	}
	return marker, nil
}

// applyReset force-closes the cohort as one atomic unit and emits the
// trailing PortfolioResetTriggered event. This is the only function
// that mutates a reset counter or a cycle baseline; the two counters
// never share state.
//
// Ordering contract: all PositionClosed events of the cohort precede
// the reset event, and every event carries the same timestamp.
func (e *Engine) applyReset(s *replayState, nowMs int64, reason domain.Reason, cohort []*domain.Position) error {
	marker, err := selectMarker(cohort)
	if err != nil {
		return fmt.Errorf("%s reset at %d: %w", reason, nowMs, err)
	}
	marker.Meta.MarkResetTrigger()

	// Every event of the cohort shares one timestamp, clamped so no
	// close precedes a position's last fill.
	tsMs := nowMs
	for _, p := range cohort {
		if t := forcedCloseTs(p, nowMs); t > tsMs {
			tsMs = t
		}
	}

	for _, p := range cohort {
		p.Meta.MarkClosedByReset(reason)
		if err := e.closePosition(s, p, tsMs, reason, p.LastMarkRawPrice(), p.MarkMultiple()); err != nil {
			return err
		}
	}

	err = s.ledger.Append(&domain.PortfolioEvent{
		TimestampMs:      tsMs,
		Type:             domain.EventPortfolioResetTriggered,
		StrategyID:       marker.StrategyID,
		SignalID:         marker.SignalID,
		ContractAddress:  marker.ContractAddress,
		PositionID:       marker.PositionID,
		Reason:           reason,
		ResetClosedCount: len(cohort),
	})
	if err != nil {
		return err
	}

	switch reason {
	case domain.ReasonProfitReset:
		s.portfolioResetCount++
		s.cycleStartEquity = s.equityAt()
		s.cycleStartBalance = s.balance
		s.equityPeakInCycle = s.cycleStartEquity
		s.lastResetTimeMs = nowMs
	case domain.ReasonCapacityPrune:
		s.runnerResetCount++
		s.lastPruneTimeMs = nowMs
		s.blockedInCycle = 0
		s.admittedInCycle = 0
	}
	return nil
}

// evaluateResets runs both trigger families at the given logical time,
// profit reset first. Each family fires at most once per evaluation.
func (e *Engine) evaluateResets(s *replayState, nowMs int64) error {
	// Fold the current mark into the cycle peak before comparing.
	if eq := s.equityAt(); eq > s.equityPeakInCycle {
		s.equityPeakInCycle = eq
	}

	if profitResetEligible(s, &e.cfg) && len(s.open) > 0 {
		cohort := make([]*domain.Position, len(s.open))
		copy(cohort, s.open)
		if err := e.applyReset(s, nowMs, domain.ReasonProfitReset, cohort); err != nil {
			return err
		}
	}

	if capacityPruneEligible(s, &e.cfg, nowMs) {
		if err := e.applyReset(s, nowMs, domain.ReasonCapacityPrune, pruneCohort(s, &e.cfg)); err != nil {
			return err
		}
	}
	return nil
}
