package portfolio

import (
	"fmt"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/idhash"
)

// fillEpsilon absorbs float accumulation noise when comparing exit
// fractions against the remaining position.
const fillEpsilon = 1e-9

// openPosition admits a blueprint: runs the entry through the
// execution model, commits capital, and emits PositionOpened.
func (e *Engine) openPosition(s *replayState, bp *domain.TradeBlueprint) (*domain.Position, error) {
	positionID := idhash.ComputePositionID(bp.StrategyID, bp.SignalID, bp.EntryTimeMs)

	entryExec := e.exec.SlippedPrice(bp.EntryPriceRaw, SideEntry, "")
	size := positionSize(s, &e.cfg)
	entryFee := e.exec.Fee(size)

	s.balance -= size + entryFee
	s.feesTotal += entryFee

	p := &domain.Position{
		PositionID:      positionID,
		SignalID:        bp.SignalID,
		StrategyID:      bp.StrategyID,
		ContractAddress: bp.ContractAddress,
		EntryTimeMs:     bp.EntryTimeMs,
		EntryPriceRaw:   bp.EntryPriceRaw,
		EntryPrice:      entryExec,
		Size:            size,
		Status:          domain.PositionOpen,
		FeesTotal:       entryFee,
	}
	s.open = append(s.open, p)
	s.all = append(s.all, p)
	s.admittedInCycle++

	err := s.ledger.Append(&domain.PortfolioEvent{
		TimestampMs:     bp.EntryTimeMs,
		Type:            domain.EventPositionOpened,
		StrategyID:      p.StrategyID,
		SignalID:        p.SignalID,
		ContractAddress: p.ContractAddress,
		PositionID:      p.PositionID,
		Execution: &domain.ExecutionDetail{
			RawPrice:      bp.EntryPriceRaw,
			ExecPrice:     entryExec,
			QuantityDelta: size,
			Fees:          entryFee,
		},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// applyPartialExit executes one ladder rung: exits pe.Fraction of the
// position at the rung's target multiple and emits PositionPartialExit.
func (e *Engine) applyPartialExit(s *replayState, p *domain.Position, pe domain.PlannedExit) error {
	if p.Status == domain.PositionClosed {
		return fmt.Errorf("partial exit on position %s: %w", p.PositionID, ErrClosedTransition)
	}
	if pe.Fraction > p.RemainingFraction()+fillEpsilon {
		return fmt.Errorf("position %s: fraction %v with %v remaining: %w",
			p.PositionID, pe.Fraction, p.RemainingFraction(), ErrFractionOverflow)
	}

	rawExit := p.EntryPriceRaw * pe.TargetMultiple
	execExit := e.exec.SlippedPrice(rawExit, SideExit, domain.ReasonLadderTP)
	execMult := execExit / p.EntryPrice

	proceeds := p.Size * pe.Fraction * execMult
	fee := e.exec.Fee(proceeds)
	pnlDelta := p.Size*pe.Fraction*(execMult-1) - fee

	s.balance += proceeds - fee
	s.feesTotal += fee
	p.FeesTotal += fee
	p.PnL += pnlDelta

	p.Meta.AddFill(domain.Fill{
		TimestampMs:    pe.TimestampMs,
		TargetMultiple: pe.TargetMultiple,
		ExecMultiple:   execMult,
		Fraction:       pe.Fraction,
		RawPrice:       rawExit,
		ExecPrice:      execExit,
		Fees:           fee,
		PnLDelta:       pnlDelta,
		Reason:         domain.ReasonLadderTP,
	})

	return s.ledger.Append(&domain.PortfolioEvent{
		TimestampMs:     pe.TimestampMs,
		Type:            domain.EventPositionPartialExit,
		StrategyID:      p.StrategyID,
		SignalID:        p.SignalID,
		ContractAddress: p.ContractAddress,
		PositionID:      p.PositionID,
		Reason:          domain.ReasonLadderTP,
		Execution: &domain.ExecutionDetail{
			RawPrice:       rawExit,
			ExecPrice:      execExit,
			QuantityDelta:  -p.Size * pe.Fraction,
			Fees:           fee,
			PnLDelta:       pnlDelta,
			TargetMultiple: pe.TargetMultiple,
			Fraction:       pe.Fraction,
		},
	})
}

// closePosition closes the remainder at rawExitPrice with the given
// reason and emits PositionClosed. The remainder is always recorded as
// a final fill, never as a partial exit. Realized PnL comes from the
// accumulated fills, not from the closing price.
func (e *Engine) closePosition(s *replayState, p *domain.Position, ts int64, reason domain.Reason, rawExitPrice, targetMultiple float64) error {
	if p.Status == domain.PositionClosed {
		return fmt.Errorf("close on position %s: %w", p.PositionID, ErrClosedTransition)
	}

	execExit := e.exec.SlippedPrice(rawExitPrice, SideExit, reason)
	execMult := execExit / p.EntryPrice

	rem := p.RemainingFraction()
	var fee, pnlDelta float64
	if rem > fillEpsilon {
		proceeds := p.Size * rem * execMult
		fee = e.exec.Fee(proceeds)
		pnlDelta = p.Size*rem*(execMult-1) - fee

		s.balance += proceeds - fee
		s.feesTotal += fee
		p.FeesTotal += fee
		p.PnL += pnlDelta

		p.Meta.AddFill(domain.Fill{
			TimestampMs:    ts,
			TargetMultiple: targetMultiple,
			ExecMultiple:   execMult,
			Fraction:       rem,
			RawPrice:       rawExitPrice,
			ExecPrice:      execExit,
			Fees:           fee,
			PnLDelta:       pnlDelta,
			Reason:         reason,
			Final:          true,
		})
	} else {
		rem = 0
	}

	p.Status = domain.PositionClosed
	p.ExitTimeMs = ts
	p.ExitPrice = execExit
	p.ExitReason = reason
	p.PnLPct = (p.Meta.RealizedMultiple - 1) * 100

	s.removeOpen(p)
	s.closed = append(s.closed, p)

	return s.ledger.Append(&domain.PortfolioEvent{
		TimestampMs:     ts,
		Type:            domain.EventPositionClosed,
		StrategyID:      p.StrategyID,
		SignalID:        p.SignalID,
		ContractAddress: p.ContractAddress,
		PositionID:      p.PositionID,
		Reason:          reason,
		Execution: &domain.ExecutionDetail{
			RawPrice:      rawExitPrice,
			ExecPrice:     execExit,
			QuantityDelta: -p.Size * rem,
			Fees:          fee,
			PnLDelta:      pnlDelta,
		},
	})
}
