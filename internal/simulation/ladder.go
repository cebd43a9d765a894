// Package simulation builds trade blueprints by walking price series
// against ladder take-profit plans. It sits upstream of the portfolio
// replay and is deliberately money-agnostic: it decides which ladder
// levels a price path hits, never how much capital they move.
package simulation

import (
	"errors"
	"fmt"
	"strings"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/lookup"
)

// Ladder errors.
var (
	ErrEmptyLadder       = errors.New("ladder has no levels")
	ErrLadderNotSorted   = errors.New("ladder levels must be strictly ascending")
	ErrLadderFractionSum = errors.New("ladder fractions must sum to 1.0")
)

// LadderLevel is one rung of a take-profit plan: exit Fraction of the
// position when price reaches TargetMultiple of the entry.
type LadderLevel struct {
	TargetMultiple float64
	Fraction       float64
}

// LadderSpec is a complete ladder take-profit plan. Fractions sum to
// exactly 1.0: the last level closes the remainder when hit.
type LadderSpec struct {
	Levels []LadderLevel
}

// ID returns the strategy identifier including parameters, e.g.
// LADDER_TP_2x40_5x40_10x20.
func (l *LadderSpec) ID() string {
	parts := make([]string, len(l.Levels))
	for i, lv := range l.Levels {
		parts[i] = fmt.Sprintf("%gx%g", lv.TargetMultiple, lv.Fraction*100)
	}
	return "LADDER_TP_" + strings.Join(parts, "_")
}

// Validate checks the ladder's structural contract.
func (l *LadderSpec) Validate() error {
	if len(l.Levels) == 0 {
		return ErrEmptyLadder
	}
	sum := 0.0
	prev := 1.0
	for i, lv := range l.Levels {
		if lv.TargetMultiple <= prev {
			return fmt.Errorf("level %d multiple %v: %w", i, lv.TargetMultiple, ErrLadderNotSorted)
		}
		if lv.Fraction <= 0 {
			return fmt.Errorf("level %d fraction %v: %w", i, lv.Fraction, ErrLadderFractionSum)
		}
		prev = lv.TargetMultiple
		sum += lv.Fraction
	}
	if sum < 1.0-1e-9 || sum > 1.0+1e-9 {
		return fmt.Errorf("fractions sum to %v: %w", sum, ErrLadderFractionSum)
	}
	return nil
}

// DefaultLadder is the 2x/5x/10x plan used across the repo's examples.
var DefaultLadder = LadderSpec{Levels: []LadderLevel{
	{TargetMultiple: 2.0, Fraction: 0.4},
	{TargetMultiple: 5.0, Fraction: 0.4},
	{TargetMultiple: 10.0, Fraction: 0.2},
}}

// BuildBlueprint walks the price series from entryTimeMs and records a
// partial exit at the first observation meeting each level, in order.
// Levels must be hit in sequence; a later level never fills before an
// earlier one.
//
// When every level is hit, the last one becomes the blueprint's final
// exit with reason ladder_tp. When only a prefix is hit, the blueprint
// carries no final exit and the remainder is the portfolio's
// responsibility.
func (l *LadderSpec) BuildBlueprint(signalID, strategyID, contractAddress string, entryTimeMs int64, prices []*domain.PricePoint) (*domain.TradeBlueprint, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	entryPrice, err := lookup.PriceAt(entryTimeMs, prices)
	if err != nil {
		return nil, err
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("entry price %v for %s: %w", entryPrice, contractAddress, domain.ErrNoEntryPrice)
	}

	bp := &domain.TradeBlueprint{
		SignalID:        signalID,
		StrategyID:      strategyID,
		ContractAddress: contractAddress,
		EntryTimeMs:     entryTimeMs,
		EntryPriceRaw:   entryPrice,
	}

	level := 0
	cursor := entryTimeMs
	for _, pt := range prices {
		if level >= len(l.Levels) {
			break
		}
		if pt.TimestampMs < cursor {
			continue
		}
		lv := l.Levels[level]
		if pt.Price < entryPrice*lv.TargetMultiple {
			continue
		}

		if level == len(l.Levels)-1 {
			bp.FinalExit = &domain.PlannedFinalExit{
				TimestampMs:    pt.TimestampMs,
				Reason:         domain.ReasonLadderTP,
				TargetMultiple: lv.TargetMultiple,
			}
		} else {
			bp.PartialExits = append(bp.PartialExits, domain.PlannedExit{
				TimestampMs:    pt.TimestampMs,
				TargetMultiple: lv.TargetMultiple,
				Fraction:       lv.Fraction,
			})
		}
		level++
		cursor = pt.TimestampMs
	}

	for _, pe := range bp.PartialExits {
		bp.RealizedMultiple += pe.Fraction * pe.TargetMultiple
	}
	if bp.FinalExit != nil {
		bp.RealizedMultiple += l.Levels[len(l.Levels)-1].Fraction * bp.FinalExit.TargetMultiple
	}
	return bp, nil
}
