package domain

import (
	"errors"
	"fmt"
)

// Blueprint validation errors.
var (
	ErrMissingSignalID   = errors.New("blueprint missing signal_id")
	ErrMissingStrategyID = errors.New("blueprint missing strategy_id")
	ErrNoEntryPrice      = errors.New("blueprint has no usable entry price")
	ErrFractionSum       = errors.New("blueprint partial exit fractions exceed 1.0")
	ErrExitsUnsorted     = errors.New("blueprint partial exits are not time-sorted")
)

// fractionEpsilon absorbs float accumulation noise when checking that
// exit fractions sum to at most 1.0.
const fractionEpsilon = 1e-9

// PlannedExit is one rung of a ladder take-profit plan: exit Fraction
// of the position when price reaches TargetMultiple of the raw entry.
type PlannedExit struct {
	TimestampMs    int64   `json:"timestamp_ms"`
	TargetMultiple float64 `json:"target_multiple"`
	Fraction       float64 `json:"fraction"`
}

// PlannedFinalExit marks that the strategy itself fully closed the
// position (for example after the last ladder level filled). When nil
// the remainder is the portfolio's responsibility.
type PlannedFinalExit struct {
	TimestampMs    int64   `json:"timestamp_ms"`
	Reason         Reason  `json:"reason"`
	TargetMultiple float64 `json:"target_multiple"` // 0 = close at last observed mark
}

// TradeBlueprint is strategy intent, money-agnostic. Produced once by
// the strategy layer and never mutated afterwards.
type TradeBlueprint struct {
	SignalID        string `json:"signal_id"`
	StrategyID      string `json:"strategy_id"`
	ContractAddress string `json:"contract_address"`

	EntryTimeMs   int64   `json:"entry_time_ms"`
	EntryPriceRaw float64 `json:"entry_price_raw"` // no slippage/fees applied

	// PartialExits are always time-sorted; fractions sum to <= 1.0.
	PartialExits []PlannedExit     `json:"partial_exits"`
	FinalExit    *PlannedFinalExit `json:"final_exit,omitempty"`

	// RealizedMultiple is informational only; the replay engine
	// recomputes it from its own fills and never trusts this value.
	RealizedMultiple float64 `json:"realized_multiple"`
}

// Validate checks the blueprint's structural contract.
//
// A violated fraction sum or exit ordering is a data-integrity error:
// callers must abort rather than repair, because the fills derived
// from a malformed ladder would corrupt the audit trail downstream.
func (b *TradeBlueprint) Validate() error {
	if b.SignalID == "" {
		return ErrMissingSignalID
	}
	if b.StrategyID == "" {
		return ErrMissingStrategyID
	}

	sum := 0.0
	prevTS := int64(0)
	for i, pe := range b.PartialExits {
		if pe.Fraction <= 0 {
			return fmt.Errorf("partial exit %d of signal %s: non-positive fraction %v: %w",
				i, b.SignalID, pe.Fraction, ErrFractionSum)
		}
		if pe.TargetMultiple <= 0 {
			return fmt.Errorf("partial exit %d of signal %s: non-positive target multiple %v: %w",
				i, b.SignalID, pe.TargetMultiple, ErrNoEntryPrice)
		}
		if pe.TimestampMs < prevTS {
			return fmt.Errorf("partial exit %d of signal %s out of order: %w", i, b.SignalID, ErrExitsUnsorted)
		}
		prevTS = pe.TimestampMs
		sum += pe.Fraction
	}
	if sum > 1.0+fractionEpsilon {
		return fmt.Errorf("signal %s: fractions sum to %v: %w", b.SignalID, sum, ErrFractionSum)
	}
	if b.FinalExit != nil && b.FinalExit.TimestampMs < prevTS {
		return fmt.Errorf("final exit of signal %s precedes last partial exit: %w", b.SignalID, ErrExitsUnsorted)
	}
	return nil
}

// ExitFractionSum returns the total fraction covered by partial exits.
func (b *TradeBlueprint) ExitFractionSum() float64 {
	sum := 0.0
	for _, pe := range b.PartialExits {
		sum += pe.Fraction
	}
	return sum
}

// LastTimestampMs returns the latest timestamp the blueprint mentions
// (entry, partial exits, or final exit).
func (b *TradeBlueprint) LastTimestampMs() int64 {
	last := b.EntryTimeMs
	for _, pe := range b.PartialExits {
		if pe.TimestampMs > last {
			last = pe.TimestampMs
		}
	}
	if b.FinalExit != nil && b.FinalExit.TimestampMs > last {
		last = b.FinalExit.TimestampMs
	}
	return last
}
