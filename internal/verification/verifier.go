// Package verification implements read-only audit checks over a
// finished replay and a determinism verifier that re-runs the replay
// from stored inputs and compares field by field.
package verification

import (
	"fmt"
	"math"

	"solana-strategy-tester/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name, prefixed with the entity id
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the outcome of verifying one replay run.
type VerificationResult struct {
	RunID       string
	Match       bool
	Divergences []FieldDivergence
}

// ComparePositions compares two position sets in order and returns
// divergences. Uses FloatTolerance for float64 comparisons.
func ComparePositions(stored, replayed []*domain.Position) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Positions.len",
			Expected: len(stored),
			Actual:   len(replayed),
		})
		return divergences
	}

	for i := range stored {
		divergences = append(divergences, comparePosition(stored[i], replayed[i])...)
	}
	return divergences
}

func comparePosition(stored, replayed *domain.Position) []FieldDivergence {
	var d []FieldDivergence
	id := stored.PositionID

	add := func(field string, expected, actual interface{}) {
		d = append(d, FieldDivergence{
			Field:    fmt.Sprintf("%s.%s", id, field),
			Expected: expected,
			Actual:   actual,
		})
	}

	if stored.PositionID != replayed.PositionID {
		add("PositionID", stored.PositionID, replayed.PositionID)
		return d
	}
	if stored.SignalID != replayed.SignalID {
		add("SignalID", stored.SignalID, replayed.SignalID)
	}
	if stored.StrategyID != replayed.StrategyID {
		add("StrategyID", stored.StrategyID, replayed.StrategyID)
	}
	if stored.ContractAddress != replayed.ContractAddress {
		add("ContractAddress", stored.ContractAddress, replayed.ContractAddress)
	}
	if stored.EntryTimeMs != replayed.EntryTimeMs {
		add("EntryTimeMs", stored.EntryTimeMs, replayed.EntryTimeMs)
	}
	if !floatEquals(stored.EntryPriceRaw, replayed.EntryPriceRaw) {
		add("EntryPriceRaw", stored.EntryPriceRaw, replayed.EntryPriceRaw)
	}
	if !floatEquals(stored.EntryPrice, replayed.EntryPrice) {
		add("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	}
	if !floatEquals(stored.Size, replayed.Size) {
		add("Size", stored.Size, replayed.Size)
	}
	if stored.Status != replayed.Status {
		add("Status", stored.Status, replayed.Status)
	}
	if stored.ExitTimeMs != replayed.ExitTimeMs {
		add("ExitTimeMs", stored.ExitTimeMs, replayed.ExitTimeMs)
	}
	if !floatEquals(stored.ExitPrice, replayed.ExitPrice) {
		add("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	}
	if stored.ExitReason != replayed.ExitReason {
		add("ExitReason", stored.ExitReason, replayed.ExitReason)
	}
	if !floatEquals(stored.PnL, replayed.PnL) {
		add("PnL", stored.PnL, replayed.PnL)
	}
	if !floatEquals(stored.PnLPct, replayed.PnLPct) {
		add("PnLPct", stored.PnLPct, replayed.PnLPct)
	}
	if !floatEquals(stored.FeesTotal, replayed.FeesTotal) {
		add("FeesTotal", stored.FeesTotal, replayed.FeesTotal)
	}

	if stored.Meta.ClosedByReset != replayed.Meta.ClosedByReset {
		add("Meta.ClosedByReset", stored.Meta.ClosedByReset, replayed.Meta.ClosedByReset)
	}
	if stored.Meta.TriggeredPortfolioReset != replayed.Meta.TriggeredPortfolioReset {
		add("Meta.TriggeredPortfolioReset", stored.Meta.TriggeredPortfolioReset, replayed.Meta.TriggeredPortfolioReset)
	}
	if !floatEquals(stored.Meta.RealizedMultiple, replayed.Meta.RealizedMultiple) {
		add("Meta.RealizedMultiple", stored.Meta.RealizedMultiple, replayed.Meta.RealizedMultiple)
	}
	if len(stored.Meta.Fills) != len(replayed.Meta.Fills) {
		add("Meta.Fills.len", len(stored.Meta.Fills), len(replayed.Meta.Fills))
		return d
	}
	for i := range stored.Meta.Fills {
		sf, rf := stored.Meta.Fills[i], replayed.Meta.Fills[i]
		if sf.TimestampMs != rf.TimestampMs {
			add(fmt.Sprintf("Meta.Fills[%d].TimestampMs", i), sf.TimestampMs, rf.TimestampMs)
		}
		if !floatEquals(sf.ExecMultiple, rf.ExecMultiple) {
			add(fmt.Sprintf("Meta.Fills[%d].ExecMultiple", i), sf.ExecMultiple, rf.ExecMultiple)
		}
		if !floatEquals(sf.Fraction, rf.Fraction) {
			add(fmt.Sprintf("Meta.Fills[%d].Fraction", i), sf.Fraction, rf.Fraction)
		}
		if !floatEquals(sf.PnLDelta, rf.PnLDelta) {
			add(fmt.Sprintf("Meta.Fills[%d].PnLDelta", i), sf.PnLDelta, rf.PnLDelta)
		}
		if sf.Reason != rf.Reason {
			add(fmt.Sprintf("Meta.Fills[%d].Reason", i), sf.Reason, rf.Reason)
		}
	}

	return d
}

// CompareEvents compares two event ledgers in seq order and returns
// divergences.
func CompareEvents(stored, replayed []*domain.PortfolioEvent) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Events.len",
			Expected: len(stored),
			Actual:   len(replayed),
		})
		return divergences
	}

	for i := range stored {
		divergences = append(divergences, compareEvent(i, stored[i], replayed[i])...)
	}
	return divergences
}

func compareEvent(seq int, stored, replayed *domain.PortfolioEvent) []FieldDivergence {
	var d []FieldDivergence

	add := func(field string, expected, actual interface{}) {
		d = append(d, FieldDivergence{
			Field:    fmt.Sprintf("events[%d].%s", seq, field),
			Expected: expected,
			Actual:   actual,
		})
	}

	if stored.EventID != replayed.EventID {
		add("EventID", stored.EventID, replayed.EventID)
	}
	if stored.Seq != replayed.Seq {
		add("Seq", stored.Seq, replayed.Seq)
	}
	if stored.TimestampMs != replayed.TimestampMs {
		add("TimestampMs", stored.TimestampMs, replayed.TimestampMs)
	}
	if stored.Type != replayed.Type {
		add("Type", stored.Type, replayed.Type)
	}
	if stored.PositionID != replayed.PositionID {
		add("PositionID", stored.PositionID, replayed.PositionID)
	}
	if stored.Reason != replayed.Reason {
		add("Reason", stored.Reason, replayed.Reason)
	}
	if stored.ResetClosedCount != replayed.ResetClosedCount {
		add("ResetClosedCount", stored.ResetClosedCount, replayed.ResetClosedCount)
	}

	se, re := stored.Execution, replayed.Execution
	if (se == nil) != (re == nil) {
		add("Execution", se, re)
		return d
	}
	if se == nil {
		return d
	}
	if !floatEquals(se.RawPrice, re.RawPrice) {
		add("Execution.RawPrice", se.RawPrice, re.RawPrice)
	}
	if !floatEquals(se.ExecPrice, re.ExecPrice) {
		add("Execution.ExecPrice", se.ExecPrice, re.ExecPrice)
	}
	if !floatEquals(se.QuantityDelta, re.QuantityDelta) {
		add("Execution.QuantityDelta", se.QuantityDelta, re.QuantityDelta)
	}
	if !floatEquals(se.Fees, re.Fees) {
		add("Execution.Fees", se.Fees, re.Fees)
	}
	if !floatEquals(se.PnLDelta, re.PnLDelta) {
		add("Execution.PnLDelta", se.PnLDelta, re.PnLDelta)
	}
	if !floatEquals(se.TargetMultiple, re.TargetMultiple) {
		add("Execution.TargetMultiple", se.TargetMultiple, re.TargetMultiple)
	}
	if !floatEquals(se.Fraction, re.Fraction) {
		add("Execution.Fraction", se.Fraction, re.Fraction)
	}
	return d
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
