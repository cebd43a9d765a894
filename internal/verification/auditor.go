package verification

import (
	"fmt"
	"math"
	"reflect"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/projection"
)

// Violation describes one failed ledger invariant.
type Violation struct {
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

// AuditResult collects all invariant violations found in one replay result.
type AuditResult struct {
	Violations []Violation `json:"violations"`
}

// OK reports whether the audit found no violations.
func (r *AuditResult) OK() bool {
	return len(r.Violations) == 0
}

func (r *AuditResult) add(check, format string, args ...interface{}) {
	r.Violations = append(r.Violations, Violation{
		Check:  check,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Audit runs every read-only invariant check against a finished replay:
// ledger sequencing, per-position lifecycle monotonicity, the
// events/executions bijection, reset-chain correctness, PnL
// conservation, and projection idempotence. It never mutates the result.
func Audit(result *domain.PortfolioResult) *AuditResult {
	r := &AuditResult{}

	positions := make(map[string]*domain.Position, len(result.Positions))
	for _, p := range result.Positions {
		positions[p.PositionID] = p
	}

	checkSequencing(r, result.Events)
	checkLifecycle(r, result.Events)
	checkBijection(r, result.Events)
	checkResetChains(r, result.Events, positions)
	checkPnLConservation(r, result.Positions, result.Events)
	checkProjectionIdempotence(r, result)

	return r
}

// checkSequencing verifies seq values match ledger order and event ids
// are unique.
func checkSequencing(r *AuditResult, events []*domain.PortfolioEvent) {
	seen := make(map[string]int, len(events))
	for i, ev := range events {
		if ev.Seq != i {
			r.add("sequencing", "event %s at index %d has seq %d", ev.EventID, i, ev.Seq)
		}
		if prev, dup := seen[ev.EventID]; dup {
			r.add("sequencing", "event id %s appears at seq %d and %d", ev.EventID, prev, i)
		}
		seen[ev.EventID] = i
	}
}

// checkLifecycle verifies per-position event order: Opened first,
// partial exits only while open, exactly one terminal Closed, and
// non-decreasing timestamps.
func checkLifecycle(r *AuditResult, events []*domain.PortfolioEvent) {
	type lifecycle struct {
		opened bool
		closed bool
		lastTs int64
	}
	state := make(map[string]*lifecycle)

	for _, ev := range events {
		if !ev.Type.IsTradeEvent() {
			continue
		}
		lc := state[ev.PositionID]
		if lc == nil {
			lc = &lifecycle{}
			state[ev.PositionID] = lc
		}

		if lc.opened && ev.TimestampMs < lc.lastTs {
			r.add("monotonic", "position %s: event %s at %d precedes previous event at %d",
				ev.PositionID, ev.Type, ev.TimestampMs, lc.lastTs)
		}
		lc.lastTs = ev.TimestampMs

		switch ev.Type {
		case domain.EventPositionOpened:
			if lc.opened {
				r.add("monotonic", "position %s opened twice", ev.PositionID)
			}
			lc.opened = true
		case domain.EventPositionPartialExit:
			if !lc.opened || lc.closed {
				r.add("monotonic", "position %s: partial exit outside open window", ev.PositionID)
			}
		case domain.EventPositionClosed:
			if !lc.opened {
				r.add("monotonic", "position %s closed before opening", ev.PositionID)
			}
			if lc.closed {
				r.add("monotonic", "position %s closed twice", ev.PositionID)
			}
			lc.closed = true
		}
	}
}

// checkBijection verifies trade events carry exactly one execution
// payload and reset events carry none.
func checkBijection(r *AuditResult, events []*domain.PortfolioEvent) {
	for _, ev := range events {
		if ev.Type.IsTradeEvent() && ev.Execution == nil {
			r.add("bijection", "trade event %s (%s) has no execution payload", ev.EventID, ev.Type)
		}
		if !ev.Type.IsTradeEvent() && ev.Execution != nil {
			r.add("bijection", "event %s (%s) carries an execution payload", ev.EventID, ev.Type)
		}
	}
}

// checkResetChains verifies every reset event is immediately preceded by
// exactly ResetClosedCount PositionClosed events sharing its reason and
// timestamp, and that exactly one position of the cohort is the marker
// referenced by the reset event.
func checkResetChains(r *AuditResult, events []*domain.PortfolioEvent, positions map[string]*domain.Position) {
	for i, ev := range events {
		if ev.Type != domain.EventPortfolioResetTriggered {
			continue
		}
		n := ev.ResetClosedCount
		if n <= 0 {
			r.add("reset-chain", "reset event %s has closed count %d", ev.EventID, n)
			continue
		}
		if i < n {
			r.add("reset-chain", "reset event %s claims %d closes but only %d events precede it", ev.EventID, n, i)
			continue
		}

		markers := 0
		for _, closed := range events[i-n : i] {
			if closed.Type != domain.EventPositionClosed {
				r.add("reset-chain", "reset event %s: preceding event %s is %s, not a close",
					ev.EventID, closed.EventID, closed.Type)
				continue
			}
			if closed.Reason != ev.Reason {
				r.add("reset-chain", "reset event %s: cohort close %s has reason %s, want %s",
					ev.EventID, closed.EventID, closed.Reason, ev.Reason)
			}
			if closed.TimestampMs != ev.TimestampMs {
				r.add("reset-chain", "reset event %s: cohort close %s at %d, reset at %d",
					ev.EventID, closed.EventID, closed.TimestampMs, ev.TimestampMs)
			}
			p := positions[closed.PositionID]
			if p == nil {
				r.add("reset-chain", "reset event %s: cohort position %s not in result", ev.EventID, closed.PositionID)
				continue
			}
			if !p.Meta.ClosedByReset {
				r.add("reset-chain", "position %s closed by reset %s but not flagged", p.PositionID, ev.EventID)
			}
			if p.Meta.TriggeredPortfolioReset {
				markers++
				if p.PositionID != ev.PositionID {
					r.add("reset-chain", "reset event %s references marker %s but cohort marker is %s",
						ev.EventID, ev.PositionID, p.PositionID)
				}
			}
		}
		if markers != 1 {
			r.add("reset-chain", "reset event %s has %d marker positions in its cohort, want 1", ev.EventID, markers)
		}
	}
}

// checkPnLConservation verifies, per closed position, that the fills
// ledger and the event executions both sum to the recorded PnL.
func checkPnLConservation(r *AuditResult, positions []*domain.Position, events []*domain.PortfolioEvent) {
	eventSums := make(map[string]float64)
	for _, ev := range events {
		if ev.Execution == nil || ev.Type == domain.EventPositionOpened {
			continue
		}
		eventSums[ev.PositionID] += ev.Execution.PnLDelta
	}

	for _, p := range positions {
		if p.Status != domain.PositionClosed {
			continue
		}
		fillSum := 0.0
		for _, f := range p.Meta.Fills {
			fillSum += f.PnLDelta
		}
		if math.Abs(fillSum-p.PnL) > FloatTolerance {
			r.add("pnl-conservation", "position %s: fills sum to %.9f, recorded pnl %.9f",
				p.PositionID, fillSum, p.PnL)
		}
		if math.Abs(eventSums[p.PositionID]-p.PnL) > FloatTolerance {
			r.add("pnl-conservation", "position %s: event deltas sum to %.9f, recorded pnl %.9f",
				p.PositionID, eventSums[p.PositionID], p.PnL)
		}
	}
}

// checkProjectionIdempotence verifies regenerating the three projection
// tables from the same result yields identical tables.
func checkProjectionIdempotence(r *AuditResult, result *domain.PortfolioResult) {
	if !reflect.DeepEqual(projection.BuildPositionRows(result.Positions), projection.BuildPositionRows(result.Positions)) {
		r.add("idempotence", "positions table differs between regenerations")
	}

	first, err1 := projection.BuildEventRows(result.Events)
	second, err2 := projection.BuildEventRows(result.Events)
	if err1 != nil || err2 != nil {
		r.add("idempotence", "events table build failed: %v / %v", err1, err2)
	} else if !reflect.DeepEqual(first, second) {
		r.add("idempotence", "events table differs between regenerations")
	}

	if !reflect.DeepEqual(projection.BuildExecutionRows(result.Events), projection.BuildExecutionRows(result.Events)) {
		r.add("idempotence", "executions table differs between regenerations")
	}
}
