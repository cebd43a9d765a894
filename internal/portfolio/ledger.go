package portfolio

import (
	"fmt"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/idhash"
)

// Ledger is the append-only canonical event log of one replay run.
// No event is ever edited or removed once appended; sequence numbers
// and event ids are assigned here and nowhere else.
type Ledger struct {
	events []*domain.PortfolioEvent
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append validates the execution bijection, assigns seq and event_id,
// and appends the event. Timestamps within one position must be
// non-decreasing; the caller owns that ordering, the auditor checks it.
func (l *Ledger) Append(ev *domain.PortfolioEvent) error {
	if ev.Type.IsTradeEvent() && ev.Execution == nil {
		return fmt.Errorf("%s event for position %s has no execution payload: %w",
			ev.Type, ev.PositionID, ErrExecutionBijection)
	}
	if !ev.Type.IsTradeEvent() && ev.Execution != nil {
		return fmt.Errorf("%s event for position %s carries an execution payload: %w",
			ev.Type, ev.PositionID, ErrExecutionBijection)
	}

	ev.Seq = l.Len()
	ev.EventID = idhash.ComputeEventID(ev.PositionID, string(ev.Type), int64(ev.Seq), ev.TimestampMs)
	l.events = append(l.events, ev)
	return nil
}

// Events returns the ledger contents in append order. The slice is
// shared; callers must not mutate it.
func (l *Ledger) Events() []*domain.PortfolioEvent {
	return l.events
}

// Len returns the number of appended events.
func (l *Ledger) Len() int {
	return len(l.events)
}
