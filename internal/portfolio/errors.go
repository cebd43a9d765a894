package portfolio

import "errors"

// Fatal contract violations. Any of these aborts the replay run:
// downstream audit relies on the ledger invariants holding
// unconditionally, so a run that breaks one must not produce output.
var (
	// ErrFractionOverflow indicates exit fractions would exceed the
	// remaining position. Never truncated silently.
	ErrFractionOverflow = errors.New("exit fraction exceeds remaining position")

	// ErrClosedTransition indicates a lifecycle transition was
	// attempted on a closed position.
	ErrClosedTransition = errors.New("transition attempted on closed position")

	// ErrNoResetMarker indicates a reset cohort with no resolvable
	// marker position.
	ErrNoResetMarker = errors.New("reset cohort has no resolvable marker position")

	// ErrExecutionBijection indicates a trade event without an
	// execution payload, or a non-trade event carrying one.
	ErrExecutionBijection = errors.New("event violates execution payload bijection")
)
