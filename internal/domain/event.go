package domain

// EventType identifies a canonical business event. Exactly four
// variants exist; projections and the auditor reject anything else.
type EventType string

// Event type constants.
const (
	EventPositionOpened          EventType = "position_opened"
	EventPositionPartialExit     EventType = "position_partial_exit"
	EventPositionClosed          EventType = "position_closed"
	EventPortfolioResetTriggered EventType = "portfolio_reset_triggered"
)

// ExecutionDetail is the per-event execution payload. Every trade
// event (opened/partial/closed) carries exactly one; reset events
// carry none. There is no separate execution entity: this payload IS
// the execution record.
type ExecutionDetail struct {
	RawPrice      float64 `json:"raw_price"`
	ExecPrice     float64 `json:"exec_price"`
	QuantityDelta float64 `json:"quantity_delta"` // signed committed-capital delta
	Fees          float64 `json:"fees"`
	PnLDelta      float64 `json:"pnl_delta"`

	// Ladder exits only; zero otherwise.
	TargetMultiple float64 `json:"target_multiple,omitempty"`
	Fraction       float64 `json:"fraction,omitempty"`
}

// PortfolioEvent is one entry of the append-only canonical ledger.
type PortfolioEvent struct {
	EventID     string    `json:"event_id"`
	Seq         int       `json:"seq"` // ledger append order, 0-based
	TimestampMs int64     `json:"timestamp_ms"`
	Type        EventType `json:"type"`

	StrategyID      string `json:"strategy_id"`
	SignalID        string `json:"signal_id"`
	ContractAddress string `json:"contract_address"`
	// PositionID references the subject position; for reset events it
	// references the cohort's marker position.
	PositionID string `json:"position_id"`

	// Reason is set on partial/close/reset events.
	Reason Reason `json:"reason,omitempty"`

	// Execution is non-nil on exactly the three trade event types.
	Execution *ExecutionDetail `json:"execution,omitempty"`

	// ResetClosedCount is the cohort size recorded on reset events.
	ResetClosedCount int `json:"reset_closed_count,omitempty"`
}

// IsTradeEvent reports whether the event type must carry an execution
// payload (the events/executions bijection).
func (t EventType) IsTradeEvent() bool {
	switch t {
	case EventPositionOpened, EventPositionPartialExit, EventPositionClosed:
		return true
	}
	return false
}
