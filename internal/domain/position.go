package domain

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

// Position lifecycle states. Closed is terminal.
const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Fill is one executed exit recorded in the position's fills ledger.
// The fills ledger, not the closing price, is the source of truth for
// realized PnL.
type Fill struct {
	TimestampMs    int64   `json:"timestamp_ms"`
	TargetMultiple float64 `json:"target_multiple"` // raw ladder target; mark multiple for forced closes
	ExecMultiple   float64 `json:"exec_multiple"`   // exec price / exec entry price
	Fraction       float64 `json:"fraction"`
	RawPrice       float64 `json:"raw_price"`
	ExecPrice      float64 `json:"exec_price"`
	Fees           float64 `json:"fees"`
	PnLDelta       float64 `json:"pnl_delta"`
	Reason         Reason  `json:"reason"`
	Final          bool    `json:"final"`
}

// PositionMeta is the always-present metadata of a position. It is a
// fixed struct rather than a free-form map so that no writer can drop
// a sibling field: every mutation goes through a merge-only setter.
type PositionMeta struct {
	LevelsHit        []float64 `json:"levels_hit"`
	FractionsExited  float64   `json:"fractions_exited"`
	RealizedMultiple float64   `json:"realized_multiple"`
	Fills            []Fill    `json:"partial_exits"`

	ClosedByReset           bool   `json:"closed_by_reset"`
	TriggeredPortfolioReset bool   `json:"triggered_portfolio_reset"`
	ResetReason             Reason `json:"reset_reason,omitempty"`
}

// AddFill appends a fill and folds its fraction and multiple into the
// running aggregates. It never rewrites existing entries.
func (m *PositionMeta) AddFill(f Fill) {
	m.Fills = append(m.Fills, f)
	m.FractionsExited += f.Fraction
	m.RealizedMultiple += f.Fraction * f.ExecMultiple
	if !f.Final {
		m.LevelsHit = append(m.LevelsHit, f.TargetMultiple)
	}
}

// MarkClosedByReset flags the position as force-closed by a systemic
// reset. Reset flags are only ever set, never cleared.
func (m *PositionMeta) MarkClosedByReset(reason Reason) {
	m.ClosedByReset = true
	m.ResetReason = reason
}

// MarkResetTrigger flags the position as the marker of a reset cohort.
func (m *PositionMeta) MarkResetTrigger() {
	m.TriggeredPortfolioReset = true
}

// Position is the portfolio-level execution record for one admitted
// blueprint. It is created once, mutated in place by lifecycle
// transitions, and becomes immutable when the replay returns.
type Position struct {
	PositionID      string `json:"position_id"`
	SignalID        string `json:"signal_id"`
	StrategyID      string `json:"strategy_id"`
	ContractAddress string `json:"contract_address"`

	EntryTimeMs   int64   `json:"entry_time_ms"`
	EntryPriceRaw float64 `json:"entry_price_raw"`
	EntryPrice    float64 `json:"entry_price"` // post-slippage
	Size          float64 `json:"size"`        // committed capital, base currency

	Status PositionStatus `json:"status"`
	Meta   PositionMeta   `json:"meta"`

	// Close fields; ExitPrice is recorded for display only and must
	// never be used to derive PnL.
	ExitTimeMs int64   `json:"exit_time_ms,omitempty"`
	ExitPrice  float64 `json:"exit_price,omitempty"`
	ExitReason Reason  `json:"exit_reason,omitempty"`
	PnL        float64 `json:"pnl"`
	PnLPct     float64 `json:"pnl_pct"`
	FeesTotal  float64 `json:"fees_total"`
}

// RemainingFraction returns the fraction of the position not yet exited.
func (p *Position) RemainingFraction() float64 {
	rem := 1.0 - p.Meta.FractionsExited
	if rem < 0 {
		return 0
	}
	return rem
}

// LastMarkRawPrice returns the last observed raw price for the
// position: the raw price of the latest fill, or the raw entry price
// when no fill has happened yet.
func (p *Position) LastMarkRawPrice() float64 {
	if n := len(p.Meta.Fills); n > 0 {
		return p.Meta.Fills[n-1].RawPrice
	}
	return p.EntryPriceRaw
}

// MarkMultiple returns the exec multiple of the latest fill, or 1.0
// for a freshly opened position.
func (p *Position) MarkMultiple() float64 {
	if n := len(p.Meta.Fills); n > 0 {
		return p.Meta.Fills[n-1].ExecMultiple
	}
	return 1.0
}

// MaxMultiple returns the highest exec multiple reached by any fill.
func (p *Position) MaxMultiple() float64 {
	max := 0.0
	for _, f := range p.Meta.Fills {
		if f.ExecMultiple > max {
			max = f.ExecMultiple
		}
	}
	return max
}

// HoldDurationMs returns exit - entry time for closed positions, 0 otherwise.
func (p *Position) HoldDurationMs() int64 {
	if p.Status != PositionClosed {
		return 0
	}
	return p.ExitTimeMs - p.EntryTimeMs
}
