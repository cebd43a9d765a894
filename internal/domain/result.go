package domain

// EquityPoint is one sample of the equity curve, taken after each
// blueprint is processed.
type EquityPoint struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Equity      float64 `json:"equity"`  // balance + marked value of open book
	Balance     float64 `json:"balance"` // realized cash
	Drawdown    float64 `json:"drawdown"`
	Exposure    float64 `json:"exposure"` // open committed capital / balance
}

// SkippedBlueprint records a blueprint excluded by the recoverable
// data-issue path. Capacity refusals are NOT recorded here: those are
// business skips, not data issues.
type SkippedBlueprint struct {
	SignalID string `json:"signal_id"`
	Reason   Reason `json:"reason"` // no_entry or error
	Detail   string `json:"detail"`
}

// ReplayStats aggregates one replay run.
type ReplayStats struct {
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	Profit         float64 `json:"profit"`
	ReturnPct      float64 `json:"return_pct"`

	Positions int     `json:"positions"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinRate   float64 `json:"win_rate"`

	EquityPeak     float64 `json:"equity_peak"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	FeesTotal      float64 `json:"fees_total"`

	BlueprintsSeen    int `json:"blueprints_seen"`
	BlueprintsOpened  int `json:"blueprints_opened"`
	BlueprintsBlocked int `json:"blueprints_blocked"` // capacity/exposure refusals
	BlueprintsSkipped int `json:"blueprints_skipped"` // data issues

	RunnerResets    int `json:"runner_resets"`    // capacity prunes
	PortfolioResets int `json:"portfolio_resets"` // profit resets
}

// PortfolioResult is the immutable output of one replay run. Nothing
// downstream may mutate it; projections are derived copies.
type PortfolioResult struct {
	Config PortfolioConfig `json:"config"`

	Positions   []*Position        `json:"positions"` // closed and still-open-at-finalize, entry order
	Events      []*PortfolioEvent  `json:"events"`    // the canonical ledger, append order
	EquityCurve []EquityPoint      `json:"equity_curve"`
	Skipped     []SkippedBlueprint `json:"skipped,omitempty"`
	Stats       ReplayStats        `json:"stats"`
}

// ReplayRun is the persisted summary of a completed replay.
type ReplayRun struct {
	RunID          string      `json:"run_id"` // deterministic hash
	StrategyID     string      `json:"strategy_id"`
	ProfileID      string      `json:"profile_id"`
	BlueprintCount int         `json:"blueprint_count"`
	Stats          ReplayStats `json:"stats"`
	CreatedAtMs    int64       `json:"created_at_ms"`
}
