package domain

// StrategyAggregate summarizes closed positions of one strategy under
// one execution profile. Stored in ClickHouse for cross-run reporting.
type StrategyAggregate struct {
	StrategyID string `json:"strategy_id"`
	ProfileID  string `json:"profile_id"`
	RunID      string `json:"run_id"`

	Positions int     `json:"positions"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinRate   float64 `json:"win_rate"`

	TotalPnL  float64 `json:"total_pnl"`
	AvgPnL    float64 `json:"avg_pnl"`
	MedianPnL float64 `json:"median_pnl"`
	P90PnL    float64 `json:"p90_pnl"`

	AvgHoldMinutes float64 `json:"avg_hold_minutes"`
	Hit2xRate      float64 `json:"hit_2x_rate"`
	Hit5xRate      float64 `json:"hit_5x_rate"`
	Hit10xRate     float64 `json:"hit_10x_rate"`

	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	FeesTotal            float64 `json:"fees_total"`

	ComputedAtMs int64 `json:"computed_at_ms"`
}
