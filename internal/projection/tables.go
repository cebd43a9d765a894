// Package projection derives the three flat tabular views consumed by
// the audit/research pipeline from a replay result: positions, events,
// and executions. Projections are regenerable from the ledger at any
// time and are never themselves a source of truth.
package projection

import (
	"encoding/json"

	"solana-strategy-tester/internal/domain"
)

// PositionRow is one row of the positions table.
type PositionRow struct {
	PositionID      string  `json:"position_id"`
	SignalID        string  `json:"signal_id"`
	StrategyID      string  `json:"strategy_id"`
	ContractAddress string  `json:"contract_address"`
	EntryTimeMs     int64   `json:"entry_time_ms"`
	EntryPriceRaw   float64 `json:"entry_price_raw"`
	EntryPrice      float64 `json:"entry_price"`
	ExitTimeMs      int64   `json:"exit_time_ms"`
	ExitPrice       float64 `json:"exit_price"`
	ExitReason      string  `json:"exit_reason"`
	Size            float64 `json:"size"`
	PnL             float64 `json:"pnl"`
	PnLPct          float64 `json:"pnl_pct"`
	FeesTotal       float64 `json:"fees_total"`

	RealizedMultiple float64 `json:"realized_multiple"`
	MaxMultiple      float64 `json:"max_multiple"`
	HoldMinutes      float64 `json:"hold_minutes"`

	Hit2x  bool `json:"hit_2x"`
	Hit5x  bool `json:"hit_5x"`
	Hit10x bool `json:"hit_10x"`

	ClosedByReset           bool   `json:"closed_by_reset"`
	TriggeredPortfolioReset bool   `json:"triggered_portfolio_reset"`
	ResetReason             string `json:"reset_reason"`
}

// EventRow is one row of the events table. MetaJSON carries the
// execution payload as a structured blob.
type EventRow struct {
	EventID     string `json:"event_id"`
	Seq         int    `json:"seq"`
	TimestampMs int64  `json:"timestamp_ms"`
	Type        string `json:"type"`
	PositionID  string `json:"position_id"`
	SignalID    string `json:"signal_id"`
	Reason      string `json:"reason"`
	MetaJSON    string `json:"meta_json"`
}

// ExecutionRow is one row of the executions table: the execution
// payload of one trade event.
type ExecutionRow struct {
	EventID        string  `json:"event_id"`
	PositionID     string  `json:"position_id"`
	TimestampMs    int64   `json:"timestamp_ms"`
	Type           string  `json:"type"`
	QuantityDelta  float64 `json:"quantity_delta"`
	RawPrice       float64 `json:"raw_price"`
	ExecPrice      float64 `json:"exec_price"`
	Fees           float64 `json:"fees"`
	PnLDelta       float64 `json:"pnl_delta"`
	TargetMultiple float64 `json:"target_multiple"`
	Fraction       float64 `json:"fraction"`
}

// BuildPositionRows flattens positions into table rows, preserving
// input order. Rebuilding from the same result yields identical rows.
func BuildPositionRows(positions []*domain.Position) []PositionRow {
	rows := make([]PositionRow, 0, len(positions))
	for _, p := range positions {
		maxMult := p.MaxMultiple()
		rows = append(rows, PositionRow{
			PositionID:      p.PositionID,
			SignalID:        p.SignalID,
			StrategyID:      p.StrategyID,
			ContractAddress: p.ContractAddress,
			EntryTimeMs:     p.EntryTimeMs,
			EntryPriceRaw:   p.EntryPriceRaw,
			EntryPrice:      p.EntryPrice,
			ExitTimeMs:      p.ExitTimeMs,
			ExitPrice:       p.ExitPrice,
			ExitReason:      string(p.ExitReason),
			Size:            p.Size,
			PnL:             p.PnL,
			PnLPct:          p.PnLPct,
			FeesTotal:       p.FeesTotal,

			RealizedMultiple: p.Meta.RealizedMultiple,
			MaxMultiple:      maxMult,
			HoldMinutes:      float64(p.HoldDurationMs()) / 60_000.0,

			Hit2x:  maxMult >= 2.0,
			Hit5x:  maxMult >= 5.0,
			Hit10x: maxMult >= 10.0,

			ClosedByReset:           p.Meta.ClosedByReset,
			TriggeredPortfolioReset: p.Meta.TriggeredPortfolioReset,
			ResetReason:             string(p.Meta.ResetReason),
		})
	}
	return rows
}

// BuildEventRows flattens the ledger into table rows in seq order.
func BuildEventRows(events []*domain.PortfolioEvent) ([]EventRow, error) {
	rows := make([]EventRow, 0, len(events))
	for _, ev := range events {
		meta, err := eventMeta(ev)
		if err != nil {
			return nil, err
		}
		rows = append(rows, EventRow{
			EventID:     ev.EventID,
			Seq:         ev.Seq,
			TimestampMs: ev.TimestampMs,
			Type:        string(ev.Type),
			PositionID:  ev.PositionID,
			SignalID:    ev.SignalID,
			Reason:      string(ev.Reason),
			MetaJSON:    meta,
		})
	}
	return rows, nil
}

// BuildExecutionRows extracts one row per execution payload, in seq
// order. Reset events carry no payload and produce no row.
func BuildExecutionRows(events []*domain.PortfolioEvent) []ExecutionRow {
	var rows []ExecutionRow
	for _, ev := range events {
		if ev.Execution == nil {
			continue
		}
		rows = append(rows, ExecutionRow{
			EventID:        ev.EventID,
			PositionID:     ev.PositionID,
			TimestampMs:    ev.TimestampMs,
			Type:           string(ev.Type),
			QuantityDelta:  ev.Execution.QuantityDelta,
			RawPrice:       ev.Execution.RawPrice,
			ExecPrice:      ev.Execution.ExecPrice,
			Fees:           ev.Execution.Fees,
			PnLDelta:       ev.Execution.PnLDelta,
			TargetMultiple: ev.Execution.TargetMultiple,
			Fraction:       ev.Execution.Fraction,
		})
	}
	return rows
}

// eventMeta serializes the event's payload fields into a stable JSON
// blob. Struct field order keeps the output deterministic.
func eventMeta(ev *domain.PortfolioEvent) (string, error) {
	meta := struct {
		Execution        *domain.ExecutionDetail `json:"execution,omitempty"`
		ResetClosedCount int                     `json:"reset_closed_count,omitempty"`
		ContractAddress  string                  `json:"contract_address"`
		StrategyID       string                  `json:"strategy_id"`
	}{
		Execution:        ev.Execution,
		ResetClosedCount: ev.ResetClosedCount,
		ContractAddress:  ev.ContractAddress,
		StrategyID:       ev.StrategyID,
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
