package projection

import (
	"fmt"
	"strings"
)

// RenderPositionsCSV renders position rows as a CSV string.
func RenderPositionsCSV(rows []PositionRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("position_id,signal_id,strategy_id,contract_address,entry_time_ms,entry_price_raw,entry_price,")
	sb.WriteString("exit_time_ms,exit_price,exit_reason,size,pnl,pnl_pct,fees_total,")
	sb.WriteString("realized_multiple,max_multiple,hold_minutes,hit_2x,hit_5x,hit_10x,")
	sb.WriteString("closed_by_reset,triggered_portfolio_reset,reset_reason\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%.6f,%.6f,%d,%.6f,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%t,%t,%t,%t,%t,%s\n",
			r.PositionID,
			r.SignalID,
			r.StrategyID,
			r.ContractAddress,
			r.EntryTimeMs,
			r.EntryPriceRaw,
			r.EntryPrice,
			r.ExitTimeMs,
			r.ExitPrice,
			r.ExitReason,
			r.Size,
			r.PnL,
			r.PnLPct,
			r.FeesTotal,
			r.RealizedMultiple,
			r.MaxMultiple,
			r.HoldMinutes,
			r.Hit2x,
			r.Hit5x,
			r.Hit10x,
			r.ClosedByReset,
			r.TriggeredPortfolioReset,
			r.ResetReason,
		))
	}

	return sb.String()
}

// RenderEventsCSV renders event rows as a CSV string. The meta blob is
// quoted because it contains commas.
func RenderEventsCSV(rows []EventRow) string {
	var sb strings.Builder

	sb.WriteString("event_id,seq,timestamp_ms,type,position_id,signal_id,reason,meta_json\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%s,%s,%q\n",
			r.EventID,
			r.Seq,
			r.TimestampMs,
			r.Type,
			r.PositionID,
			r.SignalID,
			r.Reason,
			r.MetaJSON,
		))
	}

	return sb.String()
}

// RenderExecutionsCSV renders execution rows as a CSV string.
func RenderExecutionsCSV(rows []ExecutionRow) string {
	var sb strings.Builder

	sb.WriteString("event_id,position_id,timestamp_ms,type,quantity_delta,raw_price,exec_price,fees,pnl_delta,target_multiple,fraction\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			r.EventID,
			r.PositionID,
			r.TimestampMs,
			r.Type,
			r.QuantityDelta,
			r.RawPrice,
			r.ExecPrice,
			r.Fees,
			r.PnLDelta,
			r.TargetMultiple,
			r.Fraction,
		))
	}

	return sb.String()
}
