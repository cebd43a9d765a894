package domain

// Reason is the canonical close/skip reason taxonomy.
// The set is closed: every reason that can appear on an event or a
// position comes from the constants below.
type Reason string

// Canonical reason codes.
const (
	ReasonLadderTP      Reason = "ladder_tp"
	ReasonStopLoss      Reason = "stop_loss"
	ReasonMaxHold       Reason = "max_hold_minutes"
	ReasonCapacityPrune Reason = "capacity_prune"
	ReasonProfitReset   Reason = "profit_reset"
	ReasonManualClose   Reason = "manual_close"
	ReasonNoEntry       Reason = "no_entry"
	ReasonError         Reason = "error"
)

// reasonAliases maps legacy free-form reason strings to canonical codes.
// Older exports used several spellings per family; ingesting them goes
// through NormalizeReason so no alias ever leaks downstream.
var reasonAliases = map[string]Reason{
	"tp":               ReasonLadderTP,
	"take_profit":      ReasonLadderTP,
	"ladder_tp":        ReasonLadderTP,
	"all_levels_hit":   ReasonLadderTP,
	"sl":               ReasonStopLoss,
	"stop":             ReasonStopLoss,
	"stop_loss":        ReasonStopLoss,
	"stoploss":         ReasonStopLoss,
	"timeout":          ReasonMaxHold,
	"time_stop":        ReasonMaxHold,
	"max_hold":         ReasonMaxHold,
	"max_hold_minutes": ReasonMaxHold,
	"capacity_prune":   ReasonCapacityPrune,
	"prune":            ReasonCapacityPrune,
	"runner_reset":     ReasonCapacityPrune,
	"profit_reset":     ReasonProfitReset,
	"portfolio_reset":  ReasonProfitReset,
	"manual":           ReasonManualClose,
	"manual_close":     ReasonManualClose,
	"forced":           ReasonManualClose,
	"no_entry":         ReasonNoEntry,
	"error":            ReasonError,
}

// NormalizeReason maps any legacy or free-form reason string into the
// canonical set. The function is total: unknown inputs map to
// ReasonError instead of passing through unmapped.
func NormalizeReason(raw string) Reason {
	if r, ok := reasonAliases[raw]; ok {
		return r
	}
	return ReasonError
}

// Valid reports whether r is a member of the canonical set.
func (r Reason) Valid() bool {
	switch r {
	case ReasonLadderTP, ReasonStopLoss, ReasonMaxHold, ReasonCapacityPrune,
		ReasonProfitReset, ReasonManualClose, ReasonNoEntry, ReasonError:
		return true
	}
	return false
}
