package domain

// ExecutionProfile parameterizes the execution-cost model: a base
// slippage rate scaled per event class, plus a proportional swap fee
// and a fixed per-fill network fee. Slippage differs systematically by
// how a trade exits: a panicked stop-loss fills worse than a calm
// take-profit.
type ExecutionProfile struct {
	ProfileID string `json:"profile_id"`

	// BaseSlippagePct is the base slippage, in percent of price.
	BaseSlippagePct float64 `json:"base_slippage_pct"`

	// Per-event-class multipliers applied to BaseSlippagePct.
	EntryMult      float64 `json:"entry_mult"`
	TakeProfitMult float64 `json:"take_profit_mult"`
	StopLossMult   float64 `json:"stop_loss_mult"`
	TimeoutMult    float64 `json:"timeout_mult"`
	ForcedMult     float64 `json:"forced_mult"` // manual/reset/prune exits

	// SwapFeePct applies to executed notional; NetworkFee is charged
	// once per fill regardless of size, in base currency units.
	SwapFeePct float64 `json:"swap_fee_pct"`
	NetworkFee float64 `json:"network_fee"`
}

// Profile ID constants.
const (
	ProfileFrictionless = "frictionless"
	ProfileOptimistic   = "optimistic"
	ProfileRealistic    = "realistic"
	ProfilePessimistic  = "pessimistic"
)

// Predefined execution profiles.
var (
	// ExecutionProfileFrictionless has no slippage and no fees.
	// Useful for exact-arithmetic tests and upper-bound runs.
	ExecutionProfileFrictionless = ExecutionProfile{
		ProfileID: ProfileFrictionless,
	}

	ExecutionProfileOptimistic = ExecutionProfile{
		ProfileID:       ProfileOptimistic,
		BaseSlippagePct: 0.5,
		EntryMult:       1.0,
		TakeProfitMult:  0.5,
		StopLossMult:    1.5,
		TimeoutMult:     1.0,
		ForcedMult:      1.0,
		SwapFeePct:      0.25,
		NetworkFee:      0.000005,
	}

	ExecutionProfileRealistic = ExecutionProfile{
		ProfileID:       ProfileRealistic,
		BaseSlippagePct: 2.0,
		EntryMult:       1.0,
		TakeProfitMult:  0.5,
		StopLossMult:    2.0,
		TimeoutMult:     1.5,
		ForcedMult:      1.5,
		SwapFeePct:      0.3,
		NetworkFee:      0.0001,
	}

	ExecutionProfilePessimistic = ExecutionProfile{
		ProfileID:       ProfilePessimistic,
		BaseSlippagePct: 5.0,
		EntryMult:       1.5,
		TakeProfitMult:  1.0,
		StopLossMult:    3.0,
		TimeoutMult:     2.0,
		ForcedMult:      2.5,
		SwapFeePct:      0.3,
		NetworkFee:      0.001,
	}
)

// ExecutionProfileByID returns a predefined profile, or false when the
// id is unknown.
func ExecutionProfileByID(id string) (ExecutionProfile, bool) {
	switch id {
	case ProfileFrictionless:
		return ExecutionProfileFrictionless, true
	case ProfileOptimistic:
		return ExecutionProfileOptimistic, true
	case ProfileRealistic:
		return ExecutionProfileRealistic, true
	case ProfilePessimistic:
		return ExecutionProfilePessimistic, true
	}
	return ExecutionProfile{}, false
}
