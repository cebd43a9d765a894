package portfolio

import "solana-strategy-tester/internal/domain"

// Side distinguishes entry fills from exit fills for slippage purposes.
type Side int

// Fill sides.
const (
	SideEntry Side = iota
	SideExit
)

// ExecModel converts raw prices into effective (slipped) prices and
// computes fill fees. It is pure and stateless: same inputs always
// produce the same outputs.
type ExecModel struct {
	profile domain.ExecutionProfile
}

// NewExecModel creates an execution model from a profile.
func NewExecModel(profile domain.ExecutionProfile) *ExecModel {
	return &ExecModel{profile: profile}
}

// slippageMult returns the per-event-class multiplier applied to the
// base slippage rate. Exits slip differently by how the trade exits.
func (m *ExecModel) slippageMult(side Side, reason domain.Reason) float64 {
	if side == SideEntry {
		return m.profile.EntryMult
	}
	switch reason {
	case domain.ReasonLadderTP:
		return m.profile.TakeProfitMult
	case domain.ReasonStopLoss:
		return m.profile.StopLossMult
	case domain.ReasonMaxHold:
		return m.profile.TimeoutMult
	default:
		// manual_close, capacity_prune, profit_reset and anything
		// else forced.
		return m.profile.ForcedMult
	}
}

// SlippedPrice applies reason-dependent slippage to a raw price.
// Entries fill above the raw price, exits below.
func (m *ExecModel) SlippedPrice(rawPrice float64, side Side, reason domain.Reason) float64 {
	slip := m.profile.BaseSlippagePct * m.slippageMult(side, reason) / 100.0
	if side == SideEntry {
		return rawPrice * (1.0 + slip)
	}
	return rawPrice * (1.0 - slip)
}

// Fee returns the total fee for a fill of the given executed notional:
// a proportional swap fee plus a fixed per-fill network fee.
func (m *ExecModel) Fee(notional float64) float64 {
	if notional <= 0 {
		return 0
	}
	return notional*m.profile.SwapFeePct/100.0 + m.profile.NetworkFee
}
