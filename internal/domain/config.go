package domain

import "errors"

// Config validation errors.
var (
	ErrNonPositiveBalance  = errors.New("initial balance must be positive")
	ErrBadAllocationMode   = errors.New("allocation mode must be fixed or dynamic")
	ErrBadAllocationPct    = errors.New("allocation pct must be in (0, 1]")
	ErrBadProfitResetBasis = errors.New("profit reset basis must be equity or balance")
	ErrBadProfitResetMult  = errors.New("profit reset multiple must be > 1")
	ErrBadPruneFraction    = errors.New("capacity prune fraction must be in (0, 1]")
	ErrBadPrunePolicy      = errors.New("capacity prune policy must be worst or oldest")
)

// AllocationMode selects how position size is derived.
type AllocationMode string

// Allocation modes. Fixed sizes off the initial balance; dynamic sizes
// off the current balance, which changes compounding behavior.
const (
	AllocationFixed   AllocationMode = "fixed"
	AllocationDynamic AllocationMode = "dynamic"
)

// ProfitResetBasis selects the baseline/peak pair for profit resets.
type ProfitResetBasis string

// Profit reset bases.
const (
	// ResetBasisEquity compares equity_peak_in_cycle against cycle_start_equity.
	ResetBasisEquity ProfitResetBasis = "equity"
	// ResetBasisBalance compares current realized balance against cycle_start_balance.
	ResetBasisBalance ProfitResetBasis = "balance"
)

// ProfitResetConfig controls the profit-taking systemic reset.
type ProfitResetConfig struct {
	Enabled  bool             `json:"enabled"`
	Multiple float64          `json:"multiple"` // fire when peak >= baseline * Multiple
	Basis    ProfitResetBasis `json:"basis"`
}

// PrunePolicy selects which subset of the book a capacity prune closes.
type PrunePolicy string

// Prune policies.
const (
	PruneWorst  PrunePolicy = "worst"  // lowest current mark multiple first
	PruneOldest PrunePolicy = "oldest" // earliest entry time first
)

// CapacityPruneConfig controls the capacity-pressure systemic reset.
// A threshold of zero disables that signal; at least one signal must
// be configured for the prune to ever fire.
type CapacityPruneConfig struct {
	Enabled                 bool        `json:"enabled"`
	BlockedRatioThreshold   float64     `json:"blocked_ratio_threshold"`    // blocked / (blocked + admitted)
	AvgHoldMinutesThreshold float64     `json:"avg_hold_minutes_threshold"` // mean hold time of open book
	PruneFraction           float64     `json:"prune_fraction"`             // share of open book to close
	CooldownMinutes         int64       `json:"cooldown_minutes"`
	Policy                  PrunePolicy `json:"policy"`
}

// PortfolioConfig is the full parameter set of one replay run.
type PortfolioConfig struct {
	InitialBalance float64        `json:"initial_balance"`
	AllocationMode AllocationMode `json:"allocation_mode"`
	AllocationPct  float64        `json:"allocation_pct"` // fraction of balance per position

	MaxOpenPositions int     `json:"max_open_positions"` // 0 = unlimited
	MaxExposure      float64 `json:"max_exposure"`       // open notional / balance cap; 0 = unlimited
	MaxHoldMinutes   int64   `json:"max_hold_minutes"`   // 0 = no time stop

	Execution     ExecutionProfile    `json:"execution"`
	ProfitReset   ProfitResetConfig   `json:"profit_reset"`
	CapacityPrune CapacityPruneConfig `json:"capacity_prune"`
}

// Validate checks config invariants before a replay starts.
func (c *PortfolioConfig) Validate() error {
	if c.InitialBalance <= 0 {
		return ErrNonPositiveBalance
	}
	if c.AllocationMode != AllocationFixed && c.AllocationMode != AllocationDynamic {
		return ErrBadAllocationMode
	}
	if c.AllocationPct <= 0 || c.AllocationPct > 1 {
		return ErrBadAllocationPct
	}
	if c.ProfitReset.Enabled {
		if c.ProfitReset.Basis != ResetBasisEquity && c.ProfitReset.Basis != ResetBasisBalance {
			return ErrBadProfitResetBasis
		}
		if c.ProfitReset.Multiple <= 1 {
			return ErrBadProfitResetMult
		}
	}
	if c.CapacityPrune.Enabled {
		if c.CapacityPrune.PruneFraction <= 0 || c.CapacityPrune.PruneFraction > 1 {
			return ErrBadPruneFraction
		}
		if c.CapacityPrune.Policy != PruneWorst && c.CapacityPrune.Policy != PruneOldest {
			return ErrBadPrunePolicy
		}
	}
	return nil
}

// DefaultPortfolioConfig returns a conservative baseline configuration.
func DefaultPortfolioConfig() PortfolioConfig {
	return PortfolioConfig{
		InitialBalance:   10_000,
		AllocationMode:   AllocationDynamic,
		AllocationPct:    0.05,
		MaxOpenPositions: 10,
		MaxExposure:      0.5,
		MaxHoldMinutes:   240,
		Execution:        ExecutionProfileRealistic,
		ProfitReset: ProfitResetConfig{
			Enabled:  true,
			Multiple: 2.0,
			Basis:    ResetBasisEquity,
		},
		CapacityPrune: CapacityPruneConfig{
			Enabled:               true,
			BlockedRatioThreshold: 0.5,
			PruneFraction:         0.5,
			CooldownMinutes:       60,
			Policy:                PruneWorst,
		},
	}
}
