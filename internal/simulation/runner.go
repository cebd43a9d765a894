package simulation

import (
	"context"
	"fmt"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/idhash"
	"solana-strategy-tester/internal/lookup"
	"solana-strategy-tester/internal/solanaaddr"
	"solana-strategy-tester/internal/storage"
)

// Runner builds and persists blueprints for stored price series.
type Runner struct {
	priceStore     storage.PriceSeriesStore
	blueprintStore storage.BlueprintStore
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	PriceStore     storage.PriceSeriesStore
	BlueprintStore storage.BlueprintStore
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		priceStore:     opts.PriceStore,
		blueprintStore: opts.BlueprintStore,
	}
}

// Run builds a blueprint for one contract and entry signal.
// Steps:
//  1. Validate the contract address as a token mint
//  2. Load the contract's price series
//  3. Walk the series against the ladder
//  4. Persist the blueprint
func (r *Runner) Run(ctx context.Context, ladder *LadderSpec, contractAddress string, entryTimeMs int64) (*domain.TradeBlueprint, error) {
	if err := solanaaddr.ValidateMint(contractAddress); err != nil {
		return nil, err
	}

	prices, err := r.priceStore.GetByContract(ctx, contractAddress)
	if err != nil {
		return nil, err // propagates storage.ErrNotFound
	}

	strategyID := ladder.ID()
	signalID := idhash.ComputeSignalID(strategyID, contractAddress, entryTimeMs)

	bp, err := ladder.BuildBlueprint(signalID, strategyID, contractAddress, entryTimeMs, prices)
	if err != nil {
		return nil, fmt.Errorf("build blueprint for %s: %w", contractAddress, err)
	}

	if err := r.blueprintStore.Insert(ctx, bp); err != nil {
		return nil, err
	}
	return bp, nil
}

// PeakMultiple reports the highest multiple of the entry price the
// contract's series reaches at or after entryTimeMs. Ladder fills cap
// out at their target multiples, so this is the honest upper bound a
// blueprint left on the table.
func (r *Runner) PeakMultiple(ctx context.Context, contractAddress string, entryTimeMs int64) (float64, error) {
	prices, err := r.priceStore.GetByContract(ctx, contractAddress)
	if err != nil {
		return 0, err
	}

	entryPrice, err := lookup.PriceAt(entryTimeMs, prices)
	if err != nil {
		return 0, err
	}
	if entryPrice <= 0 {
		return 0, fmt.Errorf("entry price %v for %s: %w", entryPrice, contractAddress, domain.ErrNoEntryPrice)
	}

	horizon := prices[len(prices)-1].TimestampMs
	// The window is open at its lower bound; shift it so the entry
	// observation itself counts.
	return lookup.MaxMultipleBetween(entryTimeMs-1, horizon, entryPrice, prices), nil
}
