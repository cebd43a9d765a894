package verification

import (
	"context"
	"errors"
	"fmt"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/portfolio"
	"solana-strategy-tester/internal/storage"
)

var (
	// ErrRunNotFound is returned when the run id doesn't exist.
	ErrRunNotFound = errors.New("replay run not found")

	// ErrUnknownProfile is returned when the run's execution profile is
	// not one of the predefined profiles.
	ErrUnknownProfile = errors.New("unknown execution profile")
)

// ReplayVerifier re-runs a stored replay from its persisted blueprints
// and compares the regenerated positions and events against the stored
// ones field by field.
type ReplayVerifier struct {
	blueprintStore storage.BlueprintStore
	positionStore  storage.PositionStore
	eventStore     storage.EventStore
	runStore       storage.ReplayRunStore

	// baseConfig supplies everything but the execution profile, which is
	// resolved from the stored run's profile id.
	baseConfig domain.PortfolioConfig
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	BlueprintStore storage.BlueprintStore
	PositionStore  storage.PositionStore
	EventStore     storage.EventStore
	RunStore       storage.ReplayRunStore
	BaseConfig     domain.PortfolioConfig
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		blueprintStore: opts.BlueprintStore,
		positionStore:  opts.PositionStore,
		eventStore:     opts.EventStore,
		runStore:       opts.RunStore,
		baseConfig:     opts.BaseConfig,
	}
}

// VerifyRun re-executes the replay of one stored run and returns all
// field divergences between the stored and regenerated outputs. A clean
// result proves the stored run is reproducible from its inputs.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load the stored run summary
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	// 2. Resolve the execution profile recorded on the run
	profile, ok := domain.ExecutionProfileByID(run.ProfileID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, run.ProfileID)
	}
	cfg := v.baseConfig
	cfg.Execution = profile

	// 3. Load the run's blueprints
	blueprints, err := v.blueprintStore.GetByStrategyID(ctx, run.StrategyID)
	if err != nil {
		return nil, fmt.Errorf("load blueprints of strategy %s: %w", run.StrategyID, err)
	}

	// 4. Re-run the replay
	engine, err := portfolio.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	replayed, err := engine.Replay(blueprints)
	if err != nil {
		return nil, fmt.Errorf("re-replay run %s: %w", runID, err)
	}

	// 5. Load stored outputs and compare field by field
	storedPositions, err := v.positionStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	storedEvents, err := v.eventStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	divergences := ComparePositions(storedPositions, replayed.Positions)
	divergences = append(divergences, CompareEvents(storedEvents, replayed.Events)...)

	return &VerificationResult{
		RunID:       runID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}
