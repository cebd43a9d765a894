package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/idhash"
	"solana-strategy-tester/internal/portfolio"
	"solana-strategy-tester/internal/storage"
	chstore "solana-strategy-tester/internal/storage/clickhouse"
	"solana-strategy-tester/internal/storage/memory"
	"solana-strategy-tester/internal/storage/migrations"
	pgstore "solana-strategy-tester/internal/storage/postgres"
)

func main() {
	// Parse flags
	strategyID := flag.String("strategy", "", "Strategy ID whose blueprints to replay (required)")
	profileName := flag.String("profile", "realistic", "Execution profile: frictionless, optimistic, realistic, pessimistic")

	// Portfolio parameters
	initialBalance := flag.Float64("initial-balance", 10_000, "Initial balance")
	allocationMode := flag.String("allocation-mode", "dynamic", "Allocation mode: fixed, dynamic")
	allocationPct := flag.Float64("allocation-pct", 0.05, "Fraction of balance per position")
	maxOpen := flag.Int("max-open", 10, "Max open positions (0 = unlimited)")
	maxExposure := flag.Float64("max-exposure", 0.5, "Max open notional / balance (0 = unlimited)")
	maxHoldMinutes := flag.Int64("max-hold-minutes", 240, "Time stop in minutes (0 = none)")

	// Profit reset
	profitReset := flag.Bool("profit-reset", false, "Enable the profit-taking systemic reset")
	profitResetMultiple := flag.Float64("profit-reset-multiple", 2.0, "Fire when peak >= baseline * multiple")
	profitResetBasis := flag.String("profit-reset-basis", "equity", "Profit reset basis: equity, balance")

	// Capacity prune
	capacityPrune := flag.Bool("capacity-prune", false, "Enable the capacity-pressure systemic reset")
	pruneBlockedRatio := flag.Float64("prune-blocked-ratio", 0.5, "Blocked ratio threshold (0 disables the signal)")
	pruneAvgHold := flag.Float64("prune-avg-hold-minutes", 0, "Average open hold threshold in minutes (0 disables the signal)")
	pruneFraction := flag.Float64("prune-fraction", 0.5, "Share of the open book to close")
	pruneCooldown := flag.Int64("prune-cooldown-minutes", 60, "Minimum minutes between prunes")
	prunePolicy := flag.String("prune-policy", "worst", "Prune policy: worst, oldest")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist positions, events, run summary, and equity curve")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Validate required flags
	if *strategyID == "" {
		logger.Fatal("--strategy is required")
	}

	profile, ok := domain.ExecutionProfileByID(strings.ToLower(*profileName))
	if !ok {
		logger.Fatalf("Invalid profile: %s. Must be frictionless, optimistic, realistic, or pessimistic", *profileName)
	}

	cfg := domain.PortfolioConfig{
		InitialBalance:   *initialBalance,
		AllocationMode:   domain.AllocationMode(strings.ToLower(*allocationMode)),
		AllocationPct:    *allocationPct,
		MaxOpenPositions: *maxOpen,
		MaxExposure:      *maxExposure,
		MaxHoldMinutes:   *maxHoldMinutes,
		Execution:        profile,
		ProfitReset: domain.ProfitResetConfig{
			Enabled:  *profitReset,
			Multiple: *profitResetMultiple,
			Basis:    domain.ProfitResetBasis(strings.ToLower(*profitResetBasis)),
		},
		CapacityPrune: domain.CapacityPruneConfig{
			Enabled:                 *capacityPrune,
			BlockedRatioThreshold:   *pruneBlockedRatio,
			AvgHoldMinutesThreshold: *pruneAvgHold,
			PruneFraction:           *pruneFraction,
			CooldownMinutes:         *pruneCooldown,
			Policy:                  domain.PrunePolicy(strings.ToLower(*prunePolicy)),
		},
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid portfolio config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	var blueprintStore storage.BlueprintStore = memory.NewBlueprintStore()
	var positionStore storage.PositionStore = memory.NewPositionStore()
	var eventStore storage.EventStore = memory.NewEventStore()
	var runStore storage.ReplayRunStore = memory.NewReplayRunStore()
	var equityStore storage.EquityCurveStore = memory.NewEquityCurveStore()

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (blueprints, positions, events, runs)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (equity curves)")
		}

		// PostgreSQL for replay inputs and outputs
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if *migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("apply postgres migrations: %v", err)
			}
		}

		blueprintStore = pgstore.NewBlueprintStore(pool)
		positionStore = pgstore.NewPositionStore(pool)
		eventStore = pgstore.NewEventStore(pool)
		runStore = pgstore.NewReplayRunStore(pool)

		// ClickHouse for the equity curve
		var conn *chstore.Conn
		if *migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, *clickhouseDSN)
		}
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		equityStore = chstore.NewEquityCurveStore(conn)
	}

	// Load blueprints
	blueprints, err := blueprintStore.GetByStrategyID(ctx, *strategyID)
	if err != nil {
		logger.Fatalf("load blueprints for %s: %v", *strategyID, err)
	}
	if len(blueprints) == 0 {
		logger.Fatalf("no blueprints stored for strategy %s", *strategyID)
	}

	// Run replay
	logger.Printf("Replaying %d blueprints: strategy=%s profile=%s", len(blueprints), *strategyID, profile.ProfileID)

	engine, err := portfolio.NewEngine(cfg)
	if err != nil {
		logger.Fatalf("create engine: %v", err)
	}

	result, err := engine.Replay(blueprints)
	if err != nil {
		logger.Fatalf("replay failed: %v", err)
	}

	signalIDs := make([]string, len(blueprints))
	for i, b := range blueprints {
		signalIDs[i] = b.SignalID
	}
	runID := idhash.ComputeRunID(*strategyID, profile.ProfileID, signalIDs)

	// Persist result
	if *persistResult {
		run := &domain.ReplayRun{
			RunID:          runID,
			StrategyID:     *strategyID,
			ProfileID:      profile.ProfileID,
			BlueprintCount: len(blueprints),
			Stats:          result.Stats,
			CreatedAtMs:    time.Now().UnixMilli(),
		}
		if err := runStore.Insert(ctx, run); err != nil {
			logger.Fatalf("persist run %s: %v", runID, err)
		}
		if err := positionStore.InsertBulk(ctx, runID, result.Positions); err != nil {
			logger.Fatalf("persist positions of run %s: %v", runID, err)
		}
		if err := eventStore.InsertBulk(ctx, runID, result.Events); err != nil {
			logger.Fatalf("persist events of run %s: %v", runID, err)
		}
		if err := equityStore.InsertBulk(ctx, runID, result.EquityCurve); err != nil {
			logger.Fatalf("persist equity curve of run %s: %v", runID, err)
		}
		logger.Printf("Persisted run %s", runID)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(runID, result)
	}
}

// printResult outputs a human-readable replay summary.
func printResult(runID string, r *domain.PortfolioResult) {
	s := r.Stats

	fmt.Println()
	fmt.Println("=== Replay Result ===")
	fmt.Printf("Run ID:             %s\n", runID)
	fmt.Printf("Initial Balance:    %.6f\n", s.InitialBalance)
	fmt.Printf("Final Balance:      %.6f\n", s.FinalBalance)
	fmt.Printf("Profit:             %.6f (%.2f%%)\n", s.Profit, s.ReturnPct)
	fmt.Println()

	fmt.Printf("Positions:          %d (%d wins / %d losses, win rate %.2f)\n", s.Positions, s.Wins, s.Losses, s.WinRate)
	fmt.Printf("Equity Peak:        %.6f\n", s.EquityPeak)
	fmt.Printf("Max Drawdown:       %.2f%%\n", s.MaxDrawdownPct)
	fmt.Printf("Fees Total:         %.6f\n", s.FeesTotal)
	fmt.Println()

	fmt.Printf("Blueprints:         %d seen / %d opened / %d blocked / %d skipped\n",
		s.BlueprintsSeen, s.BlueprintsOpened, s.BlueprintsBlocked, s.BlueprintsSkipped)
	fmt.Printf("Resets:             %d profit / %d capacity\n", s.PortfolioResets, s.RunnerResets)
	fmt.Printf("Events:             %d\n", len(r.Events))

	if len(r.Skipped) > 0 {
		fmt.Println()
		fmt.Println("Skipped blueprints:")
		for _, sk := range r.Skipped {
			fmt.Printf("  %s  %s  %s\n", sk.SignalID, sk.Reason, sk.Detail)
		}
	}
}
