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

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/storage"
	"solana-strategy-tester/internal/storage/memory"
	"solana-strategy-tester/internal/storage/migrations"
	pgstore "solana-strategy-tester/internal/storage/postgres"
	"solana-strategy-tester/internal/verification"
)

// verifyReport is the JSON output shape of one verification.
type verifyReport struct {
	RunID       string                         `json:"run_id"`
	Match       bool                           `json:"match"`
	AuditOK     bool                           `json:"audit_ok"`
	Divergences []verification.FieldDivergence `json:"divergences,omitempty"`
	Violations  []verification.Violation       `json:"violations,omitempty"`
}

func main() {
	// Parse flags
	runID := flag.String("run-id", "", "Replay run to verify (required)")

	// Portfolio parameters of the original run (the run row stores only
	// strategy and profile; the rest must be passed again)
	initialBalance := flag.Float64("initial-balance", 10_000, "Initial balance")
	allocationMode := flag.String("allocation-mode", "dynamic", "Allocation mode: fixed, dynamic")
	allocationPct := flag.Float64("allocation-pct", 0.05, "Fraction of balance per position")
	maxOpen := flag.Int("max-open", 10, "Max open positions (0 = unlimited)")
	maxExposure := flag.Float64("max-exposure", 0.5, "Max open notional / balance (0 = unlimited)")
	maxHoldMinutes := flag.Int64("max-hold-minutes", 240, "Time stop in minutes (0 = none)")
	profitReset := flag.Bool("profit-reset", false, "Profit reset was enabled")
	profitResetMultiple := flag.Float64("profit-reset-multiple", 2.0, "Profit reset multiple")
	profitResetBasis := flag.String("profit-reset-basis", "equity", "Profit reset basis: equity, balance")
	capacityPrune := flag.Bool("capacity-prune", false, "Capacity prune was enabled")
	pruneBlockedRatio := flag.Float64("prune-blocked-ratio", 0.5, "Blocked ratio threshold")
	pruneAvgHold := flag.Float64("prune-avg-hold-minutes", 0, "Average open hold threshold in minutes")
	pruneFraction := flag.Float64("prune-fraction", 0.5, "Share of the open book to close")
	pruneCooldown := flag.Int64("prune-cooldown-minutes", 60, "Minimum minutes between prunes")
	prunePolicy := flag.String("prune-policy", "worst", "Prune policy: worst, oldest")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[verify] ", log.LstdFlags)

	// Validate required flags
	if *runID == "" {
		logger.Fatal("--run-id is required")
	}

	cfg := domain.PortfolioConfig{
		InitialBalance:   *initialBalance,
		AllocationMode:   domain.AllocationMode(strings.ToLower(*allocationMode)),
		AllocationPct:    *allocationPct,
		MaxOpenPositions: *maxOpen,
		MaxExposure:      *maxExposure,
		MaxHoldMinutes:   *maxHoldMinutes,
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

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory")
		}

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
	}

	// 1. Re-replay and diff against the stored run
	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		BlueprintStore: blueprintStore,
		PositionStore:  positionStore,
		EventStore:     eventStore,
		RunStore:       runStore,
		BaseConfig:     cfg,
	})

	result, err := verifier.VerifyRun(ctx, *runID)
	if err != nil {
		logger.Fatalf("verify run %s: %v", *runID, err)
	}

	// 2. Audit the stored ledger against the structural invariants
	positions, err := positionStore.GetByRunID(ctx, *runID)
	if err != nil {
		logger.Fatalf("load positions of run %s: %v", *runID, err)
	}
	events, err := eventStore.GetByRunID(ctx, *runID)
	if err != nil {
		logger.Fatalf("load events of run %s: %v", *runID, err)
	}
	audit := verification.Audit(&domain.PortfolioResult{
		Positions: positions,
		Events:    events,
	})

	report := verifyReport{
		RunID:       *runID,
		Match:       result.Match,
		AuditOK:     audit.OK(),
		Divergences: result.Divergences,
		Violations:  audit.Violations,
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		printReport(&report)
	}

	if !report.Match || !report.AuditOK {
		os.Exit(1)
	}
}

// printReport outputs a human-readable verification summary.
func printReport(r *verifyReport) {
	fmt.Println()
	fmt.Println("=== Verification Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Replay Match:       %v\n", r.Match)
	fmt.Printf("Ledger Audit:       %v\n", r.AuditOK)

	if len(r.Divergences) > 0 {
		fmt.Println()
		fmt.Printf("Divergences (%d):\n", len(r.Divergences))
		for _, d := range r.Divergences {
			fmt.Printf("  %s: stored=%v replayed=%v\n", d.Field, d.Expected, d.Actual)
		}
	}

	if len(r.Violations) > 0 {
		fmt.Println()
		fmt.Printf("Violations (%d):\n", len(r.Violations))
		for _, v := range r.Violations {
			fmt.Printf("  [%s] %s\n", v.Check, v.Detail)
		}
	}
}
