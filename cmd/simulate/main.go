package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/simulation"
	"solana-strategy-tester/internal/storage"
	"solana-strategy-tester/internal/storage/memory"
	"solana-strategy-tester/internal/storage/migrations"
	pgstore "solana-strategy-tester/internal/storage/postgres"
)

func main() {
	// Parse flags
	contract := flag.String("contract", "", "Contract address to simulate (required)")
	entryTimeMs := flag.Int64("entry-time-ms", 0, "Entry signal time in unix ms (required)")
	ladderArg := flag.String("ladder", "2x0.4,5x0.4,10x0.2", "Ladder levels as MULTIPLExFRACTION, comma-separated")
	pricesCSV := flag.String("prices-csv", "", "Optional CSV file (timestamp_ms,price) to load into the price store first")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	// Validate required flags
	if *contract == "" {
		logger.Fatal("--contract is required")
	}
	if *entryTimeMs <= 0 {
		logger.Fatal("--entry-time-ms is required and must be positive")
	}

	ladder, err := parseLadder(*ladderArg)
	if err != nil {
		logger.Fatalf("invalid --ladder: %v", err)
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
	var priceStore storage.PriceSeriesStore = memory.NewPriceSeriesStore()
	var blueprintStore storage.BlueprintStore = memory.NewBlueprintStore()

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

		priceStore = pgstore.NewPriceSeriesStore(pool)
		blueprintStore = pgstore.NewBlueprintStore(pool)
	}

	// Load price series from CSV when provided
	if *pricesCSV != "" {
		n, err := loadPricesCSV(ctx, priceStore, *contract, *pricesCSV)
		if err != nil {
			logger.Fatalf("load prices from %s: %v", *pricesCSV, err)
		}
		logger.Printf("Loaded %d price points from %s", n, *pricesCSV)
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		PriceStore:     priceStore,
		BlueprintStore: blueprintStore,
	})

	logger.Printf("Simulating ladder %s: contract=%s entry=%d", ladder.ID(), *contract, *entryTimeMs)

	bp, err := runner.Run(ctx, ladder, *contract, *entryTimeMs)
	if err != nil {
		logger.Fatalf("simulation failed: %v", err)
	}

	peak, err := runner.PeakMultiple(ctx, *contract, *entryTimeMs)
	if err != nil {
		logger.Fatalf("peak multiple: %v", err)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(bp, "", "  ")
		fmt.Println(string(output))
	} else {
		printBlueprint(bp, peak)
	}
}

// parseLadder parses "2x0.4,5x0.4,10x0.2" into a validated LadderSpec.
func parseLadder(arg string) (*simulation.LadderSpec, error) {
	var spec simulation.LadderSpec
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		fields := strings.SplitN(part, "x", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("level %q: want MULTIPLExFRACTION", part)
		}
		mult, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("level %q: bad multiple: %w", part, err)
		}
		frac, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("level %q: bad fraction: %w", part, err)
		}
		spec.Levels = append(spec.Levels, simulation.LadderLevel{
			TargetMultiple: mult,
			Fraction:       frac,
		})
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// loadPricesCSV bulk-inserts a timestamp_ms,price file for one contract.
func loadPricesCSV(ctx context.Context, store storage.PriceSeriesStore, contract, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse csv: %w", err)
	}

	var points []*domain.PricePoint
	for i, rec := range records {
		if len(rec) < 2 {
			return 0, fmt.Errorf("row %d: want timestamp_ms,price", i+1)
		}
		// Tolerate a header row
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "timestamp_ms") {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad timestamp: %w", i+1, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad price: %w", i+1, err)
		}
		points = append(points, &domain.PricePoint{
			ContractAddress: contract,
			TimestampMs:     ts,
			Price:           price,
		})
	}

	if err := store.InsertBulk(ctx, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// printBlueprint outputs a human-readable blueprint summary.
func printBlueprint(b *domain.TradeBlueprint, peak float64) {
	fmt.Println()
	fmt.Println("=== Trade Blueprint ===")
	fmt.Printf("Signal ID:       %s\n", b.SignalID)
	fmt.Printf("Strategy:        %s\n", b.StrategyID)
	fmt.Printf("Contract:        %s\n", b.ContractAddress)
	fmt.Printf("Entry Time (ms): %d\n", b.EntryTimeMs)
	fmt.Printf("Entry Price:     %.8f\n", b.EntryPriceRaw)
	fmt.Printf("Peak Multiple:   %.2fx\n", peak)
	fmt.Println()

	fmt.Printf("Partial Exits:   %d\n", len(b.PartialExits))
	for _, pe := range b.PartialExits {
		fmt.Printf("  %gx  fraction=%.2f  at=%d\n", pe.TargetMultiple, pe.Fraction, pe.TimestampMs)
	}
	if b.FinalExit != nil {
		fmt.Printf("Final Exit:      %s  %gx  at=%d\n", b.FinalExit.Reason, b.FinalExit.TargetMultiple, b.FinalExit.TimestampMs)
	} else {
		fmt.Println("Final Exit:      none (remainder managed by portfolio)")
	}
}
