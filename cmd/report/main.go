package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/metrics"
	"solana-strategy-tester/internal/projection"
	"solana-strategy-tester/internal/storage"
	chstore "solana-strategy-tester/internal/storage/clickhouse"
	"solana-strategy-tester/internal/storage/memory"
	"solana-strategy-tester/internal/storage/migrations"
	pgstore "solana-strategy-tester/internal/storage/postgres"
)

func main() {
	// Parse flags
	runID := flag.String("run-id", "", "Replay run to report on (required)")
	outDir := flag.String("out-dir", "", "Directory for positions.csv, events.csv, executions.csv (empty to skip)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")

	// Output
	outputJSON := flag.Bool("json", false, "Output aggregate as JSON")
	persistResult := flag.Bool("persist", false, "Persist the computed aggregate")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	// Validate required flags
	if *runID == "" {
		logger.Fatal("--run-id is required")
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
	var positionStore storage.PositionStore = memory.NewPositionStore()
	var eventStore storage.EventStore = memory.NewEventStore()
	var runStore storage.ReplayRunStore = memory.NewReplayRunStore()
	var aggStore storage.StrategyAggregateStore = memory.NewStrategyAggregateStore()

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (positions, events, runs)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (aggregates)")
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

		positionStore = pgstore.NewPositionStore(pool)
		eventStore = pgstore.NewEventStore(pool)
		runStore = pgstore.NewReplayRunStore(pool)

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

		aggStore = chstore.NewStrategyAggregateStore(conn)
	}

	// Compute the aggregate
	aggregator := metrics.NewAggregator(positionStore, runStore, aggStore)

	var agg *domain.StrategyAggregate
	var err error
	if *persistResult {
		agg, err = aggregator.ComputeAndStore(ctx, *runID)
	} else {
		agg, err = aggregator.ComputeAggregate(ctx, *runID)
	}
	if err != nil {
		logger.Fatalf("compute aggregate for run %s: %v", *runID, err)
	}

	// Render CSV projections
	if *outDir != "" {
		if err := writeProjections(ctx, *outDir, *runID, positionStore, eventStore); err != nil {
			logger.Fatalf("write projections: %v", err)
		}
		logger.Printf("Wrote positions.csv, events.csv, executions.csv to %s", *outDir)
	}

	// Output aggregate
	if *outputJSON {
		output, _ := json.MarshalIndent(agg, "", "  ")
		fmt.Println(string(output))
	} else {
		printAggregate(agg)
	}
}

// writeProjections renders the three fixed tables of a run to CSV files.
func writeProjections(ctx context.Context, dir, runID string, positionStore storage.PositionStore, eventStore storage.EventStore) error {
	positions, err := positionStore.GetByRunID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	events, err := eventStore.GetByRunID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	eventRows, err := projection.BuildEventRows(events)
	if err != nil {
		return fmt.Errorf("build event rows: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	files := map[string]string{
		"positions.csv":  projection.RenderPositionsCSV(projection.BuildPositionRows(positions)),
		"events.csv":     projection.RenderEventsCSV(eventRows),
		"executions.csv": projection.RenderExecutionsCSV(projection.BuildExecutionRows(events)),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// printAggregate outputs a human-readable aggregate summary.
func printAggregate(a *domain.StrategyAggregate) {
	fmt.Println()
	fmt.Println("=== Strategy Aggregate ===")
	fmt.Printf("Strategy:           %s\n", a.StrategyID)
	fmt.Printf("Profile:            %s\n", a.ProfileID)
	fmt.Printf("Run ID:             %s\n", a.RunID)
	fmt.Println()

	fmt.Printf("Positions:          %d (%d wins / %d losses, win rate %.2f)\n", a.Positions, a.Wins, a.Losses, a.WinRate)
	fmt.Printf("Total PnL:          %.6f\n", a.TotalPnL)
	fmt.Printf("Avg PnL:            %.6f\n", a.AvgPnL)
	fmt.Printf("Median PnL:         %.6f\n", a.MedianPnL)
	fmt.Printf("P90 PnL:            %.6f\n", a.P90PnL)
	fmt.Println()

	fmt.Printf("Avg Hold:           %.1f minutes\n", a.AvgHoldMinutes)
	fmt.Printf("Hit Rates:          2x %.2f / 5x %.2f / 10x %.2f\n", a.Hit2xRate, a.Hit5xRate, a.Hit10xRate)
	fmt.Printf("Max Loss Streak:    %d\n", a.MaxConsecutiveLosses)
	fmt.Printf("Fees Total:         %.6f\n", a.FeesTotal)
}
