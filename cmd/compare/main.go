package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"valuation-lab/internal/align"
	"valuation-lab/internal/catalog"
	"valuation-lab/internal/compare"
	"valuation-lab/internal/config"
	"valuation-lab/internal/domain"
	"valuation-lab/internal/idhash"
	"valuation-lab/internal/marketdata"
	"valuation-lab/internal/reporting"
	"valuation-lab/internal/storage"
	"valuation-lab/internal/storage/memory"
	"valuation-lab/internal/storage/migrations"
	pgstore "valuation-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	symbol := flag.String("symbol", "", "Symbol label for the run (overrides config)")

	priceCSV := flag.String("price-csv", "", "Price series CSV file (date,value) (required)")
	peCSV := flag.String("pe-csv", "", "PE ratio series CSV file")
	pbCSV := flag.String("pb-csv", "", "PB ratio series CSV file")

	frequency := flag.String("frequency", "", "Sampling frequency: DAILY, WEEKLY, MONTHLY (overrides config)")
	baseAmount := flag.Float64("base-amount", 0, "Per-period contribution (overrides config)")
	totalCapital := flag.Float64("total-capital", 0, "Capital pool for deployment strategies (overrides config)")
	baselineYield := flag.Float64("baseline-yield", 0, "Annual yield on parked capital (overrides config)")
	workers := flag.Int("workers", 0, "Worker pool size (overrides config)")

	catalogPath := flag.String("catalog", "", "Strategy catalog YAML file (default: embedded presets)")
	format := flag.String("format", "markdown", "Output format: markdown, csv, json")

	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for --persist")
	persist := flag.Bool("persist", false, "Persist the comparison run and results")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "compare").Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	applyOverrides(cfg, *symbol, *frequency, *baseAmount, *totalCapital, *baselineYield, *workers)

	if *priceCSV == "" {
		logger.Fatal().Msg("--price-csv is required")
	}
	if *peCSV == "" && *pbCSV == "" {
		logger.Fatal().Msg("at least one of --pe-csv and --pb-csv is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// Load input series
	price, err := marketdata.LoadCSVSeries(*priceCSV, cfg.Symbol+"/price")
	if err != nil {
		logger.Fatal().Err(err).Msg("load price series")
	}

	var vals align.Valuations
	if *peCSV != "" {
		if vals.PE, err = marketdata.LoadCSVSeries(*peCSV, cfg.Symbol+"/pe"); err != nil {
			logger.Fatal().Err(err).Msg("load PE series")
		}
	}
	if *pbCSV != "" {
		if vals.PB, err = marketdata.LoadCSVSeries(*pbCSV, cfg.Symbol+"/pb"); err != nil {
			logger.Fatal().Err(err).Msg("load PB series")
		}
	}

	freq := domain.Frequency(cfg.Alignment.Frequency)
	dataset, warnings, err := align.Align(price, vals, align.Options{
		Frequency:   freq,
		PEStaleness: stalenessFor(freq, cfg.Alignment.PEStaleness),
		PBStaleness: stalenessFor(freq, cfg.Alignment.PBStaleness),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("align series")
	}
	logger.Info().
		Int("rows", dataset.Len()).
		Int("warnings", len(warnings)).
		Time("start", dataset.Start()).
		Time("end", dataset.End()).
		Msg("aligned dataset ready")

	// Load strategies
	defs, err := loadCatalog(*catalogPath, cfg.Catalog.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("load strategy catalog")
	}
	logger.Info().Int("strategies", len(defs)).Msg("catalog loaded")

	// Run the comparison
	results, err := compare.Compare(ctx, dataset, defs, compare.Params{
		BaseAmount:          cfg.Simulation.BaseAmount,
		TotalCapital:        cfg.Simulation.TotalCapital,
		BaselineAnnualYield: cfg.Simulation.BaselineAnnualYield,
		Workers:             cfg.Simulation.Workers,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("run comparison")
	}

	report := reporting.NewGenerator().Generate(dataset, results)

	switch *format {
	case "markdown":
		fmt.Print(reporting.RenderMarkdown(report))
	case "csv":
		fmt.Print(reporting.RenderCSV(report.Results))
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Fatal().Err(err).Msg("encode report")
		}
	default:
		logger.Fatal().Str("format", *format).Msg("unknown output format")
	}

	if *persist {
		if err := persistRun(ctx, *postgresDSN, cfg.Symbol, dataset, report.Results); err != nil {
			logger.Fatal().Err(err).Msg("persist results")
		}
		logger.Info().Msg("results persisted")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.LoadWithEnv(path)
}

func applyOverrides(cfg *config.Config, symbol, frequency string, baseAmount, totalCapital, baselineYield float64, workers int) {
	if symbol != "" {
		cfg.Symbol = symbol
	}
	if frequency != "" {
		cfg.Alignment.Frequency = frequency
	}
	if baseAmount > 0 {
		cfg.Simulation.BaseAmount = baseAmount
	}
	if totalCapital > 0 {
		cfg.Simulation.TotalCapital = totalCapital
	}
	if baselineYield > 0 {
		cfg.Simulation.BaselineAnnualYield = baselineYield
	}
	if workers > 0 {
		cfg.Simulation.Workers = workers
	}
}

// stalenessFor converts a staleness bound in sampling periods to a
// duration at the given frequency.
func stalenessFor(freq domain.Frequency, periods int) time.Duration {
	return time.Duration(periods) * time.Duration(freq.Days()) * 24 * time.Hour
}

func loadCatalog(flagPath, configPath string) ([]*domain.StrategyDefinition, error) {
	path := flagPath
	if path == "" {
		path = configPath
	}
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func persistRun(ctx context.Context, dsn, symbol string, dataset *domain.AlignedDataset, results []domain.SimulationResult) error {
	var store storage.ResultStore = memory.NewResultStore()
	if dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		store = pgstore.NewResultStore(pool)
	}

	runID := idhash.ComputeRunID(symbol, dataset.Frequency, dataset.Start(), dataset.End(), dataset.Len())
	run := &storage.ComparisonRun{
		RunID:     runID,
		Symbol:    symbol,
		Frequency: dataset.Frequency,
		Start:     dataset.Start(),
		End:       dataset.End(),
		Rows:      dataset.Len(),
		CreatedAt: time.Now().UTC(),
	}

	if err := store.InsertRun(ctx, run); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	if err := store.InsertResults(ctx, runID, results); err != nil {
		return fmt.Errorf("insert results for %s: %w", runID, err)
	}

	fmt.Fprintf(os.Stderr, "run ID: %s\n", runID)
	return nil
}
