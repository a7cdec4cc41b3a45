package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"valuation-lab/internal/reporting"
	pgstore "valuation-lab/internal/storage/postgres"
)

func main() {
	runID := flag.String("run-id", "", "Comparison run ID to report on (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	format := flag.String("format", "markdown", "Output format: markdown, csv, json")
	outPath := flag.String("out", "", "Output file (default: stdout)")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "report").Logger()

	if *runID == "" {
		logger.Fatal().Msg("--run-id is required")
	}
	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	store := pgstore.NewResultStore(pool)

	run, err := store.GetRun(ctx, *runID)
	if err != nil {
		logger.Fatal().Err(err).Str("run_id", *runID).Msg("load run")
	}
	results, err := store.GetResults(ctx, *runID)
	if err != nil {
		logger.Fatal().Err(err).Str("run_id", *runID).Msg("load results")
	}

	report := &reporting.Report{
		GeneratedAt: time.Now().UTC(),
		Frequency:   run.Frequency,
		Rows:        run.Rows,
		Start:       run.Start,
		End:         run.End,
		Results:     results,
	}

	var rendered string
	switch *format {
	case "markdown":
		rendered = reporting.RenderMarkdown(report)
	case "csv":
		rendered = reporting.RenderCSV(report.Results)
	case "json":
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("encode report")
		}
		rendered = string(b) + "\n"
	default:
		logger.Fatal().Str("format", *format).Msg("unknown output format")
	}

	if *outPath == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*outPath, []byte(rendered), 0o644); err != nil {
		logger.Fatal().Err(err).Str("path", *outPath).Msg("write report")
	}
	logger.Info().Str("path", *outPath).Msg("report written")
}
