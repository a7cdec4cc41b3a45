package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/marketdata"
	"valuation-lab/internal/storage"
	chstore "valuation-lab/internal/storage/clickhouse"
	"valuation-lab/internal/storage/memory"
	"valuation-lab/internal/storage/migrations"
)

func main() {
	symbol := flag.String("symbol", "NIFTY50", "Symbol to ingest")
	kinds := flag.String("kinds", "price,pe,pb", "Comma-separated series kinds: price, pe, pb")
	fromStr := flag.String("from", "", "Start date (YYYY-MM-DD) for HTTP fetch")
	toStr := flag.String("to", "", "End date (YYYY-MM-DD) for HTTP fetch, defaults to today")

	historyURL := flag.String("history-url", "", "History API base URL (HTTP source)")
	priceCSV := flag.String("price-csv", "", "Price series CSV file (CSV source)")
	peCSV := flag.String("pe-csv", "", "PE ratio series CSV file (CSV source)")
	pbCSV := flag.String("pb-csv", "", "PB ratio series CSV file (CSV source)")

	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	migrate := flag.Bool("migrate", false, "Run ClickHouse migrations before ingesting")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "ingest").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	var store storage.SeriesStore = memory.NewSeriesStore()
	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal().Msg("--clickhouse-dsn is required when not using --use-memory")
		}
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()

		if *migrate {
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatal().Err(err).Msg("run migrations")
			}
			logger.Info().Msg("migrations applied")
		}

		store = chstore.NewSeriesStore(conn)
	}

	var history *marketdata.CachedHistory
	if *historyURL != "" {
		cache := marketdata.NewSeriesCache(nil)
		defer cache.Close()

		client := marketdata.NewHistoryClient(*historyURL)
		history = marketdata.NewCachedHistory(client, client, cache)
	}

	for _, kindName := range strings.Split(*kinds, ",") {
		kind := marketdata.SeriesKind(strings.ToLower(strings.TrimSpace(kindName)))
		if !kind.Valid() {
			logger.Fatal().Str("kind", kindName).Msg("unknown series kind")
		}

		series, err := loadSeries(ctx, kind, *symbol, history, *priceCSV, *peCSV, *pbCSV, *fromStr, *toStr)
		if err != nil {
			logger.Fatal().Err(err).Str("kind", string(kind)).Msg("load series")
		}
		if series == nil {
			logger.Info().Str("kind", string(kind)).Msg("no source configured, skipping")
			continue
		}

		metric := metricFor(kind)
		if err := store.InsertPoints(ctx, *symbol, metric, series.Points); err != nil {
			logger.Fatal().Err(err).Str("kind", string(kind)).Msg("insert points")
		}
		logger.Info().
			Str("kind", string(kind)).
			Int("points", len(series.Points)).
			Time("start", series.Start()).
			Time("end", series.End()).
			Msg("series ingested")
	}
}

// loadSeries loads one series from the configured source. CSV paths take
// precedence over the HTTP API. Returns nil when no source covers the kind.
func loadSeries(ctx context.Context, kind marketdata.SeriesKind, symbol string, history *marketdata.CachedHistory, priceCSV, peCSV, pbCSV, fromStr, toStr string) (*domain.RawSeries, error) {
	csvPath := map[marketdata.SeriesKind]string{
		marketdata.KindPrice: priceCSV,
		marketdata.KindPE:    peCSV,
		marketdata.KindPB:    pbCSV,
	}[kind]

	if csvPath != "" {
		return marketdata.LoadCSVSeries(csvPath, symbol+"/"+string(kind))
	}
	if history == nil {
		return nil, nil
	}

	from, to, err := parseRange(fromStr, toStr)
	if err != nil {
		return nil, err
	}

	if kind == marketdata.KindPrice {
		return history.PriceHistory(ctx, symbol, from, to)
	}
	return history.ValuationHistory(ctx, symbol, kind, from, to)
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--from is required for HTTP fetch")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --from: %w", err)
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --to: %w", err)
		}
	}
	return from, to, nil
}

func metricFor(kind marketdata.SeriesKind) storage.SeriesMetric {
	switch kind {
	case marketdata.KindPE:
		return storage.SeriesPE
	case marketdata.KindPB:
		return storage.SeriesPB
	default:
		return storage.SeriesPrice
	}
}
