// Package storage defines persistence contracts for series history and
// comparison results. The simulation core never touches storage; only
// the CLIs and collaborators do.
package storage

import (
	"context"
	"errors"
	"time"

	"valuation-lab/internal/domain"
)

// Storage errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
)

// SeriesMetric identifies what a stored series measures.
type SeriesMetric string

// Stored series metrics.
const (
	SeriesPrice SeriesMetric = "PRICE"
	SeriesPE    SeriesMetric = "PE"
	SeriesPB    SeriesMetric = "PB"
)

// Valid reports whether m is a known series metric.
func (m SeriesMetric) Valid() bool {
	return m == SeriesPrice || m == SeriesPE || m == SeriesPB
}

// SeriesStore provides access to raw series observations per symbol and
// metric.
type SeriesStore interface {
	// InsertPoints adds observations. Returns ErrDuplicateKey when a
	// (symbol, metric, timestamp) key already exists.
	InsertPoints(ctx context.Context, symbol string, metric SeriesMetric, points []domain.SeriesPoint) error

	// GetSeries retrieves observations within [from, to] (inclusive),
	// ordered by timestamp ASC. Returns ErrNotFound when the symbol has
	// no observations for the metric.
	GetSeries(ctx context.Context, symbol string, metric SeriesMetric, from, to time.Time) (*domain.RawSeries, error)
}

// ComparisonRun records one executed comparison batch.
type ComparisonRun struct {
	RunID     string
	Symbol    string
	Frequency domain.Frequency
	Start     time.Time
	End       time.Time
	Rows      int
	CreatedAt time.Time
}

// ResultStore persists comparison runs and their per-strategy results.
type ResultStore interface {
	// InsertRun adds a run. Returns ErrDuplicateKey if run_id exists.
	InsertRun(ctx context.Context, run *ComparisonRun) error

	// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
	GetRun(ctx context.Context, runID string) (*ComparisonRun, error)

	// InsertResults adds the results of a run in batch order.
	InsertResults(ctx context.Context, runID string, results []domain.SimulationResult) error

	// GetResults retrieves all results for a run in insertion order.
	GetResults(ctx context.Context, runID string) ([]domain.SimulationResult, error)
}
