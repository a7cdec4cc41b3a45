// Package reporting renders comparison results as CSV and Markdown.
package reporting

import (
	"time"

	"valuation-lab/internal/compare"
	"valuation-lab/internal/domain"
)

// Report is a ranked comparison report.
type Report struct {
	GeneratedAt time.Time

	// Dataset summary
	Frequency domain.Frequency
	Rows      int
	Start     time.Time
	End       time.Time

	// Results ranked by XIRR descending; failed entries last.
	Results []domain.SimulationResult
}

// Generator builds reports from finished comparison batches.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator() *Generator {
	return &Generator{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate ranks the results and assembles the report. The input slice
// is not modified.
func (g *Generator) Generate(dataset *domain.AlignedDataset, results []domain.SimulationResult) *Report {
	ranked := make([]domain.SimulationResult, len(results))
	copy(ranked, results)
	compare.SortByXIRR(ranked)

	r := &Report{
		GeneratedAt: g.now(),
		Results:     ranked,
	}
	if dataset != nil && dataset.Len() > 0 {
		r.Frequency = dataset.Frequency
		r.Rows = dataset.Len()
		r.Start = dataset.Start()
		r.End = dataset.End()
	}
	return r
}
