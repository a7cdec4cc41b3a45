package domain

import (
	"errors"
	"fmt"
	"time"
)

// Series errors
var (
	ErrEmptySeries        = errors.New("series has no points")
	ErrUnorderedSeries    = errors.New("series timestamps must be strictly increasing")
	ErrDuplicateTimestamp = errors.New("series contains duplicate timestamp")
)

// Frequency is the sampling frequency of an aligned dataset.
// Fixed for the dataset's lifetime; determines the interval between
// contribution events.
type Frequency string

// Supported sampling frequencies.
const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Days returns the nominal length of one sampling period in days.
func (f Frequency) Days() int {
	switch f {
	case FrequencyDaily:
		return 1
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 31
	}
	return 0
}

// SeriesPoint is one (timestamp, value) observation of a signal.
type SeriesPoint struct {
	Timestamp time.Time
	Value     float64
}

// RawSeries is an ordered sequence of observations for one signal
// (instrument price, or a valuation ratio). Timestamps are strictly
// increasing; duplicates are rejected at construction. The core only
// reads it.
type RawSeries struct {
	Name   string
	Points []SeriesPoint
}

// NewRawSeries validates ordering and returns a RawSeries.
// Returns ErrEmptySeries, ErrUnorderedSeries or ErrDuplicateTimestamp.
func NewRawSeries(name string, points []SeriesPoint) (*RawSeries, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("series %q: %w", name, ErrEmptySeries)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Equal(points[i-1].Timestamp) {
			return nil, fmt.Errorf("series %q at %s: %w",
				name, points[i].Timestamp.Format("2006-01-02"), ErrDuplicateTimestamp)
		}
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			return nil, fmt.Errorf("series %q at %s: %w",
				name, points[i].Timestamp.Format("2006-01-02"), ErrUnorderedSeries)
		}
	}
	return &RawSeries{Name: name, Points: points}, nil
}

// Start returns the timestamp of the first observation.
func (s *RawSeries) Start() time.Time { return s.Points[0].Timestamp }

// End returns the timestamp of the last observation.
func (s *RawSeries) End() time.Time { return s.Points[len(s.Points)-1].Timestamp }

// AlignedRow is one sample of the aligned dataset. Price is always
// present; valuation ratios are nil when no sufficiently fresh
// observation exists (simulators must fall back to the base multiplier).
type AlignedRow struct {
	Timestamp time.Time
	Price     float64
	PE        *float64
	PB        *float64
}

// AlignedDataset is the single ordered, gap-free dataset produced by the
// Aligner. Timestamps are strictly increasing and every row carries a
// price. Shared read-only across concurrent simulation runs.
type AlignedDataset struct {
	Frequency Frequency
	Rows      []AlignedRow
}

// Len returns the number of rows.
func (d *AlignedDataset) Len() int { return len(d.Rows) }

// Start returns the first row timestamp.
func (d *AlignedDataset) Start() time.Time { return d.Rows[0].Timestamp }

// End returns the last row timestamp.
func (d *AlignedDataset) End() time.Time { return d.Rows[len(d.Rows)-1].Timestamp }

// FinalPrice returns the price of the last row.
func (d *AlignedDataset) FinalPrice() float64 { return d.Rows[len(d.Rows)-1].Price }
