// Package align merges independent price and valuation series into one
// ordered, gap-free dataset at a chosen sampling frequency. Alignment is
// a pure function of its inputs: no I/O, no shared state.
package align

import (
	"errors"
	"fmt"
	"time"

	"valuation-lab/internal/domain"
)

// Alignment errors
var (
	ErrEmptyAlignment    = errors.New("no overlapping dates between series")
	ErrNoPriceSeries     = errors.New("price series is required")
	ErrNoValuationSeries = errors.New("at least one valuation series is required")
	ErrInvalidFrequency  = errors.New("unknown sampling frequency")
)

// Valuations carries the valuation inputs to Align. At least one of PE
// and PB must be set.
type Valuations struct {
	PE *domain.RawSeries
	PB *domain.RawSeries
}

// Options configures alignment.
type Options struct {
	Frequency domain.Frequency

	// Staleness bounds how old a forward-filled valuation observation may
	// be relative to the row timestamp. Rows whose valuation is older are
	// emitted with a nil valuation and a recorded warning. Zero selects
	// the default of two sampling periods (one period of slack beyond the
	// metric's nominal update cadence).
	PEStaleness time.Duration
	PBStaleness time.Duration
}

// Align resamples the price series to the requested frequency (last
// observation per period, no look-ahead), forward-fills valuations up to
// the staleness bound, and trims to the overlapping date range of all
// inputs. Returns ErrEmptyAlignment when the inputs share no dates.
func Align(price *domain.RawSeries, vals Valuations, opts Options) (*domain.AlignedDataset, []domain.Warning, error) {
	if price == nil || len(price.Points) == 0 {
		return nil, nil, ErrNoPriceSeries
	}
	if vals.PE == nil && vals.PB == nil {
		return nil, nil, ErrNoValuationSeries
	}
	if !opts.Frequency.Valid() {
		return nil, nil, ErrInvalidFrequency
	}

	overlapStart, overlapEnd := overlap(price, vals)
	if overlapStart.After(overlapEnd) {
		return nil, nil, fmt.Errorf("price %s..%s: %w",
			price.Start().Format("2006-01-02"), price.End().Format("2006-01-02"),
			ErrEmptyAlignment)
	}

	sampled := resample(price.Points, opts.Frequency)

	defaultStale := 2 * time.Duration(opts.Frequency.Days()) * 24 * time.Hour
	peStale := opts.PEStaleness
	if peStale == 0 {
		peStale = defaultStale
	}
	pbStale := opts.PBStaleness
	if pbStale == 0 {
		pbStale = defaultStale
	}

	var warnings []domain.Warning
	peFill := newFiller(vals.PE, "PE", peStale)
	pbFill := newFiller(vals.PB, "PB", pbStale)

	rows := make([]domain.AlignedRow, 0, len(sampled))
	for _, p := range sampled {
		if p.Timestamp.Before(overlapStart) || p.Timestamp.After(overlapEnd) {
			continue
		}
		row := domain.AlignedRow{Timestamp: p.Timestamp, Price: p.Value}
		row.PE, warnings = peFill.at(p.Timestamp, warnings)
		row.PB, warnings = pbFill.at(p.Timestamp, warnings)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, nil, ErrEmptyAlignment
	}

	return &domain.AlignedDataset{Frequency: opts.Frequency, Rows: rows}, warnings, nil
}

// overlap returns the intersection of the input timestamp ranges.
func overlap(price *domain.RawSeries, vals Valuations) (time.Time, time.Time) {
	start, end := price.Start(), price.End()
	for _, s := range []*domain.RawSeries{vals.PE, vals.PB} {
		if s == nil {
			continue
		}
		if s.Start().After(start) {
			start = s.Start()
		}
		if s.End().Before(end) {
			end = s.End()
		}
	}
	return start, end
}

// resample keeps the last observation of each sampling period. Row
// timestamps are the actual observation timestamps, so no sample ever
// looks ahead of its source data. Periods without observations produce
// no row.
func resample(points []domain.SeriesPoint, freq domain.Frequency) []domain.SeriesPoint {
	if freq == domain.FrequencyDaily {
		return points
	}

	var out []domain.SeriesPoint
	var curKey string
	for i, p := range points {
		key := periodKey(p.Timestamp, freq)
		if i > 0 && key != curKey {
			out = append(out, points[i-1])
		}
		curKey = key
	}
	out = append(out, points[len(points)-1])
	return out
}

func periodKey(t time.Time, freq domain.Frequency) string {
	switch freq {
	case domain.FrequencyWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case domain.FrequencyMonthly:
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// filler forward-fills one valuation series with a staleness bound.
// Rows are visited in increasing timestamp order, so the cursor only
// moves forward.
type filler struct {
	points []domain.SeriesPoint
	name   string
	stale  time.Duration
	idx    int
}

func newFiller(s *domain.RawSeries, name string, stale time.Duration) *filler {
	f := &filler{name: name, stale: stale, idx: -1}
	if s != nil {
		f.points = s.Points
	}
	return f
}

// at returns the freshest observation at or before t, or nil when the
// series is absent, has no observation yet, or the observation is stale
// beyond the bound (recording a warning for the stale case).
func (f *filler) at(t time.Time, warnings []domain.Warning) (*float64, []domain.Warning) {
	if len(f.points) == 0 {
		return nil, warnings
	}
	for f.idx+1 < len(f.points) && !f.points[f.idx+1].Timestamp.After(t) {
		f.idx++
	}
	if f.idx < 0 {
		return nil, warnings
	}
	obs := f.points[f.idx]
	if t.Sub(obs.Timestamp) > f.stale {
		warnings = append(warnings, domain.Warning{
			Timestamp: t,
			Message: fmt.Sprintf("%s observation from %s is stale, row keeps base multiplier",
				f.name, obs.Timestamp.Format("2006-01-02")),
		})
		return nil, warnings
	}
	v := obs.Value
	return &v, warnings
}
