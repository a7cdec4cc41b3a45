package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"valuation-lab/internal/domain"
)

// LoadCSVSeries reads a two-column CSV file (date, value) into a raw
// series. A header row is skipped when the first field does not parse
// as a date. Dates are YYYY-MM-DD; rows must be in ascending order.
func LoadCSVSeries(path, name string) (*domain.RawSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	points := make([]domain.SeriesPoint, 0, len(records))
	for i, rec := range records {
		ts, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			if i == 0 {
				// Header row
				continue
			}
			return nil, fmt.Errorf("%s row %d: parse date %q: %w", path, i+1, rec[0], err)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parse value %q: %w", path, i+1, rec[1], err)
		}

		points = append(points, domain.SeriesPoint{Timestamp: ts.UTC(), Value: value})
	}

	series, err := domain.NewRawSeries(name, points)
	if err != nil {
		return nil, fmt.Errorf("build series from %s: %w", path, err)
	}
	return series, nil
}
