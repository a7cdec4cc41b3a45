package clickhouse

import (
	"context"
	"fmt"
	"time"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using ClickHouse. Series
// observations are the high-volume side of the lab, so they live in the
// columnar store.
type SeriesStore struct {
	conn *Conn
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(conn *Conn) *SeriesStore {
	return &SeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertPoints adds observations in one batch. Fails the entire batch
// on any duplicate (symbol, metric, timestamp) key. ClickHouse
// MergeTree does not enforce uniqueness at insert time, so duplicates
// are checked explicitly before the batch is sent.
func (s *SeriesStore) InsertPoints(ctx context.Context, symbol string, metric storage.SeriesMetric, points []domain.SeriesPoint) error {
	if symbol == "" || !metric.Valid() {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(points))
	for _, p := range points {
		ts := p.Timestamp.UTC().Unix()
		if _, exists := seen[ts]; exists {
			return storage.ErrDuplicateKey
		}
		seen[ts] = struct{}{}

		exists, err := s.exists(ctx, symbol, metric, p.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO series_points (symbol, metric, ts, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(symbol, string(metric), p.Timestamp.UTC(), p.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetSeries retrieves observations within [from, to], ordered by
// timestamp ASC.
func (s *SeriesStore) GetSeries(ctx context.Context, symbol string, metric storage.SeriesMetric, from, to time.Time) (*domain.RawSeries, error) {
	query := `
		SELECT ts, value
		FROM series_points
		WHERE symbol = ? AND metric = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, string(metric), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var points []domain.SeriesPoint
	for rows.Next() {
		var (
			ts    time.Time
			value float64
		)
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("scan series point: %w", err)
		}
		points = append(points, domain.SeriesPoint{Timestamp: ts.UTC(), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series points: %w", err)
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}

	return domain.NewRawSeries(symbol+"/"+string(metric), points)
}

func (s *SeriesStore) exists(ctx context.Context, symbol string, metric storage.SeriesMetric, ts time.Time) (bool, error) {
	query := `
		SELECT count() FROM series_points
		WHERE symbol = ? AND metric = ? AND ts = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, string(metric), ts.UTC()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
