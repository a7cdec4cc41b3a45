package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[seriesKey]map[int64]float64 // keyed by (symbol, metric), then unix seconds
}

type seriesKey struct {
	symbol string
	metric storage.SeriesMetric
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{data: make(map[seriesKey]map[int64]float64)}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertPoints adds observations. Fails the entire batch on any
// duplicate (symbol, metric, timestamp) key.
func (s *SeriesStore) InsertPoints(_ context.Context, symbol string, metric storage.SeriesMetric, points []domain.SeriesPoint) error {
	if symbol == "" || !metric.Valid() {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{symbol, metric}
	existing := s.data[key]

	// First pass: check duplicates (existing + intra-batch)
	batch := make(map[int64]struct{}, len(points))
	for _, p := range points {
		ts := p.Timestamp.UTC().Unix()
		if _, ok := existing[ts]; ok {
			return storage.ErrDuplicateKey
		}
		if _, ok := batch[ts]; ok {
			return storage.ErrDuplicateKey
		}
		batch[ts] = struct{}{}
	}

	if existing == nil {
		existing = make(map[int64]float64, len(points))
		s.data[key] = existing
	}
	for _, p := range points {
		existing[p.Timestamp.UTC().Unix()] = p.Value
	}
	return nil
}

// GetSeries retrieves observations within [from, to], ordered by
// timestamp ASC.
func (s *SeriesStore) GetSeries(_ context.Context, symbol string, metric storage.SeriesMetric, from, to time.Time) (*domain.RawSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.data[seriesKey{symbol, metric}]
	if !ok || len(existing) == 0 {
		return nil, storage.ErrNotFound
	}

	lo, hi := from.UTC().Unix(), to.UTC().Unix()
	points := make([]domain.SeriesPoint, 0, len(existing))
	for ts, v := range existing {
		if ts < lo || ts > hi {
			continue
		}
		points = append(points, domain.SeriesPoint{Timestamp: time.Unix(ts, 0).UTC(), Value: v})
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return domain.NewRawSeries(symbol+"/"+string(metric), points)
}
