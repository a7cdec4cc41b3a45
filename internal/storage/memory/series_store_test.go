package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/storage"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func points(values ...float64) []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = domain.SeriesPoint{Timestamp: day(i), Value: v}
	}
	return out
}

func TestSeriesStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewSeriesStore()

	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPrice, points(100, 101, 102)); err != nil {
		t.Fatalf("InsertPoints failed: %v", err)
	}

	series, err := store.GetSeries(ctx, "NIFTY50", storage.SeriesPrice, day(0), day(2))
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(series.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(series.Points))
	}
	for i := 1; i < len(series.Points); i++ {
		if !series.Points[i-1].Timestamp.Before(series.Points[i].Timestamp) {
			t.Errorf("points not in ascending timestamp order at %d", i)
		}
	}
	if series.Points[0].Value != 100 || series.Points[2].Value != 102 {
		t.Errorf("unexpected values: %v", series.Points)
	}
}

func TestSeriesStore_RangeFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewSeriesStore()

	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPE, points(20, 19, 18, 17, 16)); err != nil {
		t.Fatalf("InsertPoints failed: %v", err)
	}

	series, err := store.GetSeries(ctx, "NIFTY50", storage.SeriesPE, day(1), day(3))
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(series.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(series.Points))
	}
	if series.Points[0].Value != 19 || series.Points[2].Value != 17 {
		t.Errorf("range filter returned wrong window: %v", series.Points)
	}
}

func TestSeriesStore_InsertValidation(t *testing.T) {
	ctx := context.Background()
	store := NewSeriesStore()

	if err := store.InsertPoints(ctx, "", storage.SeriesPrice, points(100)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty symbol: error = %v, want ErrInvalidInput", err)
	}
	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesMetric("volume"), points(100)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("bad metric: error = %v, want ErrInvalidInput", err)
	}
	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPrice, nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestSeriesStore_DuplicateWithinBatch(t *testing.T) {
	ctx := context.Background()
	store := NewSeriesStore()

	dup := []domain.SeriesPoint{
		{Timestamp: day(0), Value: 100},
		{Timestamp: day(0), Value: 101},
	}
	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPrice, dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("error = %v, want ErrDuplicateKey", err)
	}

	// Batch must fail atomically: nothing persisted
	if _, err := store.GetSeries(ctx, "NIFTY50", storage.SeriesPrice, day(0), day(0)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after failed batch: error = %v, want ErrNotFound", err)
	}
}

func TestSeriesStore_DuplicateAcrossBatches(t *testing.T) {
	ctx := context.Background()
	store := NewSeriesStore()

	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPrice, points(100, 101)); err != nil {
		t.Fatalf("InsertPoints failed: %v", err)
	}
	second := []domain.SeriesPoint{
		{Timestamp: day(2), Value: 102},
		{Timestamp: day(1), Value: 999},
	}
	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPrice, second); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("error = %v, want ErrDuplicateKey", err)
	}

	series, err := store.GetSeries(ctx, "NIFTY50", storage.SeriesPrice, day(0), day(9))
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(series.Points) != 2 {
		t.Errorf("points = %d, want the original 2 only", len(series.Points))
	}
	if series.Points[1].Value != 101 {
		t.Errorf("existing point overwritten by failed batch: %v", series.Points[1])
	}
}

func TestSeriesStore_MetricsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewSeriesStore()

	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPrice, points(100)); err != nil {
		t.Fatalf("InsertPoints failed: %v", err)
	}
	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPE, points(20)); err != nil {
		t.Fatalf("same timestamp under a different metric must not collide: %v", err)
	}

	if _, err := store.GetSeries(ctx, "NIFTY50", storage.SeriesPB, day(0), day(0)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound for untouched metric", err)
	}
}

func TestSeriesStore_GetNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewSeriesStore()

	if _, err := store.GetSeries(ctx, "NIFTY50", storage.SeriesPrice, day(0), day(9)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown symbol: error = %v, want ErrNotFound", err)
	}

	if err := store.InsertPoints(ctx, "NIFTY50", storage.SeriesPrice, points(100)); err != nil {
		t.Fatalf("InsertPoints failed: %v", err)
	}
	if _, err := store.GetSeries(ctx, "NIFTY50", storage.SeriesPrice, day(5), day(9)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("empty range: error = %v, want ErrNotFound", err)
	}
}
