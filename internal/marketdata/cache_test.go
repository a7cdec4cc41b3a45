package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"valuation-lab/internal/domain"
)

func testSeries(t *testing.T, name string) *domain.RawSeries {
	t.Helper()
	series, err := domain.NewRawSeries(name, []domain.SeriesPoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 100},
	})
	if err != nil {
		t.Fatalf("build test series: %v", err)
	}
	return series
}

func TestSeriesCache_GetSet(t *testing.T) {
	cache := NewSeriesCache(nil)
	defer cache.Close()

	key := Key("NIFTY50", KindPrice,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if key != "NIFTY50|price|2024-01-01|2024-03-01" {
		t.Errorf("unexpected key: %s", key)
	}

	if _, err := cache.Get(key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("error = %v, want ErrCacheMiss", err)
	}

	want := testSeries(t, "NIFTY50/price")
	cache.Set(key, want)

	got, err := cache.Get(key)
	if err != nil {
		t.Fatalf("Get after Set: %v", err)
	}
	if got != want {
		t.Error("Get returned a different series than was set")
	}
}

func TestSeriesCache_Expiry(t *testing.T) {
	cache := NewSeriesCache(&SeriesCacheConfig{
		TTL:             10 * time.Millisecond,
		MaxSize:         16,
		CleanupInterval: time.Hour,
	})
	defer cache.Close()

	cache.Set("k", testSeries(t, "s"))
	time.Sleep(20 * time.Millisecond)

	if _, err := cache.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("error = %v, want ErrCacheMiss after TTL", err)
	}
	if cache.Len() != 0 {
		t.Errorf("expired entry not dropped on read, len = %d", cache.Len())
	}
}

func TestSeriesCache_Invalidate(t *testing.T) {
	cache := NewSeriesCache(nil)
	defer cache.Close()

	cache.Set("a", testSeries(t, "a"))
	cache.Set("b", testSeries(t, "b"))
	cache.Invalidate("a")

	if _, err := cache.Get("a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("invalidated key still cached: %v", err)
	}
	if _, err := cache.Get("b"); err != nil {
		t.Errorf("unrelated key dropped: %v", err)
	}
}

func TestSeriesCache_EvictsLRU(t *testing.T) {
	cache := NewSeriesCache(&SeriesCacheConfig{
		TTL:             time.Hour,
		MaxSize:         2,
		CleanupInterval: time.Hour,
	})
	defer cache.Close()

	cache.Set("a", testSeries(t, "a"))
	time.Sleep(time.Millisecond)
	cache.Set("b", testSeries(t, "b"))
	time.Sleep(time.Millisecond)

	// Touch a so b becomes least recently used
	if _, err := cache.Get("a"); err != nil {
		t.Fatalf("Get a: %v", err)
	}
	time.Sleep(time.Millisecond)
	cache.Set("c", testSeries(t, "c"))

	if _, err := cache.Get("b"); !errors.Is(err, ErrCacheMiss) {
		t.Error("expected b to be evicted as least recently used")
	}
	if _, err := cache.Get("a"); err != nil {
		t.Errorf("recently used entry evicted: %v", err)
	}
	if cache.Len() != 2 {
		t.Errorf("len = %d, want 2", cache.Len())
	}
}

// fakeHistory counts fetches and serves a fixed series per key.
type fakeHistory struct {
	calls int
}

func (f *fakeHistory) PriceHistory(_ context.Context, symbol string, _, _ time.Time) (*domain.RawSeries, error) {
	f.calls++
	return domain.NewRawSeries(symbol+"/price", []domain.SeriesPoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: float64(f.calls)},
	})
}

func (f *fakeHistory) ValuationHistory(_ context.Context, symbol string, kind SeriesKind, _, _ time.Time) (*domain.RawSeries, error) {
	f.calls++
	return domain.NewRawSeries(fmt.Sprintf("%s/%s", symbol, kind), []domain.SeriesPoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: float64(f.calls)},
	})
}

func TestCachedHistory_FetchesOnce(t *testing.T) {
	cache := NewSeriesCache(nil)
	defer cache.Close()

	fake := &fakeHistory{}
	cached := NewCachedHistory(fake, fake, cache)

	ctx := context.Background()
	first, err := cached.PriceHistory(ctx, "NIFTY50", testFrom, testTo)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	second, err := cached.PriceHistory(ctx, "NIFTY50", testFrom, testTo)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}

	if fake.calls != 1 {
		t.Errorf("provider calls = %d, want 1", fake.calls)
	}
	if first != second {
		t.Error("cache hit returned a different series")
	}
}

func TestCachedHistory_DistinctKindsAreDistinctEntries(t *testing.T) {
	cache := NewSeriesCache(nil)
	defer cache.Close()

	fake := &fakeHistory{}
	cached := NewCachedHistory(fake, fake, cache)

	ctx := context.Background()
	if _, err := cached.ValuationHistory(ctx, "NIFTY50", KindPE, testFrom, testTo); err != nil {
		t.Fatalf("ValuationHistory: %v", err)
	}
	if _, err := cached.ValuationHistory(ctx, "NIFTY50", KindPB, testFrom, testTo); err != nil {
		t.Fatalf("ValuationHistory: %v", err)
	}

	if fake.calls != 2 {
		t.Errorf("provider calls = %d, want one per kind", fake.calls)
	}
}
