// Package marketdata fetches price and valuation history from external
// providers. The simulation core never imports this package; callers
// fetch series here and hand them to the aligner.
package marketdata

import (
	"context"
	"errors"
	"time"

	"valuation-lab/internal/domain"
)

// Errors returned by providers and the cache.
var (
	// ErrSymbolNotFound indicates the provider has no data for the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrCacheMiss indicates the key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")
	// ErrClientClosed indicates the client was closed.
	ErrClientClosed = errors.New("client closed")
)

// SeriesKind identifies which history series to fetch.
type SeriesKind string

const (
	KindPrice SeriesKind = "price"
	KindPE    SeriesKind = "pe"
	KindPB    SeriesKind = "pb"
)

// Valid reports whether the kind is a known series kind.
func (k SeriesKind) Valid() bool {
	switch k {
	case KindPrice, KindPE, KindPB:
		return true
	}
	return false
}

// PriceHistoryProvider fetches price history for a symbol.
type PriceHistoryProvider interface {
	PriceHistory(ctx context.Context, symbol string, from, to time.Time) (*domain.RawSeries, error)
}

// ValuationHistoryProvider fetches valuation ratio history for a symbol.
type ValuationHistoryProvider interface {
	ValuationHistory(ctx context.Context, symbol string, kind SeriesKind, from, to time.Time) (*domain.RawSeries, error)
}

// Quote is a single live observation from a quote stream.
type Quote struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}
