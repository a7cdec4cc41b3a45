package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"valuation-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HistoryClient implements PriceHistoryProvider and
// ValuationHistoryProvider against an HTTP JSON history API.
type HistoryClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HistoryClient.
type ClientOption func(*HistoryClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HistoryClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HistoryClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HistoryClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HistoryClient) {
		c.client = client
	}
}

// NewHistoryClient creates a history client for the given base URL.
func NewHistoryClient(baseURL string, opts ...ClientOption) *HistoryClient {
	c := &HistoryClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// historyPoint is a single observation in the API response.
type historyPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// historyResponse is the API response envelope.
type historyResponse struct {
	Symbol string         `json:"symbol"`
	Kind   string         `json:"kind"`
	Points []historyPoint `json:"points"`
}

// PriceHistory fetches price history for a symbol.
func (c *HistoryClient) PriceHistory(ctx context.Context, symbol string, from, to time.Time) (*domain.RawSeries, error) {
	return c.fetch(ctx, symbol, KindPrice, from, to)
}

// ValuationHistory fetches valuation ratio history for a symbol.
func (c *HistoryClient) ValuationHistory(ctx context.Context, symbol string, kind SeriesKind, from, to time.Time) (*domain.RawSeries, error) {
	if kind != KindPE && kind != KindPB {
		return nil, fmt.Errorf("valuation history: unsupported kind %q", kind)
	}
	return c.fetch(ctx, symbol, kind, from, to)
}

// fetch performs a history request with retries and exponential backoff.
func (c *HistoryClient) fetch(ctx context.Context, symbol string, kind SeriesKind, from, to time.Time) (*domain.RawSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("kind", string(kind))
	q.Set("from", from.UTC().Format("2006-01-02"))
	q.Set("to", to.UTC().Format("2006-01-02"))
	reqURL := c.baseURL + "/v1/history?" + q.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", fmt.Sprintf("%d", c.requestID.Add(1)))

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			// Not retried
			return nil, fmt.Errorf("%s %s: %w", symbol, kind, ErrSymbolNotFound)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var hr historyResponse
		if err := json.Unmarshal(body, &hr); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		return toSeries(symbol, kind, hr.Points)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// toSeries converts API points into a validated raw series.
func toSeries(symbol string, kind SeriesKind, points []historyPoint) (*domain.RawSeries, error) {
	sp := make([]domain.SeriesPoint, 0, len(points))
	for _, p := range points {
		ts, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, fmt.Errorf("parse point date %q: %w", p.Date, err)
		}
		sp = append(sp, domain.SeriesPoint{Timestamp: ts.UTC(), Value: p.Value})
	}

	series, err := domain.NewRawSeries(symbol+"/"+string(kind), sp)
	if err != nil {
		return nil, fmt.Errorf("build %s %s series: %w", symbol, kind, err)
	}
	return series, nil
}

// Compile-time interface checks.
var (
	_ PriceHistoryProvider     = (*HistoryClient)(nil)
	_ ValuationHistoryProvider = (*HistoryClient)(nil)
)
