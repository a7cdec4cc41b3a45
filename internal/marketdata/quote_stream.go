package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// QuoteStreamConfig configures quote stream behavior.
type QuoteStreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout is timeout waiting for subscription confirmation.
	SubscribeTimeout time.Duration
}

// DefaultQuoteStreamConfig returns default quote stream configuration.
func DefaultQuoteStreamConfig() QuoteStreamConfig {
	return QuoteStreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// QuoteStream delivers live quotes over a WebSocket connection. It
// reconnects with exponential backoff and resubscribes active symbols.
type QuoteStream struct {
	endpoint string
	config   QuoteStreamConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to delivery channel
	subs   map[int64]chan Quote
	subsMu sync.RWMutex

	// activeSymbols stores symbols for resubscription after reconnect
	activeSymbols   map[int64]string
	activeSymbolsMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewQuoteStream creates a quote stream and connects to the endpoint.
func NewQuoteStream(ctx context.Context, endpoint string, config *QuoteStreamConfig) (*QuoteStream, error) {
	cfg := DefaultQuoteStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &QuoteStream{
		endpoint:      endpoint,
		config:        cfg,
		subs:          make(map[int64]chan Quote),
		activeSymbols: make(map[int64]string),
		pendingSubs:   make(map[uint64]chan int64),
		done:          make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *QuoteStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Subscribe subscribes to live quotes for a symbol.
func (s *QuoteStream) Subscribe(ctx context.Context, symbol string) (<-chan Quote, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}

	subID, err := s.subscribeInternal(ctx, symbol)
	if err != nil {
		return nil, err
	}

	// Buffer absorbs bursts; delivery blocks rather than dropping quotes
	ch := make(chan Quote, 1024)
	s.subsMu.Lock()
	s.subs[subID] = ch
	s.subsMu.Unlock()

	s.activeSymbolsMu.Lock()
	s.activeSymbols[subID] = symbol
	s.activeSymbolsMu.Unlock()

	return ch, nil
}

// subscribeInternal sends a subscribe request and waits for the
// subscription ID, without storing channel or symbol mappings.
func (s *QuoteStream) subscribeInternal(ctx context.Context, symbol string) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClientClosed
	}

	reqID := s.requestID.Add(1)
	req := streamRequest{
		Op:     "subscribe",
		ID:     reqID,
		Symbol: symbol,
	}

	confirmCh := make(chan int64, 1)
	s.pendingSubsMu.Lock()
	s.pendingSubs[reqID] = confirmCh
	s.pendingSubsMu.Unlock()

	dropPending := func() {
		s.pendingSubsMu.Lock()
		delete(s.pendingSubs, reqID)
		s.pendingSubsMu.Unlock()
	}

	s.connMu.Lock()
	if s.conn == nil {
		s.connMu.Unlock()
		dropPending()
		return 0, fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err := s.conn.WriteJSON(req)
	s.connMu.Unlock()

	if err != nil {
		dropPending()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(s.config.SubscribeTimeout):
		dropPending()
		return 0, fmt.Errorf("subscription timeout after %s", s.config.SubscribeTimeout)
	case <-s.done:
		return 0, ErrClientClosed
	case <-ctx.Done():
		dropPending()
		return 0, ctx.Err()
	}
}

// Close closes the stream and all subscription channels.
func (s *QuoteStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.subsMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subsMu.Unlock()

	s.pendingSubsMu.Lock()
	for id, ch := range s.pendingSubs {
		close(ch)
		delete(s.pendingSubs, id)
	}
	s.pendingSubsMu.Unlock()

	s.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches to subscribers.
func (s *QuoteStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (s *QuoteStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	s.resubscribeAll()
}

// resubscribeAll resubscribes all active symbols after reconnect.
func (s *QuoteStream) resubscribeAll() {
	s.activeSymbolsMu.RLock()
	symbols := make(map[int64]string)
	for id, sym := range s.activeSymbols {
		symbols[id] = sym
	}
	s.activeSymbolsMu.RUnlock()

	s.subsMu.RLock()
	channels := make(map[int64]chan Quote)
	for id, ch := range s.subs {
		channels[id] = ch
	}
	s.subsMu.RUnlock()

	for oldSubID, symbol := range symbols {
		ch := channels[oldSubID]
		if ch == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := s.subscribeInternal(ctx, symbol)
		cancel()

		if err != nil {
			// Failed to resubscribe, keep old mapping
			continue
		}

		s.subsMu.Lock()
		delete(s.subs, oldSubID)
		s.subs[newSubID] = ch
		s.subsMu.Unlock()

		s.activeSymbolsMu.Lock()
		delete(s.activeSymbols, oldSubID)
		s.activeSymbols[newSubID] = symbol
		s.activeSymbolsMu.Unlock()
	}
}

// handleMessage processes an incoming message.
func (s *QuoteStream) handleMessage(message []byte) {
	// Try subscription confirmation first
	var resp streamSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Sub > 0 {
		s.pendingSubsMu.Lock()
		ch, ok := s.pendingSubs[resp.ID]
		if ok {
			delete(s.pendingSubs, resp.ID)
		}
		s.pendingSubsMu.Unlock()

		if ok {
			select {
			case ch <- resp.Sub:
			default:
			}
		}
		return
	}

	// Then quote notification
	var notif streamQuote
	if err := json.Unmarshal(message, &notif); err != nil || notif.Sub == 0 || notif.Symbol == "" {
		return
	}

	quote := Quote{
		Symbol:    notif.Symbol,
		Price:     notif.Price,
		Timestamp: time.Unix(notif.Timestamp, 0).UTC(),
	}

	s.subsMu.RLock()
	ch, ok := s.subs[notif.Sub]
	s.subsMu.RUnlock()

	if ok {
		// Block until delivered; quotes are not dropped
		select {
		case ch <- quote:
		case <-s.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *QuoteStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Wire message types.

type streamRequest struct {
	Op     string `json:"op"`
	ID     uint64 `json:"id"`
	Symbol string `json:"symbol"`
}

type streamSubscribeResponse struct {
	ID  uint64 `json:"id"`
	Sub int64  `json:"sub"`
}

type streamQuote struct {
	Sub       int64   `json:"sub"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"ts"`
}
