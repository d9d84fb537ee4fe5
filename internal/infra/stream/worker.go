// Package stream maintains a websocket order-book feed and injects fresher
// depth snapshots into an exchange's order-book cache. The cache keeps a
// streamed book only when it is newer than what it already holds, so the
// feed and the REST polling path cannot clobber each other.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coinflow/internal/domain"
	"coinflow/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	maxRetries   = 10
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// BookSink receives streamed depth snapshots. *exchange.CachedExchange
// satisfies it.
type BookSink interface {
	InjectOrderBook(book domain.OrderBook, at time.Time, depth int)
}

// bookMessage is one depth snapshot on the wire. Levels are [price, volume]
// string pairs; decimals survive the trip exactly.
type bookMessage struct {
	Type        string      `json:"type"`
	Market      string      `json:"market"`
	Bids        [][2]string `json:"bids"`
	Asks        [][2]string `json:"asks"`
	TimestampMS int64       `json:"timestamp"`
}

// Worker handles one websocket book-feed connection.
type Worker struct {
	url     string
	markets []domain.Market
	depth   int
	sink    BookSink

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a feed worker subscribing to the given markets.
func NewWorker(url string, markets []domain.Market, depth int, sink BookSink) *Worker {
	return &Worker{
		url:     url,
		markets: markets,
		depth:   depth,
		sink:    sink,
	}
}

// Connect starts the connection loop in the background.
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

// IsConnected reports whether the feed currently has a live connection.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("book feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	slog.Info("book feed connected", slog.Int("subs", len(w.markets)))
	return nil
}

func (w *Worker) subscribe() error {
	codes := make([]string, len(w.markets))
	for i, m := range w.markets {
		codes[i] = m.String()
	}

	msg := map[string]interface{}{
		"op":      "subscribe",
		"channel": "orderbook",
		"markets": codes,
		"depth":   w.depth,
	}
	b, _ := json.Marshal(msg)
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

func (w *Worker) handleMessage(msg []byte) {
	var resp bookMessage
	if json.Unmarshal(msg, &resp) != nil || resp.Type != "orderbook" {
		return
	}

	market, err := domain.ParseMarket(resp.Market)
	if err != nil {
		return
	}
	book := domain.OrderBook{
		Market: market,
		Bids:   parseLevels(resp.Bids),
		Asks:   parseLevels(resp.Asks),
		Time:   time.UnixMilli(resp.TimestampMS),
	}
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return
	}

	w.sink.InjectOrderBook(book, book.Time, w.depth)
}

func parseLevels(raw [][2]string) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			continue
		}
		volume, err := decimal.NewFromString(pair[1])
		if err != nil {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Volume: volume})
	}
	return levels
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
}

// Disconnect stops the loop and closes the connection.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
