package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"iceberg_go/internal/domain"
	"iceberg_go/internal/event"
	"iceberg_go/internal/infra"
	"iceberg_go/pkg/quant"
)

const (
	maxRetries  = 10
	readTimeout = 60 * time.Second
)

// Instrument carries the conversion parameters for one product.
type Instrument struct {
	TickSize decimal.Decimal
	Inbox    chan<- event.Event
}

// Worker handles the Coinbase Exchange MBO WebSocket connection. It parses
// full-channel messages (open/change/match/done) plus ticker best bid/ask and
// routes them as events into the per-instrument sequencer inboxes.
type Worker struct {
	wsURL       string
	instruments map[string]Instrument

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a new Coinbase gateway worker.
func NewWorker(wsURL string, instruments map[string]Instrument) *Worker {
	return &Worker{
		wsURL:       wsURL,
		instruments: instruments,
	}
}

// Connect starts the WebSocket connection
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
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
			infra.GlobalMetrics.RecordError()
			slog.Warn("Coinbase connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
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

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()
	infra.GlobalMetrics.IncrementConnections()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return domain.NewNetworkError("subscribe", err)
	}

	slog.Info("Coinbase connected", slog.Int("products", len(w.instruments)))
	return nil
}

func (w *Worker) subscribe() error {
	products := make([]string, 0, len(w.instruments))
	for p := range w.instruments {
		products = append(products, p)
	}

	req := subscribeRequest{
		Type:     "subscribe",
		Channels: []string{"full", "ticker"},
		Products: products,
	}
	b, _ := json.Marshal(req)
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
		if w.conn == nil {
			w.mu.RUnlock()
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		w.mu.RUnlock()

		_, msg, err := w.conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

func (w *Worker) handleMessage(msg []byte) {
	var m feedMessage
	if json.Unmarshal(msg, &m) != nil {
		return
	}

	inst, ok := w.instruments[m.ProductID]
	if !ok {
		return
	}

	ts := parseTime(m.Time)

	switch m.Type {
	case "open":
		priceTicks, ok := quant.TicksFromString(m.Price, inst.TickSize)
		if !ok {
			return
		}
		size, err := strconv.ParseFloat(m.RemainingSize, 64)
		if err != nil {
			return
		}
		ev := event.AcquireNewOrderEvent()
		ev.Ts = ts
		ev.Symbol = m.ProductID
		ev.OrderID = m.OrderID
		ev.IsBid = m.Side == "buy"
		ev.PriceTicks = priceTicks
		ev.Size = size
		w.send(inst, ev, func() { event.ReleaseNewOrderEvent(ev) })

	case "change":
		priceTicks, ok := quant.TicksFromString(m.Price, inst.TickSize)
		if !ok {
			return
		}
		size, err := strconv.ParseFloat(m.NewSize, 64)
		if err != nil {
			return
		}
		ev := event.AcquireReplaceOrderEvent()
		ev.Ts = ts
		ev.Symbol = m.ProductID
		ev.OrderID = m.OrderID
		ev.PriceTicks = priceTicks
		ev.Size = size
		w.send(inst, ev, func() { event.ReleaseReplaceOrderEvent(ev) })

	case "done":
		// Both "canceled" and "filled" remove the resting order.
		ev := &event.CancelOrderEvent{
			BaseEvent: event.BaseEvent{Ts: ts, Symbol: m.ProductID},
			OrderID:   m.OrderID,
		}
		w.send(inst, ev, nil)

	case "match":
		priceTicks, ok := quant.TicksFromString(m.Price, inst.TickSize)
		if !ok {
			return
		}
		size, err := strconv.ParseFloat(m.Size, 64)
		if err != nil {
			return
		}
		ev := event.AcquireTradeEvent()
		ev.Ts = ts
		ev.Symbol = m.ProductID
		ev.PriceTicks = priceTicks
		ev.Size = size
		// m.Side is the maker (resting) side; the aggressor is opposite.
		ev.IsBidAggressor = m.Side == "sell"
		w.send(inst, ev, func() { event.ReleaseTradeEvent(ev) })

	case "ticker":
		bidTicks, hasBid := quant.TicksFromString(m.BestBid, inst.TickSize)
		askTicks, hasAsk := quant.TicksFromString(m.BestAsk, inst.TickSize)
		if !hasBid && !hasAsk {
			return
		}
		ev := &event.BookTopEvent{
			BaseEvent: event.BaseEvent{Ts: ts, Symbol: m.ProductID},
			BidTicks:  bidTicks,
			AskTicks:  askTicks,
			HasBid:    hasBid,
			HasAsk:    hasAsk,
		}
		w.send(inst, ev, nil)
	}
}

// send forwards an event without ever blocking the read loop. A full inbox
// drops the event; release returns pooled events on drop.
func (w *Worker) send(inst Instrument, ev event.Event, release func()) {
	select {
	case inst.Inbox <- ev:
	default: // DROP
		if release != nil {
			release()
		}
	}
}

func parseTime(value string) int64 {
	if value != "" {
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t.UnixMilli()
		}
	}
	return time.Now().UnixMilli()
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	if w.connected {
		infra.GlobalMetrics.DecrementConnections()
	}
	w.connected = false
}

// IsConnected reports whether the websocket is currently up.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Disconnect tears the connection down and waits for the loops to exit.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
