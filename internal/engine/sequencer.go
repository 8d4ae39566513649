package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"iceberg_go/internal/detect"
	"iceberg_go/internal/event"
	"iceberg_go/internal/infra"
)

// Sequencer is the single-threaded event processor for one instrument. Every
// mutating operation — feed events and the idle-cleanup sweep — funnels
// through one goroutine, so the detectors' order table and price index never
// observe inconsistent intermediate states and a cleanup can never race a
// concurrent cancel.
type Sequencer struct {
	symbol    string
	inbox     chan event.Event
	detectors []*detect.Detector

	cleanupInterval time.Duration

	mu sync.RWMutex // Used only for external reads (e.g. stats)
}

// NewSequencer creates a sequencer driving the given detectors. Both
// detection policies run side by side over the same raw event stream and
// share no state.
func NewSequencer(symbol string, inboxSize int, cleanupInterval time.Duration,
	detectors ...*detect.Detector) *Sequencer {
	return &Sequencer{
		symbol:          symbol,
		inbox:           make(chan event.Event, inboxSize),
		detectors:       detectors,
		cleanupInterval: cleanupInterval,
	}
}

// Inbox returns the event channel. Feed gateways send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)", slog.String("symbol", s.symbol))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.String("symbol", s.symbol), slog.Any("panic", r))
			s.DumpState(fmt.Sprintf("panic_dump_%s.json", s.symbol))
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	cleanup := time.NewTicker(s.cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...", slog.String("symbol", s.symbol))
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		case <-cleanup.C:
			s.runCleanup(time.Now().UnixMilli())
		}
	}
}

// processEvent dispatches one event to every detector, then recycles pooled
// event types. No mutex needed here as we are in the Hotpath.
func (s *Sequencer) processEvent(ev event.Event) {
	start := time.Now()

	switch e := ev.(type) {
	case *event.NewOrderEvent:
		for _, d := range s.detectors {
			d.ProcessNewOrder(e.OrderID, e.IsBid, e.PriceTicks, e.Size, e.Ts)
		}
		event.ReleaseNewOrderEvent(e)
	case *event.ReplaceOrderEvent:
		for _, d := range s.detectors {
			d.ProcessReplace(e.OrderID, e.PriceTicks, e.Size, e.Ts)
		}
		event.ReleaseReplaceOrderEvent(e)
	case *event.CancelOrderEvent:
		for _, d := range s.detectors {
			d.ProcessCancel(e.OrderID, e.Ts)
		}
	case *event.TradeEvent:
		for _, d := range s.detectors {
			d.AddTrade(e.PriceTicks, e.Size, e.IsBidAggressor, e.Ts)
		}
		event.ReleaseTradeEvent(e)
	case *event.BookTopEvent:
		for _, d := range s.detectors {
			d.SetBestBidAsk(e.BidTicks, e.AskTicks, e.HasBid, e.HasAsk)
		}
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	infra.GlobalMetrics.RecordEvent(time.Since(start).Nanoseconds())
}

// ProcessSync processes one event synchronously, bypassing the inbox.
// This is used exclusively by tests and replay tooling.
func (s *Sequencer) ProcessSync(ev event.Event) {
	s.processEvent(ev)
}

func (s *Sequencer) runCleanup(nowMs int64) {
	evicted := 0
	for _, d := range s.detectors {
		evicted += d.CleanupIdle(nowMs)
	}
	if evicted > 0 {
		slog.Debug("Idle orders evicted", slog.String("symbol", s.symbol), slog.Int("count", evicted))
	}
	active := 0
	for _, d := range s.detectors {
		active += d.StatsSnapshot().ActiveOrders
	}
	infra.GlobalMetrics.SetActiveOrders(int32(active))
}

// Stats returns a snapshot of every detector's counters (external read).
func (s *Sequencer) Stats() []detect.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]detect.Stats, 0, len(s.detectors))
	for _, d := range s.detectors {
		stats = append(stats, d.StatsSnapshot())
	}
	return stats
}

// DumpState writes the sequencer's detector counters to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		Symbol    string         `json:"symbol"`
		Detectors []detect.Stats `json:"detectors"`
	}{
		Symbol:    s.symbol,
		Detectors: s.Stats(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
