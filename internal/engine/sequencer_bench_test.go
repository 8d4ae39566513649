package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"iceberg_go/internal/detect"
	"iceberg_go/internal/domain"
	"iceberg_go/internal/event"
)

// BenchmarkSequencer_ProcessEvent measures Hotpath event processing speed.
// This is the core metric for "Zero-Alloc in Hotpath" principle verification.
func BenchmarkSequencer_ProcessEvent(b *testing.B) {
	out := make(chan domain.Detection, 1024)
	settings := detect.NewSettingsStore(detect.DefaultSettings())
	d := detect.NewDetector("BTC-USD", 0, decimal.NewFromFloat(0.01),
		detect.ScoringPolicy{}, settings, out)
	seq := NewSequencer("BTC-USD", 1000, time.Minute, d)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ev := event.AcquireTradeEvent()
		ev.Ts = int64(i)
		ev.PriceTicks = 1000
		ev.Size = 25
		ev.IsBidAggressor = i%2 == 0

		// Direct call into the Hotpath core
		seq.processEvent(ev)

		// drain completion records between iterations
		for len(out) > 0 {
			<-out
		}
	}
}

// BenchmarkSequencer_FullPipeline measures end-to-end event processing.
// Note: This benchmark includes channel overhead.
func BenchmarkSequencer_FullPipeline(b *testing.B) {
	out := make(chan domain.Detection, 1024)
	settings := detect.NewSettingsStore(detect.DefaultSettings())
	d := detect.NewDetector("BTC-USD", 0, decimal.NewFromFloat(0.01),
		detect.ThresholdPolicy{}, settings, out)
	seq := NewSequencer("BTC-USD", b.N+100, time.Minute, d)
	inbox := seq.Inbox()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go seq.Run(ctx)
	go func() {
		for range out {
		}
	}()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ev := event.AcquireNewOrderEvent()
		ev.Ts = int64(i)
		ev.OrderID = "bench"
		ev.IsBid = true
		ev.PriceTicks = 1000 + i%10
		ev.Size = 50

		inbox <- ev
	}

	cancel()
}
