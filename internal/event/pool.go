package event

import (
	"sync"
)

// Pools for the high-frequency event types. An MBO feed produces orders of
// magnitude more new/replace/trade messages than cancels or book tops, so
// those three are recycled to reduce GC pressure in the hotpath.
//
// Usage:
//
//	ev := AcquireTradeEvent()
//	ev.Symbol = "BTC-USD"
//	// ... send into the sequencer inbox ...
//	ReleaseTradeEvent(ev) // return to pool after processing
var newOrderPool = sync.Pool{
	New: func() interface{} {
		return &NewOrderEvent{}
	},
}

// AcquireNewOrderEvent gets a NewOrderEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireNewOrderEvent() *NewOrderEvent {
	return newOrderPool.Get().(*NewOrderEvent)
}

// ReleaseNewOrderEvent returns a NewOrderEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseNewOrderEvent(ev *NewOrderEvent) {
	if ev == nil {
		return
	}
	ev.Ts = 0
	ev.Symbol = ""
	ev.OrderID = ""
	ev.IsBid = false
	ev.PriceTicks = 0
	ev.Size = 0

	newOrderPool.Put(ev)
}

// ReplaceOrderEvent pool
var replacePool = sync.Pool{
	New: func() interface{} {
		return &ReplaceOrderEvent{}
	},
}

// AcquireReplaceOrderEvent gets a ReplaceOrderEvent from the pool.
func AcquireReplaceOrderEvent() *ReplaceOrderEvent {
	return replacePool.Get().(*ReplaceOrderEvent)
}

// ReleaseReplaceOrderEvent returns a ReplaceOrderEvent to the pool.
func ReleaseReplaceOrderEvent(ev *ReplaceOrderEvent) {
	if ev == nil {
		return
	}
	ev.Ts = 0
	ev.Symbol = ""
	ev.OrderID = ""
	ev.PriceTicks = 0
	ev.Size = 0

	replacePool.Put(ev)
}

// TradeEvent pool
var tradePool = sync.Pool{
	New: func() interface{} {
		return &TradeEvent{}
	},
}

// AcquireTradeEvent gets a TradeEvent from the pool.
func AcquireTradeEvent() *TradeEvent {
	return tradePool.Get().(*TradeEvent)
}

// ReleaseTradeEvent returns a TradeEvent to the pool.
func ReleaseTradeEvent(ev *TradeEvent) {
	if ev == nil {
		return
	}
	ev.Ts = 0
	ev.Symbol = ""
	ev.PriceTicks = 0
	ev.Size = 0
	ev.IsBidAggressor = false

	tradePool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
// It acquires and releases a batch of events.
func Warmup() {
	const batchSize = 1000

	newOrderEvs := make([]*NewOrderEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		newOrderEvs = append(newOrderEvs, AcquireNewOrderEvent())
	}
	for _, ev := range newOrderEvs {
		ReleaseNewOrderEvent(ev)
	}

	replaceEvs := make([]*ReplaceOrderEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		replaceEvs = append(replaceEvs, AcquireReplaceOrderEvent())
	}
	for _, ev := range replaceEvs {
		ReleaseReplaceOrderEvent(ev)
	}

	tradeEvs := make([]*TradeEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		tradeEvs = append(tradeEvs, AcquireTradeEvent())
	}
	for _, ev := range tradeEvs {
		ReleaseTradeEvent(ev)
	}
}
