package event

// Event is one MBO feed message routed through a per-instrument sequencer.
// Timestamps are unix milliseconds as stamped by the feed gateway.
type Event interface {
	GetType() string
	GetTs() int64
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Ts     int64
	Symbol string
}

func (e *BaseEvent) GetTs() int64 { return e.Ts }

// NewOrderEvent is a new resting order entering the book.
type NewOrderEvent struct {
	BaseEvent
	OrderID    string
	IsBid      bool
	PriceTicks int
	Size       float64 // feed-native, normalized by the detector
}

func (e *NewOrderEvent) GetType() string { return "new_order" }

// ReplaceOrderEvent is an in-place modification of a resting order's
// price or size.
type ReplaceOrderEvent struct {
	BaseEvent
	OrderID    string
	PriceTicks int
	Size       float64
}

func (e *ReplaceOrderEvent) GetType() string { return "replace_order" }

// CancelOrderEvent removes a resting order from the book.
type CancelOrderEvent struct {
	BaseEvent
	OrderID string
}

func (e *CancelOrderEvent) GetType() string { return "cancel_order" }

// TradeEvent is an execution printed at a price. IsBidAggressor marks the
// side that crossed the book.
type TradeEvent struct {
	BaseEvent
	PriceTicks     int
	Size           float64
	IsBidAggressor bool
}

func (e *TradeEvent) GetType() string { return "trade" }

// BookTopEvent updates the cached best bid/ask ticks. HasBid/HasAsk are
// false when the corresponding side of the book is empty or unknown.
type BookTopEvent struct {
	BaseEvent
	BidTicks int
	AskTicks int
	HasBid   bool
	HasAsk   bool
}

func (e *BookTopEvent) GetType() string { return "book_top" }
