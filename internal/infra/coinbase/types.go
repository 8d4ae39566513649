package coinbase

// feedMessage covers every message shape of the Coinbase Exchange "full" and
// "ticker" channels that the gateway consumes. Unused fields stay empty.
type feedMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Time      string `json:"time"`
	Side      string `json:"side"` // open/change: order side; match: maker side

	OrderID string `json:"order_id"`
	Reason  string `json:"reason"` // done: "canceled" or "filled"

	Price         string `json:"price"`
	RemainingSize string `json:"remaining_size"`
	NewSize       string `json:"new_size"`
	Size          string `json:"size"`

	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// subscribeRequest is the subscription handshake for the full + ticker channels.
type subscribeRequest struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
	Products []string `json:"product_ids"`
}
