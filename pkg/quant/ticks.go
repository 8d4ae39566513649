// Package quant holds tick/price conversion helpers. Detectors work on raw
// integer ticks; real prices only exist at the feed and presentation edges.
package quant

import "github.com/shopspring/decimal"

// RealPrice converts a raw tick count into a real price (ticks x tick size).
func RealPrice(ticks int, tickSize decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(ticks)).Mul(tickSize)
}

// TicksFromString parses a price string and converts it to raw ticks,
// rounding to the nearest tick. Returns false on empty or malformed input,
// or a non-positive tick size.
func TicksFromString(price string, tickSize decimal.Decimal) (int, bool) {
	if price == "" || !tickSize.IsPositive() {
		return 0, false
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return 0, false
	}
	return int(p.Div(tickSize).Round(0).IntPart()), true
}
