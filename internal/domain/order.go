package domain

// TrackedOrder follows a single resting MBO order through its lifecycle.
// Prices are raw tick values; sizes are already normalized by the feed's
// size multiplier. All timestamps are unix milliseconds.
//
// Mutated only by the owning detector goroutine. Not safe for concurrent use.
type TrackedOrder struct {
	ID        string
	IsBid     bool
	CreatedAt int64

	// Size state
	InitialSize    float64
	CurrentSize    float64
	MaxVisibleSize float64 // high-water mark of displayed size
	MinSizeSeen    float64

	// Price state (raw ticks)
	CurrentPrice int
	PriceHistory []int
	PriceChanges int

	// Fill state. ActiveFilled/PassiveFilled split fills by whether the
	// order initiated the trade or absorbed it; only the threshold policy
	// populates the split.
	TotalFilled   float64
	ActiveFilled  float64
	PassiveFilled float64

	// Replace-event counters
	RefillCount        int
	ConsecutiveRefills int
	SizeDecreaseCount  int
	ReplaceEventCount  int

	// Confirmation state. Confirmed never reverts.
	Confirmed   bool
	ConfirmedAt int64
	CompletedAt int64

	ExecutionPercentage float64
	LastUpdate          int64
}

// NewTrackedOrder creates an order in its initial state: current, max and min
// size all seeded from the initial size, price history holding the entry price.
func NewTrackedOrder(id string, priceTicks int, size float64, isBid bool, ts int64) *TrackedOrder {
	return &TrackedOrder{
		ID:             id,
		IsBid:          isBid,
		CreatedAt:      ts,
		InitialSize:    size,
		CurrentSize:    size,
		MaxVisibleSize: size,
		MinSizeSeen:    size,
		CurrentPrice:   priceTicks,
		PriceHistory:   []int{priceTicks},
		LastUpdate:     ts,
	}
}

// ApplyReplace updates the order for a replace event. newPrice is nil when the
// price did not move. When shrinkIsFill is set, a size decrease is treated as
// an implicit execution of the decrease magnitude; otherwise only the decrease
// counter moves and fills come exclusively from trade matching.
func (o *TrackedOrder) ApplyReplace(newSize float64, ts int64, newPrice *int, shrinkIsFill bool) {
	oldSize := o.CurrentSize

	if newPrice != nil && *newPrice != o.CurrentPrice {
		o.CurrentPrice = *newPrice
		if o.PriceHistory[len(o.PriceHistory)-1] != *newPrice {
			o.PriceHistory = append(o.PriceHistory, *newPrice)
		}
		o.PriceChanges++
	}

	o.ReplaceEventCount++
	sizeChange := newSize - oldSize

	if sizeChange < 0 {
		if shrinkIsFill {
			o.ApplyExecution(-sizeChange, ts)
		}
		o.SizeDecreaseCount++
	}

	if newSize < o.MinSizeSeen {
		o.MinSizeSeen = newSize
	}
	if newSize > o.MaxVisibleSize {
		o.MaxVisibleSize = newSize
	}

	// refill: size grew back while still below the original display
	if sizeChange > 0 && oldSize < o.InitialSize {
		o.RefillCount++
		o.ConsecutiveRefills++
	} else {
		o.ConsecutiveRefills = 0
	}

	o.CurrentSize = newSize
	o.LastUpdate = ts
}

// ApplyExecution credits a fill against the order and refreshes the
// execution percentage. TotalFilled never decreases.
func (o *TrackedOrder) ApplyExecution(filledSize float64, ts int64) {
	o.TotalFilled += filledSize
	o.LastUpdate = ts

	estimatedTotal := o.TotalFilled + o.CurrentSize
	if o.MaxVisibleSize > estimatedTotal {
		estimatedTotal = o.MaxVisibleSize
	}
	if estimatedTotal > 0 {
		o.ExecutionPercentage = o.TotalFilled / estimatedTotal
	}
}

// ApplySidedExecution credits a fill while splitting it into the
// active (aggressor) or passive bucket.
func (o *TrackedOrder) ApplySidedExecution(filledSize float64, ts int64, isActive bool) {
	if isActive {
		o.ActiveFilled += filledSize
	} else {
		o.PassiveFilled += filledSize
	}
	o.ApplyExecution(filledSize, ts)
}

// ExecutionRatio is total filled volume over the largest size ever displayed.
// A ratio above 1 means the order traded beyond its visible clip.
func (o *TrackedOrder) ExecutionRatio() float64 {
	if o.MaxVisibleSize > 0 {
		return o.TotalFilled / o.MaxVisibleSize
	}
	return 0
}

// IcebergScore is a 0..1 heuristic rewarding orders that keep a consistent
// visible size, refill repeatedly, and execute far beyond their display.
func (o *TrackedOrder) IcebergScore() float64 {
	score := 0.0

	// size consistency
	if o.MaxVisibleSize > 0 && o.MinSizeSeen/o.MaxVisibleSize > 0.3 {
		score += 0.3
	}

	// refill pattern
	if o.RefillCount >= 2 {
		refillScore := float64(o.RefillCount) * 0.1
		if refillScore > 0.4 {
			refillScore = 0.4
		}
		score += refillScore
	}

	// execution volume
	if ratio := o.ExecutionRatio(); ratio > 1.5 {
		execScore := ratio * 0.1
		if execScore > 0.3 {
			execScore = 0.3
		}
		score += execScore
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
