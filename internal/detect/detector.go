package detect

import (
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"iceberg_go/internal/domain"
)

// volumeSampleIntervalMs is the flush cadence of the rolling volume sampler.
const volumeSampleIntervalMs = 60_000

// Detector tracks every resting order of one instrument and confirms iceberg
// behavior according to its Policy. The active-order table and the price
// index are mutated together per event, so a Detector must only be driven
// from a single goroutine (the per-instrument sequencer); "mutate order,
// update index, evaluate confirmation" is then one atomic step.
//
// Completed detections go out on a buffered channel; the send never blocks
// the event path, records are dropped (and counted) when the consumer lags.
type Detector struct {
	symbol         string
	sizeMultiplier float64
	tickSize       decimal.Decimal
	pips           float64
	policy         Policy
	settings       *SettingsStore
	metrics        *MarketMetrics

	// activeOrders and ordersByPrice must stay consistent: every active
	// order appears in exactly one price bucket, keyed by its current
	// price.
	activeOrders  map[string]*domain.TrackedOrder
	ordersByPrice map[int][]string
	confirmedIDs  map[string]struct{}

	bestBidTick int
	bestAskTick int
	hasBestBid  bool
	hasBestAsk  bool

	// rolling volume sampler feeding MarketMetrics
	recentVolume       float64
	lastVolumeSampleMs int64

	out            chan<- domain.Detection
	emittedCount   uint64
	droppedRecords uint64
}

// NewDetector creates a detector for one instrument. out receives completion
// records; it should be buffered generously relative to expected alert rates.
func NewDetector(symbol string, sizeMultiplier float64, tickSize decimal.Decimal,
	policy Policy, settings *SettingsStore, out chan<- domain.Detection) *Detector {
	return &Detector{
		symbol:         symbol,
		sizeMultiplier: sizeMultiplier,
		tickSize:       tickSize,
		pips:           tickSize.InexactFloat64(),
		policy:         policy,
		settings:       settings,
		metrics:        NewMarketMetrics(),
		activeOrders:   make(map[string]*domain.TrackedOrder),
		ordersByPrice:  make(map[int][]string),
		confirmedIDs:   make(map[string]struct{}),
		out:            out,
	}
}

// Symbol returns the instrument this detector tracks.
func (d *Detector) Symbol() string { return d.symbol }

// PolicyName returns the name of the confirmation policy.
func (d *Detector) PolicyName() string { return d.policy.Name() }

func (d *Detector) normalize(size float64) float64 {
	if d.sizeMultiplier > 0 {
		return size / d.sizeMultiplier
	}
	return size
}

// SetBestBidAsk caches the current top of book (raw ticks) for the
// admission distance filter.
func (d *Detector) SetBestBidAsk(bidTick, askTick int, hasBid, hasAsk bool) {
	d.bestBidTick, d.hasBestBid = bidTick, hasBid
	d.bestAskTick, d.hasBestAsk = askTick, hasAsk
}

// ProcessNewOrder admits and starts tracking a new resting order if the
// policy's admission check passes. The feed-native size is normalized first
// and always recorded into the market statistics.
func (d *Detector) ProcessNewOrder(id string, isBid bool, priceTicks int, size float64, ts int64) {
	s := d.settings.Load()
	actualSize := d.normalize(size)

	d.metrics.AddOrder(actualSize, ts)
	th := computeThresholds(d.metrics, s)

	if !d.policy.Admit(actualSize, th) {
		return
	}

	order := domain.NewTrackedOrder(id, priceTicks, actualSize, isBid, ts)
	d.activeOrders[id] = order
	d.ordersByPrice[priceTicks] = append(d.ordersByPrice[priceTicks], id)

	if actualSize >= th.TriggerSize && actualSize <= th.MaxVisible &&
		d.distanceFromBest(priceTicks, isBid) <= s.MaxDistancePips {
		slog.Debug("iceberg candidate admitted",
			slog.String("symbol", d.symbol),
			slog.String("policy", d.policy.Name()),
			slog.String("order_id", id),
			slog.Int("price_ticks", priceTicks),
			slog.Float64("size", actualSize))
	}
}

// ProcessReplace applies a replace event and re-runs confirmation analysis.
// Unknown order ids are ignored; late or out-of-order feed events are
// expected, not erroneous.
func (d *Detector) ProcessReplace(id string, priceTicks int, size float64, ts int64) {
	order, ok := d.activeOrders[id]
	if !ok {
		return
	}

	s := d.settings.Load()
	actualSize := d.normalize(size)

	oldPriceTicks := order.CurrentPrice
	var newPrice *int
	if priceTicks != oldPriceTicks {
		d.removeFromBucket(oldPriceTicks, id)
		d.ordersByPrice[priceTicks] = append(d.ordersByPrice[priceTicks], id)
		newPrice = &priceTicks
	}

	order.ApplyReplace(actualSize, ts, newPrice, d.policy.ShrinkIsFill())

	if order.Confirmed && order.ExecutionPercentage >= s.ExecutionThreshold {
		slog.Debug("confirmed iceberg nearing completion",
			slog.String("symbol", d.symbol),
			slog.String("order_id", id),
			slog.Float64("execution_pct", order.ExecutionPercentage))
	}

	d.evaluate(order, s, ts)
}

// ProcessCancel removes the order. A confirmed order gets its completion
// stamped; an unconfirmed one gets the policy's last-chance check before it
// disappears. Nothing is emitted for orders that never qualified.
func (d *Detector) ProcessCancel(id string, ts int64) {
	order, ok := d.activeOrders[id]
	if !ok {
		return
	}
	delete(d.activeOrders, id)
	d.removeFromAllBuckets(order, id)

	s := d.settings.Load()

	if !order.Confirmed && d.policy.EvaluateAtCancel(order, s) {
		order.Confirmed = true
		order.ConfirmedAt = ts
		order.CompletedAt = ts
		d.emit(order, ts)
		return
	}

	if order.Confirmed {
		order.CompletedAt = ts
		delete(d.confirmedIDs, id)
		if d.policy.EmitOnCancel() {
			d.emit(order, ts)
		}
	}
}

// AddTrade records the trade into the market statistics, flushes the rolling
// volume sampler, and matches the trade against resting orders at its price.
// Passive counterparties (opposite the aggressor side) share the trade size
// evenly, each contribution clipped to the order's displayed size.
func (d *Detector) AddTrade(priceTicks int, size float64, isBidAggressor bool, ts int64) {
	s := d.settings.Load()
	actualSize := d.normalize(size)

	d.metrics.AddTrade(actualSize, ts)

	d.recentVolume += actualSize
	if d.lastVolumeSampleMs == 0 {
		d.lastVolumeSampleMs = ts
	} else if ts-d.lastVolumeSampleMs >= volumeSampleIntervalMs {
		d.metrics.AddVolumeSample(d.recentVolume)
		d.recentVolume = 0
		d.lastVolumeSampleMs = ts
	}

	ids := d.ordersByPrice[priceTicks]
	if len(ids) == 0 {
		return
	}

	matched := make([]*domain.TrackedOrder, 0, len(ids))
	for _, id := range ids {
		if order, ok := d.activeOrders[id]; ok && order.IsBid != isBidAggressor {
			matched = append(matched, order)
		}
	}
	if len(matched) == 0 {
		return
	}

	executionPerOrder := actualSize / float64(len(matched))
	for _, order := range matched {
		fill := executionPerOrder
		if fill > order.CurrentSize {
			fill = order.CurrentSize
		}
		if fill <= 0 {
			continue
		}
		d.policy.ApplyTradeFill(order, fill, ts)
		d.evaluate(order, s, ts)
	}
}

// CleanupIdle evicts every order whose last update is older than the
// configured time window, purging it from the active table, the price index
// and the confirmed set. Evicted orders emit nothing, even when confirmed.
func (d *Detector) CleanupIdle(nowMs int64) int {
	windowMs := d.settings.Load().TimeWindowMs()
	evicted := 0
	for id, order := range d.activeOrders {
		if nowMs-order.LastUpdate > windowMs {
			delete(d.activeOrders, id)
			delete(d.confirmedIDs, id)
			d.removeFromAllBuckets(order, id)
			evicted++
		}
	}
	return evicted
}

// evaluate runs the policy's confirmation check; a first-time pass flips the
// one-way Confirmed flag and emits the completion record immediately.
func (d *Detector) evaluate(order *domain.TrackedOrder, s *Settings, ts int64) {
	if order.Confirmed {
		return
	}
	if !d.policy.Evaluate(order, s) {
		return
	}
	order.Confirmed = true
	order.ConfirmedAt = ts
	d.confirmedIDs[order.ID] = struct{}{}
	d.emit(order, ts)
}

func (d *Detector) emit(order *domain.TrackedOrder, ts int64) {
	rec := domain.NewDetection(order, d.policy.Name(), d.symbol, d.tickSize, ts)
	select {
	case d.out <- rec:
		d.emittedCount++
	default: // DROP: never block the event path
		d.droppedRecords++
	}
}

// removeFromBucket pulls one id out of a single price bucket.
func (d *Detector) removeFromBucket(priceTicks int, id string) {
	bucket := d.ordersByPrice[priceTicks]
	for i, oid := range bucket {
		if oid == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(d.ordersByPrice, priceTicks)
	} else {
		d.ordersByPrice[priceTicks] = bucket
	}
}

// removeFromAllBuckets purges the id from every price the order ever visited.
func (d *Detector) removeFromAllBuckets(order *domain.TrackedOrder, id string) {
	for _, priceTicks := range order.PriceHistory {
		d.removeFromBucket(priceTicks, id)
	}
}

// distanceFromBest is the distance of a price from the relevant best quote,
// in pips. Without a cached best quote the distance is zero.
func (d *Detector) distanceFromBest(priceTicks int, isBid bool) float64 {
	if d.pips <= 0 {
		return 0
	}
	if isBid && d.hasBestBid {
		return math.Abs(float64(priceTicks-d.bestBidTick)) / d.pips
	}
	if !isBid && d.hasBestAsk {
		return math.Abs(float64(priceTicks-d.bestAskTick)) / d.pips
	}
	return 0
}

// Stats is a point-in-time view of one detector's state.
type Stats struct {
	Symbol         string `json:"symbol"`
	Policy         string `json:"policy"`
	ActiveOrders   int    `json:"active_orders"`
	ConfirmedLive  int    `json:"confirmed_live"`
	Emitted        uint64 `json:"emitted"`
	DroppedRecords uint64 `json:"dropped_records"`
}

// StatsSnapshot returns current counters. Callers outside the owning
// goroutine must go through the sequencer's snapshot accessor.
func (d *Detector) StatsSnapshot() Stats {
	return Stats{
		Symbol:         d.symbol,
		Policy:         d.policy.Name(),
		ActiveOrders:   len(d.activeOrders),
		ConfirmedLive:  len(d.confirmedIDs),
		Emitted:        d.emittedCount,
		DroppedRecords: d.droppedRecords,
	}
}
