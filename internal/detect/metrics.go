package detect

import "sort"

const (
	// metricsWindowSize bounds the order/trade size windows.
	metricsWindowSize = 100
	// volumeWindowSize bounds the periodic volume sample window.
	volumeWindowSize = 50
	// metricsUpdateIntervalMs is the recompute cadence for the derived
	// averages. Recording stays O(1); recomputation is O(window) and runs
	// at most once per interval, bounding cost under bursty feeds.
	metricsUpdateIntervalMs = 5000
)

// window is a fixed-size ring buffer of float64 samples.
// OPTIMIZED: fixed allocation, oldest sample overwritten when full.
type window struct {
	buf   []float64
	head  int // next write position
	count int
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

func (w *window) push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

func (w *window) len() int { return w.count }

func (w *window) mean() float64 {
	if w.count == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < w.count; i++ {
		sum += w.at(i)
	}
	return sum / float64(w.count)
}

// at returns the i-th sample in insertion order (0 = oldest).
func (w *window) at(i int) float64 {
	idx := (w.head - w.count + i + len(w.buf)) % len(w.buf)
	return w.buf[idx]
}

// tailMean is the mean of the most recent n samples.
func (w *window) tailMean(n int) float64 {
	if w.count == 0 {
		return 0
	}
	if n > w.count {
		n = w.count
	}
	sum := 0.0
	for i := w.count - n; i < w.count; i++ {
		sum += w.at(i)
	}
	return sum / float64(n)
}

// MarketMetrics tracks rolling market statistics used for the adaptive
// detection thresholds. It is owned by a single detector and mutated only on
// that detector's event path.
type MarketMetrics struct {
	orderSizes    *window
	tradeSizes    *window
	volumeHistory *window

	avgOrderSize float64
	avgTradeSize float64
	volumeRate   float64
	lastUpdateMs int64
}

// NewMarketMetrics creates an empty statistics aggregator.
func NewMarketMetrics() *MarketMetrics {
	return &MarketMetrics{
		orderSizes:    newWindow(metricsWindowSize),
		tradeSizes:    newWindow(metricsWindowSize),
		volumeHistory: newWindow(volumeWindowSize),
	}
}

// AddOrder records a normalized new-order size.
func (m *MarketMetrics) AddOrder(size float64, nowMs int64) {
	m.orderSizes.push(size)
	m.maybeUpdate(nowMs)
}

// AddTrade records a normalized trade size.
func (m *MarketMetrics) AddTrade(size float64, nowMs int64) {
	m.tradeSizes.push(size)
	m.maybeUpdate(nowMs)
}

// AddVolumeSample records one periodic volume bucket.
func (m *MarketMetrics) AddVolumeSample(volume float64) {
	m.volumeHistory.push(volume)
}

func (m *MarketMetrics) maybeUpdate(nowMs int64) {
	if nowMs-m.lastUpdateMs >= metricsUpdateIntervalMs {
		m.update()
		m.lastUpdateMs = nowMs
	}
}

// update recomputes the derived averages. Empty windows fall back to
// defaults tuned so early-session thresholds stay reasonable.
func (m *MarketMetrics) update() {
	if m.orderSizes.len() > 0 {
		m.avgOrderSize = m.orderSizes.mean()
	} else {
		m.avgOrderSize = 50
	}

	if m.tradeSizes.len() > 0 {
		m.avgTradeSize = m.tradeSizes.mean()
	} else {
		m.avgTradeSize = 30
	}

	if m.volumeHistory.len() >= 2 {
		m.volumeRate = m.volumeHistory.tailMean(10)
	} else {
		m.volumeRate = 100
	}
}

// AvgOrderSize returns the rolling average order size, floored at 10.
func (m *MarketMetrics) AvgOrderSize() float64 {
	if m.avgOrderSize < 10 {
		return 10
	}
	return m.avgOrderSize
}

// AvgTradeSize returns the rolling average trade size, floored at 5.
func (m *MarketMetrics) AvgTradeSize() float64 {
	if m.avgTradeSize < 5 {
		return 5
	}
	return m.avgTradeSize
}

// VolumeRate returns the mean of the last 10 volume samples, floored at 50.
func (m *MarketMetrics) VolumeRate() float64 {
	if m.volumeRate < 50 {
		return 50
	}
	return m.volumeRate
}

// PercentileOrderSize returns the nearest-rank percentile over the current
// order-size window, floored at 20. An empty window yields 100.
func (m *MarketMetrics) PercentileOrderSize(percentile float64) float64 {
	n := m.orderSizes.len()
	if n == 0 {
		return 100
	}
	sorted := make([]float64, n)
	for i := 0; i < n; i++ {
		sorted[i] = m.orderSizes.at(i)
	}
	sort.Float64s(sorted)

	index := int(percentile / 100.0 * float64(n))
	if index > n-1 {
		index = n - 1
	}
	if sorted[index] < 20 {
		return 20
	}
	return sorted[index]
}
