package detect

import "iceberg_go/internal/domain"

// Thresholds are the adaptive admission/trigger sizes derived from the
// rolling market statistics. Absolute size filters are meaningless across
// instruments and regimes, so every new order recomputes these from the live
// order-size distribution.
type Thresholds struct {
	TriggerSize float64
	MaxVisible  float64
	MinVisible  float64
}

// computeThresholds derives the dynamic thresholds from current metrics.
func computeThresholds(m *MarketMetrics, s *Settings) Thresholds {
	avgOrderSize := m.AvgOrderSize()
	percentileSize := m.PercentileOrderSize(75)

	trigger := avgOrderSize * (s.TriggerSizePct / 100.0)
	if half := percentileSize * 0.5; half > trigger {
		trigger = half
	}

	return Thresholds{
		TriggerSize: clamp(trigger, 20, 500),
		MaxVisible:  clamp(avgOrderSize*(s.MaxVisiblePct/100.0), 50, 1000),
		MinVisible:  clamp(avgOrderSize*(s.MinVisiblePct/100.0), 10, 100),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}

// Policy is the confirmation strategy a Detector is instantiated with.
// The order-table/price-index machinery is shared; only admission, fill
// attribution and confirmation differ between policies.
type Policy interface {
	Name() string
	// Admit decides whether a new order of this normalized size is tracked.
	Admit(size float64, th Thresholds) bool
	// ShrinkIsFill reports whether a replace-driven size decrease counts
	// as an implicit execution.
	ShrinkIsFill() bool
	// ApplyTradeFill credits a trade-matched fill against the order.
	ApplyTradeFill(o *domain.TrackedOrder, size float64, ts int64)
	// Evaluate runs the live confirmation check after a mutating event.
	Evaluate(o *domain.TrackedOrder, s *Settings) bool
	// EvaluateAtCancel runs a last-chance check when an unconfirmed order
	// is cancelled.
	EvaluateAtCancel(o *domain.TrackedOrder, s *Settings) bool
	// EmitOnCancel reports whether cancelling an already confirmed order
	// emits a final completion record.
	EmitOnCancel() bool
}

// ScoringPolicy is the multi-pattern confirmation policy: admission is
// filtered by the adaptive minimum visible size, replace-driven shrinks count
// as fills, and confirmation runs a gated five-pattern check in fixed
// priority order.
type ScoringPolicy struct{}

func (ScoringPolicy) Name() string { return "scoring" }

func (ScoringPolicy) Admit(size float64, th Thresholds) bool {
	return size >= th.MinVisible
}

func (ScoringPolicy) ShrinkIsFill() bool { return true }

func (ScoringPolicy) ApplyTradeFill(o *domain.TrackedOrder, size float64, ts int64) {
	o.ApplyExecution(size, ts)
}

func (ScoringPolicy) Evaluate(o *domain.TrackedOrder, s *Settings) bool {
	execRatio := o.ExecutionRatio()

	// gate: enough execution activity to be worth analyzing
	if execRatio < s.AlertExecutionRatio && o.TotalFilled < s.AlertTotalFilled {
		return false
	}

	// pattern 1: refill pattern
	if o.RefillCount >= s.MinRefillCount && o.IcebergScore() >= s.MinScore {
		return true
	}

	// pattern 2: high execution ratio with stable visible size
	if execRatio >= s.AlertExecutionRatio && o.CurrentSize >= o.MinSizeSeen*0.8 {
		return true
	}

	// pattern 3: volume threshold breach
	if o.TotalFilled >= s.AlertTotalFilled && o.SizeDecreaseCount >= s.MinSizeDecreaseForVolume {
		return true
	}

	// pattern 4: consistent partial executions
	if o.TotalFilled >= s.AlertTotalFilled && o.SizeDecreaseCount >= s.MinSizeDecreaseForPartial {
		return true
	}

	// pattern 5: hidden liquidity with repricing
	if execRatio >= s.AlertExecutionRatio && o.CurrentSize >= o.InitialSize*s.HiddenLiquiditySizeRatio {
		return true
	}

	return false
}

func (ScoringPolicy) EvaluateAtCancel(o *domain.TrackedOrder, s *Settings) bool {
	return false
}

func (ScoringPolicy) EmitOnCancel() bool { return true }

// ThresholdPolicy is the single-threshold policy: every order is tracked,
// replace shrinks never feed TotalFilled (all fills come from trade matching,
// tagged passive), and confirmation is one ratio-or-volume threshold. The
// same check runs once more at cancel for orders that never crossed it live.
type ThresholdPolicy struct{}

func (ThresholdPolicy) Name() string { return "threshold" }

func (ThresholdPolicy) Admit(size float64, th Thresholds) bool { return true }

func (ThresholdPolicy) ShrinkIsFill() bool { return false }

func (ThresholdPolicy) ApplyTradeFill(o *domain.TrackedOrder, size float64, ts int64) {
	// Price/side matching cannot identify the aggressor's own resting
	// order, so only the passive side is ever credited.
	o.ApplySidedExecution(size, ts, false)
}

func (ThresholdPolicy) Evaluate(o *domain.TrackedOrder, s *Settings) bool {
	return o.ExecutionRatio() >= s.ThresholdExecRatio || o.TotalFilled >= s.ThresholdTotalFilled
}

func (p ThresholdPolicy) EvaluateAtCancel(o *domain.TrackedOrder, s *Settings) bool {
	return p.Evaluate(o, s)
}

// EmitOnCancel is false: the record already went out at confirmation time,
// re-emitting at cancel would duplicate it.
func (ThresholdPolicy) EmitOnCancel() bool { return false }
