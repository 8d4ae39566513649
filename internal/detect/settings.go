package detect

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Settings holds every runtime-tunable detection parameter. Values are read
// live by the detectors through an immutable snapshot (see SettingsStore), so
// the settings surface can mutate them mid-session without torn reads.
type Settings struct {
	// Adaptive threshold percentages, relative to the rolling average
	// order size.
	TriggerSizePct float64 `yaml:"trigger_size_pct"`
	MaxVisiblePct  float64 `yaml:"max_visible_pct"`
	MinVisiblePct  float64 `yaml:"min_visible_pct"`

	// Alert gate thresholds.
	AlertExecutionRatio float64 `yaml:"alert_execution_ratio"`
	AlertTotalFilled    float64 `yaml:"alert_total_filled"`

	// Confirmation pattern parameters.
	MinRefillCount            int     `yaml:"min_refill_count"`
	MinScore                  float64 `yaml:"min_score"`
	MinSizeDecreaseForVolume  int     `yaml:"min_size_decrease_for_volume"`
	MinSizeDecreaseForPartial int     `yaml:"min_size_decrease_for_partial"`
	ExecutionThreshold        float64 `yaml:"execution_threshold"`
	HiddenLiquiditySizeRatio  float64 `yaml:"hidden_liquidity_size_ratio"`

	// Idle eviction window.
	TimeWindowSeconds int64 `yaml:"time_window_seconds"`

	// Admission distance filter, in pips from the relevant best quote.
	MaxDistancePips float64 `yaml:"max_distance_pips"`

	// Single-threshold policy parameters.
	ThresholdExecRatio   float64 `yaml:"threshold_exec_ratio"`
	ThresholdTotalFilled float64 `yaml:"threshold_total_filled"`
}

// DefaultSettings returns the stock parameter set.
func DefaultSettings() Settings {
	return Settings{
		TriggerSizePct:            10.0,
		MaxVisiblePct:             300.0,
		MinVisiblePct:             1.0,
		AlertExecutionRatio:       5.0,
		AlertTotalFilled:          10,
		MinRefillCount:            1,
		MinScore:                  0.4,
		MinSizeDecreaseForVolume:  2,
		MinSizeDecreaseForPartial: 3,
		ExecutionThreshold:        0.7,
		HiddenLiquiditySizeRatio:  0.6,
		TimeWindowSeconds:         6000,
		MaxDistancePips:           50.0,
		ThresholdExecRatio:        10.0,
		ThresholdTotalFilled:      10,
	}
}

// TimeWindowMs is the idle eviction window in milliseconds.
func (s Settings) TimeWindowMs() int64 {
	return s.TimeWindowSeconds * 1000
}

// SettingsStore publishes an immutable Settings snapshot. Event handlers load
// the pointer once per event; writers swap in a full copy. The snapshot held
// behind the pointer is never mutated in place.
type SettingsStore struct {
	p atomic.Pointer[Settings]
}

// NewSettingsStore creates a store seeded with the given settings.
func NewSettingsStore(s Settings) *SettingsStore {
	st := &SettingsStore{}
	st.p.Store(&s)
	return st
}

// Load returns the current snapshot. Callers must not mutate it.
func (st *SettingsStore) Load() *Settings {
	return st.p.Load()
}

// Update applies mut to a copy of the current snapshot and swaps it in.
func (st *SettingsStore) Update(mut func(Settings) Settings) {
	next := mut(*st.p.Load())
	st.p.Store(&next)
}

// ApplyOverrides sets individual parameters from persisted key-value
// overrides. Keys use the yaml field names. Unknown keys and unparsable
// values produce an error but do not abort the remaining overrides.
func (st *SettingsStore) ApplyOverrides(overrides map[string]string) error {
	var firstErr error
	for key, value := range overrides {
		if err := st.applyOverride(key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (st *SettingsStore) applyOverride(key, value string) error {
	asFloat := func(set func(*Settings, float64)) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		st.Update(func(s Settings) Settings { set(&s, v); return s })
		return nil
	}
	asInt := func(set func(*Settings, int64)) error {
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		st.Update(func(s Settings) Settings { set(&s, v); return s })
		return nil
	}

	switch key {
	case "trigger_size_pct":
		return asFloat(func(s *Settings, v float64) { s.TriggerSizePct = v })
	case "max_visible_pct":
		return asFloat(func(s *Settings, v float64) { s.MaxVisiblePct = v })
	case "min_visible_pct":
		return asFloat(func(s *Settings, v float64) { s.MinVisiblePct = v })
	case "alert_execution_ratio":
		return asFloat(func(s *Settings, v float64) { s.AlertExecutionRatio = v })
	case "alert_total_filled":
		return asFloat(func(s *Settings, v float64) { s.AlertTotalFilled = v })
	case "min_refill_count":
		return asInt(func(s *Settings, v int64) { s.MinRefillCount = int(v) })
	case "min_score":
		return asFloat(func(s *Settings, v float64) { s.MinScore = v })
	case "min_size_decrease_for_volume":
		return asInt(func(s *Settings, v int64) { s.MinSizeDecreaseForVolume = int(v) })
	case "min_size_decrease_for_partial":
		return asInt(func(s *Settings, v int64) { s.MinSizeDecreaseForPartial = int(v) })
	case "execution_threshold":
		return asFloat(func(s *Settings, v float64) { s.ExecutionThreshold = v })
	case "hidden_liquidity_size_ratio":
		return asFloat(func(s *Settings, v float64) { s.HiddenLiquiditySizeRatio = v })
	case "time_window_seconds":
		return asInt(func(s *Settings, v int64) { s.TimeWindowSeconds = v })
	case "max_distance_pips":
		return asFloat(func(s *Settings, v float64) { s.MaxDistancePips = v })
	case "threshold_exec_ratio":
		return asFloat(func(s *Settings, v float64) { s.ThresholdExecRatio = v })
	case "threshold_total_filled":
		return asFloat(func(s *Settings, v float64) { s.ThresholdTotalFilled = v })
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
}
