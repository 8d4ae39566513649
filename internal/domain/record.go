package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"iceberg_go/pkg/quant"
)

// Detection is the completion record emitted when a detector confirms an
// iceberg. Price is the real price (ticks x tick size); sizes are normalized
// feed units. ActiveFilled/PassiveFilled carry the fill split where the
// policy tracks one; RefillCount/PriceChanges/Score are populated by the
// scoring policy only.
type Detection struct {
	Detector string `json:"detector"`
	Symbol   string `json:"symbol"`

	PriceTicks     int             `json:"price_ticks"`
	Price          decimal.Decimal `json:"price"`
	TotalFilled    float64         `json:"total_filled"`
	ActiveFilled   float64         `json:"active_filled"`
	PassiveFilled  float64         `json:"passive_filled"`
	MaxVisibleSize float64         `json:"max_visible_size"`
	ExecutionRatio float64         `json:"execution_ratio"`
	IsBid          bool            `json:"is_bid"`
	Timestamp      int64           `json:"timestamp"`

	RefillCount  int     `json:"refill_count"`
	PriceChanges int     `json:"price_changes"`
	Score        float64 `json:"score"`
}

// NewDetection builds a completion record from an order's current state.
func NewDetection(o *TrackedOrder, detector, symbol string, tickSize decimal.Decimal, ts int64) Detection {
	return Detection{
		Detector:       detector,
		Symbol:         symbol,
		PriceTicks:     o.CurrentPrice,
		Price:          quant.RealPrice(o.CurrentPrice, tickSize),
		TotalFilled:    o.TotalFilled,
		ActiveFilled:   o.ActiveFilled,
		PassiveFilled:  o.PassiveFilled,
		MaxVisibleSize: o.MaxVisibleSize,
		ExecutionRatio: o.ExecutionRatio(),
		IsBid:          o.IsBid,
		Timestamp:      ts,
		RefillCount:    o.RefillCount,
		PriceChanges:   o.PriceChanges,
		Score:          o.IcebergScore(),
	}
}

// Side returns "BID" or "ASK" for display.
func (d Detection) Side() string {
	if d.IsBid {
		return "BID"
	}
	return "ASK"
}

// IcebergAlert is the persisted form of a Detection.
type IcebergAlert struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Detector       string `gorm:"index" json:"detector"`
	Symbol         string `gorm:"index" json:"symbol"`
	Side           string `json:"side"`
	Price          string `json:"price"`
	TotalFilled    float64 `json:"total_filled"`
	ActiveFilled   float64 `json:"active_filled"`
	PassiveFilled  float64 `json:"passive_filled"`
	MaxVisibleSize float64 `json:"max_visible_size"`
	ExecutionRatio float64 `json:"execution_ratio"`
	RefillCount    int     `json:"refill_count"`
	PriceChanges   int     `json:"price_changes"`
	Score          float64 `json:"score"`
	DetectedAt     time.Time `json:"detected_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToAlert converts a Detection into its persisted form.
func (d Detection) ToAlert() *IcebergAlert {
	return &IcebergAlert{
		Detector:       d.Detector,
		Symbol:         d.Symbol,
		Side:           d.Side(),
		Price:          d.Price.String(),
		TotalFilled:    d.TotalFilled,
		ActiveFilled:   d.ActiveFilled,
		PassiveFilled:  d.PassiveFilled,
		MaxVisibleSize: d.MaxVisibleSize,
		ExecutionRatio: d.ExecutionRatio,
		RefillCount:    d.RefillCount,
		PriceChanges:   d.PriceChanges,
		Score:          d.Score,
		DetectedAt:     time.UnixMilli(d.Timestamp),
	}
}

// SettingOverride is a persisted key-value override for detection settings,
// written by the settings surface and applied on top of the YAML config at
// startup.
type SettingOverride struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
