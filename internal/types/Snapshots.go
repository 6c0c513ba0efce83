/*

This file contains the derived valuation types. A PositionValue is recomputed
every tick and only ever persisted inside a Snapshot; a Snapshot is immutable
once created.

*/

package types

import "time"

// Regime classifies a position's token composition.
type Regime string

const (
	RegimeBid   Regime = "bid"   // fully quote-heavy, priced to buy
	RegimeAsk   Regime = "ask"   // fully base-heavy, priced to sell
	RegimeMixed Regime = "mixed"
)

// PositionValue is the reference-currency valuation of a single position.
type PositionValue struct {
	Key              string  `json:"key"`
	TotalValue       float64 `json:"total_value"`
	BaseValue        float64 `json:"base_value"`
	QuoteValue       float64 `json:"quote_value"`
	PriceRangeMin    float64 `json:"price_range_min"`
	PriceRangeMax    float64 `json:"price_range_max"`
	BucketCount      int     `json:"bucket_count"`
	FeeValue         float64 `json:"fee_value"`
	Regime           Regime  `json:"regime"`
	SideRatio        float64 `json:"side_ratio"` // baseValue/totalValue, in [0,1]
	WeightedAvgPrice float64 `json:"weighted_avg_price"`
	LastBidPrice     float64 `json:"last_bid_price"` // highest bucket price still holding quote
	LastAskPrice     float64 `json:"last_ask_price"` // lowest bucket price still holding base
}

// Snapshot captures the total portfolio value at a point in time. The latest
// snapshot is always held in memory; a durable copy is written only when the
// snapshot interval allows it.
type Snapshot struct {
	ID           int64           `json:"id,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	TotalValue   float64         `json:"total_value"`
	CurrentPrice float64         `json:"current_price"`
	Positions    []PositionValue `json:"positions"`
}

// ValuePoint is a (timestamp, value) pair from the snapshot history.
type ValuePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DailyAggregate is the per-calendar-day rollup of snapshot values. Exactly
// one row exists per day; openValue of day N+1 equals closeValue of day N.
type DailyAggregate struct {
	Date           string  `json:"date"` // YYYY-MM-DD
	OpenValue      float64 `json:"open_value"`
	CloseValue     float64 `json:"close_value"`
	HighValue      float64 `json:"high_value"`
	LowValue       float64 `json:"low_value"`
	PnL            float64 `json:"pnl"`
	PnLPercent     float64 `json:"pnl_percent"`
	OperationCount int     `json:"operation_count"`
}
