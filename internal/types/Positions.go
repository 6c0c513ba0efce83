/*

This file contains the types describing the observed state of a price-bucketed
liquidity position. Positions and their buckets are ephemeral per-tick views
rebuilt from the external position source; nothing here is persisted directly.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// TokenSide identifies one leg of the base/quote pair.
type TokenSide string

const (
	TokenBase  TokenSide = "base"
	TokenQuote TokenSide = "quote"
)

// PriceBucket is a discretized price slot holding a fraction of a position's
// token amounts. Amounts are raw integer units (e.g. lamports).
type PriceBucket struct {
	ID          int32       `json:"bucket_id"`
	Price       float64     `json:"price"`
	BaseAmount  sdkmath.Int `json:"base_amount"`
	QuoteAmount sdkmath.Int `json:"quote_amount"`
}

// Position is a per-tick view of a bucketed liquidity position as reported by
// the external position source. Buckets are ordered by ascending price.
type Position struct {
	Key               string        `json:"key"`
	LowerBucketID     int32         `json:"lower_bucket_id"`
	UpperBucketID     int32         `json:"upper_bucket_id"`
	Buckets           []PriceBucket `json:"buckets"`
	UnclaimedFeeBase  sdkmath.Int   `json:"unclaimed_fee_base"`
	UnclaimedFeeQuote sdkmath.Int   `json:"unclaimed_fee_quote"`
}

// BaseTotal sums the raw base amounts across all buckets. Nil bucket amounts
// count as zero.
func (p Position) BaseTotal() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, b := range p.Buckets {
		if !b.BaseAmount.IsNil() {
			total = total.Add(b.BaseAmount)
		}
	}
	return total
}

// QuoteTotal sums the raw quote amounts across all buckets.
func (p Position) QuoteTotal() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, b := range p.Buckets {
		if !b.QuoteAmount.IsNil() {
			total = total.Add(b.QuoteAmount)
		}
	}
	return total
}
