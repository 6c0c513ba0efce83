/*

This file classifies the shape of a position's per-bucket token distribution.
A position that has been fully converted by a one-directional price move
leaves a sloped distribution behind; the slope direction tells the decision
engine whether the liquidity is stale.

*/

package analyzer

import (
	sdkmath "cosmossdk.io/math"

	"github.com/blm-labs/blm/internal/types"
)

// Direction is the slope being tested for.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// IsMonotonic reports whether the chosen token's amounts trend in the given
// direction across the price-ordered buckets. The test compares the mean of
// the lower-price half against the mean of the upper-price half; the winning
// half must exceed the other by the tolerance margin (0.10 = 10%).
// Fewer than two buckets always yields false.
func IsMonotonic(buckets []types.PriceBucket, token types.TokenSide, direction Direction, tolerance float64) bool {
	if len(buckets) < 2 {
		return false
	}

	mid := len(buckets) / 2
	firstMean := meanAmount(buckets[:mid], token)
	secondMean := meanAmount(buckets[mid:], token)

	switch direction {
	case Ascending:
		return secondMean > firstMean*(1+tolerance)
	case Descending:
		return firstMean > secondMean*(1+tolerance)
	default:
		return false
	}
}

// meanAmount averages the raw amounts of one token side over a bucket slice.
// Raw units are fine here: both halves share the same token, so decimal
// scaling cancels out of the comparison.
func meanAmount(buckets []types.PriceBucket, token types.TokenSide) float64 {
	if len(buckets) == 0 {
		return 0
	}

	sum := 0.0
	for _, b := range buckets {
		sum += amountFloat(bucketAmount(b, token))
	}
	return sum / float64(len(buckets))
}

func bucketAmount(b types.PriceBucket, token types.TokenSide) sdkmath.Int {
	if token == types.TokenBase {
		return b.BaseAmount
	}
	return b.QuoteAmount
}

func amountFloat(amount sdkmath.Int) float64 {
	if amount.IsNil() {
		return 0
	}
	f, err := sdkmath.LegacyNewDecFromInt(amount).Float64()
	if err != nil {
		return 0
	}
	return f
}
