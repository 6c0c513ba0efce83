/*

This file converts a position's per-bucket token amounts into a
reference-currency valuation: total/base/quote values, side-ratio, regime
classification and the liquidity-weighted average price.

*/

package analyzer

import (
	"github.com/blm-labs/blm/internal/numeric"
	"github.com/blm-labs/blm/internal/types"
)

// Value sums a bucket list into reference-currency values. Base amounts are
// valued at their own bucket price; quote amounts are already denominated in
// the reference currency.
func Value(buckets []types.PriceBucket, baseDecimals, quoteDecimals int) (total, base, quote float64) {
	for _, b := range buckets {
		base += numeric.MustFloat64(b.BaseAmount, baseDecimals) * b.Price
		quote += numeric.MustFloat64(b.QuoteAmount, quoteDecimals)
	}
	return base + quote, base, quote
}

// WeightedAveragePrice returns the liquidity-weighted average price across
// the buckets. Base liquidity contributes its value at the bucket price;
// quote liquidity is converted into base units at its own bucket price where
// that price is positive. Returns 0 when no liquidity converts.
func WeightedAveragePrice(buckets []types.PriceBucket, baseDecimals, quoteDecimals int) float64 {
	var totalRefValue, totalBaseUnits float64
	for _, b := range buckets {
		baseNorm := numeric.MustFloat64(b.BaseAmount, baseDecimals)
		quoteNorm := numeric.MustFloat64(b.QuoteAmount, quoteDecimals)

		totalRefValue += baseNorm * b.Price
		totalBaseUnits += baseNorm

		if b.Price > 0 {
			totalRefValue += quoteNorm
			totalBaseUnits += quoteNorm / b.Price
		}
	}

	if totalBaseUnits == 0 {
		return 0
	}
	return totalRefValue / totalBaseUnits
}

// ClassifyRegime maps a side-ratio onto the regime thresholds.
func ClassifyRegime(sideRatio float64, params types.StrategyParameters) types.Regime {
	switch {
	case sideRatio >= params.AskRegimeThreshold:
		return types.RegimeAsk
	case sideRatio <= params.BidRegimeThreshold:
		return types.RegimeBid
	default:
		return types.RegimeMixed
	}
}

// BuildPositionValue computes the full derived valuation for one position at
// the current price. It is recomputed every tick and never persisted on its
// own, only inside a snapshot.
func BuildPositionValue(pos types.Position, currentPrice float64, baseDecimals, quoteDecimals int, params types.StrategyParameters) types.PositionValue {
	total, base, quote := Value(pos.Buckets, baseDecimals, quoteDecimals)

	sideRatio := 0.0
	if total > 0 {
		sideRatio = base / total
	}

	feeValue := numeric.MustFloat64(pos.UnclaimedFeeBase, baseDecimals)*currentPrice +
		numeric.MustFloat64(pos.UnclaimedFeeQuote, quoteDecimals)

	pv := types.PositionValue{
		Key:              pos.Key,
		TotalValue:       total,
		BaseValue:        base,
		QuoteValue:       quote,
		BucketCount:      len(pos.Buckets),
		FeeValue:         feeValue,
		Regime:           ClassifyRegime(sideRatio, params),
		SideRatio:        sideRatio,
		WeightedAvgPrice: WeightedAveragePrice(pos.Buckets, baseDecimals, quoteDecimals),
	}

	if len(pos.Buckets) > 0 {
		pv.PriceRangeMin = pos.Buckets[0].Price
		pv.PriceRangeMax = pos.Buckets[len(pos.Buckets)-1].Price
	}

	// Edge prices of the liquidity actually left on each side: the highest
	// bucket still holding quote (bid side) and the lowest still holding base
	// (ask side).
	for _, b := range pos.Buckets {
		if !b.QuoteAmount.IsNil() && b.QuoteAmount.IsPositive() && b.Price > pv.LastBidPrice {
			pv.LastBidPrice = b.Price
		}
		if !b.BaseAmount.IsNil() && b.BaseAmount.IsPositive() && (pv.LastAskPrice == 0 || b.Price < pv.LastAskPrice) {
			pv.LastAskPrice = b.Price
		}
	}

	return pv
}
