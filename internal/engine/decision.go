/*

This file decides whether a position needs to be redeployed. A rebalance is
warranted only when the position has migrated entirely to one side of its
range AND the distribution shape shows the migration is stale (the amounts
slope toward the side price moved through), optionally gated on price having
cleared the bucket range by a configured deviation.

*/

package engine

import (
	"github.com/blm-labs/blm/internal/analyzer"
	"github.com/blm-labs/blm/internal/types"
)

// Decide evaluates one position against the current price and returns the
// redeploy action, if any. It is a pure function re-evaluated fresh every
// tick; the only cross-tick state lives in the regime tracker.
func Decide(pos types.Position, currentPrice float64, params types.StrategyParameters) types.RebalanceDecision {
	none := types.RebalanceDecision{}
	if len(pos.Buckets) == 0 {
		return none
	}

	baseTotal := pos.BaseTotal()
	quoteTotal := pos.QuoteTotal()

	// Precondition: exactly one side empty, the other funded.
	switch {
	case baseTotal.IsZero() && quoteTotal.IsPositive():
		// All quote: the sell side already filled. Quote amounts ascending
		// toward higher prices mean the liquidity is stale where price left
		// it and must be redeployed as buy-side liquidity.
		if !analyzer.IsMonotonic(pos.Buckets, types.TokenQuote, analyzer.Ascending, params.MonotonicTolerance) {
			return none
		}
		if params.PriceDeviationPct > 0 {
			upper := pos.Buckets[len(pos.Buckets)-1].Price
			if currentPrice <= upper*(1+params.PriceDeviationPct) {
				return types.RebalanceDecision{Reason: "price within deviation gate of upper bucket"}
			}
		}
		return types.RebalanceDecision{
			Action: types.ActionBid,
			Amount: quoteTotal,
			Reason: "fully quote-sided with ascending distribution",
		}

	case quoteTotal.IsZero() && baseTotal.IsPositive():
		if !analyzer.IsMonotonic(pos.Buckets, types.TokenBase, analyzer.Descending, params.MonotonicTolerance) {
			return none
		}
		if params.PriceDeviationPct > 0 {
			lower := pos.Buckets[0].Price
			if currentPrice >= lower*(1-params.PriceDeviationPct) {
				return types.RebalanceDecision{Reason: "price within deviation gate of lower bucket"}
			}
		}
		return types.RebalanceDecision{
			Action: types.ActionAsk,
			Amount: baseTotal,
			Reason: "fully base-sided with descending distribution",
		}
	}

	return none
}

// RedeployToken maps a rebalance action onto the token side being re-added:
// a bid redeploy places quote liquidity, an ask redeploy places base.
func RedeployToken(action types.OperationAction) types.TokenSide {
	if action == types.ActionBid {
		return types.TokenQuote
	}
	return types.TokenBase
}
