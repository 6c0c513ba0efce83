/*

This file contains the default strategy parameters for the bucket liquidity
manager. These values are used if no active parameter set is found in the
database during initialization; each numeric value is a tuned threshold, not
a derived constant.

*/

package config

import (
	"github.com/blm-labs/blm/internal/types"
)

// DefaultStrategyParameters provides the baseline thresholds for rebalance
// detection, snapshot throttling and fee claiming.
var DefaultStrategyParameters = types.StrategyParameters{
	MonotonicTolerance: 0.10, // Second-half mean must beat the first by 10%.
	// A single-sided fill leaves a clearly sloped distribution; the margin
	// keeps boundary noise from reading as a slope.

	AskRegimeThreshold: 0.95, // Side-ratio at or above this is fully base-heavy.
	BidRegimeThreshold: 0.05, // Side-ratio at or below this is fully quote-heavy.
	// The 5% band tolerates dust left in a handful of buckets after price
	// walks through the range.

	PriceDeviationPct: 0.0, // Deviation gate disabled by default.
	// When set, a bid redeploy additionally requires price above the upper
	// bucket by this fraction (and symmetrically for ask), which suppresses
	// oscillation while price hovers at a range boundary.

	SnapshotIntervalMinutes: 10.0, // Durable snapshot at most every 10 minutes.
	// Valuation still runs every tick; only the bulk snapshot row is
	// throttled.

	GlobalClaimThreshold: 5.0, // Claim only once aggregate unclaimed fees reach $5.
	PerPositionClaimMinimum: 0.1, // Skip positions with under $0.10 unclaimed.
	// The per-position floor avoids paying transaction costs to collect dust
	// even when the aggregate trigger fired.

	ReinvestFees: true, // Fold claimed fees into the next redeploy (compounding).
}
