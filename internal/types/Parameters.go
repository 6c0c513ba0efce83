package types

import sdkmath "cosmossdk.io/math"

// StrategyParameters holds every tunable threshold of the rebalancing
// strategy. A parameter set is persisted in the database with an active flag
// so threshold tuning survives restarts; defaults live in the config package.
type StrategyParameters struct {
	// MonotonicTolerance is the margin a half-mean must exceed the other by
	// before a distribution counts as monotonic (0.10 = 10%).
	MonotonicTolerance float64 `json:"monotonic_tolerance"`

	// AskRegimeThreshold is the side-ratio at or above which a position is
	// classified as fully base-heavy.
	AskRegimeThreshold float64 `json:"ask_regime_threshold"`

	// BidRegimeThreshold is the side-ratio at or below which a position is
	// classified as fully quote-heavy.
	BidRegimeThreshold float64 `json:"bid_regime_threshold"`

	// PriceDeviationPct gates rebalances until price has moved this fraction
	// beyond the position's bucket range. Zero disables the gate.
	PriceDeviationPct float64 `json:"price_deviation_pct"`

	// SnapshotIntervalMinutes throttles durable snapshot writes.
	SnapshotIntervalMinutes float64 `json:"snapshot_interval_minutes"`

	// GlobalClaimThreshold is the aggregate unclaimed fee value (reference
	// currency) required before any claim pass runs.
	GlobalClaimThreshold float64 `json:"global_claim_threshold"`

	// PerPositionClaimMinimum skips individual positions whose unclaimed fee
	// value is below this, even when the aggregate trigger fired.
	PerPositionClaimMinimum float64 `json:"per_position_claim_minimum"`

	// ReinvestFees folds claimed fees into the next rebalance redeploy.
	ReinvestFees bool `json:"reinvest_fees"`
}

// RebalanceDecision is the outcome of evaluating one position. A zero Action
// means no rebalance is warranted this tick.
type RebalanceDecision struct {
	Action OperationAction `json:"action,omitempty"`
	Amount sdkmath.Int     `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

// None reports whether the decision is a no-op.
func (d RebalanceDecision) None() bool {
	return d.Action == ""
}
