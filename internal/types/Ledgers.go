/*

This file contains the append-only ledger types: completed rebalance
operations, claimed fee records, the mutable accumulated-fee balances and the
regime transition history.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// OperationAction is the side a rebalance redeployed into.
type OperationAction string

const (
	ActionBid OperationAction = "bid" // redeployed as buy-side quote liquidity
	ActionAsk OperationAction = "ask" // redeployed as sell-side base liquidity
)

// OperationStatus tracks the two-phase rebalance saga. A row is inserted as
// "withdrawn" after liquidity removal and promoted to "completed" once the
// single-sided re-add lands. A row stuck at "withdrawn" marks a rebalance
// interrupted between phases.
type OperationStatus string

const (
	OperationWithdrawn OperationStatus = "withdrawn"
	OperationCompleted OperationStatus = "completed"
)

// Operation is the audit record of a rebalance.
type Operation struct {
	ID              int64           `json:"id,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	PositionKey     string          `json:"position_key"`
	Action          OperationAction `json:"action"`
	Status          OperationStatus `json:"status"`
	BeforeValue     float64         `json:"before_value"`
	AfterValue      float64         `json:"after_value"`
	AmountProcessed sdkmath.Int     `json:"amount_processed"`
	TxRef           string          `json:"tx_ref,omitempty"`
}

// ClaimedFeeRecord is the audit record of a completed fee claim.
type ClaimedFeeRecord struct {
	ID                int64       `json:"id,omitempty"`
	Timestamp         time.Time   `json:"timestamp"`
	PositionKey       string      `json:"position_key"`
	TxRef             string      `json:"tx_ref"`
	ClaimedBase       sdkmath.Int `json:"claimed_base"`
	ClaimedQuote      sdkmath.Int `json:"claimed_quote"`
	ClaimedBaseValue  float64     `json:"claimed_base_value"`
	ClaimedQuoteValue float64     `json:"claimed_quote_value"`
	TotalClaimedValue float64     `json:"total_claimed_value"`
	PriceAtClaim      float64     `json:"price_at_claim"`
}

// AccumulatedFee is the claimed-but-not-yet-reinvested fee balance for one
// position. Cleared (per token) when a rebalance consumes it.
type AccumulatedFee struct {
	PositionKey string      `json:"position_key"`
	FeeBase     sdkmath.Int `json:"fee_base"`
	FeeQuote    sdkmath.Int `json:"fee_quote"`
}

// PriceHistoryRecord marks a regime transition: the moment a position's
// side-ratio crossed fully to one side, with the weighted average price and
// the reference-currency amount sitting on that side.
type PriceHistoryRecord struct {
	ID          int64     `json:"id,omitempty"`
	PositionKey string    `json:"position_key"`
	Timestamp   time.Time `json:"timestamp"`
	PriceType   Regime    `json:"price_type"` // bid or ask, never mixed
	AvgPrice    float64   `json:"avg_price"`
	Amount      float64   `json:"amount"`
}
