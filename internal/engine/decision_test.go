package engine

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blm-labs/blm/internal/types"
)

var testParams = types.StrategyParameters{
	MonotonicTolerance:      0.10,
	AskRegimeThreshold:      0.95,
	BidRegimeThreshold:      0.05,
	PriceDeviationPct:       0,
	SnapshotIntervalMinutes: 10,
	GlobalClaimThreshold:    5,
	PerPositionClaimMinimum: 0.1,
	ReinvestFees:            true,
}

func quotePosition(amounts ...int64) types.Position {
	pos := types.Position{Key: "quote-pos", LowerBucketID: 0, UpperBucketID: int32(len(amounts) - 1)}
	for i, a := range amounts {
		pos.Buckets = append(pos.Buckets, types.PriceBucket{
			ID:          int32(i),
			Price:       140 + float64(i),
			BaseAmount:  sdkmath.ZeroInt(),
			QuoteAmount: sdkmath.NewInt(a),
		})
	}
	return pos
}

func basePosition(amounts ...int64) types.Position {
	pos := types.Position{Key: "base-pos", LowerBucketID: 0, UpperBucketID: int32(len(amounts) - 1)}
	for i, a := range amounts {
		pos.Buckets = append(pos.Buckets, types.PriceBucket{
			ID:          int32(i),
			Price:       140 + float64(i),
			BaseAmount:  sdkmath.NewInt(a),
			QuoteAmount: sdkmath.ZeroInt(),
		})
	}
	return pos
}

func TestDecide_EmptyBuckets(t *testing.T) {
	decision := Decide(types.Position{Key: "empty"}, 150, testParams)
	assert.True(t, decision.None())
}

func TestDecide_MixedPositionIsNone(t *testing.T) {
	pos := types.Position{
		Key: "mixed",
		Buckets: []types.PriceBucket{
			{ID: 0, Price: 149, BaseAmount: sdkmath.NewInt(500), QuoteAmount: sdkmath.ZeroInt()},
			{ID: 1, Price: 151, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(1000)},
		},
	}

	assert.True(t, Decide(pos, 150, testParams).None())
}

func TestDecide_BothSidesZeroIsNone(t *testing.T) {
	pos := quotePosition(0, 0, 0)
	assert.True(t, Decide(pos, 150, testParams).None())
}

func TestDecide_QuoteSidedAscendingProducesBid(t *testing.T) {
	pos := quotePosition(200, 300, 500)

	decision := Decide(pos, 150, testParams)

	require.False(t, decision.None())
	assert.Equal(t, types.ActionBid, decision.Action)
	assert.Equal(t, sdkmath.NewInt(1000), decision.Amount)
}

func TestDecide_BaseSidedDescendingProducesAsk(t *testing.T) {
	pos := basePosition(300, 150, 50)

	decision := Decide(pos, 130, testParams)

	require.False(t, decision.None())
	assert.Equal(t, types.ActionAsk, decision.Action)
	assert.Equal(t, sdkmath.NewInt(500), decision.Amount)
}

func TestDecide_QuoteSidedFlatDistributionIsNone(t *testing.T) {
	// Single-sided but the shape does not slope: liquidity is not stale.
	pos := quotePosition(500, 500, 500)
	assert.True(t, Decide(pos, 150, testParams).None())
}

func TestDecide_BaseSidedAscendingIsNone(t *testing.T) {
	// Base amounts ascending is the wrong slope for an ask redeploy.
	pos := basePosition(50, 150, 300)
	assert.True(t, Decide(pos, 130, testParams).None())
}

func TestDecide_DeviationGateHoldsBid(t *testing.T) {
	params := testParams
	params.PriceDeviationPct = 0.02

	pos := quotePosition(200, 300, 500) // upper bucket price 142

	// 144 ≤ 142×1.02 = 144.84: still inside the gate.
	assert.True(t, Decide(pos, 144, params).None())

	// 145 clears the gate.
	decision := Decide(pos, 145, params)
	require.False(t, decision.None())
	assert.Equal(t, types.ActionBid, decision.Action)
}

func TestDecide_DeviationGateHoldsAsk(t *testing.T) {
	params := testParams
	params.PriceDeviationPct = 0.02

	pos := basePosition(300, 150, 50) // lower bucket price 140

	// 138 ≥ 140×0.98 = 137.2: still inside the gate.
	assert.True(t, Decide(pos, 138, params).None())

	decision := Decide(pos, 137, params)
	require.False(t, decision.None())
	assert.Equal(t, types.ActionAsk, decision.Action)
}

func TestRedeployToken(t *testing.T) {
	assert.Equal(t, types.TokenQuote, RedeployToken(types.ActionBid))
	assert.Equal(t, types.TokenBase, RedeployToken(types.ActionAsk))
}
