package source

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blm-labs/blm/internal/types"
)

func seedTestPosition(src *SimSource) {
	src.SeedPosition(types.Position{
		Key:           "pos-1",
		LowerBucketID: 0,
		UpperBucketID: 3,
		Buckets: []types.PriceBucket{
			{ID: 0, Price: 140, BaseAmount: sdkmath.NewInt(100), QuoteAmount: sdkmath.NewInt(400)},
			{ID: 1, Price: 141, BaseAmount: sdkmath.NewInt(200), QuoteAmount: sdkmath.NewInt(300)},
			{ID: 2, Price: 142, BaseAmount: sdkmath.NewInt(300), QuoteAmount: sdkmath.NewInt(200)},
			{ID: 3, Price: 143, BaseAmount: sdkmath.NewInt(400), QuoteAmount: sdkmath.NewInt(100)},
		},
	})
}

func TestSimSource_GetPositionsReturnsCopies(t *testing.T) {
	src := NewSimSource(9, 6, 150)
	seedTestPosition(src)

	positions, err := src.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	// Mutating the returned copy must not leak back into the source.
	positions[0].Buckets[0].BaseAmount = sdkmath.NewInt(999_999)

	again, err := src.GetPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), again[0].Buckets[0].BaseAmount)
}

func TestSimSource_RemoveThenAddConservesAmount(t *testing.T) {
	src := NewSimSource(9, 6, 150)
	seedTestPosition(src)
	ctx := context.Background()

	_, err := src.RemoveAllLiquidity(ctx, "pos-1", 0, 3)
	require.NoError(t, err)

	_, err = src.AddLiquiditySingleSided(ctx, "pos-1", types.TokenQuote, sdkmath.NewInt(1000), 0, 3)
	require.NoError(t, err)

	positions, err := src.GetPositions(ctx)
	require.NoError(t, err)
	pos := positions[0]

	assert.Equal(t, sdkmath.NewInt(1000), pos.QuoteTotal())
	assert.True(t, pos.BaseTotal().IsZero())
}

func TestSimSource_SingleSidedShapeByToken(t *testing.T) {
	src := NewSimSource(9, 6, 150)
	seedTestPosition(src)
	ctx := context.Background()

	_, err := src.RemoveAllLiquidity(ctx, "pos-1", 0, 3)
	require.NoError(t, err)

	_, err = src.AddLiquiditySingleSided(ctx, "pos-1", types.TokenBase, sdkmath.NewInt(1000), 0, 3)
	require.NoError(t, err)

	positions, err := src.GetPositions(ctx)
	require.NoError(t, err)
	buckets := positions[0].Buckets

	// Base liquidity weights toward the lower-priced buckets.
	assert.Greater(t, buckets[0].BaseAmount.Int64(), buckets[3].BaseAmount.Int64())
}

func TestSimSource_UnknownPosition(t *testing.T) {
	src := NewSimSource(9, 6, 150)
	ctx := context.Background()

	_, err := src.RemoveAllLiquidity(ctx, "nope", 0, 1)
	assert.Error(t, err)

	_, err = src.AddLiquiditySingleSided(ctx, "nope", types.TokenQuote, sdkmath.NewInt(1), 0, 1)
	assert.Error(t, err)

	_, err = src.ClaimFees(ctx, "nope")
	assert.Error(t, err)
}

func TestSimSource_FailNextAddFailsExactlyOnce(t *testing.T) {
	src := NewSimSource(9, 6, 150)
	seedTestPosition(src)
	ctx := context.Background()

	src.FailNextAdd = true
	_, err := src.AddLiquiditySingleSided(ctx, "pos-1", types.TokenQuote, sdkmath.NewInt(1000), 0, 3)
	require.Error(t, err)

	_, err = src.AddLiquiditySingleSided(ctx, "pos-1", types.TokenQuote, sdkmath.NewInt(1000), 0, 3)
	assert.NoError(t, err)
}
