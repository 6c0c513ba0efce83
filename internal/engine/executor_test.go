package engine

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/blm-labs/blm/internal/source"
	"github.com/blm-labs/blm/internal/types"
)

func newTestExecutor(src *source.SimSource, maxAttempts int) (*Executor, *[]time.Duration) {
	var sleeps []time.Duration
	settle := SettlePolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   2 * time.Second,
		Sleep:       func(d time.Duration) { sleeps = append(sleeps, d) },
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	return NewExecutor(src, limiter, settle), &sleeps
}

func seededSource() *source.SimSource {
	src := source.NewSimSource(9, 6, 150)
	src.SeedPosition(types.Position{
		Key:           "pos-1",
		LowerBucketID: 0,
		UpperBucketID: 2,
		Buckets: []types.PriceBucket{
			{ID: 0, Price: 140, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(200)},
			{ID: 1, Price: 141, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(300)},
			{ID: 2, Price: 142, BaseAmount: sdkmath.ZeroInt(), QuoteAmount: sdkmath.NewInt(500)},
		},
	})
	return src
}

func positionByKey(t *testing.T, src *source.SimSource, key string) types.Position {
	t.Helper()
	positions, err := src.GetPositions(context.Background())
	require.NoError(t, err)
	for _, pos := range positions {
		if pos.Key == key {
			return pos
		}
	}
	t.Fatalf("position %s not found", key)
	return types.Position{}
}

func TestExecutor_RemoveAllZeroesBuckets(t *testing.T) {
	src := seededSource()
	exec, _ := newTestExecutor(src, 3)

	pos := positionByKey(t, src, "pos-1")
	txs, err := exec.RemoveAll(context.Background(), pos)

	require.NoError(t, err)
	assert.Len(t, txs, 1)

	after := positionByKey(t, src, "pos-1")
	assert.True(t, after.BaseTotal().IsZero())
	assert.True(t, after.QuoteTotal().IsZero())
}

func TestExecutor_RedeploySucceedsAfterSettleWait(t *testing.T) {
	src := seededSource()
	exec, sleeps := newTestExecutor(src, 3)

	pos := positionByKey(t, src, "pos-1")
	_, err := exec.RemoveAll(context.Background(), pos)
	require.NoError(t, err)

	txs, err := exec.Redeploy(context.Background(), pos, types.TokenQuote, sdkmath.NewInt(1000))
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	// Settlement wait before the first attempt, no retry sleeps.
	assert.Len(t, *sleeps, 1)

	after := positionByKey(t, src, "pos-1")
	assert.Equal(t, sdkmath.NewInt(1000), after.QuoteTotal())
	assert.True(t, after.BaseTotal().IsZero())

	// Bid-ask shape: the highest bucket carries the largest share.
	amounts := make([]int64, len(after.Buckets))
	for i, b := range after.Buckets {
		amounts[i] = b.QuoteAmount.Int64()
	}
	assert.Less(t, amounts[0], amounts[2])
}

func TestExecutor_RedeployRetriesThenSucceeds(t *testing.T) {
	src := seededSource()
	exec, sleeps := newTestExecutor(src, 3)

	pos := positionByKey(t, src, "pos-1")
	_, err := exec.RemoveAll(context.Background(), pos)
	require.NoError(t, err)

	src.FailNextAdd = true
	txs, err := exec.Redeploy(context.Background(), pos, types.TokenQuote, sdkmath.NewInt(1000))

	require.NoError(t, err)
	assert.Len(t, txs, 1)
	// Settlement wait plus one backoff sleep between the failed and the
	// successful attempt.
	assert.Len(t, *sleeps, 2)
}

func TestExecutor_RedeployExhaustionLeavesPositionWithdrawn(t *testing.T) {
	src := seededSource()
	exec, _ := newTestExecutor(src, 1)

	pos := positionByKey(t, src, "pos-1")
	_, err := exec.RemoveAll(context.Background(), pos)
	require.NoError(t, err)

	src.FailNextAdd = true
	_, err = exec.Redeploy(context.Background(), pos, types.TokenQuote, sdkmath.NewInt(1000))
	require.Error(t, err)

	// The position stays fully withdrawn; the next tick's observation sees
	// the all-one-side state and decides afresh.
	after := positionByKey(t, src, "pos-1")
	assert.True(t, after.BaseTotal().IsZero())
	assert.True(t, after.QuoteTotal().IsZero())
}

func TestExecutor_ClaimFeesZeroesUnclaimed(t *testing.T) {
	src := seededSource()
	src.SetUnclaimedFees("pos-1", sdkmath.NewInt(5_000), sdkmath.NewInt(2_000))
	exec, _ := newTestExecutor(src, 3)

	txs, err := exec.ClaimFees(context.Background(), "pos-1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	after := positionByKey(t, src, "pos-1")
	assert.True(t, after.UnclaimedFeeBase.IsZero())
	assert.True(t, after.UnclaimedFeeQuote.IsZero())
}
