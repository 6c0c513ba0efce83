/*

This file executes the two-phase redeploy against the external position
source: remove all liquidity, wait for settlement, then re-add single-sided.
The settlement wait and re-add retries follow an explicit bounded backoff
policy with an injectable sleep so tests run without real waiting. All source
calls pass through a shared rate limiter because the upstream is
rate-limited.

*/

package engine

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/source"
	"github.com/blm-labs/blm/internal/types"
)

// SettlePolicy bounds the settlement wait and re-add retries between the two
// phases of a redeploy.
type SettlePolicy struct {
	// MaxAttempts caps the number of re-add attempts.
	MaxAttempts int
	// BaseDelay is the initial settlement wait; subsequent waits grow
	// exponentially.
	BaseDelay time.Duration
	// Sleep is the delay primitive, injectable for tests. Defaults to
	// time.Sleep when nil.
	Sleep func(time.Duration)
}

func (p SettlePolicy) sleep(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Executor performs liquidity mutations through the position source.
type Executor struct {
	logger  zerolog.Logger
	source  source.PositionSource
	limiter *rate.Limiter
	settle  SettlePolicy
}

// NewExecutor creates an executor sharing the engine's source rate limiter.
func NewExecutor(src source.PositionSource, limiter *rate.Limiter, settle SettlePolicy) *Executor {
	if settle.MaxAttempts <= 0 {
		settle.MaxAttempts = 5
	}
	if settle.BaseDelay <= 0 {
		settle.BaseDelay = 2 * time.Second
	}
	return &Executor{
		logger:  logger.GetForComponent("executor"),
		source:  src,
		limiter: limiter,
		settle:  settle,
	}
}

// RemoveAll executes phase 1: withdraw 100% of the position's liquidity
// without closing it.
func (e *Executor) RemoveAll(ctx context.Context, pos types.Position) ([]string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	txs, err := e.source.RemoveAllLiquidity(ctx, pos.Key, pos.LowerBucketID, pos.UpperBucketID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove liquidity from %s: %w", pos.Key, err)
	}

	e.logger.Info().
		Str("position", pos.Key).
		Strs("txs", txs).
		Msg("Phase 1 complete: all liquidity removed")
	return txs, nil
}

// Redeploy executes phase 2: after the settlement wait, re-add the amount
// entirely on one token side across the position's bucket range. Each failed
// attempt backs off exponentially up to the policy's attempt cap. If every
// attempt fails the position stays fully withdrawn; the next tick's
// observation detects the all-one-side state and decides afresh.
func (e *Executor) Redeploy(ctx context.Context, pos types.Position, token types.TokenSide, amount sdkmath.Int) ([]string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.settle.BaseDelay

	// Settlement wait before the first attempt.
	e.settle.sleep(bo.NextBackOff())

	var lastErr error
	for attempt := 1; attempt <= e.settle.MaxAttempts; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		txs, err := e.source.AddLiquiditySingleSided(ctx, pos.Key, token, amount, pos.LowerBucketID, pos.UpperBucketID)
		if err == nil {
			e.logger.Info().
				Str("position", pos.Key).
				Str("token", string(token)).
				Str("amount", amount.String()).
				Strs("txs", txs).
				Int("attempt", attempt).
				Msg("Phase 2 complete: single-sided liquidity re-added")
			return txs, nil
		}

		lastErr = err
		e.logger.Warn().
			Err(err).
			Str("position", pos.Key).
			Int("attempt", attempt).
			Int("maxAttempts", e.settle.MaxAttempts).
			Msg("Single-sided re-add failed")

		if attempt < e.settle.MaxAttempts {
			e.settle.sleep(bo.NextBackOff())
		}
	}

	return nil, fmt.Errorf("redeploy of %s failed after %d attempts, position left withdrawn: %w",
		pos.Key, e.settle.MaxAttempts, lastErr)
}

// ClaimFees collects a position's unclaimed fees through the rate limiter.
func (e *Executor) ClaimFees(ctx context.Context, positionKey string) ([]string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.source.ClaimFees(ctx, positionKey)
}
