/*

This file contains a deterministic in-memory position source. It backs the
sim run mode and the engine tests: mutations move amounts between buckets and
a per-position withdrawn reserve instead of touching a chain, and every
mutation returns a fresh transaction reference.

*/

package source

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/types"
)

// SimSource is an in-memory PositionSource. It is mutated only by the
// evaluation loop, matching the single-threaded scheduling of the engine.
type SimSource struct {
	logger        zerolog.Logger
	baseDecimals  int
	quoteDecimals int
	price         float64
	positions     map[string]*simPosition
	order         []string

	// FailNextAdd makes the next AddLiquiditySingleSided call fail, for
	// exercising the interrupted two-phase path.
	FailNextAdd bool
}

type simPosition struct {
	pos            types.Position
	withdrawnBase  sdkmath.Int
	withdrawnQuote sdkmath.Int
}

// NewSimSource creates an empty simulated source.
func NewSimSource(baseDecimals, quoteDecimals int, price float64) *SimSource {
	return &SimSource{
		logger:        logger.GetForComponent("sim_source"),
		baseDecimals:  baseDecimals,
		quoteDecimals: quoteDecimals,
		price:         price,
		positions:     make(map[string]*simPosition),
	}
}

// SeedPosition registers a position with the given bucket state.
func (s *SimSource) SeedPosition(pos types.Position) {
	if _, exists := s.positions[pos.Key]; !exists {
		s.order = append(s.order, pos.Key)
	}
	s.positions[pos.Key] = &simPosition{
		pos:            pos,
		withdrawnBase:  sdkmath.ZeroInt(),
		withdrawnQuote: sdkmath.ZeroInt(),
	}
}

// SetPrice moves the simulated active price.
func (s *SimSource) SetPrice(price float64) {
	s.price = price
}

// SetUnclaimedFees overrides a position's unclaimed fee amounts.
func (s *SimSource) SetUnclaimedFees(positionKey string, base, quote sdkmath.Int) {
	if sp, ok := s.positions[positionKey]; ok {
		sp.pos.UnclaimedFeeBase = base
		sp.pos.UnclaimedFeeQuote = quote
	}
}

// GetPositions returns deep copies of the seeded positions in seed order.
func (s *SimSource) GetPositions(ctx context.Context) ([]types.Position, error) {
	out := make([]types.Position, 0, len(s.order))
	for _, key := range s.order {
		sp := s.positions[key]
		pos := sp.pos
		pos.Buckets = make([]types.PriceBucket, len(sp.pos.Buckets))
		copy(pos.Buckets, sp.pos.Buckets)
		out = append(out, pos)
	}
	return out, nil
}

// GetActivePrice returns the simulated price.
func (s *SimSource) GetActivePrice(ctx context.Context) (float64, error) {
	return s.price, nil
}

// RemoveAllLiquidity moves every bucket amount into the position's withdrawn
// reserve and zeroes the buckets.
func (s *SimSource) RemoveAllLiquidity(ctx context.Context, positionKey string, lowerBucketID, upperBucketID int32) ([]string, error) {
	sp, ok := s.positions[positionKey]
	if !ok {
		return nil, fmt.Errorf("unknown position %s", positionKey)
	}

	for i := range sp.pos.Buckets {
		b := &sp.pos.Buckets[i]
		if !b.BaseAmount.IsNil() {
			sp.withdrawnBase = sp.withdrawnBase.Add(b.BaseAmount)
		}
		if !b.QuoteAmount.IsNil() {
			sp.withdrawnQuote = sp.withdrawnQuote.Add(b.QuoteAmount)
		}
		b.BaseAmount = sdkmath.ZeroInt()
		b.QuoteAmount = sdkmath.ZeroInt()
	}

	tx := uuid.New().String()
	s.logger.Debug().Str("position", positionKey).Str("tx", tx).Msg("Removed all liquidity")
	return []string{tx}, nil
}

// AddLiquiditySingleSided distributes the amount across the position's
// buckets on one token side with a linearly edge-weighted (bid-ask shaped)
// profile: quote liquidity weights toward higher-priced buckets, base toward
// lower-priced ones. The withdrawn reserve for that token is consumed.
func (s *SimSource) AddLiquiditySingleSided(ctx context.Context, positionKey string, token types.TokenSide, amount sdkmath.Int, lowerBucketID, upperBucketID int32) ([]string, error) {
	if s.FailNextAdd {
		s.FailNextAdd = false
		return nil, fmt.Errorf("simulated add failure for position %s", positionKey)
	}

	sp, ok := s.positions[positionKey]
	if !ok {
		return nil, fmt.Errorf("unknown position %s", positionKey)
	}
	n := len(sp.pos.Buckets)
	if n == 0 {
		return nil, fmt.Errorf("position %s has no buckets", positionKey)
	}

	// Triangular weights 1..n, ascending for quote, descending for base.
	totalWeight := int64(n) * int64(n+1) / 2
	remaining := amount
	for i := range sp.pos.Buckets {
		weight := int64(i + 1)
		if token == types.TokenBase {
			weight = int64(n - i)
		}

		share := amount.MulRaw(weight).QuoRaw(totalWeight)
		if i == n-1 {
			share = remaining // remainder lands in the last bucket
		}
		remaining = remaining.Sub(share)

		b := &sp.pos.Buckets[i]
		if token == types.TokenBase {
			b.BaseAmount = b.BaseAmount.Add(share)
		} else {
			b.QuoteAmount = b.QuoteAmount.Add(share)
		}
	}

	if token == types.TokenBase {
		sp.withdrawnBase = sdkmath.ZeroInt()
	} else {
		sp.withdrawnQuote = sdkmath.ZeroInt()
	}

	tx := uuid.New().String()
	s.logger.Debug().
		Str("position", positionKey).
		Str("token", string(token)).
		Str("amount", amount.String()).
		Str("tx", tx).
		Msg("Added single-sided liquidity")
	return []string{tx}, nil
}

// ClaimFees zeroes the position's unclaimed fees.
func (s *SimSource) ClaimFees(ctx context.Context, positionKey string) ([]string, error) {
	sp, ok := s.positions[positionKey]
	if !ok {
		return nil, fmt.Errorf("unknown position %s", positionKey)
	}

	sp.pos.UnclaimedFeeBase = sdkmath.ZeroInt()
	sp.pos.UnclaimedFeeQuote = sdkmath.ZeroInt()

	tx := uuid.New().String()
	s.logger.Debug().Str("position", positionKey).Str("tx", tx).Msg("Claimed fees")
	return []string{tx}, nil
}

// BaseDecimals returns the base token precision.
func (s *SimSource) BaseDecimals() int { return s.baseDecimals }

// QuoteDecimals returns the quote token precision.
func (s *SimSource) QuoteDecimals() int { return s.quoteDecimals }

// Close is a no-op for the simulated source.
func (s *SimSource) Close() error { return nil }
