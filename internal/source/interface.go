package source

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/blm-labs/blm/internal/types"
)

// PositionSource defines the interface to the external system owning the
// positions: it reports per-bucket state and prices and executes the
// liquidity mutations. All calls are blocking and fallible; mutations return
// opaque transaction references. The upstream is rate-limited, so callers
// serialize access and throttle themselves.
type PositionSource interface {
	// GetPositions returns the current state of all managed positions,
	// including unclaimed fees, with buckets ordered by ascending price.
	GetPositions(ctx context.Context) ([]types.Position, error)

	// GetActivePrice returns the current reference-currency price of the
	// base token.
	GetActivePrice(ctx context.Context) (float64, error)

	// RemoveAllLiquidity withdraws 100% of a position's liquidity without
	// closing the position.
	RemoveAllLiquidity(ctx context.Context, positionKey string, lowerBucketID, upperBucketID int32) ([]string, error)

	// AddLiquiditySingleSided re-adds liquidity entirely on one token side
	// across the bucket range, using a bid-ask shaped distribution.
	AddLiquiditySingleSided(ctx context.Context, positionKey string, token types.TokenSide, amount sdkmath.Int, lowerBucketID, upperBucketID int32) ([]string, error)

	// ClaimFees collects a position's unclaimed fees.
	ClaimFees(ctx context.Context, positionKey string) ([]string, error)

	// BaseDecimals and QuoteDecimals report the token decimal precisions
	// used to normalize raw amounts.
	BaseDecimals() int
	QuoteDecimals() int

	// Close cleans up any resources used by the source.
	Close() error
}
