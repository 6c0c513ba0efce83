/*

This file is the fee-accrual bookkeeping: claim gating (aggregate trigger
with a per-position dust floor), the append-only claimed-fee ledger, the
mutable accumulated-fee balances available for reinvestment, and the
fee-specific APY.

*/

package tracker

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/types"
)

// FeePersistence is the durable-store surface of the fee ledger.
type FeePersistence interface {
	InsertClaimedFee(rec types.ClaimedFeeRecord) error
	AddAccumulatedFee(positionKey string, base, quote sdkmath.Int) error
	// SumAccumulated totals the accumulated balance of one token side across
	// all positions.
	SumAccumulated(token types.TokenSide) (sdkmath.Int, error)
	// ClearAccumulated zeroes one token side across all positions and prunes
	// rows left fully at zero.
	ClearAccumulated(token types.TokenSide) error
	// ClaimedFeeTotalSince sums total_claimed_value over records at or after
	// the given time.
	ClaimedFeeTotalSince(since time.Time) (float64, error)
}

// FeeAccrualLedger gates fee claims and tracks claimed/accumulated fees.
type FeeAccrualLedger struct {
	logger zerolog.Logger
	db     FeePersistence
	params types.StrategyParameters
	now    func() time.Time
}

// NewFeeAccrualLedger creates the ledger.
func NewFeeAccrualLedger(db FeePersistence, params types.StrategyParameters) *FeeAccrualLedger {
	return &FeeAccrualLedger{
		logger: logger.GetForComponent("fee_ledger"),
		db:     db,
		params: params,
		now:    time.Now,
	}
}

// ShouldClaim reports whether the aggregate unclaimed fee value across all
// positions clears the global claim threshold.
func (l *FeeAccrualLedger) ShouldClaim(aggregateUnclaimed float64) bool {
	return aggregateUnclaimed > l.params.GlobalClaimThreshold
}

// ShouldClaimPosition reports whether one position's unclaimed fee value is
// worth the transaction cost of claiming. Applied inside a claim pass that
// the aggregate trigger already opened.
func (l *FeeAccrualLedger) ShouldClaimPosition(positionUnclaimed float64) bool {
	return positionUnclaimed >= l.params.PerPositionClaimMinimum
}

// RecordClaim appends a claimed-fee record and, when reinvestment is
// enabled, adds the claimed amounts to the position's accumulated balance.
func (l *FeeAccrualLedger) RecordClaim(rec types.ClaimedFeeRecord) error {
	if err := l.db.InsertClaimedFee(rec); err != nil {
		return err
	}

	l.logger.Info().
		Str("position", rec.PositionKey).
		Str("txRef", rec.TxRef).
		Float64("totalClaimedValue", rec.TotalClaimedValue).
		Msg("Recorded fee claim")

	if !l.params.ReinvestFees {
		return nil
	}

	if err := l.db.AddAccumulatedFee(rec.PositionKey, rec.ClaimedBase, rec.ClaimedQuote); err != nil {
		return err
	}
	return nil
}

// AccumulatedBalance returns the accumulated total of one token side across
// all positions without draining it. A rebalance sizes its redeploy from this
// and consumes the balance only after the redeploy lands.
func (l *FeeAccrualLedger) AccumulatedBalance(token types.TokenSide) (sdkmath.Int, error) {
	return l.db.SumAccumulated(token)
}

// ConsumeAccumulated drains the accumulated balance of one token side across
// all positions and returns the drained total. The other token side's
// balances are left untouched. Called only after a rebalance has successfully
// redeployed the folded-in amount; a failed redeploy leaves the balance for
// the next attempt.
func (l *FeeAccrualLedger) ConsumeAccumulated(token types.TokenSide) (sdkmath.Int, error) {
	total, err := l.db.SumAccumulated(token)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if total.IsZero() {
		return total, nil
	}

	if err := l.db.ClearAccumulated(token); err != nil {
		return sdkmath.ZeroInt(), err
	}

	l.logger.Info().
		Str("token", string(token)).
		Str("amount", total.String()).
		Msg("Consumed accumulated fees for reinvestment")
	return total, nil
}

// AnnualizedFeeAPY annualizes fee earnings over a trailing window: fees
// claimed in the window plus the current unclaimed total, relative to the
// current total value. Clamped to keep near-zero portfolio values from
// producing runaway display numbers.
func AnnualizedFeeAPY(days int, claimed, unclaimed, totalValue float64) float64 {
	if days <= 0 || totalValue <= 0 {
		return 0
	}

	apy := (claimed + unclaimed) / totalValue * (365 / float64(days)) * 100
	if apy > 9999 {
		apy = 9999
	}
	return apy
}

// FeeAPY computes AnnualizedFeeAPY over the ledger's claimed-fee records.
func (l *FeeAccrualLedger) FeeAPY(days int, currentUnclaimed, currentTotalValue float64) float64 {
	if days <= 0 || currentTotalValue <= 0 {
		return 0
	}

	since := l.now().Add(-time.Duration(days) * 24 * time.Hour)
	claimed, err := l.db.ClaimedFeeTotalSince(since)
	if err != nil {
		l.logger.Error().Err(err).Int("days", days).Msg("Failed to sum claimed fees for fee APY")
		return 0
	}

	return AnnualizedFeeAPY(days, claimed, currentUnclaimed, currentTotalValue)
}
