/*

This file persists the fee ledgers: the append-only claimed_fees table
(unique on transaction reference) and the mutable accumulated_fees balances
available for reinvestment.

*/

package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/blm-labs/blm/internal/numeric"
	"github.com/blm-labs/blm/internal/types"
)

// SaveClaimedFee appends a claimed-fee record.
func SaveClaimedFee(rec types.ClaimedFeeRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO claimed_fees (claim_timestamp, position_key, tx_ref, claimed_base, claimed_quote,
			claimed_base_value, claimed_quote_value, total_claimed_value, price_at_claim)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`

	_, err := DB.Exec(
		query,
		rec.Timestamp, rec.PositionKey, rec.TxRef,
		rec.ClaimedBase.String(), rec.ClaimedQuote.String(),
		rec.ClaimedBaseValue, rec.ClaimedQuoteValue, rec.TotalClaimedValue, rec.PriceAtClaim,
	)
	if err != nil {
		return fmt.Errorf("failed to save claimed fee record: %w", err)
	}
	return nil
}

// AddAccumulatedFee adds claimed amounts to a position's accumulated
// balance, creating the row on first claim.
func AddAccumulatedFee(positionKey string, base, quote sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if base.IsNil() {
		base = sdkmath.ZeroInt()
	}
	if quote.IsNil() {
		quote = sdkmath.ZeroInt()
	}

	query := `
		INSERT INTO accumulated_fees (position_key, fee_base, fee_quote)
		VALUES ($1, $2, $3)
		ON CONFLICT (position_key) DO UPDATE SET
			fee_base = accumulated_fees.fee_base + EXCLUDED.fee_base,
			fee_quote = accumulated_fees.fee_quote + EXCLUDED.fee_quote;
	`

	if _, err := DB.Exec(query, positionKey, base.String(), quote.String()); err != nil {
		return fmt.Errorf("failed to add accumulated fee for %s: %w", positionKey, err)
	}
	return nil
}

// SumAccumulated totals one token side's accumulated balance across all
// positions.
func SumAccumulated(token types.TokenSide) (sdkmath.Int, error) {
	if DB == nil {
		return sdkmath.ZeroInt(), fmt.Errorf("database not initialized")
	}

	column := "fee_base"
	if token == types.TokenQuote {
		column = "fee_quote"
	}

	var total string
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s), 0)::text FROM accumulated_fees`, column)
	if err := DB.QueryRow(query).Scan(&total); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to sum accumulated %s fees: %w", token, err)
	}
	return numeric.NormalizeAmount(total), nil
}

// ClearAccumulated zeroes one token side across all positions and prunes
// rows left fully at zero. The other token side is untouched.
func ClearAccumulated(token types.TokenSide) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	column := "fee_base"
	if token == types.TokenQuote {
		column = "fee_quote"
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(fmt.Sprintf(`UPDATE accumulated_fees SET %s = 0`, column)); err != nil {
		return fmt.Errorf("failed to clear accumulated %s fees: %w", token, err)
	}
	if _, err = tx.Exec(`DELETE FROM accumulated_fees WHERE fee_base = 0 AND fee_quote = 0`); err != nil {
		return fmt.Errorf("failed to prune empty accumulated fee rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().Str("token", string(token)).Msg("Cleared accumulated fees")
	return nil
}

// GetClaimedFeeTotalSince sums claimed fee values recorded at or after the
// given time. A zero time sums the whole ledger.
func GetClaimedFeeTotalSince(since time.Time) (float64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var total float64
	err := DB.QueryRow(
		`SELECT COALESCE(SUM(total_claimed_value), 0) FROM claimed_fees WHERE claim_timestamp >= $1`,
		since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum claimed fees: %w", err)
	}
	return total, nil
}

// GetRecentClaimedFees returns the most recent claimed-fee records, newest
// first.
func GetRecentClaimedFees(limit int) ([]types.ClaimedFeeRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, claim_timestamp, position_key, tx_ref, claimed_base::text, claimed_quote::text,
			claimed_base_value, claimed_quote_value, total_claimed_value, price_at_claim
		FROM claimed_fees
		ORDER BY claim_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claimed fees: %w", err)
	}
	defer rows.Close()

	var recs []types.ClaimedFeeRecord
	for rows.Next() {
		var rec types.ClaimedFeeRecord
		var base, quote string
		if err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.PositionKey, &rec.TxRef, &base, &quote,
			&rec.ClaimedBaseValue, &rec.ClaimedQuoteValue, &rec.TotalClaimedValue, &rec.PriceAtClaim,
		); err != nil {
			log.Error().Err(err).Msg("Failed to scan claimed fee row")
			continue
		}
		rec.ClaimedBase = numeric.NormalizeAmount(base)
		rec.ClaimedQuote = numeric.NormalizeAmount(quote)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during claimed fee iteration: %w", err)
	}
	return recs, nil
}
