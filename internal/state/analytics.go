package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blm-labs/blm/internal/numeric"
	"github.com/blm-labs/blm/internal/tracker"
)

// Summary represents high-level manager statistics for the dashboard.
type Summary struct {
	CurrentTotalValue    float64 `json:"current_total_value"`
	TodayPnL             float64 `json:"today_pnl"`
	TodayPnLPercent      float64 `json:"today_pnl_percent"`
	TotalPnL             float64 `json:"total_pnl"`
	TotalPnLPercent      float64 `json:"total_pnl_percent"`
	APY7d                float64 `json:"apy_7d"`
	APY30d               float64 `json:"apy_30d"`
	PositionCount        int     `json:"position_count"`
	TodayOperations      int     `json:"today_operations"`
	FeeAPY7d             float64 `json:"fee_apy_7d"`
	TotalUnclaimedFeeUSD float64 `json:"total_unclaimed_fee_usd"`
	TotalClaimedFeeUSD   float64 `json:"total_claimed_fee_usd"`
	TodayClaimedFeeUSD   float64 `json:"today_claimed_fee_usd"`
	TotalTicks           int     `json:"total_ticks"`
	LastUpdated          string  `json:"last_updated"`
}

// GetSummary builds the dashboard summary from the latest snapshot, the
// daily aggregates and the fee ledgers.
func GetSummary() (*Summary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &Summary{}

	snap, err := GetLatestSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	if snap != nil {
		summary.CurrentTotalValue = snap.TotalValue
		summary.PositionCount = len(snap.Positions)
		summary.LastUpdated = snap.Timestamp.UTC().Format(time.RFC3339)
		for _, pv := range snap.Positions {
			summary.TotalUnclaimedFeeUSD += pv.FeeValue
		}
	}

	today := time.Now().UTC().Format("2006-01-02")
	todayAgg, err := GetDailyAggregate(today)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's aggregate: %w", err)
	}
	if todayAgg != nil {
		summary.TodayPnL = todayAgg.PnL
		summary.TodayPnLPercent = todayAgg.PnLPercent
		summary.TodayOperations = todayAgg.OperationCount
	}

	// Total PnL is measured from the earliest recorded open to the latest
	// close across the whole aggregate history. Both subqueries are NULL on
	// an empty table.
	var firstOpen, lastClose sql.NullFloat64
	err = DB.QueryRow(`
		SELECT
			(SELECT open_value FROM daily_pnl ORDER BY pnl_date ASC LIMIT 1),
			(SELECT close_value FROM daily_pnl ORDER BY pnl_date DESC LIMIT 1)
	`).Scan(&firstOpen, &lastClose)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to compute total pnl bounds: %w", err)
	}
	if firstOpen.Valid && firstOpen.Float64 > 0 {
		summary.TotalPnL = lastClose.Float64 - firstOpen.Float64
		summary.TotalPnLPercent = summary.TotalPnL / firstOpen.Float64 * 100
	}

	rows7, err := GetRecentDailyAggregates(7)
	if err != nil {
		return nil, fmt.Errorf("failed to load 7d aggregates: %w", err)
	}
	summary.APY7d = tracker.ComputeAPY(rows7)

	rows30, err := GetRecentDailyAggregates(30)
	if err != nil {
		return nil, fmt.Errorf("failed to load 30d aggregates: %w", err)
	}
	summary.APY30d = tracker.ComputeAPY(rows30)

	totalClaimed, err := GetClaimedFeeTotalSince(time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to sum claimed fees: %w", err)
	}
	summary.TotalClaimedFeeUSD = totalClaimed

	dayStart, _ := time.Parse("2006-01-02", today)
	todayClaimed, err := GetClaimedFeeTotalSince(dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to sum today's claimed fees: %w", err)
	}
	summary.TodayClaimedFeeUSD = todayClaimed

	claimed7d, err := GetClaimedFeeTotalSince(time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("failed to sum 7d claimed fees: %w", err)
	}
	summary.FeeAPY7d = tracker.AnnualizedFeeAPY(7, claimed7d, summary.TotalUnclaimedFeeUSD, summary.CurrentTotalValue)

	if ticks, err := GetCurrentTickNumber(); err == nil {
		summary.TotalTicks = ticks
	}

	log.Debug().
		Float64("totalValue", summary.CurrentTotalValue).
		Int("positions", summary.PositionCount).
		Msg("Built summary")
	return summary, nil
}

// GetAccumulatedFeeBalances returns the per-position accumulated fee
// balances as decimal strings keyed by position.
func GetAccumulatedFeeBalances() (map[string]map[string]string, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT position_key, fee_base::text, fee_quote::text FROM accumulated_fees ORDER BY position_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accumulated fees: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]map[string]string)
	for rows.Next() {
		var key, base, quote string
		if err := rows.Scan(&key, &base, &quote); err != nil {
			log.Error().Err(err).Msg("Failed to scan accumulated fee row")
			continue
		}
		balances[key] = map[string]string{
			"fee_base":  numeric.NormalizeAmount(base).String(),
			"fee_quote": numeric.NormalizeAmount(quote).String(),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during accumulated fee iteration: %w", err)
	}
	return balances, nil
}
