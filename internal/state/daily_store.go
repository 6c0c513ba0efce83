/*

This file maintains the daily_pnl table: exactly one row per calendar day,
created lazily on the first persisted snapshot of the day and mutated in
place until the day ends.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/blm-labs/blm/internal/types"
)

// GetDailyAggregate returns the row for one calendar date (YYYY-MM-DD), or
// nil when no row exists yet.
func GetDailyAggregate(date string) (*types.DailyAggregate, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT to_char(pnl_date, 'YYYY-MM-DD'), open_value, close_value, high_value, low_value, pnl, pnl_percent, operation_count
		FROM daily_pnl
		WHERE pnl_date = $1;
	`

	var agg types.DailyAggregate
	err := DB.QueryRow(query, date).Scan(
		&agg.Date, &agg.OpenValue, &agg.CloseValue, &agg.HighValue, &agg.LowValue,
		&agg.PnL, &agg.PnLPercent, &agg.OperationCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily aggregate for %s: %w", date, err)
	}
	return &agg, nil
}

// GetLatestDailyCloseBefore returns the close value of the most recent day
// strictly before the given date. The bool reports whether any prior day
// exists.
func GetLatestDailyCloseBefore(date string) (float64, bool, error) {
	if DB == nil {
		return 0, false, fmt.Errorf("database not initialized")
	}

	var closeValue float64
	err := DB.QueryRow(
		`SELECT close_value FROM daily_pnl WHERE pnl_date < $1 ORDER BY pnl_date DESC LIMIT 1`,
		date,
	).Scan(&closeValue)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get previous daily close before %s: %w", date, err)
	}
	return closeValue, true, nil
}

// UpsertDailyAggregate inserts or replaces the row for the aggregate's date.
// operation_count is owned by UpdateDailyOperationCount and left untouched
// on conflict.
func UpsertDailyAggregate(agg types.DailyAggregate) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO daily_pnl (pnl_date, open_value, close_value, high_value, low_value, pnl, pnl_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pnl_date) DO UPDATE SET
			open_value = EXCLUDED.open_value,
			close_value = EXCLUDED.close_value,
			high_value = EXCLUDED.high_value,
			low_value = EXCLUDED.low_value,
			pnl = EXCLUDED.pnl,
			pnl_percent = EXCLUDED.pnl_percent;
	`

	_, err := DB.Exec(query, agg.Date, agg.OpenValue, agg.CloseValue, agg.HighValue, agg.LowValue, agg.PnL, agg.PnLPercent)
	if err != nil {
		return fmt.Errorf("failed to upsert daily aggregate for %s: %w", agg.Date, err)
	}
	return nil
}

// GetRecentDailyAggregates returns the most recent `days` rows ordered
// oldest to newest.
func GetRecentDailyAggregates(days int) ([]types.DailyAggregate, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if days <= 0 || days > 365 {
		days = 30
	}

	query := `
		SELECT to_char(pnl_date, 'YYYY-MM-DD'), open_value, close_value, high_value, low_value, pnl, pnl_percent, operation_count
		FROM (
			SELECT * FROM daily_pnl ORDER BY pnl_date DESC LIMIT $1
		) recent
		ORDER BY pnl_date ASC;
	`

	rows, err := DB.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []types.DailyAggregate
	for rows.Next() {
		var agg types.DailyAggregate
		if err := rows.Scan(
			&agg.Date, &agg.OpenValue, &agg.CloseValue, &agg.HighValue, &agg.LowValue,
			&agg.PnL, &agg.PnLPercent, &agg.OperationCount,
		); err != nil {
			log.Error().Err(err).Msg("Failed to scan daily aggregate row")
			continue
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during daily aggregate iteration: %w", err)
	}
	return aggs, nil
}

// UpdateDailyOperationCount recomputes the day's operation count from the
// operations table. Called whenever an operation is recorded and again when
// the day's aggregate row is first created, so operations landing before the
// day's first persisted snapshot are picked up.
func UpdateDailyOperationCount(date string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		UPDATE daily_pnl
		SET operation_count = (
			SELECT COUNT(*) FROM operations
			WHERE operation_timestamp >= $1::date
			  AND operation_timestamp < $1::date + INTERVAL '1 day'
		)
		WHERE pnl_date = $1;
	`

	if _, err := DB.Exec(query, date); err != nil {
		return fmt.Errorf("failed to update operation count for %s: %w", date, err)
	}
	return nil
}
