package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/blm-labs/blm/internal/types"
)

// SavePriceHistory appends a regime-transition price record for a position.
func SavePriceHistory(rec types.PriceHistoryRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO position_price_history (position_key, record_timestamp, price_type, avg_price, amount)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := DB.Exec(query, rec.PositionKey, rec.Timestamp, string(rec.PriceType), rec.AvgPrice, rec.Amount)
	if err != nil {
		return fmt.Errorf("failed to save price history record: %w", err)
	}
	return nil
}

// GetPriceHistory returns the most recent regime-transition records for a
// position, newest first. An empty key returns records for all positions.
func GetPriceHistory(positionKey string, limit int) ([]types.PriceHistoryRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, position_key, record_timestamp, price_type, avg_price, amount
		FROM position_price_history
		WHERE ($1 = '' OR position_key = $1)
		ORDER BY record_timestamp DESC
		LIMIT $2;
	`

	rows, err := DB.Query(query, positionKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var recs []types.PriceHistoryRecord
	for rows.Next() {
		var rec types.PriceHistoryRecord
		var priceType string
		if err := rows.Scan(&rec.ID, &rec.PositionKey, &rec.Timestamp, &priceType, &rec.AvgPrice, &rec.Amount); err != nil {
			log.Error().Err(err).Msg("Failed to scan price history row")
			continue
		}
		rec.PriceType = types.Regime(priceType)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during price history iteration: %w", err)
	}
	return recs, nil
}
