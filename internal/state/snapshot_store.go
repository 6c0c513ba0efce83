package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blm-labs/blm/internal/types"
)

// SaveSnapshot persists a snapshot with its position valuations as JSONB.
func SaveSnapshot(snap types.Snapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	positionsJSON, err := json.Marshal(snap.Positions)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot positions: %w", err)
	}

	query := `
		INSERT INTO snapshots (snapshot_timestamp, total_value, current_price, positions)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var snapshotID int64
	err = DB.QueryRow(query, snap.Timestamp, snap.TotalValue, snap.CurrentPrice, positionsJSON).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Float64("total_value", snap.TotalValue).
		Msg("Snapshot saved to database")
	return snapshotID, nil
}

// GetLatestSnapshotTime returns the timestamp of the most recent durable
// snapshot. The bool reports whether any snapshot exists.
func GetLatestSnapshotTime() (time.Time, bool, error) {
	if DB == nil {
		return time.Time{}, false, fmt.Errorf("database not initialized")
	}

	var ts time.Time
	err := DB.QueryRow(`SELECT snapshot_timestamp FROM snapshots ORDER BY snapshot_timestamp DESC LIMIT 1`).Scan(&ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get latest snapshot time: %w", err)
	}
	return ts, true, nil
}

// GetLatestSnapshot returns the most recent durable snapshot, or nil when
// none exists.
func GetLatestSnapshot() (*types.Snapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT id, snapshot_timestamp, total_value, current_price, positions
		FROM snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;
	`

	var snap types.Snapshot
	var positionsJSON []byte
	err := DB.QueryRow(query).Scan(&snap.ID, &snap.Timestamp, &snap.TotalValue, &snap.CurrentPrice, &positionsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if len(positionsJSON) > 0 {
		if err := json.Unmarshal(positionsJSON, &snap.Positions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot positions: %w", err)
		}
	}
	return &snap, nil
}

// GetValueHistory returns (timestamp, total value) points over the trailing
// window, oldest first.
func GetValueHistory(hours int) ([]types.ValuePoint, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if hours <= 0 || hours > 24*90 {
		hours = 24
	}

	query := `
		SELECT snapshot_timestamp, total_value
		FROM snapshots
		WHERE snapshot_timestamp >= $1
		ORDER BY snapshot_timestamp ASC;
	`

	rows, err := DB.Query(query, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to query value history: %w", err)
	}
	defer rows.Close()

	var points []types.ValuePoint
	for rows.Next() {
		var p types.ValuePoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			log.Error().Err(err).Msg("Failed to scan value history row")
			continue
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during value history iteration: %w", err)
	}
	return points, nil
}
