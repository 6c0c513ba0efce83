package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/blm-labs/blm/internal/numeric"
	"github.com/blm-labs/blm/internal/types"
)

// SaveOperation appends an operation row and returns its id. Rebalances
// insert with status "withdrawn" after phase 1 and promote to "completed"
// via CompleteOperation once the redeploy lands.
func SaveOperation(op types.Operation) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO operations (operation_timestamp, position_key, action, status, before_value, after_value, amount_processed, tx_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id;
	`

	var opID int64
	err := DB.QueryRow(
		query,
		op.Timestamp, op.PositionKey, string(op.Action), string(op.Status),
		op.BeforeValue, op.AfterValue, op.AmountProcessed.String(), op.TxRef,
	).Scan(&opID)
	if err != nil {
		return 0, fmt.Errorf("failed to save operation: %w", err)
	}

	log.Info().
		Int64("operation_id", opID).
		Str("position", op.PositionKey).
		Str("action", string(op.Action)).
		Str("status", string(op.Status)).
		Msg("Operation recorded")
	return opID, nil
}

// CompleteOperation promotes an operation to "completed" with its
// after-valuation and the redeploy transaction reference.
func CompleteOperation(opID int64, afterValue float64, txRef string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		UPDATE operations
		SET status = $2, after_value = $3, tx_ref = $4
		WHERE id = $1;
	`

	result, err := DB.Exec(query, opID, string(types.OperationCompleted), afterValue, txRef)
	if err != nil {
		return fmt.Errorf("failed to complete operation %d: %w", opID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no operation row with id %d", opID)
	}
	return nil
}

// GetRecentOperations returns the most recent operations, newest first.
func GetRecentOperations(limit int) ([]types.Operation, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, operation_timestamp, position_key, action, status, before_value, after_value, amount_processed::text, COALESCE(tx_ref, '')
		FROM operations
		ORDER BY operation_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent operations: %w", err)
	}
	defer rows.Close()

	var ops []types.Operation
	for rows.Next() {
		var op types.Operation
		var action, status, amount string
		if err := rows.Scan(&op.ID, &op.Timestamp, &op.PositionKey, &action, &status, &op.BeforeValue, &op.AfterValue, &amount, &op.TxRef); err != nil {
			log.Error().Err(err).Msg("Failed to scan operation row")
			continue
		}
		op.Action = types.OperationAction(action)
		op.Status = types.OperationStatus(status)
		op.AmountProcessed = numeric.NormalizeAmount(amount)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during operation iteration: %w", err)
	}
	return ops, nil
}
