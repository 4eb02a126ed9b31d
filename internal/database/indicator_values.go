package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// ReplaceIndicatorValues swaps out a symbol's indicator rows atomically:
// the ingestion side always delivers a full fresh payload, so existing rows
// are deleted and the batch inserted in one transaction.
func (db *DB) ReplaceIndicatorValues(symbolID int, values []models.IndicatorValue) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM indicator_values WHERE symbol_id = $1`, symbolID); err != nil {
		return fmt.Errorf("failed to delete indicator values: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO indicator_values (symbol_id, relative_index, indicator_index, value)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range values {
		var value sql.NullFloat64
		if v.Value != nil {
			value = sql.NullFloat64{Float64: *v.Value, Valid: true}
		}
		if _, err := stmt.Exec(symbolID, v.RelativeIndex, v.IndicatorIndex, value); err != nil {
			return fmt.Errorf("failed to insert indicator value at index %d: %w", v.RelativeIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetIndicatorValues retrieves a symbol's readings for the given indicator
// indexes at relative indexes greater than minRelative, ordered oldest first.
func (db *DB) GetIndicatorValues(symbolID int, indexes []int, minRelative int) ([]models.IndicatorValue, error) {
	query := `
		SELECT symbol_id, relative_index, indicator_index, value
		FROM indicator_values
		WHERE symbol_id = $1 AND indicator_index = ANY($2) AND relative_index > $3
		ORDER BY relative_index ASC, indicator_index ASC
	`
	return db.queryIndicatorValues(query, symbolID, pq.Array(indexes), minRelative)
}

// GetRecentIndicatorValues retrieves the readings for the newest limit
// relative indexes, for the live trigger's trailing window.
func (db *DB) GetRecentIndicatorValues(symbolID int, indexes []int, limit int) ([]models.IndicatorValue, error) {
	query := `
		SELECT symbol_id, relative_index, indicator_index, value
		FROM indicator_values
		WHERE symbol_id = $1 AND indicator_index = ANY($2)
		  AND relative_index > (
			SELECT COALESCE(MAX(relative_index), 0) - $3 FROM indicator_values WHERE symbol_id = $1
		  )
		ORDER BY relative_index DESC, indicator_index ASC
	`
	return db.queryIndicatorValues(query, symbolID, pq.Array(indexes), limit)
}

func (db *DB) queryIndicatorValues(query string, args ...interface{}) ([]models.IndicatorValue, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicator values: %w", err)
	}
	defer rows.Close()

	var values []models.IndicatorValue
	for rows.Next() {
		var v models.IndicatorValue
		var value sql.NullFloat64
		if err := rows.Scan(&v.SymbolID, &v.RelativeIndex, &v.IndicatorIndex, &value); err != nil {
			return nil, fmt.Errorf("failed to scan indicator value: %w", err)
		}
		if value.Valid {
			f := value.Float64
			v.Value = &f
		}
		values = append(values, v)
	}

	return values, nil
}
