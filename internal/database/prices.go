package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// ReplacePriceBars swaps out a symbol's historical bars atomically.
func (db *DB) ReplacePriceBars(symbolID int, bars []models.PriceBar) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM price_bars WHERE symbol_id = $1`, symbolID); err != nil {
		return fmt.Errorf("failed to delete price bars: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO price_bars (symbol_id, relative_index, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(symbolID, b.RelativeIndex, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to insert price bar at index %d: %w", b.RelativeIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceBars retrieves a symbol's historical bars, oldest first.
func (db *DB) GetPriceBars(symbolID int) ([]models.PriceBar, error) {
	query := `
		SELECT symbol_id, relative_index, open, high, low, close, volume
		FROM price_bars
		WHERE symbol_id = $1
		ORDER BY relative_index ASC
	`
	rows, err := db.conn.Query(query, symbolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.SymbolID, &b.RelativeIndex, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, b)
	}

	return bars, nil
}

// UpsertRealTimeBar stores the latest intraday bar for a symbol, one row per
// symbol.
func (db *DB) UpsertRealTimeBar(bar *models.RealTimeBar) error {
	query := `
		INSERT INTO real_time_bars (symbol_id, open, high, low, close, volume, bar_time, updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol_id) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			bar_time = EXCLUDED.bar_time,
			updated = EXCLUDED.updated
	`
	if bar.Updated.IsZero() {
		bar.Updated = time.Now()
	}
	_, err := db.conn.Exec(query,
		bar.SymbolID, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.Timestamp, bar.Updated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert real-time bar: %w", err)
	}
	return nil
}

// GetRealTimeBar retrieves the latest intraday bar for a symbol.
func (db *DB) GetRealTimeBar(symbolID int) (*models.RealTimeBar, error) {
	query := `
		SELECT symbol_id, open, high, low, close, volume, bar_time, updated
		FROM real_time_bars
		WHERE symbol_id = $1
	`
	var b models.RealTimeBar
	err := db.conn.QueryRow(query, symbolID).Scan(
		&b.SymbolID, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Timestamp, &b.Updated,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no real-time bar for symbol %d", symbolID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get real-time bar: %w", err)
	}
	return &b, nil
}
