package database

import (
	"fmt"
	"time"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// InsertClosedPosition appends a liquidation record to the reporting log.
func (db *DB) InsertClosedPosition(p *models.ClosedPosition) error {
	query := `
		INSERT INTO closed_positions (symbol, open_index, close_index, duration, profit,
			percent_profit, purchases, peak_value, final_invested, sell_reason, open, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		p.Symbol, p.OpenIndex, p.CloseIndex, p.Duration, p.Profit,
		p.PercentProfit, p.Purchases, p.PeakValue, p.FinalInvested, p.SellReason, p.Open, now,
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to insert closed position: %w", err)
	}
	p.CreatedAt = now
	return nil
}

// GetClosedPositions retrieves the log newest first, optionally filtered by
// symbol. Pass an empty symbol for all.
func (db *DB) GetClosedPositions(symbol string, limit int) ([]*models.ClosedPosition, error) {
	query := `
		SELECT id, symbol, open_index, close_index, duration, profit,
		       percent_profit, purchases, peak_value, final_invested, sell_reason, open, created_at
		FROM closed_positions
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.ClosedPosition
	for rows.Next() {
		var p models.ClosedPosition
		err := rows.Scan(
			&p.ID, &p.Symbol, &p.OpenIndex, &p.CloseIndex, &p.Duration, &p.Profit,
			&p.PercentProfit, &p.Purchases, &p.PeakValue, &p.FinalInvested, &p.SellReason, &p.Open, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closed position: %w", err)
		}
		positions = append(positions, &p)
	}

	return positions, nil
}
