package database

import (
	"database/sql"
	"fmt"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// GetState retrieves the persisted decision state for a symbol. A symbol
// with no row gets the default closed state, mirroring how the decision
// layer treats never-traded symbols.
func (db *DB) GetState(symbolID int) (models.SymbolState, error) {
	query := `
		SELECT symbol_id, status, buy, should_sell, sell, checked, last_action,
		       invested, shares, max_value, amount_buy_sell
		FROM symbol_states
		WHERE symbol_id = $1
	`
	var s models.SymbolState
	var checked, lastAction sql.NullTime
	err := db.conn.QueryRow(query, symbolID).Scan(
		&s.SymbolID, &s.Status, &s.Buy, &s.ShouldSell, &s.Sell, &checked, &lastAction,
		&s.Invested, &s.Shares, &s.MaxValue, &s.AmountBuySell,
	)

	if err == sql.ErrNoRows {
		return models.NewClosedState(symbolID), nil
	}
	if err != nil {
		return models.SymbolState{}, fmt.Errorf("failed to get state: %w", err)
	}

	if checked.Valid {
		s.Checked = checked.Time
	}
	if lastAction.Valid {
		s.LastAction = lastAction.Time
	}
	return s, nil
}

// UpsertState persists a symbol's decision state.
func (db *DB) UpsertState(s models.SymbolState) error {
	query := `
		INSERT INTO symbol_states (symbol_id, status, buy, should_sell, sell, checked, last_action,
			invested, shares, max_value, amount_buy_sell)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol_id) DO UPDATE SET
			status = EXCLUDED.status,
			buy = EXCLUDED.buy,
			should_sell = EXCLUDED.should_sell,
			sell = EXCLUDED.sell,
			checked = EXCLUDED.checked,
			last_action = EXCLUDED.last_action,
			invested = EXCLUDED.invested,
			shares = EXCLUDED.shares,
			max_value = EXCLUDED.max_value,
			amount_buy_sell = EXCLUDED.amount_buy_sell
	`
	var checked, lastAction sql.NullTime
	if !s.Checked.IsZero() {
		checked = sql.NullTime{Time: s.Checked, Valid: true}
	}
	if !s.LastAction.IsZero() {
		lastAction = sql.NullTime{Time: s.LastAction, Valid: true}
	}

	_, err := db.conn.Exec(query,
		s.SymbolID, s.Status, s.Buy, s.ShouldSell, s.Sell, checked, lastAction,
		s.Invested, s.Shares, s.MaxValue, s.AmountBuySell,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}
	return nil
}
