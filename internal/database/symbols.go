package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// CreateSymbol inserts a symbol into the watchlist, or re-enables an
// existing one.
func (db *DB) CreateSymbol(s *models.Symbol) error {
	query := `
		INSERT INTO symbols (symbol, enabled, request_state_check, updated_short_term, updated_long_term, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			request_state_check = EXCLUDED.request_state_check
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		s.Symbol, s.Enabled, s.RequestStateCheck, s.UpdatedShortTerm, s.UpdatedLongTerm, now,
	).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("failed to create symbol: %w", err)
	}
	s.CreatedAt = now
	return nil
}

// GetSymbol retrieves a symbol by name.
func (db *DB) GetSymbol(symbol string) (*models.Symbol, error) {
	query := `
		SELECT id, symbol, enabled, request_state_check, updated_short_term, updated_long_term, created_at
		FROM symbols
		WHERE symbol = $1
	`
	var s models.Symbol
	err := db.conn.QueryRow(query, symbol).Scan(
		&s.ID, &s.Symbol, &s.Enabled, &s.RequestStateCheck, &s.UpdatedShortTerm, &s.UpdatedLongTerm, &s.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("symbol not found: %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}
	return &s, nil
}

// GetEnabledSymbols retrieves the enabled watchlist entries ordered by name.
func (db *DB) GetEnabledSymbols() ([]*models.Symbol, error) {
	query := `
		SELECT id, symbol, enabled, request_state_check, updated_short_term, updated_long_term, created_at
		FROM symbols
		WHERE enabled = TRUE
		ORDER BY symbol
	`
	return db.querySymbols(query)
}

// GetSymbolsForLiveCheck retrieves symbols flagged for a state check whose
// short-term indicators were refreshed on day and whose last action predates
// it. Symbols with an open persisted position are included even if disabled.
func (db *DB) GetSymbolsForLiveCheck(day time.Time) ([]*models.Symbol, error) {
	query := `
		SELECT s.id, s.symbol, s.enabled, s.request_state_check, s.updated_short_term, s.updated_long_term, s.created_at
		FROM symbols s
		LEFT JOIN symbol_states st ON s.id = st.symbol_id
		WHERE (s.enabled = TRUE OR st.status = 'open')
		  AND s.request_state_check = TRUE
		  AND s.updated_short_term = $1
		  AND (st.last_action IS NULL OR st.last_action < $1)
		ORDER BY s.symbol
	`
	return db.querySymbols(query, day)
}

// DeleteSymbol disables a watchlist entry rather than destroying its history.
func (db *DB) DeleteSymbol(symbol string) error {
	query := `UPDATE symbols SET enabled = FALSE, request_state_check = FALSE WHERE symbol = $1`
	result, err := db.conn.Exec(query, symbol)
	if err != nil {
		return fmt.Errorf("failed to disable symbol: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("symbol not found: %s", symbol)
	}
	return nil
}

// MarkIndicatorsUpdated stamps the short- or long-term refresh date and, for
// short-term refreshes, requests a live state check.
func (db *DB) MarkIndicatorsUpdated(symbolID int, term string, day time.Time) error {
	var query string
	switch term {
	case "short":
		query = `UPDATE symbols SET updated_short_term = $2, request_state_check = TRUE WHERE id = $1`
	case "long":
		query = `UPDATE symbols SET updated_long_term = $2 WHERE id = $1`
	default:
		return fmt.Errorf("invalid term: %s", term)
	}
	if _, err := db.conn.Exec(query, symbolID, day); err != nil {
		return fmt.Errorf("failed to mark indicators updated: %w", err)
	}
	return nil
}

func (db *DB) querySymbols(query string, args ...interface{}) ([]*models.Symbol, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*models.Symbol
	for rows.Next() {
		var s models.Symbol
		err := rows.Scan(
			&s.ID, &s.Symbol, &s.Enabled, &s.RequestStateCheck, &s.UpdatedShortTerm, &s.UpdatedLongTerm, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, &s)
	}

	return symbols, nil
}
