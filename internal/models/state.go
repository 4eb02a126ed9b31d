package models

import "time"

// Symbol state status values.
const (
	StatusOpen   = "open"
	StatusClosed = "close"
)

// SymbolState is the persisted per-symbol decision state shared with the
// external executor. It is the flattened form the live trigger operates on;
// the historical replay keeps richer tranche detail in memory.
type SymbolState struct {
	SymbolID      int       `json:"id_symbol"`
	Status        string    `json:"status"`
	Buy           bool      `json:"buy"`
	ShouldSell    bool      `json:"should_sell"`
	Sell          bool      `json:"sell"`
	Checked       time.Time `json:"checked"`
	LastAction    time.Time `json:"last_action"`
	Invested      float64   `json:"invested"`
	Shares        float64   `json:"shares"`
	MaxValue      float64   `json:"max_value"`
	AmountBuySell float64   `json:"amount_buy_sell"`
}

// NewClosedState returns the default state for a symbol with no persisted row.
func NewClosedState(symbolID int) SymbolState {
	return SymbolState{
		SymbolID: symbolID,
		Status:   StatusClosed,
	}
}

// IsOpen reports whether the persisted position is open.
func (s SymbolState) IsOpen() bool {
	return s.Status == StatusOpen
}
