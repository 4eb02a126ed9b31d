package models

import "time"

// ClosedPosition is an immutable record emitted when a tranche set is
// liquidated. When Open is true the record is an end-of-data snapshot of a
// position that never closed, valued at the last available price; such
// records count toward unrealized profit only.
type ClosedPosition struct {
	ID            int       `json:"id,omitempty"`
	Symbol        string    `json:"symbol"`
	OpenIndex     int       `json:"open_index"`
	CloseIndex    int       `json:"close_index"`
	Duration      int       `json:"duration"`
	Profit        float64   `json:"profit"`
	PercentProfit float64   `json:"percent_profit"`
	Purchases     int       `json:"purchases"`
	PeakValue     float64   `json:"peak_value"`
	FinalInvested float64   `json:"final_invested"`
	SellReason    string    `json:"sell_reason"`
	Open          bool      `json:"open"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}
