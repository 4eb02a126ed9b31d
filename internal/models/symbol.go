package models

import "time"

// Symbol represents an entry in the tracked-symbol watchlist.
type Symbol struct {
	ID                int       `json:"id"`
	Symbol            string    `json:"symbol"`
	Enabled           bool      `json:"enabled"`
	RequestStateCheck bool      `json:"request_state_check"`
	UpdatedShortTerm  time.Time `json:"updated_short_term"`
	UpdatedLongTerm   time.Time `json:"updated_long_term"`
	CreatedAt         time.Time `json:"created_at"`
}
