package models

import "time"

// Signal event types published to Kafka.
const (
	EventBuySignal      = "BUY_SIGNAL"
	EventSellSignal     = "SELL_SIGNAL"
	EventPositionClosed = "POSITION_CLOSED"
)

// SignalEvent is a decision published for the external executor.
type SignalEvent struct {
	EventType string          `json:"event_type"`
	Symbol    string          `json:"symbol"`
	SymbolID  int             `json:"symbol_id"`
	Amount    float64         `json:"amount,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Position  *ClosedPosition `json:"position,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// BarEvent is an incoming market-data event carrying the latest bar for a
// symbol. Numeric fields arrive as strings from the feed bridge.
type BarEvent struct {
	EventType string  `json:"event_type"`
	Source    string  `json:"source"`
	Data      BarData `json:"data"`
}

// BarData is the payload of a BarEvent.
type BarData struct {
	SymbolID  int     `json:"symbol_id"`
	Symbol    string  `json:"symbol"`
	Open      string  `json:"open"`
	High      string  `json:"high"`
	Low       string  `json:"low"`
	Close     string  `json:"close"`
	Volume    int64   `json:"volume"`
	Timestamp *string `json:"timestamp,omitempty"`
}
