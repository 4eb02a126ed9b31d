package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IndicatorValue is one raw indicator reading as persisted by the ingestion
// side. Value is nil when the source payload carried no parsable number.
type IndicatorValue struct {
	SymbolID       int      `json:"id_symbol"`
	RelativeIndex  int      `json:"relative_index"`
	IndicatorIndex int      `json:"indicator_index"`
	Value          *float64 `json:"value"`
}

// PriceBar is one historical OHLCV bar keyed by relative index.
type PriceBar struct {
	SymbolID      int             `json:"id_symbol"`
	RelativeIndex int             `json:"relative_index"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	Volume        int64           `json:"volume"`
}

// RealTimeBar is the latest intraday bar for a symbol, one row per symbol.
type RealTimeBar struct {
	SymbolID  int             `json:"id_symbol"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
	Updated   time.Time       `json:"updated"`
}
