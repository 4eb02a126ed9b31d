package engine

import (
	"math"

	"github.com/bkowalczyk/trade-engine/internal/ledger"
	"github.com/bkowalczyk/trade-engine/internal/models"
)

// BuyLevel maps one exact indicator value to a purchase. The buy gate
// (trend > 3 or cross > 0) only admits a step to the schedule; a value with
// no level does not buy even though the gate inequality holds.
type BuyLevel struct {
	Indicator int
	Value     float64
	Amount    float64
	Kind      ledger.Kind
}

// AveragingBuy adds a small fixed buy when a position is open, at a loss,
// and no scheduled buy fired this step.
type AveragingBuy struct {
	Amount float64
}

// ImmediateSell liquidates the selected tranches as soon as the momentum
// indicator lands strictly inside (Low, High), without arming or drawdown
// confirmation. Rule variants that sell tranche subsets use these.
type ImmediateSell struct {
	Low    float64
	High   float64
	Filter ledger.Filter
	Reason string
}

// Rules parameterizes the decision engine. The historical rule-set variants
// differ only in this data, not in engine code.
type Rules struct {
	MomentumIndex int
	TrendIndex    int
	CrossIndex    int
	Indicators    []int // full indicator set the aligner must carry

	// Arming enables the latch-then-drawdown liquidation path. Variants
	// built purely on immediate sells leave it off.
	Arming bool

	// Sell-arm predicates over the rolling momentum window.
	WindowSize   int     // rolling window length
	BelowZeroMin int     // arm when >= this many of a full window are below zero (profit >= 0)
	RecentRun    int     // newest values that must all be below RecentBelow (profit >= 0)
	RecentBelow  float64
	ArmBelow     float64 // arm when momentum < this and profit >= 0
	HardArmBelow float64 // arm when momentum < this, any profit sign

	// Liquidation confirmation: sell when value <= reference * DrawdownRatio
	// after arming.
	DrawdownRatio float64

	// HistoryDepth is the oldest relative index a replay loads, exclusive.
	// Relative indexes are zero or negative (0 = newest), so this must be
	// negative or no history qualifies.
	HistoryDepth int

	Buys           []BuyLevel
	Averaging      *AveragingBuy
	ImmediateSells []ImmediateSell

	// LiveBuyAmount is the flat amount the live trigger requests on a buy
	// signal. The historical variants disagree on per-level live amounts, so
	// the flat amount of the production worker is kept and made configurable.
	LiveBuyAmount float64
}

// DefaultRules is the canonical armed-drawdown configuration.
func DefaultRules() Rules {
	return Rules{
		MomentumIndex: models.IndicatorMomentum,
		TrendIndex:    models.IndicatorTrend,
		CrossIndex:    models.IndicatorCross,
		Indicators:    []int{models.IndicatorMomentum, models.IndicatorCross, models.IndicatorTrend, models.IndicatorBreadth},
		Arming:        true,
		WindowSize:    10,
		BelowZeroMin:  6,
		RecentRun:     3,
		RecentBelow:   -5,
		ArmBelow:      -7,
		HardArmBelow:  -10,
		DrawdownRatio: 0.915,
		HistoryDepth:  -50,
		Buys: []BuyLevel{
			{Indicator: models.IndicatorTrend, Value: 6, Amount: 10, Kind: ledger.KindTrend},
			{Indicator: models.IndicatorTrend, Value: 9, Amount: 50, Kind: ledger.KindTrend},
			{Indicator: models.IndicatorCross, Value: 1, Amount: 10, Kind: ledger.KindCross},
		},
		LiveBuyAmount: 10,
	}
}

// TrancheRules is the multi-tranche variant: flat buy amounts, a $15
// averaging-down buy, and immediate per-kind sells instead of arming.
func TrancheRules() Rules {
	r := DefaultRules()
	r.Arming = false
	r.HistoryDepth = -250
	r.Buys = []BuyLevel{
		{Indicator: models.IndicatorTrend, Value: 6, Amount: 10, Kind: ledger.KindTrend},
		{Indicator: models.IndicatorTrend, Value: 9, Amount: 10, Kind: ledger.KindTrend},
		{Indicator: models.IndicatorCross, Value: 1, Amount: 10, Kind: ledger.KindCross},
	}
	r.Averaging = &AveragingBuy{Amount: 15}
	r.ImmediateSells = []ImmediateSell{
		{Low: math.Inf(-1), High: -5, Filter: ledger.All(), Reason: "momentum below -5"},
		{Low: -4, High: 0, Filter: ledger.Only(ledger.KindCross), Reason: "momentum between -4 and 0"},
		{Low: -4, High: 0, Filter: ledger.Only(ledger.KindAveraging), Reason: "momentum between -4 and 0"},
	}
	return r
}

// lookupBuy returns the scheduled purchase for the step, if any. Nulls never
// trigger: the gate and the level match both require a present value.
func (r Rules) lookupBuy(obs models.Observation) (BuyLevel, bool) {
	trend, haveTrend := obs.Indicator(r.TrendIndex)
	cross, haveCross := obs.Indicator(r.CrossIndex)
	if !(haveTrend && trend > 3) && !(haveCross && cross > 0) {
		return BuyLevel{}, false
	}
	for _, level := range r.Buys {
		switch level.Indicator {
		case r.TrendIndex:
			if haveTrend && trend == level.Value {
				return level, true
			}
		case r.CrossIndex:
			if haveCross && cross == level.Value {
				return level, true
			}
		}
	}
	return BuyLevel{}, false
}
