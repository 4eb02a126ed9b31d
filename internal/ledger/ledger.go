package ledger

import (
	"errors"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// ErrInvalidPrice is returned by ApplyBuy when the price is non-positive.
// The aligner filters such bars out, so this is a defensive re-check before
// the share-count division.
var ErrInvalidPrice = errors.New("invalid price")

// Kind classifies a tranche by the signal that bought it. Rule variants sell
// tranche subsets independently, so the kind has to survive past the buy.
type Kind int

const (
	KindTrend     Kind = iota // bought on the trend-indicator trigger
	KindCross                 // bought on the cross-indicator trigger
	KindAveraging             // small averaging-down buy while at a loss
)

func (k Kind) String() string {
	switch k {
	case KindTrend:
		return "trend"
	case KindCross:
		return "cross"
	case KindAveraging:
		return "averaging"
	}
	return "unknown"
}

// Filter selects which tranches a sell applies to.
type Filter struct {
	all  bool
	kind Kind
}

// All selects every tranche.
func All() Filter { return Filter{all: true} }

// Only selects tranches of a single kind.
func Only(k Kind) Filter { return Filter{kind: k} }

func (f Filter) matches(k Kind) bool { return f.all || f.kind == k }

// Tranche is one discrete purchase inside an open position.
type Tranche struct {
	Shares   float64
	Cost     float64
	OpenedAt int
	Kind     Kind
}

// Ledger is the per-symbol mutable position record. A position is open iff
// at least one tranche is live; share and invested totals are always derived
// from the tranche list, never tracked separately.
type Ledger struct {
	symbol    string
	tranches  []Tranche
	openSince int
	purchases int
	maxValue  float64

	armed     bool
	reference float64 // post-arm peak value, valid while armed
}

// New returns an empty, closed ledger for a symbol.
func New(symbol string) *Ledger {
	return &Ledger{symbol: symbol}
}

// Symbol returns the symbol this ledger tracks.
func (l *Ledger) Symbol() string { return l.symbol }

// IsOpen reports whether any tranche is live.
func (l *Ledger) IsOpen() bool { return len(l.tranches) > 0 }

// OpenSince returns the relative index of the opening buy.
func (l *Ledger) OpenSince() int { return l.openSince }

// Purchases returns the number of buys applied over the position's lifetime.
func (l *Ledger) Purchases() int { return l.purchases }

// MaxValue returns the peak position value seen so far.
func (l *Ledger) MaxValue() float64 { return l.maxValue }

// Armed reports whether a sell condition has been latched.
func (l *Ledger) Armed() bool { return l.armed }

// Reference returns the drawdown reference value; meaningful only while armed.
func (l *Ledger) Reference() float64 { return l.reference }

// Shares returns the total live share count.
func (l *Ledger) Shares() float64 {
	var sum float64
	for _, t := range l.tranches {
		sum += t.Shares
	}
	return sum
}

// Invested returns the total live invested amount.
func (l *Ledger) Invested() float64 {
	var sum float64
	for _, t := range l.tranches {
		sum += t.Cost
	}
	return sum
}

// ValueAt returns the position value at the given price.
func (l *Ledger) ValueAt(price float64) float64 {
	return l.Shares() * price
}

// MarkValue updates the peak value with the current position value.
func (l *Ledger) MarkValue(value float64) {
	if value > l.maxValue {
		l.maxValue = value
	}
}

// Arm latches the sell condition and seeds the drawdown reference with the
// current position value. Arming is sticky: only liquidation clears it.
func (l *Ledger) Arm(value float64) {
	if l.armed {
		return
	}
	l.armed = true
	l.reference = value
}

// RaiseReference ratchets the drawdown reference up to value. The reference
// never decreases while armed.
func (l *Ledger) RaiseReference(value float64) {
	if l.armed && value > l.reference {
		l.reference = value
	}
}

// ApplyBuy appends a tranche of amount/price shares. Opening a position
// records the relative index; adding to one increments the purchase count.
func (l *Ledger) ApplyBuy(amount, price float64, kind Kind, index int) (Tranche, error) {
	if price <= 0 {
		return Tranche{}, ErrInvalidPrice
	}
	t := Tranche{
		Shares:   amount / price,
		Cost:     amount,
		OpenedAt: index,
		Kind:     kind,
	}
	if !l.IsOpen() {
		l.openSince = index
		l.purchases = 1
	} else {
		l.purchases++
	}
	l.tranches = append(l.tranches, t)
	return t, nil
}

// ApplySell liquidates the tranches selected by the filter at the given
// price, returning the closed-position record for the sold subset. The
// second return is false when no tranche matched, so a repeated sell of the
// same kind cannot double-free. A sell that empties the ledger resets it to
// the closed state.
func (l *Ledger) ApplySell(filter Filter, price float64, index int, reason string) (models.ClosedPosition, bool) {
	var soldShares, soldCost float64
	remaining := l.tranches[:0]
	for _, t := range l.tranches {
		if filter.matches(t.Kind) {
			soldShares += t.Shares
			soldCost += t.Cost
		} else {
			remaining = append(remaining, t)
		}
	}
	if soldShares == 0 {
		return models.ClosedPosition{}, false
	}
	l.tranches = remaining

	profit := soldShares*price - soldCost
	rec := models.ClosedPosition{
		Symbol:        l.symbol,
		OpenIndex:     l.openSince,
		CloseIndex:    index,
		Duration:      index - l.openSince,
		Profit:        profit,
		PercentProfit: percent(profit, soldCost),
		Purchases:     l.purchases,
		PeakValue:     l.maxValue,
		FinalInvested: soldCost,
		SellReason:    reason,
	}
	if !l.IsOpen() {
		l.reset()
	}
	return rec, true
}

// Snapshot returns an open-tagged pseudo-record valuing the position at the
// given price. It does not mutate the ledger; the record must be kept out of
// realized-profit sums.
func (l *Ledger) Snapshot(price float64, index int) models.ClosedPosition {
	invested := l.Invested()
	profit := l.ValueAt(price) - invested
	return models.ClosedPosition{
		Symbol:        l.symbol,
		OpenIndex:     l.openSince,
		CloseIndex:    index,
		Duration:      index - l.openSince,
		Profit:        profit,
		PercentProfit: percent(profit, invested),
		Purchases:     l.purchases,
		PeakValue:     l.maxValue,
		FinalInvested: invested,
		Open:          true,
	}
}

func (l *Ledger) reset() {
	l.tranches = nil
	l.openSince = 0
	l.purchases = 0
	l.maxValue = 0
	l.armed = false
	l.reference = 0
}

// percent defines percent profit as 0 when nothing was invested.
func percent(profit, invested float64) float64 {
	if invested <= 0 {
		return 0
	}
	return profit / invested * 100
}
