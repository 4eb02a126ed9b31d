package engine

import (
	"log"

	"github.com/bkowalczyk/trade-engine/internal/ledger"
	"github.com/bkowalczyk/trade-engine/internal/models"
	"github.com/bkowalczyk/trade-engine/internal/series"
)

// InvestedSample is the capital committed to one symbol at one relative
// index, collected while the position is open. The aggregator sums these
// across symbols to find peak concurrent exposure.
type InvestedSample struct {
	Index    int
	Invested float64
}

// Result is everything one replay pass over a symbol produced.
type Result struct {
	Symbol          string
	Positions       []models.ClosedPosition
	InvestedSamples []InvestedSample
	Steps           int
}

// Engine replays a symbol's observation sequence against a ledger, applying
// one rule configuration. It is a pure function of (observations, initial
// ledger): replaying the same input always yields the same decisions.
type Engine struct {
	rules Rules
}

// New returns an engine for the given rules.
func New(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the engine's rule configuration.
func (e *Engine) Rules() Rules { return e.rules }

// Run steps through the observations in ascending relative-index order,
// mutating led and collecting closed-position records. A still-open position
// after the last observation is emitted as an open-tagged snapshot valued at
// the final price; that record must never be summed into realized profit.
func (e *Engine) Run(obs []models.Observation, led *ledger.Ledger) (Result, error) {
	if len(obs) == 0 {
		return Result{}, series.ErrInsufficientData
	}

	res := Result{Symbol: led.Symbol()}
	win := newWindow(e.rules.WindowSize)

	for _, o := range obs {
		res.Steps++
		e.step(o, led, win, &res)
	}

	if led.IsOpen() {
		last := obs[len(obs)-1]
		snap := led.Snapshot(last.Price, last.RelativeIndex)
		res.Positions = append(res.Positions, snap)
		log.Printf("engine: %s still open at end: invested=%.2f profit=%.2f",
			led.Symbol(), snap.FinalInvested, snap.Profit)
	}
	return res, nil
}

func (e *Engine) step(o models.Observation, led *ledger.Ledger, win *window, res *Result) {
	momentum, haveMomentum := o.Indicator(e.rules.MomentumIndex)
	if haveMomentum {
		m := momentum
		win.push(&m)
	} else {
		win.push(nil)
	}

	liquidated := false
	sold := false
	if led.IsOpen() {
		value := led.ValueAt(o.Price)
		profit := value - led.Invested()
		led.MarkValue(value)

		for _, rule := range e.rules.ImmediateSells {
			if !haveMomentum || momentum <= rule.Low || momentum >= rule.High {
				continue
			}
			rec, ok := led.ApplySell(rule.Filter, o.Price, o.RelativeIndex, rule.Reason)
			if !ok {
				continue
			}
			res.Positions = append(res.Positions, rec)
			sold = true
			log.Printf("engine: %s sold at index %d (%s): profit=%.2f over %d steps",
				led.Symbol(), o.RelativeIndex, rule.Reason, rec.Profit, rec.Duration)
			if !led.IsOpen() {
				win.reset()
				liquidated = true
				break
			}
			// Partial sell: revalue the remainder before further rules.
			value = led.ValueAt(o.Price)
			profit = value - led.Invested()
		}

		if !liquidated && e.rules.Arming {
			if !led.Armed() {
				if reason, arm := e.armReason(profit, momentum, haveMomentum, win); arm {
					led.Arm(value)
					log.Printf("engine: %s armed at index %d: %s", led.Symbol(), o.RelativeIndex, reason)
				}
			}
			if led.Armed() {
				led.RaiseReference(value)
				if value <= led.Reference()*e.rules.DrawdownRatio {
					rec, ok := led.ApplySell(ledger.All(), o.Price, o.RelativeIndex, "drawdown after arm")
					if ok {
						res.Positions = append(res.Positions, rec)
						log.Printf("engine: %s liquidated at index %d: profit=%.2f over %d steps",
							led.Symbol(), o.RelativeIndex, rec.Profit, rec.Duration)
						win.reset()
						liquidated = true
					}
				}
			}
		}
	}

	// Any sell this step suppresses buys until the next one.
	bought := false
	if !liquidated && !sold {
		if level, ok := e.rules.lookupBuy(o); ok {
			if _, err := led.ApplyBuy(level.Amount, o.Price, level.Kind, o.RelativeIndex); err != nil {
				log.Printf("engine: %s skipping buy at index %d: %v", led.Symbol(), o.RelativeIndex, err)
			} else {
				bought = true
				led.MarkValue(led.ValueAt(o.Price))
				log.Printf("engine: %s %s %.2f at index %d (%s tranche, price %.4f)",
					led.Symbol(), openedOrAdded(led), level.Amount, o.RelativeIndex, level.Kind, o.Price)
			}
		}

		if e.rules.Averaging != nil && led.IsOpen() && !bought {
			if led.ValueAt(o.Price)-led.Invested() < 0 {
				if _, err := led.ApplyBuy(e.rules.Averaging.Amount, o.Price, ledger.KindAveraging, o.RelativeIndex); err != nil {
					log.Printf("engine: %s skipping averaging buy at index %d: %v", led.Symbol(), o.RelativeIndex, err)
				} else {
					led.MarkValue(led.ValueAt(o.Price))
					log.Printf("engine: %s averaged down %.2f at index %d",
						led.Symbol(), e.rules.Averaging.Amount, o.RelativeIndex)
				}
			}
		}
	}

	if led.IsOpen() {
		res.InvestedSamples = append(res.InvestedSamples, InvestedSample{
			Index:    o.RelativeIndex,
			Invested: led.Invested(),
		})
	}
}

// armReason evaluates the sell-arm predicates in order and names the first
// one that fires.
func (e *Engine) armReason(profit, momentum float64, haveMomentum bool, win *window) (string, bool) {
	if profit >= 0 && win.full() && win.countBelow(0) >= e.rules.BelowZeroMin {
		return "momentum below zero in window", true
	}
	if profit >= 0 && win.newestRunBelow(e.rules.RecentRun, e.rules.RecentBelow) {
		return "momentum run below threshold", true
	}
	if haveMomentum {
		if profit >= 0 && momentum < e.rules.ArmBelow {
			return "momentum below arm threshold", true
		}
		if momentum < e.rules.HardArmBelow {
			return "momentum below hard threshold", true
		}
	}
	return "", false
}

func openedOrAdded(led *ledger.Ledger) string {
	if led.Purchases() == 1 {
		return "opened"
	}
	return "added"
}
