package engine

import (
	"log"
	"time"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// LiveObservation is the single newest data point the live trigger decides
// on: the latest price plus a short trailing momentum window, newest first.
type LiveObservation struct {
	Price          float64
	Indicators     map[int]*float64 // latest reading per indicator index
	MomentumWindow []*float64       // newest first, at most Rules.WindowSize values
}

// Step applies one live decision pass to a persisted state row and returns
// the updated row. It mirrors the replay engine's predicates but operates on
// the flattened state instead of tranches, and it is idempotent within a
// calendar day (in loc): a state that already acted today, or that already
// carries a pending buy or sell flag, passes through untouched so a repeated
// poll cannot double-trigger.
func (e *Engine) Step(state models.SymbolState, obs LiveObservation, now time.Time, loc *time.Location) models.SymbolState {
	if loc == nil {
		loc = time.UTC
	}
	if !state.LastAction.IsZero() && sameDay(state.LastAction, now, loc) {
		log.Printf("live: symbol %d already acted today, skipping", state.SymbolID)
		return state
	}
	if state.Buy || state.Sell {
		log.Printf("live: symbol %d has a pending signal, skipping", state.SymbolID)
		return state
	}

	if state.IsOpen() {
		value := state.Shares * obs.Price
		profit := value - state.Invested

		if !state.ShouldSell {
			if reason, arm := e.liveArmReason(profit, obs); arm {
				state.ShouldSell = true
				if value > state.MaxValue {
					state.MaxValue = value
				}
				log.Printf("live: symbol %d sell armed: %s", state.SymbolID, reason)
			}
		}
		if state.ShouldSell {
			if value > state.MaxValue {
				state.MaxValue = value
			}
			if value <= state.MaxValue*e.rules.DrawdownRatio {
				state.Sell = true
				state.Buy = false
				state.AmountBuySell = 0
				log.Printf("live: symbol %d sell confirmed: value %.2f below %.1f%% of peak %.2f",
					state.SymbolID, value, e.rules.DrawdownRatio*100, state.MaxValue)
			}
		}
	}

	if !state.Sell && e.liveBuySignal(obs) {
		state.Buy = true
		state.AmountBuySell = e.rules.LiveBuyAmount
		log.Printf("live: symbol %d buy signal, amount %.2f", state.SymbolID, state.AmountBuySell)
	}

	state.Checked = now
	return state
}

func (e *Engine) liveBuySignal(obs LiveObservation) bool {
	trend := obs.Indicators[e.rules.TrendIndex]
	cross := obs.Indicators[e.rules.CrossIndex]
	return (trend != nil && *trend > 3) || (cross != nil && *cross > 0)
}

// liveArmReason evaluates the arm predicates over the newest-first trailing
// window. Short or gappy windows never satisfy the count predicates.
func (e *Engine) liveArmReason(profit float64, obs LiveObservation) (string, bool) {
	win := obs.MomentumWindow
	if profit >= 0 {
		if len(win) >= e.rules.WindowSize {
			full := true
			below := 0
			for _, v := range win[:e.rules.WindowSize] {
				if v == nil {
					full = false
					break
				}
				if *v < 0 {
					below++
				}
			}
			if full && below >= e.rules.BelowZeroMin {
				return "momentum below zero in window", true
			}
		}
		if len(win) >= e.rules.RecentRun {
			run := true
			for _, v := range win[:e.rules.RecentRun] {
				if v == nil || *v >= e.rules.RecentBelow {
					run = false
					break
				}
			}
			if run {
				return "momentum run below threshold", true
			}
		}
	}

	var momentum *float64
	if len(win) > 0 {
		momentum = win[0]
	}
	if momentum != nil {
		if profit >= 0 && *momentum < e.rules.ArmBelow {
			return "momentum below arm threshold", true
		}
		if *momentum < e.rules.HardArmBelow {
			return "momentum below hard threshold", true
		}
	}
	return "", false
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
