package portfolio

import (
	"sort"

	"github.com/bkowalczyk/trade-engine/internal/engine"
	"github.com/bkowalczyk/trade-engine/internal/models"
)

// Aggregator accumulates closed-position records and invested-capital
// samples across symbols. It is not internally synchronized: the batch
// driver gives each worker its own aggregator and merges them at the end.
type Aggregator struct {
	positions []models.ClosedPosition
	invested  map[int]float64 // relative index -> summed invested across symbols
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{invested: make(map[int]float64)}
}

// AddResult folds one symbol's engine result in.
func (a *Aggregator) AddResult(res engine.Result) {
	a.positions = append(a.positions, res.Positions...)
	for _, s := range res.InvestedSamples {
		a.invested[s.Index] += s.Invested
	}
}

// Add records closed-position records directly.
func (a *Aggregator) Add(positions ...models.ClosedPosition) {
	a.positions = append(a.positions, positions...)
}

// Merge folds another aggregator into this one.
func (a *Aggregator) Merge(other *Aggregator) {
	a.positions = append(a.positions, other.positions...)
	for idx, amount := range other.invested {
		a.invested[idx] += amount
	}
}

// Positions returns all accumulated records.
func (a *Aggregator) Positions() []models.ClosedPosition {
	return a.positions
}

// Summarize computes the report. Open-tagged records contribute to
// unrealized profit only; realized profit sums closed records alone.
func (a *Aggregator) Summarize() Report {
	r := Report{Durations: make(map[int]int)}

	var durationSum int
	for _, p := range a.positions {
		r.TotalInvested += p.FinalInvested
		r.Durations[p.Duration]++
		if p.Open {
			r.UnrealizedProfit += p.Profit
			r.OpenCount++
			r.OpenInvested += p.FinalInvested
			continue
		}
		r.RealizedProfit += p.Profit
		r.ClosedCount++
		durationSum += p.Duration
		if p.Duration > r.MaxDuration {
			r.MaxDuration = p.Duration
		}
		if p.PeakValue > r.LargestPeakValue {
			r.LargestPeakValue = p.PeakValue
			r.LargestPeakSymbol = p.Symbol
		}
		switch {
		case p.Profit > 0:
			r.ProfitableCloses++
		case p.Profit < 0:
			r.LosingCloses++
		}
	}
	r.TotalProfit = r.RealizedProfit + r.UnrealizedProfit
	if r.ClosedCount > 0 {
		r.AvgDuration = float64(durationSum) / float64(r.ClosedCount)
	}

	first := true
	for idx, amount := range a.invested {
		// Earliest index wins a tie so the report is deterministic.
		if first || amount > r.PeakInvested || (amount == r.PeakInvested && idx < r.PeakIndex) {
			r.PeakInvested = amount
			r.PeakIndex = idx
			first = false
		}
	}

	if r.TotalInvested > 0 {
		r.PercentOfTotalInvested = r.TotalProfit / r.TotalInvested * 100
	}
	if r.PeakInvested > 0 {
		r.PercentOfPeakInvested = r.TotalProfit / r.PeakInvested * 100
		r.PercentRealizedOfPeak = r.RealizedProfit / r.PeakInvested * 100
	}
	return r
}

// Report is the cross-symbol profit and exposure summary.
type Report struct {
	RealizedProfit   float64
	UnrealizedProfit float64
	TotalProfit      float64

	TotalInvested float64 // sum of final invested over every record
	OpenInvested  float64 // invested still committed to open positions
	PeakInvested  float64 // highest concurrent invested capital at any index
	PeakIndex     int     // relative index where the peak occurred

	PercentOfTotalInvested float64
	PercentOfPeakInvested  float64
	PercentRealizedOfPeak  float64

	ClosedCount      int
	OpenCount        int
	ProfitableCloses int
	LosingCloses     int

	AvgDuration       float64
	MaxDuration       int
	Durations         map[int]int // closed+open position count by duration
	LargestPeakValue  float64
	LargestPeakSymbol string
}

// TopByDuration returns up to n records ordered by duration descending,
// ties broken by symbol ascending so output is deterministic.
func (a *Aggregator) TopByDuration(n int) []models.ClosedPosition {
	top := make([]models.ClosedPosition, len(a.positions))
	copy(top, a.positions)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Duration != top[j].Duration {
			return top[i].Duration > top[j].Duration
		}
		return top[i].Symbol < top[j].Symbol
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}

// InvestedByIndex returns the summed invested capital per relative index in
// ascending index order.
func (a *Aggregator) InvestedByIndex() []engine.InvestedSample {
	out := make([]engine.InvestedSample, 0, len(a.invested))
	for idx, amount := range a.invested {
		out = append(out, engine.InvestedSample{Index: idx, Invested: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
