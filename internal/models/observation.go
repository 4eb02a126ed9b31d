package models

// Indicator indexes used by the built-in rule sets. The upstream chart
// payloads address indicators by numeric position, not by name.
const (
	IndicatorMomentum = 5  // oscillator driving the sell predicates
	IndicatorCross    = 7  // crossover signal, secondary buy trigger
	IndicatorTrend    = 22 // trend strength, primary buy trigger
	IndicatorBreadth  = 24 // fetched alongside the others, unused by the built-in rules
)

// Observation is one aligned time-step for one symbol: the pivoted indicator
// values plus the mid price. RelativeIndex is 0 for the most recent bar and
// negative further back in history. Immutable once built by the aligner.
type Observation struct {
	RelativeIndex int
	Indicators    map[int]*float64 // indicator index -> value, nil when the source row is missing or NULL
	Price         float64
}

// Indicator returns the value for the given indicator index and whether it
// is present and non-null.
func (o Observation) Indicator(index int) (float64, bool) {
	v, ok := o.Indicators[index]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}
