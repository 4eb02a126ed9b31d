package series

import (
	"errors"
	"log"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// ErrInsufficientData is returned when the aligned sequence is empty.
// Callers skip the symbol and continue with the batch.
var ErrInsufficientData = errors.New("insufficient aligned data")

var two = decimal.NewFromInt(2)

// Align joins indicator readings and price bars for one symbol into an
// ordered Observation sequence, oldest first.
//
// Indicator rows are pivoted so every observation carries the full set of
// requested indicator indexes; a missing or NULL reading becomes a nil value,
// never an error. The step price is the high/low midpoint. Bars with a
// non-positive high or low are data-quality failures and are excluded, as are
// relative indexes present in only one of the two sources: a partial row
// cannot support a decision.
func Align(symbol string, indicators []models.IndicatorValue, prices []models.PriceBar, indexes []int) ([]models.Observation, error) {
	pivoted := pivot(symbol, indicators, indexes)

	mids := make(map[int]float64, len(prices))
	for _, bar := range prices {
		if bar.High.Sign() <= 0 || bar.Low.Sign() <= 0 {
			log.Printf("aligner: excluding bar for %s at index %d: non-positive high/low (%s/%s)",
				symbol, bar.RelativeIndex, bar.High, bar.Low)
			continue
		}
		mid := bar.High.Add(bar.Low).Div(two)
		mids[bar.RelativeIndex] = mid.InexactFloat64()
	}

	var out []models.Observation
	for rel, vals := range pivoted {
		price, ok := mids[rel]
		if !ok {
			continue
		}
		obs := models.Observation{
			RelativeIndex: rel,
			Indicators:    make(map[int]*float64, len(indexes)),
			Price:         price,
		}
		for _, idx := range indexes {
			obs.Indicators[idx] = vals[idx]
		}
		out = append(out, obs)
	}

	if len(out) == 0 {
		return nil, ErrInsufficientData
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].RelativeIndex < out[j].RelativeIndex
	})
	return out, nil
}

// LatestWindow pivots indicator rows and returns the trailing values of one
// indicator, newest first, capped at size. Nulls are kept positionally so
// rolling-count predicates see gaps. Used by the live trigger, which works
// from a short recent window instead of the full history.
func LatestWindow(indicators []models.IndicatorValue, index, size int) []*float64 {
	byRel := make(map[int]*float64)
	rels := make([]int, 0)
	for _, row := range indicators {
		if row.IndicatorIndex != index {
			continue
		}
		if _, seen := byRel[row.RelativeIndex]; !seen {
			rels = append(rels, row.RelativeIndex)
		}
		byRel[row.RelativeIndex] = row.Value
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rels)))
	if len(rels) > size {
		rels = rels[:size]
	}

	window := make([]*float64, 0, len(rels))
	for _, rel := range rels {
		window = append(window, byRel[rel])
	}
	return window
}

// pivot groups indicator rows by relative index, keeping only the requested
// indicator indexes. A duplicate (index, indicator) pair keeps the last row;
// the source pipeline should never produce one, so the collision is logged.
func pivot(symbol string, indicators []models.IndicatorValue, indexes []int) map[int]map[int]*float64 {
	wanted := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		wanted[idx] = true
	}

	out := make(map[int]map[int]*float64)
	for _, row := range indicators {
		if !wanted[row.IndicatorIndex] {
			continue
		}
		vals, ok := out[row.RelativeIndex]
		if !ok {
			vals = make(map[int]*float64, len(indexes))
			out[row.RelativeIndex] = vals
		}
		if _, dup := vals[row.IndicatorIndex]; dup {
			log.Printf("aligner: duplicate indicator %d for %s at index %d, keeping last",
				row.IndicatorIndex, symbol, row.RelativeIndex)
		}
		vals[row.IndicatorIndex] = row.Value
	}
	return out
}
