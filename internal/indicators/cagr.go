package indicators

import (
	"math"
	"sort"
)

// CAGR computes the compound annual growth rate over a historical series.
// The series must span at least years-1 calendar years between its first and
// last entry and both endpoints must be strictly positive; otherwise the
// rate is absent. The exponent uses the actual span, not the requested one.
// Rounded to four decimals.
func CAGR(series map[int]float64, years int) *float64 {
	if len(series) < 2 {
		return nil
	}
	first, last := seriesBounds(series)
	if last-first < years-1 {
		return nil
	}
	start, end := series[first], series[last]
	if start <= 0 || end <= 0 {
		return nil
	}
	span := float64(last - first)
	rate := math.Pow(end/start, 1/span) - 1
	rate = math.Round(rate*10000) / 10000
	return &rate
}

// SufficientSeries reports whether a historical series spans enough years
// for the CAGR window. Used to flag incomplete series in the run output
// independently of whether the endpoints were positive.
func SufficientSeries(series map[int]float64, years int) bool {
	if len(series) < 2 {
		return false
	}
	first, last := seriesBounds(series)
	return last-first >= years-1
}

func seriesBounds(series map[int]float64) (first, last int) {
	keys := make([]int, 0, len(series))
	for year := range series {
		keys = append(keys, year)
	}
	sort.Ints(keys)
	return keys[0], keys[len(keys)-1]
}
