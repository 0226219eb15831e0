package aggregate

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// BoxStats summarises one category of a distribution.
type BoxStats struct {
	Category string    `json:"category"`
	Label    string    `json:"label"`
	N        int       `json:"n"`
	Min      float64   `json:"min"`
	Q1       float64   `json:"q1"`
	Median   float64   `json:"median"`
	Q3       float64   `json:"q3"`
	Max      float64   `json:"max"`
	Mean     float64   `json:"mean"`
	Values   []float64 `json:"values,omitempty"`
}

// Summarise computes box statistics over xs. It returns false for empty input.
func Summarise(category string, xs []float64) (BoxStats, bool) {
	if len(xs) == 0 {
		return BoxStats{}, false
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	return BoxStats{
		Category: category,
		Label:    category,
		N:        len(sorted),
		Min:      sorted[0],
		Q1:       stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median:   stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		Q3:       stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Max:      sorted[len(sorted)-1],
		Mean:     stat.Mean(sorted, nil),
		Values:   sorted,
	}, true
}

func mean(xs []float64) float64 {
	return stat.Mean(xs, nil)
}

func parseNumber(s string) float64 {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.Inf(1)
	}
	return x
}
