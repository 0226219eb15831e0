package filter

import (
	"sort"

	"github.com/bcinsights/bcinsights/internal/dataset"
)

// Unknown is the placeholder category hidden from option lists.
const Unknown = "Unknown"

// Options returns the sorted distinct values of column, minus "Unknown" and
// any extra values to remove. Nulls are never offered.
func Options(v dataset.View, column string, remove ...string) []string {
	if !v.Schema().Has(column) {
		return nil
	}
	drop := set(append([]string{Unknown}, remove...))

	values := v.Unique(column)
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, skip := drop[value]; skip {
			continue
		}
		out = append(out, value)
	}

	if col, _ := v.Schema().Column(column); col.Kind.Numeric() {
		sortNumeric(v, column, out)
		return out
	}
	sort.Strings(out)
	return out
}

func sortNumeric(v dataset.View, column string, values []string) {
	num := make(map[string]float64, len(values))
	for i := 0; i < v.Len(); i++ {
		if x, ok := v.Float(column, i); ok {
			num[v.String(column, i)] = x
		}
	}
	sort.SliceStable(values, func(a, b int) bool { return num[values[a]] < num[values[b]] })
}
