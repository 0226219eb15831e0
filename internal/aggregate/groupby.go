package aggregate

import (
	"sort"
	"strings"

	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// Group is one distinct key combination and the rows that carry it.
type Group struct {
	Keys []string
	Rows dataset.View
}

// Record is one aggregated row: the group keys, the aggregated value and the
// number of input rows in the group.
type Record struct {
	Keys  []string `json:"keys"`
	Value float64  `json:"value"`
	Count int      `json:"count"`
}

// GroupBy partitions v by the given key columns. Rows with a null key are
// dropped and groups come back sorted by key, numeric columns numerically.
func GroupBy(v dataset.View, keys ...string) []Group {
	index := make(map[string]int)
	var groups []Group
	var members [][]int

	for i := 0; i < v.Len(); i++ {
		values := make([]string, len(keys))
		skip := false
		for k, col := range keys {
			if v.IsNull(col, i) {
				skip = true
				break
			}
			values[k] = v.String(col, i)
		}
		if skip {
			continue
		}
		id := strings.Join(values, "\x00")
		g, ok := index[id]
		if !ok {
			g = len(groups)
			index[id] = g
			groups = append(groups, Group{Keys: values})
			members = append(members, nil)
		}
		members[g] = append(members[g], i)
	}

	for g := range groups {
		groups[g].Rows = v.Subset(members[g])
	}

	numeric := make([]bool, len(keys))
	for k, col := range keys {
		if c, ok := v.Schema().Column(col); ok {
			numeric[k] = c.Kind.Numeric()
		}
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return lessKeys(groups[a].Keys, groups[b].Keys, numeric)
	})
	return groups
}

func lessKeys(a, b []string, numeric []bool) bool {
	for k := range a {
		if a[k] == b[k] {
			continue
		}
		if numeric[k] {
			return parseNumber(a[k]) < parseNumber(b[k])
		}
		return a[k] < b[k]
	}
	return false
}

// Sum adds up value per group. Null values contribute nothing.
func Sum(v dataset.View, value string, keys ...string) []Record {
	return reduce(v, value, keys, func(xs []float64) (float64, bool) {
		total := 0.0
		for _, x := range xs {
			total += x
		}
		return total, true
	})
}

// Mean averages value per group. Groups without a single non-null value are
// omitted.
func Mean(v dataset.View, value string, keys ...string) []Record {
	return reduce(v, value, keys, func(xs []float64) (float64, bool) {
		if len(xs) == 0 {
			return 0, false
		}
		return mean(xs), true
	})
}

// Count returns the number of rows per group.
func Count(v dataset.View, keys ...string) []Record {
	groups := GroupBy(v, keys...)
	out := make([]Record, 0, len(groups))
	for _, g := range groups {
		n := g.Rows.Len()
		out = append(out, Record{Keys: g.Keys, Value: float64(n), Count: n})
	}
	return out
}

func reduce(v dataset.View, value string, keys []string, fn func([]float64) (float64, bool)) []Record {
	groups := GroupBy(v, keys...)
	out := make([]Record, 0, len(groups))
	for _, g := range groups {
		xs := floats(g.Rows, value)
		agg, ok := fn(xs)
		if !ok {
			continue
		}
		out = append(out, Record{Keys: g.Keys, Value: agg, Count: g.Rows.Len()})
	}
	return out
}

func floats(v dataset.View, column string) []float64 {
	out := make([]float64, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if x, ok := v.Float(column, i); ok {
			out = append(out, x)
		}
	}
	return out
}

// CheckEmpty returns ErrEmptyResult when v has no rows.
func CheckEmpty(op string, v dataset.View) error {
	if v.Len() == 0 {
		return utils.NewAppError(op, "filtered table is empty", utils.ErrEmptyResult)
	}
	return nil
}
