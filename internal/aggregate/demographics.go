package aggregate

import (
	"sort"

	"github.com/bcinsights/bcinsights/internal/dataset"
)

// Point is one (x, y) sample of a series.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named, x-ordered list of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// PatientsByYearAndAge sums the patient count per (year, age group) and
// returns one series per age group with years ascending. Known age bands keep
// their natural order; anything else follows alphabetically.
func PatientsByYearAndAge(v dataset.View) []Series {
	records := Sum(v, dataset.ColAge, dataset.ColYear, dataset.ColAgeGroup)
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]int)
	var series []Series
	for _, r := range records {
		group := r.Keys[1]
		s, ok := index[group]
		if !ok {
			s = len(series)
			index[group] = s
			series = append(series, Series{Name: group})
		}
		series[s].Points = append(series[s].Points, Point{X: parseNumber(r.Keys[0]), Y: r.Value})
	}

	sort.SliceStable(series, func(a, b int) bool {
		return ageRank(series[a].Name) < ageRank(series[b].Name) ||
			ageRank(series[a].Name) == ageRank(series[b].Name) && series[a].Name < series[b].Name
	})
	return series
}

func ageRank(group string) int {
	for i, g := range dataset.AgeGroups {
		if g == group {
			return i
		}
	}
	return len(dataset.AgeGroups)
}
