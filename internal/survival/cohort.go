package survival

import (
	"errors"
	"sort"
	"strconv"

	"github.com/bcinsights/bcinsights/internal/aggregate"
	"github.com/bcinsights/bcinsights/internal/dataset"
)

// DeadStatus is the vital_status value that marks an observed event.
const DeadStatus = "Dead"

// OverallSelector is the grouping choice that yields one curve for the whole cohort.
const OverallSelector = "Time (months)"

// selectors maps the grouping choices offered to users onto cohort columns.
var selectors = []struct {
	label  string
	column string
}{
	{OverallSelector, ""},
	{"Race/Ethnicity", dataset.ColRace},
	{"Marital Status", dataset.ColMaritalStatus},
	{"Stage", dataset.ColStage},
	{"Laterality", dataset.ColLaterality},
	{"Tumor Site", dataset.ColTumorSite},
	{"Tumor Size", dataset.ColTumorSize},
	{"ER Status", dataset.ColERStatus},
	{"PR Status", dataset.ColPRStatus},
}

// Selectors lists the grouping choices in display order.
func Selectors() []string {
	out := make([]string, len(selectors))
	for i, s := range selectors {
		out[i] = s.label
	}
	return out
}

// SelectorColumn resolves a grouping choice. The overall choice maps to "".
func SelectorColumn(label string) (string, bool) {
	for _, s := range selectors {
		if s.label == label {
			return s.column, true
		}
	}
	return "", false
}

// excludedCategories never get their own curve.
var excludedCategories = map[string]struct{}{
	"Unknown": {},
	"unknown": {},
	"0":       {},
}

// Observations reads (survival_months, vital_status) pairs from v. Rows
// without a duration are skipped.
func Observations(v dataset.View) []Observation {
	out := make([]Observation, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		d, ok := v.Float(dataset.ColSurvivalMonths, i)
		if !ok {
			continue
		}
		out = append(out, Observation{Duration: d, Event: v.String(dataset.ColVitalStatus, i) == DeadStatus})
	}
	return out
}

// FitByCategory fits one independent curve per value of column, sorted by
// value. Placeholder categories ("Unknown", "unknown", zero) are skipped.
func (e *Estimator) FitByCategory(v dataset.View, column string) ([]Curve, error) {
	groups := aggregate.GroupBy(v, column)
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Keys[0] < groups[b].Keys[0] })

	curves := make([]Curve, 0, len(groups))
	for _, g := range groups {
		category := g.Keys[0]
		if excluded(category) {
			continue
		}
		curve, err := e.Fit(category, Observations(g.Rows))
		if errors.Is(err, ErrNoObservations) {
			continue
		}
		if err != nil {
			return nil, err
		}
		curves = append(curves, curve)
	}
	if len(curves) == 0 {
		return nil, ErrNoObservations
	}
	return curves, nil
}

func excluded(category string) bool {
	if _, ok := excludedCategories[category]; ok {
		return true
	}
	if x, err := strconv.ParseFloat(category, 64); err == nil && x == 0 {
		return true
	}
	return false
}
