package filter

import (
	"github.com/bcinsights/bcinsights/internal/dataset"
)

// nullToken is how a missing cell is spelled in denylists.
const nullToken = "nan"

// Predicate keeps or drops one row based on a single field. The engine only
// evaluates predicates whose Field is present in the table schema.
type Predicate interface {
	Field() string
	Keep(v dataset.View, i int) bool
}

type yearRange struct {
	field  string
	lo, hi int
}

func (p yearRange) Field() string { return p.field }

func (p yearRange) Keep(v dataset.View, i int) bool {
	year, ok := v.Float(p.field, i)
	if !ok {
		return false
	}
	return year >= float64(p.lo) && year <= float64(p.hi)
}

// membership keeps rows whose value is exactly one of the selected values.
type membership struct {
	field  string
	values map[string]struct{}
}

func (p membership) Field() string { return p.field }

func (p membership) Keep(v dataset.View, i int) bool {
	if v.IsNull(p.field, i) {
		return false
	}
	_, ok := p.values[v.String(p.field, i)]
	return ok
}

// exclusion drops rows whose value is on a denylist.
type exclusion struct {
	field  string
	denied map[string]struct{}
}

func (p exclusion) Field() string { return p.field }

func (p exclusion) Keep(v dataset.View, i int) bool {
	value := nullToken
	if !v.IsNull(p.field, i) {
		value = v.String(p.field, i)
	}
	_, denied := p.denied[value]
	return !denied
}

type floatRange struct {
	field  string
	lo, hi *float64
}

func (p floatRange) Field() string { return p.field }

func (p floatRange) Keep(v dataset.View, i int) bool {
	x, ok := v.Float(p.field, i)
	if !ok {
		return false
	}
	if p.lo != nil && x < *p.lo {
		return false
	}
	if p.hi != nil && x > *p.hi {
		return false
	}
	return true
}

// YearRange keeps rows whose year lies in [lo, hi].
func YearRange(field string, lo, hi int) Predicate {
	return yearRange{field: field, lo: lo, hi: hi}
}

// In keeps rows whose field value is one of values. Matching is exact and
// case-sensitive; null cells never match.
func In(field string, values ...string) Predicate {
	return membership{field: field, values: set(values)}
}

// NotIn drops rows whose field value is in denied. Null cells compare as "nan".
func NotIn(field string, denied ...string) Predicate {
	return exclusion{field: field, denied: set(denied)}
}

// Between keeps rows whose numeric value lies in the inclusive range. A nil
// bound is open.
func Between(field string, lo, hi *float64) Predicate {
	return floatRange{field: field, lo: lo, hi: hi}
}

func set(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
