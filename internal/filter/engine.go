package filter

import (
	"github.com/bcinsights/bcinsights/internal/dataset"
)

// Engine turns a Selection into predicates and applies them to tables.
type Engine struct {
	policy Policy
}

// NewEngine constructs an Engine for the given policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Predicates expands sel into one predicate per field. Unselected year bounds
// fall back to the policy range, unselected denylisted fields fall back to
// their denylist, and other unselected fields contribute nothing.
func (e *Engine) Predicates(sel Selection) []Predicate {
	sel = sel.Normalize(e.policy)

	preds := []Predicate{YearRange(dataset.ColYear, sel.YearMin, sel.YearMax)}

	for _, m := range []struct {
		field  string
		values []string
	}{
		{dataset.ColAgeGroup, sel.AgeGroups},
		{dataset.ColTumorSite, sel.TumorSites},
		{dataset.ColStage, sel.Stages},
		{dataset.ColGene, sel.Genes},
		{dataset.ColCancerStage, sel.CancerStages},
	} {
		if len(m.values) > 0 {
			preds = append(preds, In(m.field, m.values...))
		}
	}

	for _, d := range []struct {
		field  string
		values []string
	}{
		{dataset.ColPathologicN, sel.PathologicN},
		{dataset.ColPathologicM, sel.PathologicM},
		{dataset.ColPathologicT, sel.PathologicT},
		{dataset.ColDiagnosis, sel.Diagnoses},
	} {
		if len(d.values) > 0 {
			preds = append(preds, In(d.field, d.values...))
			continue
		}
		if deny := e.policy.Denylist(d.field); len(deny) > 0 {
			preds = append(preds, NotIn(d.field, deny...))
		}
	}

	if sel.ExpressionMin != nil || sel.ExpressionMax != nil {
		preds = append(preds, Between(dataset.ColExpression, sel.ExpressionMin, sel.ExpressionMax))
	}
	return preds
}

// Apply filters v by sel. Predicates whose field the table does not carry are
// skipped. The result is always a subset of v.
func (e *Engine) Apply(v dataset.View, sel Selection) dataset.View {
	return Apply(v, e.Predicates(sel)...)
}

// Apply filters v by every applicable predicate in a single pass.
func Apply(v dataset.View, preds ...Predicate) dataset.View {
	schema := v.Schema()
	active := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if schema.Has(p.Field()) {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return v
	}
	return v.Filter(func(i int) bool {
		for _, p := range active {
			if !p.Keep(v, i) {
				return false
			}
		}
		return true
	})
}
