package filter

import (
	"sort"
	"strings"
)

// Selection is the user's filter state. The zero value selects nothing
// explicitly, so every field falls back to its policy default.
type Selection struct {
	YearMin int `json:"yearMin,omitempty"`
	YearMax int `json:"yearMax,omitempty"`

	AgeGroups  []string `json:"ageGroups,omitempty"`
	TumorSites []string `json:"tumorSites,omitempty"`
	Stages     []string `json:"stages,omitempty"`

	Genes        []string `json:"genes,omitempty"`
	CancerStages []string `json:"cancerStages,omitempty"`
	PathologicN  []string `json:"pathologicN,omitempty"`
	PathologicM  []string `json:"pathologicM,omitempty"`
	PathologicT  []string `json:"pathologicT,omitempty"`
	Diagnoses    []string `json:"diagnoses,omitempty"`

	ExpressionMin *float64 `json:"expressionMin,omitempty"`
	ExpressionMax *float64 `json:"expressionMax,omitempty"`
}

// IsEmpty reports whether no field carries an explicit choice.
func (s Selection) IsEmpty() bool {
	return s.YearMin == 0 && s.YearMax == 0 &&
		len(s.AgeGroups) == 0 && len(s.TumorSites) == 0 && len(s.Stages) == 0 &&
		len(s.Genes) == 0 && len(s.CancerStages) == 0 &&
		len(s.PathologicN) == 0 && len(s.PathologicM) == 0 && len(s.PathologicT) == 0 &&
		len(s.Diagnoses) == 0 &&
		s.ExpressionMin == nil && s.ExpressionMax == nil
}

// Normalize fills unset year bounds from the policy, intersects the year range
// with the policy range and canonicalises the value lists (trimmed, unique,
// sorted) so equal selections compare and hash equal. Year bounds are never
// reordered: a range that is inverted, or that misses the policy range
// entirely, selects no rows.
func (s Selection) Normalize(p Policy) Selection {
	out := s

	if out.YearMin == 0 || out.YearMin < p.MinYear {
		out.YearMin = p.MinYear
	}
	if out.YearMax == 0 || out.YearMax > p.MaxYear {
		out.YearMax = p.MaxYear
	}

	out.AgeGroups = canonical(s.AgeGroups)
	out.TumorSites = canonical(s.TumorSites)
	out.Stages = canonical(s.Stages)
	out.Genes = canonical(s.Genes)
	out.CancerStages = canonical(s.CancerStages)
	out.PathologicN = canonical(s.PathologicN)
	out.PathologicM = canonical(s.PathologicM)
	out.PathologicT = canonical(s.PathologicT)
	out.Diagnoses = canonical(s.Diagnoses)

	if out.ExpressionMin != nil && out.ExpressionMax != nil && *out.ExpressionMin > *out.ExpressionMax {
		lo, hi := *out.ExpressionMax, *out.ExpressionMin
		out.ExpressionMin, out.ExpressionMax = &lo, &hi
	}
	return out
}

// OrderYears swaps year bounds that were both given and arrive inverted.
// Request parsers apply it to raw input before normalizing.
func (s Selection) OrderYears() Selection {
	if s.YearMin != 0 && s.YearMax != 0 && s.YearMin > s.YearMax {
		s.YearMin, s.YearMax = s.YearMax, s.YearMin
	}
	return s
}

func canonical(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of s.
func (s Selection) Clone() Selection {
	out := s
	for _, p := range []*[]string{
		&out.AgeGroups, &out.TumorSites, &out.Stages, &out.Genes, &out.CancerStages,
		&out.PathologicN, &out.PathologicM, &out.PathologicT, &out.Diagnoses,
	} {
		if *p != nil {
			*p = append([]string(nil), (*p)...)
		}
	}
	if s.ExpressionMin != nil {
		v := *s.ExpressionMin
		out.ExpressionMin = &v
	}
	if s.ExpressionMax != nil {
		v := *s.ExpressionMax
		out.ExpressionMax = &v
	}
	return out
}
