package aggregate

import (
	"sort"
	"strings"

	"github.com/bcinsights/bcinsights/internal/dataset"
)

// LineBreak separates wrapped label lines.
const LineBreak = "<br>"

// Heatmap is a cluster × gene matrix of mean expression.
type Heatmap struct {
	Clusters []string     `json:"clusters"`
	Genes    []string     `json:"genes"`
	Values   [][]*float64 `json:"values"`
	// DominantStage holds the most frequent cancer stage of each cluster row.
	DominantStage []string `json:"dominantStage"`
}

// Empty reports whether the matrix has no cells.
func (h Heatmap) Empty() bool {
	return len(h.Clusters) == 0 || len(h.Genes) == 0
}

// ExpressionHeatmap pivots mean Expression by Cluster (rows, ascending) and
// Gene (columns, ascending). Cells without observations are nil.
func ExpressionHeatmap(v dataset.View) Heatmap {
	cells := Mean(v, dataset.ColExpression, dataset.ColCluster, dataset.ColGene)
	if len(cells) == 0 {
		return Heatmap{}
	}

	var clusters, genes []string
	seenCluster := make(map[string]bool)
	seenGene := make(map[string]bool)
	for _, c := range cells {
		if !seenCluster[c.Keys[0]] {
			seenCluster[c.Keys[0]] = true
			clusters = append(clusters, c.Keys[0])
		}
		if !seenGene[c.Keys[1]] {
			seenGene[c.Keys[1]] = true
			genes = append(genes, c.Keys[1])
		}
	}
	// cells arrive sorted by cluster then gene, so clusters are already ordered
	sort.Strings(genes)
	row := indexOf(clusters)
	col := indexOf(genes)

	h := Heatmap{Clusters: clusters, Genes: genes, Values: make([][]*float64, len(clusters))}
	for i := range h.Values {
		h.Values[i] = make([]*float64, len(genes))
	}
	for _, c := range cells {
		value := c.Value
		h.Values[row[c.Keys[0]]][col[c.Keys[1]]] = &value
	}

	modes := ModeBy(v, dataset.ColCluster, dataset.ColCancerStage)
	h.DominantStage = make([]string, len(clusters))
	for i, cluster := range clusters {
		h.DominantStage[i] = modes[cluster]
	}
	return h
}

// ModeBy returns, per group key, the most frequent non-null value of column.
// Ties resolve to the lexicographically smallest value.
func ModeBy(v dataset.View, key, column string) map[string]string {
	out := make(map[string]string)
	for _, g := range GroupBy(v, key) {
		counts := make(map[string]int)
		for i := 0; i < g.Rows.Len(); i++ {
			if g.Rows.IsNull(column, i) {
				continue
			}
			counts[g.Rows.String(column, i)]++
		}
		best, bestN := "", 0
		for value, n := range counts {
			if n > bestN || n == bestN && value < best {
				best, bestN = value, n
			}
		}
		if bestN > 0 {
			out[g.Keys[0]] = best
		}
	}
	return out
}

// CaseExpression is the mean expression of one case with its staging.
type CaseExpression struct {
	Case            string  `json:"case"`
	CancerStage     string  `json:"cancerStage"`
	PathologicN     string  `json:"pathologicN"`
	PathologicM     string  `json:"pathologicM"`
	PathologicT     string  `json:"pathologicT"`
	PathologicStage string  `json:"pathologicStage"`
	Diagnosis       string  `json:"diagnosis"`
	Expression      float64 `json:"expression"`
}

var caseKeys = []string{
	dataset.ColCase,
	dataset.ColCancerStage,
	dataset.ColPathologicN,
	dataset.ColPathologicM,
	dataset.ColPathologicT,
	dataset.ColPathologicStage,
	dataset.ColDiagnosis,
}

// CaseMeans averages Expression per case and staging combination.
func CaseMeans(v dataset.View) []CaseExpression {
	records := Mean(v, dataset.ColExpression, caseKeys...)
	out := make([]CaseExpression, 0, len(records))
	for _, r := range records {
		out = append(out, CaseExpression{
			Case:            r.Keys[0],
			CancerStage:     r.Keys[1],
			PathologicN:     r.Keys[2],
			PathologicM:     r.Keys[3],
			PathologicT:     r.Keys[4],
			PathologicStage: r.Keys[5],
			Diagnosis:       r.Keys[6],
			Expression:      r.Value,
		})
	}
	return out
}

// StageCount is the number of cases at one cancer stage.
type StageCount struct {
	Stage string `json:"stage"`
	Cases int    `json:"cases"`
}

// StageCounts counts cases per cancer stage, ignoring cases whose pathologic
// stage is "Unknown". Stages are sorted by label.
func StageCounts(cases []CaseExpression) []StageCount {
	counts := make(map[string]int)
	for _, c := range cases {
		if c.PathologicStage == "Unknown" {
			continue
		}
		counts[c.CancerStage]++
	}
	out := make([]StageCount, 0, len(counts))
	for stage, n := range counts {
		out = append(out, StageCount{Stage: stage, Cases: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Stage < out[b].Stage })
	return out
}

// Distribution groups case expression by the category picked out by field
// and returns box statistics per category, sorted by category.
func Distribution(cases []CaseExpression, field func(CaseExpression) string) []BoxStats {
	values := make(map[string][]float64)
	for _, c := range cases {
		category := field(c)
		values[category] = append(values[category], c.Expression)
	}
	categories := make([]string, 0, len(values))
	for c := range values {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]BoxStats, 0, len(categories))
	for _, c := range categories {
		if box, ok := Summarise(c, values[c]); ok {
			out = append(out, box)
		}
	}
	return out
}

// Field selectors for Distribution.
var (
	ByPathologicN = func(c CaseExpression) string { return c.PathologicN }
	ByPathologicM = func(c CaseExpression) string { return c.PathologicM }
	ByPathologicT = func(c CaseExpression) string { return c.PathologicT }
	ByDiagnosis   = func(c CaseExpression) string { return c.Diagnosis }
)

// WrapDiagnosis breaks a diagnosis label for narrow axis ticks. Labels of more
// than three words keep only their first three words, one per line; shorter
// labels put each word on its own line.
func WrapDiagnosis(label string) string {
	words := strings.Split(label, " ")
	if len(words) > 3 {
		return strings.Join(words[:3], LineBreak)
	}
	return strings.ReplaceAll(label, " ", LineBreak)
}
