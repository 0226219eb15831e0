package aggregate

import (
	"github.com/bcinsights/bcinsights/internal/dataset"
)

// Link is one weighted edge of a flow diagram, by node index.
type Link struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Value  float64 `json:"value"`
}

// Flow is the node and link list of a two-stage sankey diagram.
type Flow struct {
	Nodes []string `json:"nodes"`
	Links []Link   `json:"links"`
}

// LateralityFlow builds laterality → tumor site links. Nodes are the distinct
// lateralities in first-seen order followed by the distinct tumor sites in
// first-seen order; every complete input row becomes one link.
func LateralityFlow(v dataset.View) Flow {
	complete := v.DropNulls(dataset.ColLaterality, dataset.ColTumorSite, dataset.ColCount)
	if complete.Len() == 0 {
		return Flow{}
	}

	sides := complete.Unique(dataset.ColLaterality)
	sites := complete.Unique(dataset.ColTumorSite)
	sideIndex := indexOf(sides)
	siteIndex := indexOf(sites)

	flow := Flow{
		Nodes: append(append([]string(nil), sides...), sites...),
		Links: make([]Link, 0, complete.Len()),
	}
	for i := 0; i < complete.Len(); i++ {
		value, _ := complete.Float(dataset.ColCount, i)
		flow.Links = append(flow.Links, Link{
			Source: sideIndex[complete.String(dataset.ColLaterality, i)],
			Target: len(sides) + siteIndex[complete.String(dataset.ColTumorSite, i)],
			Value:  value,
		})
	}
	return flow
}

// PolarSeries is one closed radar trace.
type PolarSeries struct {
	Name  string    `json:"name"`
	Theta []string  `json:"theta"`
	R     []float64 `json:"r"`
}

// SitesByAgeGroup turns the long (age_group, tumor_site, count) table into one
// radar trace per age group. Counts for a repeated (group, site) pair are
// summed.
func SitesByAgeGroup(v dataset.View) []PolarSeries {
	complete := v.DropNulls(dataset.ColAgeGroup, dataset.ColTumorSite)
	if complete.Len() == 0 {
		return nil
	}

	groupIndex := make(map[string]int)
	siteIndex := make([]map[string]int, 0)
	var out []PolarSeries
	for i := 0; i < complete.Len(); i++ {
		group := complete.String(dataset.ColAgeGroup, i)
		site := complete.String(dataset.ColTumorSite, i)
		count, _ := complete.Float(dataset.ColCount, i)

		g, ok := groupIndex[group]
		if !ok {
			g = len(out)
			groupIndex[group] = g
			out = append(out, PolarSeries{Name: group})
			siteIndex = append(siteIndex, make(map[string]int))
		}
		s, ok := siteIndex[g][site]
		if !ok {
			s = len(out[g].Theta)
			siteIndex[g][site] = s
			out[g].Theta = append(out[g].Theta, site)
			out[g].R = append(out[g].R, 0)
		}
		out[g].R[s] += count
	}
	return out
}

func indexOf(values []string) map[string]int {
	out := make(map[string]int, len(values))
	for i, v := range values {
		out[v] = i
	}
	return out
}
