package render

import (
	"github.com/bcinsights/bcinsights/internal/aggregate"
	"github.com/bcinsights/bcinsights/internal/survival"
)

// Type names a chart kind understood by the dashboard front end.
type Type string

const (
	TypeLine    Type = "line"
	TypeBar     Type = "bar"
	TypeBox     Type = "box"
	TypeViolin  Type = "violin"
	TypeHeatmap Type = "heatmap"
	TypeSankey  Type = "sankey"
	TypePolar   Type = "polar"
)

// Shape controls how consecutive points of a line are joined.
type Shape string

const (
	ShapeLinear Shape = "linear"
	// ShapeStep holds each value until the next x (horizontal then vertical).
	ShapeStep Shape = "hv"
)

// Series is one trace. Line traces use X/Y, polar traces use Theta/R, and
// survival traces add a Lower/Upper band.
type Series struct {
	Name  string    `json:"name"`
	Shape Shape     `json:"shape,omitempty"`
	X     []float64 `json:"x,omitempty"`
	Y     []float64 `json:"y,omitempty"`
	Lower []float64 `json:"lower,omitempty"`
	Upper []float64 `json:"upper,omitempty"`
	Theta []string  `json:"theta,omitempty"`
	R     []float64 `json:"r,omitempty"`
}

// Bar is one labelled bar.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a renderer-agnostic chart description.
type Chart struct {
	Type   Type   `json:"type"`
	Title  string `json:"title,omitempty"`
	XLabel string `json:"xLabel,omitempty"`
	YLabel string `json:"yLabel,omitempty"`
	ZLabel string `json:"zLabel,omitempty"`

	Series  []Series             `json:"series,omitempty"`
	Bars    []Bar                `json:"bars,omitempty"`
	Boxes   []aggregate.BoxStats `json:"boxes,omitempty"`
	Heatmap *aggregate.Heatmap   `json:"heatmap,omitempty"`
	Sankey  *aggregate.Flow      `json:"sankey,omitempty"`
}

// LineChart plots one line per series.
func LineChart(title, xLabel, yLabel string, series []aggregate.Series) Chart {
	c := Chart{Type: TypeLine, Title: title, XLabel: xLabel, YLabel: yLabel}
	for _, s := range series {
		trace := Series{Name: s.Name, Shape: ShapeLinear, X: make([]float64, len(s.Points)), Y: make([]float64, len(s.Points))}
		for i, p := range s.Points {
			trace.X[i] = p.X
			trace.Y[i] = p.Y
		}
		c.Series = append(c.Series, trace)
	}
	return c
}

// BarChart plots labelled bars in the given order.
func BarChart(title, xLabel, yLabel string, bars []Bar) Chart {
	return Chart{Type: TypeBar, Title: title, XLabel: xLabel, YLabel: yLabel, Bars: bars}
}

// StageBars converts stage counts into bars.
func StageBars(counts []aggregate.StageCount) []Bar {
	bars := make([]Bar, len(counts))
	for i, c := range counts {
		bars[i] = Bar{Label: c.Stage, Value: float64(c.Cases)}
	}
	return bars
}

// BoxChart plots summary boxes; raw values are not shipped.
func BoxChart(title, xLabel, yLabel string, boxes []aggregate.BoxStats) Chart {
	trimmed := make([]aggregate.BoxStats, len(boxes))
	for i, b := range boxes {
		b.Values = nil
		trimmed[i] = b
	}
	return Chart{Type: TypeBox, Title: title, XLabel: xLabel, YLabel: yLabel, Boxes: trimmed}
}

// ViolinChart plots value densities; each box keeps its raw values. label,
// when set, rewrites the display label of each category.
func ViolinChart(title, xLabel, yLabel string, boxes []aggregate.BoxStats, label func(string) string) Chart {
	out := make([]aggregate.BoxStats, len(boxes))
	for i, b := range boxes {
		if label != nil {
			b.Label = label(b.Category)
		}
		out[i] = b
	}
	return Chart{Type: TypeViolin, Title: title, XLabel: xLabel, YLabel: yLabel, Boxes: out}
}

// HeatmapChart plots a cluster × gene matrix.
func HeatmapChart(title string, h aggregate.Heatmap) Chart {
	return Chart{Type: TypeHeatmap, Title: title, XLabel: "Gene", YLabel: "Cluster", ZLabel: "Expression Level", Heatmap: &h}
}

// SankeyChart plots a flow diagram.
func SankeyChart(title string, f aggregate.Flow) Chart {
	return Chart{Type: TypeSankey, Title: title, Sankey: &f}
}

// PolarChart plots closed radar traces.
func PolarChart(title string, series []aggregate.PolarSeries) Chart {
	c := Chart{Type: TypePolar, Title: title}
	for _, s := range series {
		c.Series = append(c.Series, Series{Name: s.Name, Theta: s.Theta, R: s.R})
	}
	return c
}

// SurvivalChart plots one step line per curve with its confidence band.
func SurvivalChart(title, xLabel string, curves []survival.Curve) Chart {
	c := Chart{Type: TypeLine, Title: title, XLabel: xLabel, YLabel: "Survival Probability"}
	for _, curve := range curves {
		n := len(curve.Points)
		trace := Series{
			Name:  curve.Label,
			Shape: ShapeStep,
			X:     make([]float64, n),
			Y:     make([]float64, n),
			Lower: make([]float64, n),
			Upper: make([]float64, n),
		}
		for i, p := range curve.Points {
			trace.X[i] = p.Time
			trace.Y[i] = p.Survival
			trace.Lower[i] = p.Lower
			trace.Upper[i] = p.Upper
		}
		c.Series = append(c.Series, trace)
	}
	return c
}
