package render

import (
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrUnsupportedPNG is returned for chart types without a raster renderer.
var ErrUnsupportedPNG = errors.New("chart type has no PNG renderer")

// ErrNothingToDraw is returned when a chart carries no data.
var ErrNothingToDraw = errors.New("chart has no data to draw")

// PNG rasterises line and bar charts into w.
func PNG(c Chart, width, height int, w io.Writer) error {
	if width <= 0 {
		width = 900
	}
	if height <= 0 {
		height = 500
	}
	switch c.Type {
	case TypeLine:
		return linePNG(c, width, height, w)
	case TypeBar:
		return barPNG(c, width, height, w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedPNG, c.Type)
	}
}

func linePNG(c Chart, width, height int, w io.Writer) error {
	var series []chart.Series
	for i, s := range c.Series {
		xs, ys := s.X, s.Y
		if s.Shape == ShapeStep {
			xs, ys = stairs(xs, ys)
		}
		if len(xs) == 0 {
			continue
		}
		if len(xs) == 1 {
			// go-chart needs a non-zero x range
			xs = []float64{xs[0], xs[0] + 1}
			ys = []float64{ys[0], ys[0]}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   lineStyle(chart.GetDefaultColor(i)),
		})
	}
	if len(series) == 0 {
		return ErrNothingToDraw
	}

	ch := chart.Chart{
		Title:      c.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: c.XLabel},
		YAxis:      chart.YAxis{Name: c.YLabel, Range: yRange(c)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

func barPNG(c Chart, width, height int, w io.Writer) error {
	if len(c.Bars) == 0 {
		return ErrNothingToDraw
	}
	bars := make([]chart.Value, len(c.Bars))
	top := 0.0
	for i, b := range c.Bars {
		bars[i] = chart.Value{Label: b.Label, Value: b.Value}
		top = max(top, b.Value)
	}
	if top == 0 {
		top = 1
	}
	bc := chart.BarChart{
		Title:      c.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   max(8, width/(2*len(bars)+1)),
		BarSpacing: max(4, width/(2*len(bars)+1)),
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1}},
		Bars:       bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func lineStyle(color drawing.Color) chart.Style {
	return chart.Style{StrokeColor: color, StrokeWidth: 2}
}

// yRange pins the y axis so flat series still have a drawable range.
// Probability charts (those carrying a confidence band) always span [0, 1].
func yRange(c Chart) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	first := true
	for _, s := range c.Series {
		if s.Lower != nil {
			return &chart.ContinuousRange{Min: 0, Max: 1}
		}
		for _, y := range s.Y {
			if first || y < lo {
				lo = y
			}
			if first || y > hi {
				hi = y
			}
			first = false
		}
	}
	lo = min(lo, 0)
	if hi <= lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi + (hi-lo)*0.05}
}

// stairs expands a right-continuous step function into polyline vertices.
func stairs(xs, ys []float64) ([]float64, []float64) {
	if len(xs) < 2 {
		return xs, ys
	}
	sx := make([]float64, 0, 2*len(xs))
	sy := make([]float64, 0, 2*len(ys))
	for i := range xs {
		if i > 0 {
			sx = append(sx, xs[i])
			sy = append(sy, ys[i-1])
		}
		sx = append(sx, xs[i])
		sy = append(sy, ys[i])
	}
	return sx, sy
}
