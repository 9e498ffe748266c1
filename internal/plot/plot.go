// Package plot draws the largest-cluster fraction against q for a sweep.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/experiment"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no points to plot")

const (
	width  = 1000
	height = 700
)

// Title returns the default chart title for a lattice of side size.
func Title(size int) string {
	return fmt.Sprintf("Axelrod model phase transition (N=%d)", size)
}

// Render writes a PNG with one line per feature count. The dashed lines
// around each mean mark one standard error.
func Render(w io.Writer, title string, series []experiment.Series) error {
	graph, err := build(title, series)
	if err != nil {
		return err
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// WriteFile renders the chart to path.
func WriteFile(path, title string, series []experiment.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}
	if err := Render(f, title, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func build(title string, series []experiment.Series) (*chart.Chart, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	var lines []chart.Series
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, len(s.Points))
		mean := make([]float64, len(s.Points))
		upper := make([]float64, len(s.Points))
		lower := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xs[j] = float64(p.Traits)
			mean[j] = p.Mean
			upper[j] = math.Min(p.Mean+p.StdErr, 1)
			lower[j] = math.Max(p.Mean-p.StdErr, 0)
			lo, hi = math.Min(lo, xs[j]), math.Max(hi, xs[j])
		}

		col := chart.GetDefaultColor(i)
		lines = append(lines,
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("F = %d", s.Features),
				XValues: xs,
				YValues: mean,
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 2.5, DotColor: col, DotWidth: 3},
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("F = %d ± SE", s.Features),
				XValues: xs,
				YValues: upper,
				Style:   chart.Style{StrokeColor: col.WithAlpha(140), StrokeWidth: 1, StrokeDashArray: []float64{4, 3}},
			},
			chart.ContinuousSeries{
				XValues: xs,
				YValues: lower,
				Style:   chart.Style{StrokeColor: col.WithAlpha(140), StrokeWidth: 1, StrokeDashArray: []float64{4, 3}},
			},
		)
	}
	if len(lines) == 0 {
		return nil, ErrNoData
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	graph := &chart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "q (traits per feature)",
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v any) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
			GridMajorStyle: chart.Style{StrokeColor: chart.ColorAlternateGray, StrokeWidth: 0.5},
		},
		YAxis: chart.YAxis{
			Name:  "S_max / N²",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
			ValueFormatter: func(v any) string {
				return fmt.Sprintf("%.1f", v.(float64))
			},
		},
		Series: lines,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(graph)}
	return graph, nil
}
