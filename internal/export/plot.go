package export

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/fdtdsim/internal/analysis"
	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// Plot sizes in inches.
const (
	plotWidth  = 10
	plotHeight = 5
)

// PlotSeries draws one line per named series against xs. The image format
// follows the file extension: .png, .svg, .pdf and the others plot supports.
func PlotSeries(path, title, xLabel, yLabel string, xs []float64, series map[string][]float64) error {
	if len(series) == 0 {
		return fmt.Errorf("plot %s: nothing to draw", path)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		ys := series[name]
		if len(ys) != len(xs) {
			return fmt.Errorf("plot %s: series %s has %d points for %d x values", path, name, len(ys), len(xs))
		}
		pts := make(plotter.XYs, len(xs))
		for k := range xs {
			pts[k] = plotter.XY{X: xs[k], Y: ys[k]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		if len(names) > 1 {
			p.Legend.Add(name, line)
		}
	}
	return p.Save(plotWidth*vg.Inch, plotHeight*vg.Inch, path)
}

// PlotDetector plots the recorded components of a detector against time in fs.
func PlotDetector(path string, d DetectorData) error {
	xs := make([]float64, len(d.Times))
	for i, t := range d.Times {
		xs[i] = t * 1e15
	}
	return PlotSeries(path, "detector "+d.Name, "time (fs)", "field (SI)", xs, d.Components)
}

// PlotProfile plots field values against position in µm.
func PlotProfile(path, title string, values []float64, spacing float64) error {
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i) * spacing * 1e6
	}
	return PlotSeries(path, title, "position (µm)", "field (V/m)", xs, map[string][]float64{"field": values})
}

// CentreLine samples component c of f along x through the middle of the
// y-z cross-section.
func CentreLine(f fdtd.Field, c fdtd.Axis) []float64 {
	out := make([]float64, f.Shape[0])
	for x := range out {
		out[x] = f.At(x, f.Shape[1]/2, f.Shape[2]/2, c)
	}
	return out
}

// PlotGridProfile plots the current E component c of g along its centre line.
func PlotGridProfile(path string, g *fdtd.Grid, c fdtd.Axis) error {
	title := fmt.Sprintf("E%s at step %d", c, g.TimeStepsPassed())
	return PlotProfile(path, title, CentreLine(g.E(), c), g.Spacing()[0])
}

// PlotSpectrum plots an amplitude spectrum against frequency in THz.
func PlotSpectrum(path, title string, spec analysis.Spectrum) error {
	xs := make([]float64, len(spec.Frequencies))
	for i, f := range spec.Frequencies {
		xs[i] = f / 1e12
	}
	return PlotSeries(path, title, "frequency (THz)", "amplitude", xs, map[string][]float64{"amplitude": spec.Amplitude})
}
