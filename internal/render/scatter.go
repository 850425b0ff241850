package render

import (
	"fmt"
	"math"

	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/results"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Error axis range of the scatter plot in pixels.
const (
	scatterErrMin = 1e-2
	scatterErrMax = 2000
)

// ScatterPlot draws registration error against initial displacement on a
// log error axis, with the identity line and the dataset's success
// threshold. Errors below the axis floor are drawn on the floor; NaN errors
// are not drawn.
func ScatterPlot(rs *results.ResultSet, ds dataset.Dataset, style Style) (*plot.Plot, error) {
	if rs.Len() == 0 {
		return nil, fmt.Errorf("scatter: %w", results.ErrEmptyResultSet)
	}

	pts := make(plotter.XYs, 0, rs.Len())
	xmax := 0.0
	for _, t := range rs.Trials {
		if math.IsNaN(t.Error) || math.IsInf(t.Error, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: t.Displacement, Y: math.Min(math.Max(t.Error, scatterErrMin), scatterErrMax)})
		xmax = math.Max(xmax, t.Displacement)
	}

	p := style.newPlot()
	p.Title.Text = rs.Selector.String()
	p.X.Label.Text = "Initial displacement d [px]"
	p.Y.Label.Text = "Absolute registration error [px]"
	p.X.Tick.Marker = relativeTicks{width: ds.Width}
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Legend.Top = false
	p.Legend.Left = false

	xmin := 0.0
	if ds.XMax > ds.XMin {
		xmin, xmax = ds.XMin, ds.XMax
	}
	if xmax <= xmin {
		xmax = xmin + 1
	}

	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("scatter: %w", err)
		}
		s.Color = withAlpha(style.Color(0), 0.6)
		s.Radius = vg.Points(2)
		s.Shape = draw.CircleGlyph{}
		p.Add(s)
	}

	identity, err := plotter.NewLine(identityLine(xmin, xmax))
	if err != nil {
		return nil, fmt.Errorf("identity line: %w", err)
	}
	identity.Color = style.Guide
	identity.Dashes = dotted
	p.Add(identity)

	th := ds.Threshold()
	threshold, err := plotter.NewLine(plotter.XYs{{X: xmin, Y: th}, {X: xmax, Y: th}})
	if err != nil {
		return nil, fmt.Errorf("threshold line: %w", err)
	}
	threshold.Color = mustHex("#52854C")
	threshold.Width = vg.Points(1.5)
	threshold.Dashes = dashed
	p.Add(threshold)

	p.Legend.Add("success threshold", threshold)
	p.Legend.Add("error = displacement", identity)

	// Fixed ranges are applied last since Add widens the axes to the data.
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = scatterErrMin, scatterErrMax
	return p, nil
}

// identityLine samples y = x over [xmin, xmax], starting at the error axis
// floor since the log axis cannot show zero.
func identityLine(xmin, xmax float64) plotter.XYs {
	const n = 200
	lo := math.Max(xmin, scatterErrMin)
	if xmax <= lo {
		return plotter.XYs{{X: lo, Y: lo}, {X: lo, Y: lo}}
	}
	out := make(plotter.XYs, n)
	for i := range out {
		x := lo + (xmax-lo)*float64(i)/float64(n-1)
		out[i] = plotter.XY{X: x, Y: x}
	}
	return out
}
