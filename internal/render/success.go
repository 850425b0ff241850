package render

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/banshee-data/registration.report/internal/aggregate"
	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/methods"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoCurves is returned when there is nothing to draw.
var ErrNoCurves = errors.New("no curves to render")

// CurveSeries is one labelled success curve in draw order.
type CurveSeries struct {
	Label string
	Tier  methods.Tier
	Curve *aggregate.Curve
}

// SuccessPlot draws success rate against initial displacement. Baselines are
// dashed, descriptor methods dash-dotted and learned methods solid with a
// glyph per point. Bin edges are drawn as dotted vertical guides.
func SuccessPlot(series []CurveSeries, edges []float64, ds dataset.Dataset, style Style) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, ErrNoCurves
	}

	p := style.newPlot()
	p.X.Label.Text = "Initial displacement d [px]"
	p.Y.Label.Text = "Success rate"
	p.X.Tick.Marker = relativeTicks{width: ds.Width}
	p.Legend.Top = true

	if err := addEdges(p, edges, style); err != nil {
		return nil, err
	}

	glyph := 0
	for i, s := range series {
		if s.Curve == nil {
			continue
		}
		col := style.Color(i)
		segs := segments(s.Curve)
		for j, seg := range segs {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.Label, err)
			}
			line.Color = col
			line.Width = vg.Points(1.5)
			switch s.Tier {
			case methods.Baseline:
				line.Dashes = dashed
			case methods.Descriptor:
				line.Dashes = dashDot
			}
			p.Add(line)

			if s.Tier == methods.Learned {
				pts, err := plotter.NewScatter(seg)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", s.Label, err)
				}
				pts.Color = col
				pts.Radius = vg.Points(3)
				pts.Shape = glyphs[glyph%len(glyphs)]
				p.Add(pts)
				if j == 0 {
					p.Legend.Add(s.Label, line, pts)
				}
			} else if j == 0 {
				p.Legend.Add(s.Label, line)
			}
		}
		if len(segs) == 0 {
			p.Legend.Add(s.Label + " (no data)")
		}
		if s.Tier == methods.Learned {
			glyph++
		}
	}

	applyXRange(p, ds)
	p.Y.Min, p.Y.Max = -0.05, 1.05
	return p, nil
}

// segments splits a curve into runs of defined points; empty bins break the
// line rather than being drawn as zero.
func segments(c *aggregate.Curve) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for _, pt := range c.Points {
		if !pt.Defined() {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: pt.Center, Y: pt.Rate})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func addEdges(p *plot.Plot, edges []float64, style Style) error {
	for _, e := range edges {
		l, err := plotter.NewLine(plotter.XYs{{X: e, Y: -0.05}, {X: e, Y: 1.05}})
		if err != nil {
			return fmt.Errorf("bin edge %v: %w", e, err)
		}
		l.Color = style.Guide
		l.Width = vg.Points(0.75)
		l.Dashes = dotted
		p.Add(l)
	}
	return nil
}

func applyXRange(p *plot.Plot, ds dataset.Dataset) {
	if ds.XMax > ds.XMin {
		p.X.Min, p.X.Max = ds.XMin, ds.XMax
	}
}

// relativeTicks labels displacement ticks with their value relative to the
// image width underneath.
type relativeTicks struct {
	width float64
}

func (t relativeTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	if t.width <= 0 {
		return ticks
	}
	for i, tk := range ticks {
		if tk.Label == "" {
			continue
		}
		ticks[i].Label = tk.Label + "\n(" + strconv.FormatFloat(tk.Value/t.width, 'f', 2, 64) + ")"
	}
	return ticks
}
