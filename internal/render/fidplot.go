package render

import (
	"fmt"
	"image/color"

	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/fid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// errPoints carries both error directions for plotter.NewXErrorBars and
// plotter.NewYErrorBars.
type errPoints struct {
	plotter.XYs
	plotter.XErrors
	plotter.YErrors
}

// FIDPlot draws registration success against FID for each known translation
// model, aAMD as circles and SIFT as crosses. Error bars are drawn for
// datasets evaluated over folds. The train-to-test FID of each modality is
// drawn as a vertical reference.
func FIDPlot(tbl *fid.Table, ds dataset.Dataset, style Style) (*plot.Plot, error) {
	rows := tbl.GANRows()
	if len(rows) == 0 {
		return nil, fmt.Errorf("fid: %w", ErrNoCurves)
	}

	p := style.newPlot()
	p.X.Label.Text = "Fréchet Inception Distance (FID)"
	p.Y.Label.Text = "Registration success rate"
	p.Legend.Top = true

	for i, r := range rows {
		col := style.fidColor(i)
		for k, m := range []struct {
			mean, std float64
			shape     draw.GlyphDrawer
		}{
			{r.SuccessAAMDMean, r.SuccessAAMDStd, draw.CircleGlyph{}},
			{r.SuccessSIFTMean, r.SuccessSIFTStd, draw.CrossGlyph{}},
		} {
			xy := plotter.XYs{{X: r.FIDMean, Y: m.mean}}
			s, err := plotter.NewScatter(xy)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.Method, err)
			}
			s.Color = withAlpha(col, 0.6)
			s.Radius = vg.Points(5)
			s.Shape = m.shape
			p.Add(s)

			if ds.HasFolds {
				bars := errPoints{
					XYs:     xy,
					XErrors: plotter.XErrors{{Low: r.FIDStd, High: r.FIDStd}},
					YErrors: plotter.YErrors{{Low: m.std, High: m.std}},
				}
				xb, err := plotter.NewXErrorBars(bars)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", r.Method, err)
				}
				yb, err := plotter.NewYErrorBars(bars)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", r.Method, err)
				}
				xb.Color, yb.Color = withAlpha(col, 0.3), withAlpha(col, 0.3)
				xb.CapWidth, yb.CapWidth = vg.Points(4), vg.Points(4)
				p.Add(xb, yb)
			}
			if k == 0 {
				p.Legend.Add(r.Method, s)
			}
		}
	}

	next := len(rows)
	for _, name := range []string{fid.BaselineA, fid.BaselineB} {
		row, err := tbl.Get(name)
		if err != nil {
			continue
		}
		l, err := plotter.NewLine(plotter.XYs{{X: row.FIDMean, Y: -0.05}, {X: row.FIDMean, Y: 1.05}})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		l.Color = withAlpha(style.fidColor(next), 0.5)
		l.Dashes = dashed
		p.Add(l)
		p.Legend.Add(name, l)
		next++
	}
	p.Y.Min, p.Y.Max = -0.05, 1.05
	return p, nil
}

// fidColor walks the Paired palette. Light mode alternately darkens and
// brightens the pairs so the pale members stay visible on white.
func (s Style) fidColor(i int) color.Color {
	c := Paired[i%len(Paired)]
	if s.Dark {
		return c
	}
	if i%2 == 0 {
		return AdjustLightness(c, 0.4)
	}
	return AdjustLightness(c, 1.2)
}

func withAlpha(c color.Color, a float64) color.Color {
	r, g, b, a0 := c.RGBA()
	if a0 == 0 {
		return color.Transparent
	}
	unmul := func(v uint32) uint16 { return uint16(v * 0xffff / a0) }
	return color.NRGBA64{R: unmul(r), G: unmul(g), B: unmul(b), A: uint16(a * 0xffff)}
}
