package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/methods"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HTMLOptions configures the interactive success chart.
type HTMLOptions struct {
	Title    string
	Subtitle string
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

// SuccessHTML renders the success curves as an interactive echarts page.
// Empty bins are emitted as gaps.
func SuccessHTML(w io.Writer, series []CurveSeries, edges []float64, ds dataset.Dataset, style Style, o HTMLOptions) error {
	if len(series) == 0 {
		return ErrNoCurves
	}

	theme := "white"
	if style.Dark {
		theme = "dark"
	}
	title := o.Title
	if title == "" {
		title = ds.Name + " success rate"
	}

	xAxis := opts.XAxis{Type: "value", Name: "Initial displacement d [px]", NameLocation: "middle", NameGap: 30}
	if ds.XMax > ds.XMin {
		xAxis.Min, xAxis.Max = ds.XMin, ds.XMax
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			Theme:           theme,
			Width:           "1000px",
			Height:          "700px",
			BackgroundColor: hexOf(style.Panel),
			AssetsHost:      o.AssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Orient: "vertical", Right: "0", Top: "middle"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Success rate", Min: -0.05, Max: 1.05}),
		charts.WithColorsOpts(paletteHex(style.Palette)),
	)

	for i, s := range series {
		if s.Curve == nil {
			continue
		}
		data := make([]opts.LineData, 0, len(s.Curve.Points))
		for _, pt := range s.Curve.Points {
			if !pt.Defined() {
				data = append(data, opts.LineData{Value: []interface{}{pt.Center, "-"}})
				continue
			}
			data = append(data, opts.LineData{Value: []interface{}{pt.Center, pt.Rate}})
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithLineStyleOpts(opts.LineStyle{Type: lineType(s.Tier), Width: 2}),
			charts.WithLineChartOpts(opts.LineChart{
				ShowSymbol:   opts.Bool(s.Tier == methods.Learned),
				ConnectNulls: opts.Bool(false),
			}),
		}
		if i == 0 && len(edges) > 0 {
			marks := make([]opts.MarkLineNameXAxisItem, len(edges))
			for k, e := range edges {
				marks[k] = opts.MarkLineNameXAxisItem{Name: fmt.Sprintf("edge %d", k), XAxis: e}
			}
			seriesOpts = append(seriesOpts,
				charts.WithMarkLineNameXAxisItemOpts(marks...),
				charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
					Symbol:    []string{"none", "none"},
					LineStyle: &opts.LineStyle{Type: "dotted", Color: "#808080"},
				}),
			)
		}
		line.AddSeries(s.Label, data, seriesOpts...)
	}

	return line.Render(w)
}

func lineType(t methods.Tier) string {
	switch t {
	case methods.Baseline:
		return "dashed"
	case methods.Descriptor:
		return "dotted"
	default:
		return "solid"
	}
}

func hexOf(c color.Color) string {
	if c == nil {
		return ""
	}
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return ""
	}
	return cf.Hex()
}

func paletteHex(p []color.Color) opts.Colors {
	out := make(opts.Colors, 0, len(p))
	for _, c := range p {
		out = append(out, hexOf(c))
	}
	return out
}
