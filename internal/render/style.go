// Package render draws success curves, error scatters and FID comparisons.
//
// Every renderer takes an explicit Style; nothing here touches global
// plotting state, so dark and light artifacts can be produced side by side.
package render

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Style holds the presentation choices for one artifact.
type Style struct {
	Dark       bool
	Background color.Color
	Panel      color.Color
	Foreground color.Color
	Guide      color.Color
	Palette    []color.Color
	Width      vg.Length
	Height     vg.Length
}

// Tableau colour-blind safe palette, used for line and scatter series.
var ColorBlind10 = mustPalette(
	"#006BA4", "#FF800E", "#ABABAB", "#595959", "#5F9ED1",
	"#C85200", "#898989", "#A2C8EC", "#FFBC79", "#CFCFCF",
)

// Paired is the twelve colour paired qualitative palette used for FID plots.
var Paired = mustPalette(
	"#a6cee3", "#1f78b4", "#b2df8a", "#33a02c", "#fb9a99", "#e31a1c",
	"#fdbf6f", "#ff7f00", "#cab2d6", "#6a3d9a", "#ffff99", "#b15928",
)

// DarkStyle returns the dark presentation style.
func DarkStyle() Style {
	return Style{
		Dark:       true,
		Background: mustHex("#181717"),
		Panel:      mustHex("#212020"),
		Foreground: color.White,
		Guide:      color.Gray{Y: 0x80},
		Palette:    ColorBlind10,
		Width:      10 * vg.Inch,
		Height:     7 * vg.Inch,
	}
}

// LightStyle returns the light presentation style.
func LightStyle() Style {
	return Style{
		Background: color.White,
		Panel:      color.White,
		Foreground: color.Black,
		Guide:      color.Gray{Y: 0x80},
		Palette:    ColorBlind10,
		Width:      10 * vg.Inch,
		Height:     7 * vg.Inch,
	}
}

// StyleFor returns DarkStyle or LightStyle.
func StyleFor(dark bool) Style {
	if dark {
		return DarkStyle()
	}
	return LightStyle()
}

// Prefix is prepended to artifact names rendered in this style.
func (s Style) Prefix() string {
	if s.Dark {
		return "dark_"
	}
	return ""
}

// VectorFormat is the vector format written next to every PNG.
func (s Style) VectorFormat() string {
	if s.Dark {
		return "svg"
	}
	return "pdf"
}

// Color returns the i-th palette colour, cycling.
func (s Style) Color(i int) color.Color {
	if len(s.Palette) == 0 {
		return s.Foreground
	}
	return s.Palette[i%len(s.Palette)]
}

// newPlot returns a plot with the style's colours applied to every axis,
// label and legend.
func (s Style) newPlot() *plot.Plot {
	p := plot.New()
	p.BackgroundColor = s.Background
	p.Title.TextStyle.Color = s.Foreground
	p.Legend.TextStyle.Color = s.Foreground
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Color = s.Foreground
		ax.Label.TextStyle.Color = s.Foreground
		ax.Tick.Label.Color = s.Foreground
		ax.Tick.Color = s.Foreground
	}
	return p
}

// AdjustLightness scales the HSL lightness of c by amount, clamped to [0,1].
func AdjustLightness(c color.Color, amount float64) color.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	h, sat, l := cf.Hsl()
	return colorful.Hsl(h, sat, clamp01(l*amount)).Clamped()
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func mustHex(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("render: bad colour %q: %v", s, err))
	}
	return c
}

func mustPalette(hexes ...string) []color.Color {
	out := make([]color.Color, len(hexes))
	for i, h := range hexes {
		out[i] = mustHex(h)
	}
	return out
}

// Line styles by tier.
var (
	dashed  = []vg.Length{vg.Points(6), vg.Points(4)}
	dashDot = []vg.Length{vg.Points(6), vg.Points(3), vg.Points(1.5), vg.Points(3)}
	dotted  = []vg.Length{vg.Points(1.5), vg.Points(3)}
)

// glyphs cycle over learned-method curves.
var glyphs = []draw.GlyphDrawer{
	draw.PyramidGlyph{},
	draw.CrossGlyph{},
	draw.PlusGlyph{},
	draw.BoxGlyph{},
	draw.RingGlyph{},
	draw.CircleGlyph{},
	draw.TriangleGlyph{},
	draw.SquareGlyph{},
}
