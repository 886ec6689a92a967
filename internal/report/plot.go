package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/slice"
)

// Style is a per-series plot style. Color accepts single-letter names
// ("r", "b", "k"), common color names and "#rrggbb".
type Style struct {
	Marker    string
	Color     string
	LineStyle string
	Label     string
}

// PlotSpec describes one figure.
type PlotSpec struct {
	Title  string
	XLabel string
	YLabel string
	Width  int
	Height int

	// Domain fixes the x-axis range when Domain[0] < Domain[1].
	Domain [2]float64
}

// Figure collects series for one plot.
type Figure struct {
	spec   PlotSpec
	series []chart.Series
}

// NewFigure starts an empty figure.
func NewFigure(spec PlotSpec) *Figure {
	return &Figure{spec: spec}
}

// Len returns the number of series added.
func (f *Figure) Len() int { return len(f.series) }

// Scatter adds s as points only. Empty series are skipped.
func (f *Figure) Scatter(s *slice.Series, style Style) {
	if s.Len() == 0 {
		return
	}
	col := parseColor(style.Color, chart.ColorBlue)
	st := chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    markerSize(style.Marker),
		DotColor:    col,
	}
	sorted := s.Sorted()
	f.series = append(f.series, chart.ContinuousSeries{Name: style.Label, XValues: sorted.Distance, YValues: sorted.Value, Style: st})
}

// Line adds s as a connected line. Empty series are skipped.
func (f *Figure) Line(s *slice.Series, style Style) {
	if s.Len() == 0 {
		return
	}
	st := chart.Style{
		StrokeWidth: 2,
		StrokeColor: parseColor(style.Color, chart.ColorBlack),
	}
	if style.LineStyle == "--" || style.LineStyle == "dashed" {
		st.StrokeDashArray = []float64{6, 4}
	}
	if style.LineStyle == ":" || style.LineStyle == "dotted" {
		st.StrokeDashArray = []float64{2, 3}
	}
	f.series = append(f.series, chart.ContinuousSeries{Name: style.Label, XValues: s.Distance, YValues: s.Value, Style: st})
}

// Render draws the figure as PNG, or SVG when svg is set.
func (f *Figure) Render(w io.Writer, svg bool) error {
	if len(f.series) == 0 {
		return fmt.Errorf("plot %q: no series to draw", f.spec.Title)
	}
	xAxis := chart.XAxis{Name: f.spec.XLabel}
	yAxis := chart.YAxis{Name: f.spec.YLabel}
	xr, yr := f.ranges()
	if xr != nil {
		xAxis.Range = xr
	}
	if yr != nil {
		yAxis.Range = yr
	}
	ch := chart.Chart{
		Title:      f.spec.Title,
		Width:      f.spec.Width,
		Height:     f.spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     f.series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	provider := chart.PNG
	if svg {
		provider = chart.SVG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("render plot %q: %w", f.spec.Title, err)
	}
	return nil
}

// WriteFile renders to path. A ".svg" extension selects SVG, anything else PNG.
func (f *Figure) WriteFile(path string) error {
	var buf bytes.Buffer
	svg := strings.EqualFold(filepath.Ext(path), ".svg")
	if err := f.Render(&buf, svg); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errs.FileAccess("write plot", path, err)
	}
	return nil
}

// ranges returns explicit axis ranges, or nil to let the chart derive one.
// The x range is Domain when set. An axis whose values all coincide gets a
// range widened around that value, since the chart refuses a zero-width axis.
func (f *Figure) ranges() (x, y *chart.ContinuousRange) {
	if f.spec.Domain[0] < f.spec.Domain[1] {
		x = &chart.ContinuousRange{Min: f.spec.Domain[0], Max: f.spec.Domain[1]}
	}
	var xs, ys []float64
	for _, s := range f.series {
		if cs, ok := s.(chart.ContinuousSeries); ok {
			xs = append(xs, cs.XValues...)
			ys = append(ys, cs.YValues...)
		}
	}
	if x == nil {
		x = widen(xs)
	}
	return x, widen(ys)
}

// widen returns a range around v when every value equals it, nil otherwise.
func widen(vs []float64) *chart.ContinuousRange {
	if len(vs) == 0 || floats.Min(vs) != floats.Max(vs) {
		return nil
	}
	v := vs[0]
	pad := math.Abs(v) * 0.1
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: v - pad, Max: v + pad}
}

func markerSize(marker string) float64 {
	switch marker {
	case ".", ",":
		return 2
	case "s", "D", "^", "v":
		return 5
	}
	return 4
}

var namedColors = map[string]drawing.Color{
	"b":       chart.ColorBlue,
	"blue":    chart.ColorBlue,
	"r":       chart.ColorRed,
	"red":     chart.ColorRed,
	"g":       chart.ColorGreen,
	"green":   chart.ColorGreen,
	"k":       chart.ColorBlack,
	"black":   chart.ColorBlack,
	"c":       chart.ColorCyan,
	"cyan":    chart.ColorCyan,
	"y":       chart.ColorYellow,
	"yellow":  chart.ColorYellow,
	"orange":  chart.ColorOrange,
	"m":       {R: 191, G: 0, B: 191, A: 255},
	"magenta": {R: 191, G: 0, B: 191, A: 255},
	"gray":    {R: 128, G: 128, B: 128, A: 255},
	"grey":    {R: 128, G: 128, B: 128, A: 255},
}

func parseColor(s string, fallback drawing.Color) drawing.Color {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	if c, ok := namedColors[s]; ok {
		return c
	}
	if strings.HasPrefix(s, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	}
	return fallback
}
