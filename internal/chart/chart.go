// Package chart draws report figures with gonum/plot and writes them as PNG.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoData = errors.New("chart: no data")

// Report palette
var (
	Green     = color.RGBA{R: 46, G: 204, B: 113, A: 255}
	Orange    = color.RGBA{R: 243, G: 156, B: 18, A: 255}
	Red       = color.RGBA{R: 231, G: 76, B: 60, A: 255}
	Blue      = color.RGBA{R: 52, G: 152, B: 219, A: 255}
	Steel     = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	Coral     = color.RGBA{R: 255, G: 127, B: 80, A: 255}
	Grey      = color.RGBA{R: 149, G: 165, B: 166, A: 255}
	Purple    = color.RGBA{R: 155, G: 89, B: 182, A: 255}
	DarkGreen = color.RGBA{R: 0, G: 100, B: 0, A: 255}
)

// LevelColors maps Good/Medium/Bad labels to their colours
var LevelColors = map[string]color.Color{
	"Good":          Green,
	"Medium":        Orange,
	"Bad":           Red,
	"Improving":     Green,
	"Same Level":    Grey,
	"Deteriorating": Red,
}

// Cycle is used for series without a fixed colour
var Cycle = []color.Color{Blue, Coral, Green, Purple, Orange, Steel, Red, Grey}

// ColorFor returns the level colour for label, or the i-th cycle colour
func ColorFor(label string, i int) color.Color {
	if c, ok := LevelColors[label]; ok {
		return c
	}
	return Cycle[i%len(Cycle)]
}

// Renderer writes plots at a fixed resolution
type Renderer struct {
	DPI int
}

func New(dpi int) *Renderer {
	if dpi <= 0 {
		dpi = 150
	}
	return &Renderer{DPI: dpi}
}

// Save draws one plot to a PNG file
func (r *Renderer) Save(p *plot.Plot, path string, w, h vg.Length) error {
	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.DPI))
	p.Draw(draw.New(img))
	return writePNG(img, path)
}

// SaveGrid tiles plots (rows of equal length) onto one PNG
func (r *Renderer) SaveGrid(path string, plots [][]*plot.Plot, w, h vg.Length) error {
	if len(plots) == 0 || len(plots[0]) == 0 {
		return ErrNoData
	}
	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.DPI))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      len(plots[0]),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}
	return writePNG(img, path)
}

func writePNG(img *vgimg.Canvas, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return fmt.Errorf("encode png %s: %w", path, err)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// Bar is a vertical bar chart with the value printed above each bar
func Bar(title, xLabel, yLabel string, labels []string, values []float64, c color.Color) (*plot.Plot, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}
	p := newPlot(title, xLabel, yLabel)
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(28))
	if err != nil {
		return nil, err
	}
	bars.Color = c
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(labels...)
	p.Y.Min = 0

	if err := addValueLabels(p, values, false); err != nil {
		return nil, err
	}
	return p, nil
}

// HBar is a horizontal bar chart, first label at the bottom
func HBar(title, xLabel string, labels []string, values []float64, c color.Color) (*plot.Plot, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}
	p := newPlot(title, xLabel, "")
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = c
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalY(labels...)
	p.X.Min = 0
	if err := addValueLabels(p, values, true); err != nil {
		return nil, err
	}
	return p, nil
}

func addValueLabels(p *plot.Plot, values []float64, horizontal bool) error {
	xys := make([]plotter.XY, len(values))
	texts := make([]string, len(values))
	for i, v := range values {
		if horizontal {
			xys[i] = plotter.XY{X: v, Y: float64(i)}
		} else {
			xys[i] = plotter.XY{X: float64(i), Y: v}
		}
		texts[i] = fmt.Sprintf("%.1f", v)
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		if horizontal {
			labels.TextStyle[i].XAlign = draw.XLeft
			labels.TextStyle[i].YAlign = draw.YCenter
		}
	}
	p.Add(labels)
	return nil
}

// Series is one coloured set of values across the x categories
type Series struct {
	Name   string
	Values []float64
	Color  color.Color
}

// Stacked stacks series on top of each other per category
func Stacked(title, yLabel string, labels []string, series []Series) (*plot.Plot, error) {
	if len(series) == 0 || len(labels) == 0 {
		return nil, ErrNoData
	}
	p := newPlot(title, "", yLabel)
	var prev *plotter.BarChart
	for i, s := range series {
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), vg.Points(22))
		if err != nil {
			return nil, err
		}
		bars.Color = s.Color
		if bars.Color == nil {
			bars.Color = ColorFor(s.Name, i)
		}
		bars.LineStyle.Width = vg.Length(0)
		if prev != nil {
			bars.StackOn(prev)
		}
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
		prev = bars
	}
	p.Add(plotter.NewGrid())
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = draw.XRight
	p.Legend.Top = true
	p.Y.Min = 0
	return p, nil
}

// Grouped places series side by side per category
func Grouped(title, yLabel string, labels []string, series []Series) (*plot.Plot, error) {
	if len(series) == 0 || len(labels) == 0 {
		return nil, ErrNoData
	}
	p := newPlot(title, "", yLabel)
	w := vg.Points(16)
	n := float64(len(series))
	for i, s := range series {
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), w)
		if err != nil {
			return nil, err
		}
		bars.Color = s.Color
		if bars.Color == nil {
			bars.Color = ColorFor(s.Name, i)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-(n-1)/2) * w
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
	}
	p.Add(plotter.NewGrid())
	p.NominalX(labels...)
	p.Legend.Top = true
	return p, nil
}

// Reference adds a dashed horizontal line at y with a legend entry
func Reference(p *plot.Plot, y float64, label string, c color.Color) {
	line := plotter.NewFunction(func(float64) float64 { return y })
	line.Color = c
	line.Width = vg.Points(1.5)
	line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(line)
	p.Legend.Add(label, line)
	if p.Y.Max < y {
		p.Y.Max = y * 1.1
	}
}

// Scatter plots points with an optional label per point
func Scatter(title, xLabel, yLabel string, pts plotter.XYs, c color.Color) (*plot.Plot, error) {
	if len(pts) == 0 {
		return nil, ErrNoData
	}
	p := newPlot(title, xLabel, yLabel)
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(3)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s, plotter.NewGrid())
	return p, nil
}
