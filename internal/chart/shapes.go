package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// pieChart draws wedges clockwise from twelve o'clock around the data origin
type pieChart struct {
	values []float64
	labels []string
	colors []color.Color
	style  text.Style
}

func (pc *pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	center := vg.Point{X: trX(0), Y: trY(0)}
	r := min(trX(1)-center.X, trY(1)-center.Y)

	total := 0.0
	for _, v := range pc.values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return
	}
	start := math.Pi / 2
	for i, v := range pc.values {
		if v <= 0 {
			continue
		}
		sweep := -v / total * 2 * math.Pi
		var path vg.Path
		path.Move(center)
		path.Line(polar(center, r, start))
		path.Arc(center, r, start, sweep)
		path.Close()
		c.SetColor(pc.colors[i%len(pc.colors)])
		c.Fill(path)

		mid := start + sweep/2
		c.FillText(pc.style, polar(center, r*0.65, mid), fmt.Sprintf("%s %.1f%%", pc.labels[i], v/total*100))
		start += sweep
	}
}

func polar(c vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{X: c.X + r*vg.Length(math.Cos(angle)), Y: c.Y + r*vg.Length(math.Sin(angle))}
}

// swatch is a legend thumbnail filled with one colour
type swatch struct{ color color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.SetColor(s.color)
	c.Fill(c.Rectangle.Path())
}

// Pie draws a pie chart with percentage labels. colors may be nil.
func Pie(title string, labels []string, values []float64, colors []color.Color) (*plot.Plot, error) {
	total := 0.0
	for _, v := range values {
		total += math.Max(v, 0)
	}
	if total == 0 {
		return nil, ErrNoData
	}
	if len(colors) == 0 {
		for i, l := range labels {
			colors = append(colors, ColorFor(l, i))
		}
	}
	p := newPlot(title, "", "")
	p.HideAxes()
	p.X.Min, p.X.Max = -1.15, 1.15
	p.Y.Min, p.Y.Max = -1.15, 1.15

	style := p.X.Tick.Label
	style.XAlign = draw.XCenter
	style.YAlign = draw.YCenter
	style.Font.Size = vg.Points(9)
	p.Add(&pieChart{values: values, labels: labels, colors: colors, style: style})
	for i, l := range labels {
		p.Legend.Add(l, swatch{colors[i%len(colors)]})
	}
	p.Legend.Top = true
	return p, nil
}

// grid adapts a square matrix to plotter.GridXYZ
type grid struct{ values [][]float64 }

func (g grid) Dims() (int, int) { return len(g.values), len(g.values) }
func (g grid) Z(c, r int) float64 {
	if v := g.values[r][c]; !math.IsNaN(v) {
		return v
	}
	return 0
}
func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

// Heatmap draws a correlation matrix on a blue-red scale with cell values
func Heatmap(title string, labels []string, values [][]float64) (*plot.Plot, error) {
	if len(values) < 2 {
		return nil, ErrNoData
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	g := grid{values: values}
	hm := plotter.NewHeatMap(g, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1

	p := newPlot(title, "", "")
	p.Add(hm)
	p.NominalX(labels...)
	p.NominalY(labels...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = draw.XRight

	var xys []plotter.XY
	var texts []string
	for r := range values {
		for c := range values[r] {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			texts = append(texts, fmt.Sprintf("%.2f", values[r][c]))
		}
	}
	cells, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	for i := range cells.TextStyle {
		cells.TextStyle[i].XAlign = draw.XCenter
		cells.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(cells)
	return p, nil
}

// Layer is a named set of polygon rings drawn with one style
type Layer struct {
	Name  string
	Rings []plotter.XYs
	Fill  color.Color
	Line  color.Color
	Width vg.Length
}

// Map draws polygon layers in lon/lat space, first layer at the bottom.
// labels may be empty.
func Map(title string, layers []Layer, labels plotter.XYLabels) (*plot.Plot, error) {
	p := newPlot(title, "Longitude", "Latitude")
	drawn := 0
	for _, l := range layers {
		var first *plotter.Polygon
		for _, ring := range l.Rings {
			if len(ring) < 3 {
				continue
			}
			poly, err := plotter.NewPolygon(ring)
			if err != nil {
				return nil, err
			}
			poly.Color = l.Fill
			poly.LineStyle.Color = l.Line
			poly.LineStyle.Width = l.Width
			if l.Width == 0 {
				poly.LineStyle.Width = vg.Points(0.8)
			}
			p.Add(poly)
			drawn++
			if first == nil {
				first = poly
			}
		}
		if first != nil && l.Name != "" {
			p.Legend.Add(l.Name, first)
		}
	}
	if drawn == 0 {
		return nil, ErrNoData
	}
	if len(labels.XYs) > 0 {
		lbl, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, err
		}
		for i := range lbl.TextStyle {
			lbl.TextStyle[i].XAlign = draw.XCenter
			lbl.TextStyle[i].YAlign = draw.YCenter
			lbl.TextStyle[i].Font.Size = vg.Points(6)
		}
		p.Add(lbl)
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p, nil
}

// Translucent returns c with the given alpha (0-255), premultiplied
func Translucent(c color.Color, alpha uint8) color.Color {
	r, g, b, _ := c.RGBA()
	a := float64(alpha) / 255
	return color.RGBA{
		R: uint8(float64(r>>8) * a),
		G: uint8(float64(g>>8) * a),
		B: uint8(float64(b>>8) * a),
		A: alpha,
	}
}
