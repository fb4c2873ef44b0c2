package geo

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"cocoa-insights-go/internal/chart"
)

// Map file names
const (
	MapAllFarms    = "map_1_all_farms.png"
	MapOverlaps    = "map_2_overlaps.png"
	MapForest      = "map_3_forest_areas.png"
	MapBeforeAfter = "map_4_before_after_cleaning.png"
)

func rings(polys ...*geom.Polygon) []plotter.XYs {
	out := make([]plotter.XYs, 0, len(polys))
	for _, p := range polys {
		if p == nil || p.NumLinearRings() == 0 {
			continue
		}
		coords := p.LinearRing(0).Coords()
		xys := make(plotter.XYs, len(coords))
		for i, c := range coords {
			xys[i] = plotter.XY{X: c.X(), Y: c.Y()}
		}
		out = append(out, xys)
	}
	return out
}

func farmRings(farms []*Farm, keep func(*Farm) bool) []plotter.XYs {
	var polys []*geom.Polygon
	for _, f := range farms {
		if keep == nil || keep(f) {
			polys = append(polys, f.Geometry)
		}
	}
	return rings(polys...)
}

func farmLabels(farms []*Farm) plotter.XYLabels {
	var lbl plotter.XYLabels
	for _, f := range farms {
		c, err := f.Centroid()
		if err != nil {
			continue
		}
		lbl.XYs = append(lbl.XYs, plotter.XY{X: c.X(), Y: c.Y()})
		lbl.Labels = append(lbl.Labels, f.PolygonID)
	}
	return lbl
}

func allFarmsMap(farms []*Farm) (*plot.Plot, error) {
	return chart.Map(fmt.Sprintf("All Farms (%d)", len(farms)), []chart.Layer{
		{Name: "Farms", Rings: farmRings(farms, nil), Fill: chart.Translucent(chart.Green, 110), Line: chart.DarkGreen},
	}, farmLabels(farms))
}

func overlapsMap(farms []*Farm, overlaps []Overlap) (*plot.Plot, error) {
	var shared []*geom.Polygon
	for _, o := range overlaps {
		shared = append(shared, o.Shared()...)
	}
	layers := []chart.Layer{
		{Name: "No overlap", Rings: farmRings(farms, func(f *Farm) bool { return !f.HasOverlap }), Fill: chart.Translucent(chart.Grey, 80), Line: chart.Grey},
		{Name: "Overlapping farms", Rings: farmRings(farms, func(f *Farm) bool { return f.HasOverlap }), Fill: chart.Translucent(chart.Orange, 110), Line: chart.Orange},
		{Name: "Overlap area", Rings: rings(shared...), Fill: chart.Translucent(chart.Red, 200), Line: chart.Red, Width: vg.Points(0.3)},
	}
	return chart.Map(fmt.Sprintf("Farm Overlaps (%d cases)", len(overlaps)), layers, plotter.XYLabels{})
}

func forestMap(farms []*Farm, forest *Forest) (*plot.Plot, error) {
	title := "Farms and Forest Areas"
	var layers []chart.Layer
	if forest != nil {
		layers = append(layers, chart.Layer{Name: "Forest", Rings: rings(forest.Polygons...), Fill: chart.Translucent(chart.DarkGreen, 90), Line: chart.DarkGreen})
	} else {
		title += " (forest data not available)"
	}
	layers = append(layers,
		chart.Layer{Name: "Outside forest", Rings: farmRings(farms, func(f *Farm) bool { return !f.InForest }), Fill: chart.Translucent(chart.Steel, 110), Line: chart.Blue},
		chart.Layer{Name: "In forest", Rings: farmRings(farms, func(f *Farm) bool { return f.InForest }), Fill: chart.Translucent(chart.Red, 140), Line: chart.Red},
	)
	return chart.Map(title, layers, plotter.XYLabels{})
}

func beforeAfter(original, cleaned []*Farm) ([][]*plot.Plot, error) {
	kept := make(map[string]bool, len(cleaned))
	for _, f := range cleaned {
		kept[f.PolygonID] = true
	}
	before, err := chart.Map(fmt.Sprintf("Before Cleaning (%d farms)", len(original)), []chart.Layer{
		{Name: "Kept", Rings: farmRings(original, func(f *Farm) bool { return kept[f.PolygonID] }), Fill: chart.Translucent(chart.Green, 110), Line: chart.DarkGreen},
		{Name: "Removed", Rings: farmRings(original, func(f *Farm) bool { return !kept[f.PolygonID] }), Fill: chart.Translucent(chart.Red, 150), Line: chart.Red},
	}, plotter.XYLabels{})
	if err != nil {
		return nil, err
	}
	after, err := chart.Map(fmt.Sprintf("After Cleaning (%d farms)", len(cleaned)), []chart.Layer{
		{Name: "Farms", Rings: farmRings(cleaned, nil), Fill: chart.Translucent(chart.Green, 110), Line: chart.DarkGreen},
	}, plotter.XYLabels{})
	if err != nil {
		return nil, err
	}
	// share the extent so the panels compare
	after.X.Min, after.X.Max = before.X.Min, before.X.Max
	after.Y.Min, after.Y.Max = before.Y.Min, before.Y.Max
	return [][]*plot.Plot{{before, after}}, nil
}

// DrawMaps renders the four maps into dir and returns the files written.
// A map with nothing to draw is skipped.
func DrawMaps(r *chart.Renderer, dir string, original, cleaned []*Farm, overlaps []Overlap, forest *Forest) ([]string, error) {
	var written []string
	save := func(name string, p *plot.Plot, err error) error {
		if errors.Is(err, chart.ErrNoData) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := r.Save(p, path, 10*vg.Inch, 8*vg.Inch); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	p, err := allFarmsMap(original)
	if err := save(MapAllFarms, p, err); err != nil {
		return written, err
	}
	p, err = overlapsMap(original, overlaps)
	if err := save(MapOverlaps, p, err); err != nil {
		return written, err
	}
	p, err = forestMap(original, forest)
	if err := save(MapForest, p, err); err != nil {
		return written, err
	}

	grid, err := beforeAfter(original, cleaned)
	switch {
	case errors.Is(err, chart.ErrNoData):
	case err != nil:
		return written, fmt.Errorf("%s: %w", MapBeforeAfter, err)
	default:
		path := filepath.Join(dir, MapBeforeAfter)
		if err := r.SaveGrid(path, grid, 16*vg.Inch, 8*vg.Inch); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
