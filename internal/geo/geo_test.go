package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/xuri/excelize/v2"

	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/types"
)

// square builds a Kobo trace for an axis-aligned square of side deg degrees
func square(lon, lat, deg float64) string {
	pts := [][2]float64{{lat, lon}, {lat, lon + deg}, {lat + deg, lon + deg}, {lat + deg, lon}}
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = fmt.Sprintf("%.6f %.6f 0 5", p[0], p[1])
	}
	return strings.Join(parts, ";")
}

func planar(coords ...float64) *geom.Polygon {
	ring := make([]geom.Coord, 0, len(coords)/2+1)
	for i := 0; i+1 < len(coords); i += 2 {
		ring = append(ring, geom.Coord{coords[i], coords[i+1]})
	}
	ring = append(ring, ring[0])
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}

func TestParseTrace(t *testing.T) {
	p, err := ParseTrace("1.5 -79.2 10 4;1.5 -79.1 10 4;1.6 -79.1 10 4")
	require.NoError(t, err)
	coords := p.LinearRing(0).Coords()
	require.Len(t, coords, 4, "ring is closed")
	assert.Equal(t, geom.Coord{-79.2, 1.5}, coords[0], "lon/lat order")
	assert.Equal(t, coords[0], coords[3])

	closed, err := ParseTrace("0 0;0 1;1 1;0 0")
	require.NoError(t, err)
	assert.Len(t, closed.LinearRing(0).Coords(), 4)

	for _, bad := range []string{
		"",
		"0 0;0 1",
		"0 0;0 1;0 0",
		"0 0;x 1;1 1",
		"95 0;0 1;1 1",
		"0 0;;1",
	} {
		_, err := ParseTrace(bad)
		assert.ErrorIs(t, err, ErrInvalidTrace, bad)
	}
}

func TestAreaHa(t *testing.T) {
	p, err := ParseTrace(square(0, 0, 0.001))
	require.NoError(t, err)
	x, y := Mercator(0.001, 0.001)
	assert.InDelta(t, x*y/10000, AreaHa(p), 1e-9)
	assert.InDelta(t, 1.239, AreaHa(p), 0.01)
}

func TestIntersectionArea(t *testing.T) {
	a := planar(0, 0, 2, 0, 2, 2, 0, 2)
	b := planar(1, 1, 3, 1, 3, 3, 1, 3)
	far := planar(10, 10, 11, 10, 11, 11, 10, 11)
	touching := planar(2, 0, 4, 0, 4, 2, 2, 2)

	assert.InDelta(t, 1.0, IntersectionArea(a, b), 1e-9)
	assert.InDelta(t, IntersectionArea(a, b), IntersectionArea(b, a), 1e-12)
	assert.InDelta(t, 4.0, IntersectionArea(a, a), 1e-9)
	assert.Zero(t, IntersectionArea(a, far))
	assert.InDelta(t, 0, IntersectionArea(a, touching), 1e-9)

	// clockwise input gives the same area
	cw := planar(1, 1, 1, 3, 3, 3, 3, 1)
	assert.InDelta(t, 1.0, IntersectionArea(a, cw), 1e-9)
}

func TestIntersectionConcave(t *testing.T) {
	// L shape with the top-right unit cell missing
	l := planar(0, 0, 2, 0, 2, 1, 1, 1, 1, 2, 0, 2)
	box := planar(0, 0, 2, 0, 2, 2, 0, 2)
	notch := planar(1, 1, 2, 1, 2, 2, 1, 2)
	tri := planar(0, 0, 2, 0, 0, 2)

	assert.InDelta(t, 3.0, IntersectionArea(l, box), 1e-9)
	assert.InDelta(t, 3.0, IntersectionArea(l, l), 1e-9)
	assert.InDelta(t, 0, IntersectionArea(l, notch), 1e-9)
	assert.InDelta(t, 2.0, IntersectionArea(l, tri), 1e-9)
	assert.LessOrEqual(t, IntersectionArea(l, box), min(l.Area(), box.Area())+1e-9)

	total := 0.0
	for _, p := range Intersection(l, box) {
		total += p.Area()
	}
	assert.InDelta(t, 3.0, total, 1e-9)
}

func farmsFixture(t *testing.T) []*Farm {
	t.Helper()
	rows := []types.PolygonRow{
		{PolygonID: "A", FarmerName: "Budi", GPSTrace: square(0, 0, 0.001), Precision: types.Float(5)},
		{PolygonID: "B", FarmerName: "Sari", GPSTrace: square(0.0002, 0, 0.001), Precision: types.Float(3)},
		{PolygonID: "C", FarmerName: "Joko", GPSTrace: square(0.01, 0.01, 0.001)},
		{PolygonID: "D", FarmerName: "Rina", GPSTrace: square(0.00093, 0, 0.001), Precision: types.Float(4)},
		{PolygonID: "E", FarmerName: "Bad", GPSTrace: "0 0;0 1"},
	}
	farms, invalid := BuildFarms(rows)
	require.Len(t, farms, 4)
	require.Contains(t, invalid, "E")
	return farms
}

func TestDetectOverlaps(t *testing.T) {
	farms := farmsFixture(t)
	overlaps := DetectOverlaps(farms)
	require.Len(t, overlaps, 3)

	byPair := map[string]Overlap{}
	for _, o := range overlaps {
		byPair[o.Polygon1ID+o.Polygon2ID] = o
		assert.LessOrEqual(t, o.OverlapHa, min(o.Area1Ha, o.Area2Ha)+1e-9)
	}
	assert.InDelta(t, 80, byPair["AB"].OverlapPct, 1e-3)
	assert.Equal(t, "≥ 50%", byPair["AB"].Category)
	assert.Equal(t, "< 10%", byPair["AD"].Category)
	assert.Equal(t, "26-49%", byPair["BD"].Category)
	assert.NotEmpty(t, byPair["AB"].Shared())

	Annotate(farms, overlaps)
	assert.True(t, farms[0].HasOverlap)
	assert.Equal(t, "≥ 50% with B; < 10% with D", farms[0].OverlapNotes)
	assert.False(t, farms[2].HasOverlap)
	assert.Equal(t, "No overlap", farms[2].OverlapNotes)

	counts := OverlapCounts(overlaps)
	assert.Equal(t, 1, counts["≥ 50%"])
	assert.Equal(t, 0, counts["11-25%"])

	SortOverlaps(overlaps)
	assert.Equal(t, "A", overlaps[0].Polygon1ID)
	assert.Equal(t, "B", overlaps[0].Polygon2ID)
}

func TestCleanRemovesWorsePrecision(t *testing.T) {
	farms := farmsFixture(t)
	overlaps := DetectOverlaps(farms)

	kept, removed := Clean(farms, overlaps, 50)
	require.Len(t, removed, 1)
	assert.Equal(t, "A", removed[0].PolygonID)
	assert.Equal(t, "B", removed[0].Other)
	ids := make([]string, len(kept))
	for i, f := range kept {
		ids[i] = f.PolygonID
	}
	assert.Equal(t, []string{"B", "C", "D"}, ids)

	// lower threshold also resolves B-D, where D is worse
	kept, removed = Clean(farms, overlaps, 25)
	assert.Len(t, removed, 2)
	assert.Len(t, kept, 2)

	// equal precision drops the second polygon
	farms[0].Precision = types.Float(3)
	_, removed = Clean(farms, overlaps, 50)
	require.Len(t, removed, 1)
	assert.Equal(t, "B", removed[0].PolygonID)

	// missing precision leaves the pair alone
	farms[1].Precision = types.NullFloat{}
	kept, removed = Clean(farms, overlaps, 50)
	assert.Empty(t, removed)
	assert.Len(t, kept, 4)
}

const forestJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "reserve"},
     "geometry": {"type": "Polygon", "coordinates": [
       [[0, 0], [0.0005, 0], [0.0005, 0.001], [0, 0.001], [0, 0]]
     ]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[0.02, 0.02], [0.03, 0.02], [0.03, 0.03], [0.02, 0.03], [0.02, 0.02]],
        [[0.021, 0.021], [0.029, 0.021], [0.029, 0.029], [0.021, 0.029], [0.021, 0.021]]]
     ]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Point", "coordinates": [1, 1]}}
  ]
}`

func TestForestCover(t *testing.T) {
	forest, err := ParseForest([]byte(forestJSON))
	require.NoError(t, err)
	assert.Len(t, forest.Polygons, 2)

	rows := []types.PolygonRow{
		{PolygonID: "half", GPSTrace: square(0, 0, 0.001)},
		{PolygonID: "out", GPSTrace: square(0.01, 0.01, 0.001)},
		{PolygonID: "hole", GPSTrace: square(0.024, 0.024, 0.001)},
		{PolygonID: "rim", GPSTrace: square(0.0205, 0.024, 0.001)},
	}
	farms, _ := BuildFarms(rows)
	ForestCover(farms, forest)

	assert.True(t, farms[0].InForest)
	assert.InDelta(t, 50, farms[0].ForestPct, 1e-3)
	assert.True(t, strings.HasPrefix(farms[0].ForestNotes, "50.0% in forest area ("), farms[0].ForestNotes)
	assert.False(t, farms[1].InForest)
	assert.Equal(t, "Not in forest area", farms[1].ForestNotes)
	assert.False(t, farms[2].InForest, "inside a hole")
	assert.True(t, farms[3].InForest)
	assert.InDelta(t, 50, farms[3].ForestPct, 1e-3)
	assert.Equal(t, 2, CountInForest(farms))

	ForestCover(farms, nil)
	assert.Equal(t, "Forest data not available", farms[0].ForestNotes)
	assert.Zero(t, CountInForest(farms))

	_, err = ParseForest([]byte(`{"type":"FeatureCollection","features":[]}`))
	assert.Error(t, err)
	_, err = ParseForest([]byte(`not json`))
	assert.Error(t, err)
}

func strip(lon0, lon1 float64) string {
	return fmt.Sprintf(`{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [
  [[%[1]g, 0], [%[2]g, 0], [%[2]g, 0.01], [%[1]g, 0.01], [%[1]g, 0]]]}}`, lon0, lon1)
}

func TestForestCoverOverlappingParts(t *testing.T) {
	tests := []struct {
		name     string
		features []string
		pct      float64
	}{
		{"duplicated feature", []string{strip(0, 0.005), strip(0, 0.005)}, 50},
		{"partly overlapping", []string{strip(0, 0.005), strip(0.0025, 0.0075)}, 75},
		{"nested", []string{strip(0, 0.008), strip(0.002, 0.004)}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest, err := ParseForest([]byte(`{"type": "FeatureCollection", "features": [` + strings.Join(tt.features, ",") + `]}`))
			require.NoError(t, err)

			farms, _ := BuildFarms([]types.PolygonRow{{PolygonID: "sq", GPSTrace: square(0, 0, 0.01)}})
			require.Len(t, farms, 1)
			ForestCover(farms, forest)

			assert.True(t, farms[0].InForest)
			assert.InDelta(t, tt.pct, farms[0].ForestPct, 1e-3)
			assert.InDelta(t, farms[0].AreaHa*tt.pct/100, farms[0].ForestAreaHa, 1e-3)
		})
	}
}

func TestLoadForestRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.geojson":
			http.NotFound(w, r)
		default:
			if atomic.AddInt32(&calls, 1) == 1 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(forestJSON))
		}
	}))
	defer srv.Close()

	forest, err := LoadForest(context.Background(), srv.URL+"/forest.geojson", logger.Discard())
	require.NoError(t, err)
	assert.Len(t, forest.Polygons, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = LoadForest(context.Background(), srv.URL+"/missing.geojson", logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	path := filepath.Join(t.TempDir(), "forest.geojson")
	require.NoError(t, os.WriteFile(path, []byte(forestJSON), 0o644))
	forest, err = LoadForest(context.Background(), path, logger.Discard())
	require.NoError(t, err)
	assert.Len(t, forest.Polygons, 2)
}

func TestOutputs(t *testing.T) {
	dir := t.TempDir()
	farms := farmsFixture(t)
	overlaps := DetectOverlaps(farms)
	Annotate(farms, overlaps)
	ForestCover(farms, nil)
	kept, _ := Clean(farms, overlaps, 50)
	stats := Summarize(farms, kept, overlaps)

	assert.Equal(t, 4, stats.TotalOriginal)
	assert.Equal(t, 3, stats.TotalCleaned)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 3, stats.FarmsWithOverlap)
	assert.Equal(t, 3, stats.OverlapCases)
	assert.Len(t, stats.Metrics(), 10)

	analysis := filepath.Join(dir, "analysis.xlsx")
	require.NoError(t, WriteAnalysis(analysis, farms, overlaps, stats))
	f, err := excelize.OpenFile(analysis)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Farm Summary", "Overlaps Detail", "Summary Statistics"}, f.GetSheetList())
	rows, err := f.GetRows("Overlaps Detail")
	require.NoError(t, err)
	assert.Equal(t, "Polygon 1 ID", rows[0][0])
	assert.Equal(t, "Category", rows[0][8])
	assert.Len(t, rows, 4)

	cleaned := filepath.Join(dir, "cleaned.xlsx")
	require.NoError(t, WriteCleaned(cleaned, kept))
	cf, err := excelize.OpenFile(cleaned)
	require.NoError(t, err)
	defer cf.Close()
	assert.Equal(t, []string{"Cleaned Farms"}, cf.GetSheetList())

	gj := filepath.Join(dir, "cleaned.geojson")
	require.NoError(t, WriteGeoJSON(gj, kept))
	b, err := os.ReadFile(gj)
	require.NoError(t, err)
	var fc geojson.FeatureCollection
	require.NoError(t, fc.UnmarshalJSON(b))
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "B", fc.Features[0].Properties["polygon_id"])
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	sb.WriteString("ID Petani,ID Kebun,Polygon Area,_Lokasi Kebun_precision\n")
	sb.WriteString("Budi,A," + square(0, 0, 0.001) + ",5\n")
	sb.WriteString("Sari,B," + square(0.0002, 0, 0.001) + ",3\n")
	sb.WriteString("Joko,C," + square(0.01, 0.01, 0.001) + ",4\n")
	sb.WriteString("Bad,X,0 0;0 1,4\n")
	input := filepath.Join(dir, "polygons.csv")
	require.NoError(t, os.WriteFile(input, []byte(sb.String()), 0o644))

	forestPath := filepath.Join(dir, "forest.geojson")
	require.NoError(t, os.WriteFile(forestPath, []byte(forestJSON), 0o644))

	cfg := &config.Config{
		ResultsDir:   filepath.Join(dir, "results"),
		CleanedDir:   filepath.Join(dir, "cleaned"),
		PolygonInput: input,
		GeoConfig:    config.GeoConfig{OverlapCleanThreshold: 50, ForestLayer: forestPath},
		ChartConfig:  config.ChartConfig{DPI: 40},
	}
	res, err := Run(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)

	assert.Len(t, res.Farms, 3)
	assert.Len(t, res.Invalid, 1)
	assert.Len(t, res.Overlaps, 1)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "A", res.Removed[0].PolygonID)
	// A and B both reach into the reserve; only B survives cleaning
	assert.Equal(t, 2, res.Stats.ForestOriginal)
	assert.Equal(t, 1, res.Stats.ForestCleaned)

	for _, name := range []string{MapAllFarms, MapOverlaps, MapForest, MapBeforeAfter} {
		assert.FileExists(t, filepath.Join(cfg.ResultsDir, Exercise, name))
	}
	matches, err := filepath.Glob(filepath.Join(cfg.CleanedDir, Exercise, "cleaned_cocoa_farms_*.geojson"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
