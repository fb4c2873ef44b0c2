// Package geo turns farm GPS traces into polygons and measures overlaps
// between farms and with forest areas.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"cocoa-insights-go/internal/types"
)

var ErrInvalidTrace = errors.New("invalid gps trace")

// ParseTrace reads a Kobo geotrace "lat lon elev acc;lat lon elev acc;..."
// into a lon/lat polygon. Points need at least lat and lon; fewer than three
// points is invalid. The ring is closed when open.
func ParseTrace(trace string) (*geom.Polygon, error) {
	var coords []geom.Coord
	for _, part := range strings.Split(trace, ";") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		lat, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: latitude %q", ErrInvalidTrace, fields[0])
		}
		lon, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: longitude %q", ErrInvalidTrace, fields[1])
		}
		if math.Abs(lat) > 90 || math.Abs(lon) > 180 {
			return nil, fmt.Errorf("%w: point %v %v out of range", ErrInvalidTrace, lat, lon)
		}
		coords = append(coords, geom.Coord{lon, lat})
	}
	if len(coords) < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrInvalidTrace, len(coords))
	}
	if !coords[0].Equal(geom.XY, coords[len(coords)-1]) {
		coords = append(coords, coords[0])
	}
	if len(coords) < 4 {
		return nil, fmt.Errorf("%w: fewer than 3 distinct points", ErrInvalidTrace)
	}
	return geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
}

const earthRadius = 6378137.0

// Mercator projects lon/lat degrees to EPSG:3857 metres
func Mercator(lon, lat float64) (float64, float64) {
	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// Project maps every ring of a lon/lat polygon to Web Mercator
func Project(p *geom.Polygon) *geom.Polygon {
	rings := p.Coords()
	out := make([][]geom.Coord, len(rings))
	for i, ring := range rings {
		out[i] = make([]geom.Coord, len(ring))
		for j, c := range ring {
			x, y := Mercator(c.X(), c.Y())
			out[i][j] = geom.Coord{x, y}
		}
	}
	return geom.NewPolygon(geom.XY).MustSetCoords(out)
}

// AreaHa is the Web Mercator area of a lon/lat polygon in hectares
func AreaHa(p *geom.Polygon) float64 {
	return Project(p).Area() / 10000
}

// Farm is a surveyed polygon with its derived measurements
type Farm struct {
	types.PolygonRow
	Geometry  *geom.Polygon // lon/lat
	Projected *geom.Polygon // EPSG:3857
	AreaHa    float64

	HasOverlap   bool
	OverlapNotes string

	InForest     bool
	ForestPct    float64
	ForestAreaHa float64
	ForestNotes  string
}

// Centroid of the farm polygon in lon/lat
func (f *Farm) Centroid() (geom.Coord, error) {
	return xy.Centroid(f.Geometry)
}

// Contains reports whether a lon/lat point falls inside the farm
func (f *Farm) Contains(lon, lat float64) bool {
	return xy.IsPointInRing(geom.XY, geom.Coord{lon, lat}, f.Geometry.LinearRing(0).FlatCoords())
}

// BuildFarms parses every trace. Rows with an invalid trace are returned
// separately with the parse error.
func BuildFarms(rows []types.PolygonRow) ([]*Farm, map[string]error) {
	farms := make([]*Farm, 0, len(rows))
	invalid := map[string]error{}
	for _, r := range rows {
		g, err := ParseTrace(r.GPSTrace)
		if err != nil {
			invalid[r.PolygonID] = err
			continue
		}
		proj := Project(g)
		farms = append(farms, &Farm{
			PolygonRow:   r,
			Geometry:     g,
			Projected:    proj,
			AreaHa:       proj.Area() / 10000,
			OverlapNotes: "No overlap",
			ForestNotes:  "Forest data not available",
		})
	}
	return farms, invalid
}
