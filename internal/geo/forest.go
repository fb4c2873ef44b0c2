package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"cocoa-insights-go/internal/logger"
)

var ErrNoForest = errors.New("forest layer has no polygons")

const (
	fetchTimeout = 30 * time.Second
	maxRetryTime = 2 * time.Minute
)

var httpClient = &http.Client{Timeout: fetchTimeout}

// forestPart is one forest polygon in EPSG:3857, split into its exterior
// and hole rings
type forestPart struct {
	outer *geom.Polygon
	holes []*geom.Polygon
}

// Forest is a set of forest polygons. Parts may overlap; shared ground is
// counted once.
type Forest struct {
	Polygons []*geom.Polygon // lon/lat, as loaded
	parts    []forestPart
}

// ParseForest reads a GeoJSON FeatureCollection (or a single Feature) of
// Polygon and MultiPolygon geometries. Other geometry types are ignored.
func ParseForest(data []byte) (*Forest, error) {
	var features []*geojson.Feature
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err == nil && len(fc.Features) > 0 {
		features = fc.Features
	} else {
		var f geojson.Feature
		if ferr := f.UnmarshalJSON(data); ferr != nil {
			if err != nil {
				return nil, fmt.Errorf("decode forest geojson: %w", err)
			}
			return nil, fmt.Errorf("decode forest geojson: %w", ferr)
		}
		features = []*geojson.Feature{&f}
	}

	forest := &Forest{}
	for _, f := range features {
		if f == nil {
			continue
		}
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			forest.add(g)
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				forest.add(g.Polygon(i))
			}
		}
	}
	if len(forest.parts) == 0 {
		return nil, ErrNoForest
	}
	return forest, nil
}

func (f *Forest) add(p *geom.Polygon) {
	if p == nil || p.NumLinearRings() == 0 {
		return
	}
	proj := Project(p).Coords()
	part := forestPart{outer: geom.NewPolygon(geom.XY).MustSetCoords(proj[:1])}
	for _, hole := range proj[1:] {
		part.holes = append(part.holes, geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{hole}))
	}
	f.Polygons = append(f.Polygons, p)
	f.parts = append(f.parts, part)
}

// OverlapHa is the farm area inside the union of forest parts, holes
// excluded
func (f *Forest) OverlapHa(farm *Farm) float64 {
	if f == nil {
		return 0
	}
	var covered [][]point
	for _, part := range f.parts {
		if !part.outer.Bounds().Overlaps(geom.XY, farm.Projected.Bounds()) {
			continue
		}
		shared, origin := pieces(farm.Projected, part.outer)
		if len(shared) == 0 {
			continue
		}
		for _, h := range part.holes {
			shared = difference(shared, triangleRings(triangulate(ringPoints(h, origin))))
		}
		covered = append(covered, difference(shared, covered)...)
	}
	return area(covered) / 10000
}

// LoadForest reads the forest layer from a file path or an http(s) URL.
// Remote fetches are retried with exponential backoff; 4xx responses are
// not retried.
func LoadForest(ctx context.Context, src string, log *logger.Logger) (*Forest, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = fetch(ctx, src, log)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("load forest layer %s: %w", src, err)
	}
	return ParseForest(data)
}

func fetch(ctx context.Context, url string, log *logger.Logger) ([]byte, error) {
	var body []byte
	var lastErr error

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("forest layer request failed")
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = err
			return err
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(b), 200))
			if resp.StatusCode < 500 {
				return backoff.Permanent(lastErr)
			}
			log.WithField("http_status", resp.StatusCode).Warn("forest layer server error")
			return lastErr
		}
		body = b
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxRetryTime

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ForestCover sets the forest share of every farm. A nil forest marks all
// farms as "Forest data not available".
func ForestCover(farms []*Farm, forest *Forest) {
	for _, f := range farms {
		if forest == nil {
			f.InForest, f.ForestPct, f.ForestAreaHa = false, 0, 0
			f.ForestNotes = "Forest data not available"
			continue
		}
		ha := forest.OverlapHa(f)
		if ha <= minOverlapHa {
			f.InForest, f.ForestPct, f.ForestAreaHa = false, 0, 0
			f.ForestNotes = "Not in forest area"
			continue
		}
		pct := 0.0
		if f.AreaHa > 0 {
			pct = min(ha/f.AreaHa*100, 100)
		}
		f.InForest = true
		f.ForestPct = pct
		f.ForestAreaHa = ha
		f.ForestNotes = fmt.Sprintf("%.1f%% in forest area (%.2f ha)", pct, ha)
	}
}

// CountInForest counts farms with any forest overlap
func CountInForest(farms []*Farm) int {
	n := 0
	for _, f := range farms {
		if f.InForest {
			n++
		}
	}
	return n
}
