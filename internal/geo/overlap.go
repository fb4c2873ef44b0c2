package geo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/twpayne/go-geom"

	"cocoa-insights-go/internal/categorize"
)

// Overlap is one pair of farms sharing ground
type Overlap struct {
	Polygon1ID  string  `csv:"Polygon 1 ID"`
	Farmer1     string  `csv:"Farmer 1"`
	Area1Ha     float64 `csv:"Area 1 (ha)"`
	Polygon2ID  string  `csv:"Polygon 2 ID"`
	Farmer2     string  `csv:"Farmer 2"`
	Area2Ha     float64 `csv:"Area 2 (ha)"`
	OverlapHa   float64 `csv:"Overlap Area (ha)"`
	OverlapPct  float64 `csv:"Overlap %"`
	Category    string  `csv:"Category"`
	shared      []*geom.Polygon
	first, next *Farm
}

// Shared is the overlapping region in lon/lat, as convex pieces
func (o Overlap) Shared() []*geom.Polygon { return o.shared }

// minOverlapHa ignores pairs that only touch along an edge
const minOverlapHa = 1e-6

// DetectOverlaps compares every pair of farms whose bounding boxes meet.
// The percentage is relative to the smaller farm. Pairs that merely touch
// are not overlaps.
func DetectOverlaps(farms []*Farm) []Overlap {
	var out []Overlap
	for i := 0; i < len(farms); i++ {
		a := farms[i]
		for j := i + 1; j < len(farms); j++ {
			b := farms[j]
			if !a.Projected.Bounds().Overlaps(geom.XY, b.Projected.Bounds()) {
				continue
			}
			areaHa := IntersectionArea(a.Projected, b.Projected) / 10000
			if areaHa <= minOverlapHa {
				continue
			}
			smaller := min(a.AreaHa, b.AreaHa)
			pct := 0.0
			if smaller > 0 {
				pct = min(areaHa/smaller*100, 100)
			}
			out = append(out, Overlap{
				Polygon1ID: a.PolygonID,
				Farmer1:    a.FarmerName,
				Area1Ha:    a.AreaHa,
				Polygon2ID: b.PolygonID,
				Farmer2:    b.FarmerName,
				Area2Ha:    b.AreaHa,
				OverlapHa:  areaHa,
				OverlapPct: pct,
				Category:   categorize.OverlapCategory(pct),
				shared:     Intersection(a.Geometry, b.Geometry),
				first:      a,
				next:       b,
			})
		}
	}
	return out
}

// Annotate sets HasOverlap and the "<category> with <id>" notes on each farm
func Annotate(farms []*Farm, overlaps []Overlap) {
	notes := map[*Farm][]string{}
	for _, o := range overlaps {
		notes[o.first] = append(notes[o.first], fmt.Sprintf("%s with %s", o.Category, o.Polygon2ID))
		notes[o.next] = append(notes[o.next], fmt.Sprintf("%s with %s", o.Category, o.Polygon1ID))
	}
	for _, f := range farms {
		if n, ok := notes[f]; ok {
			f.HasOverlap = true
			f.OverlapNotes = strings.Join(n, "; ")
		} else {
			f.HasOverlap = false
			f.OverlapNotes = "No overlap"
		}
	}
}

// Removal records why a farm was dropped by Clean
type Removal struct {
	PolygonID string  `csv:"Polygon ID"`
	Other     string  `csv:"Kept Polygon ID"`
	Precision float64 `csv:"Precision (m)"`
	OtherPrec float64 `csv:"Kept Precision (m)"`
	Overlap   float64 `csv:"Overlap %"`
}

// Clean drops, for every overlap at or above threshold percent, the farm
// with the worse (higher) GPS precision; on a tie the second farm goes.
// Pairs without precision on both sides are left alone.
func Clean(farms []*Farm, overlaps []Overlap, threshold float64) ([]*Farm, []Removal) {
	removed := map[*Farm]bool{}
	var log []Removal
	for _, o := range overlaps {
		if o.OverlapPct < threshold {
			continue
		}
		p1, p2 := o.first.Precision, o.next.Precision
		if !p1.Valid || !p2.Valid {
			continue
		}
		drop, keep := o.next, o.first
		if p1.Float64 > p2.Float64 {
			drop, keep = o.first, o.next
		}
		if !removed[drop] {
			log = append(log, Removal{
				PolygonID: drop.PolygonID,
				Other:     keep.PolygonID,
				Precision: drop.Precision.Float64,
				OtherPrec: keep.Precision.Float64,
				Overlap:   o.OverlapPct,
			})
		}
		removed[drop] = true
	}
	kept := make([]*Farm, 0, len(farms))
	for _, f := range farms {
		if !removed[f] {
			kept = append(kept, clone(f))
		}
	}
	return kept, log
}

func clone(f *Farm) *Farm {
	c := *f
	return &c
}

// OverlapCounts counts overlap pairs per category, in category order
func OverlapCounts(overlaps []Overlap) map[string]int {
	out := make(map[string]int, len(categorize.OverlapCategories))
	for _, c := range categorize.OverlapCategories {
		out[c] = 0
	}
	for _, o := range overlaps {
		out[o.Category]++
	}
	return out
}

// SortOverlaps orders pairs by overlap percentage, largest first
func SortOverlaps(overlaps []Overlap) {
	sort.SliceStable(overlaps, func(i, j int) bool { return overlaps[i].OverlapPct > overlaps[j].OverlapPct })
}
