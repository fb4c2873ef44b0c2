package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

type point struct{ x, y float64 }

type triangle [3]point

const eps = 1e-12

// ringPoints returns the open exterior ring of p shifted by origin
func ringPoints(p *geom.Polygon, origin point) []point {
	if p == nil || p.NumLinearRings() == 0 {
		return nil
	}
	coords := p.LinearRing(0).Coords()
	out := make([]point, 0, len(coords))
	for _, c := range coords {
		q := point{c.X() - origin.x, c.Y() - origin.y}
		if n := len(out); n > 0 && out[n-1] == q {
			continue
		}
		out = append(out, q)
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return out
}

func signedArea(pts []point) float64 {
	s := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].x*pts[j].y - pts[j].x*pts[i].y
	}
	return s / 2
}

func cross(o, a, b point) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// triangulate splits a simple ring into counter-clockwise triangles by ear
// clipping. A ring that has no ear left (self-intersecting traces) is
// finished as a fan from its first vertex.
func triangulate(ring []point) []triangle {
	if len(ring) < 3 {
		return nil
	}
	pts := append([]point(nil), ring...)
	if signedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	var tris []triangle
	for len(pts) > 3 {
		n := len(pts)
		found := false
		for i := 0; i < n; i++ {
			prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
			c := cross(prev, cur, next)
			if c <= eps {
				if math.Abs(c) <= eps {
					// collinear vertex adds no area
					pts = append(pts[:i], pts[i+1:]...)
					found = true
					break
				}
				continue
			}
			if containsAny(prev, cur, next, pts, i) {
				continue
			}
			tris = append(tris, triangle{prev, cur, next})
			pts = append(pts[:i], pts[i+1:]...)
			found = true
			break
		}
		if !found {
			for k := 1; k+1 < len(pts); k++ {
				t := triangle{pts[0], pts[k], pts[k+1]}
				if cross(t[0], t[1], t[2]) < 0 {
					t[1], t[2] = t[2], t[1]
				}
				tris = append(tris, t)
			}
			return tris
		}
	}
	if len(pts) == 3 && math.Abs(cross(pts[0], pts[1], pts[2])) > eps {
		tris = append(tris, triangle{pts[0], pts[1], pts[2]})
	}
	return tris
}

// containsAny reports whether any other vertex lies inside or on triangle abc
func containsAny(a, b, c point, pts []point, skip int) bool {
	n := len(pts)
	for j, p := range pts {
		if j == skip || j == (skip+n-1)%n || j == (skip+1)%n {
			continue
		}
		if p == a || p == b || p == c {
			continue
		}
		if cross(a, b, p) >= -eps && cross(b, c, p) >= -eps && cross(c, a, p) >= -eps {
			return true
		}
	}
	return false
}

// clipConvex clips subject against the counter-clockwise convex polygon clip
// (Sutherland-Hodgman)
func clipConvex(subject, clip []point) []point {
	out := subject
	for i := range clip {
		if len(out) == 0 {
			return nil
		}
		out = clipHalf(out, clip[i], clip[(i+1)%len(clip)], true)
	}
	return out
}

// clipHalf keeps the part of poly left of the directed line ab, or the part
// right of it when left is false
func clipHalf(poly []point, a, b point, left bool) []point {
	inside := func(p point) bool {
		if left {
			return cross(a, b, p) >= 0
		}
		return cross(a, b, p) <= 0
	}
	out := make([]point, 0, len(poly)+2)
	for j := range poly {
		p, q := poly[j], poly[(j+1)%len(poly)]
		pIn, qIn := inside(p), inside(q)
		switch {
		case pIn && qIn:
			out = append(out, q)
		case pIn && !qIn:
			out = append(out, intersect(a, b, p, q))
		case !pIn && qIn:
			out = append(out, intersect(a, b, p, q), q)
		}
	}
	return out
}

func empty(poly []point) bool {
	return len(poly) < 3 || math.Abs(signedArea(poly)) <= eps
}

// subtractConvex returns p minus the counter-clockwise convex polygon c as
// disjoint convex pieces
func subtractConvex(p, c []point) [][]point {
	var out [][]point
	rest := p
	for i := range c {
		a, b := c[i], c[(i+1)%len(c)]
		if piece := clipHalf(rest, a, b, false); !empty(piece) {
			out = append(out, piece)
		}
		rest = clipHalf(rest, a, b, true)
		if empty(rest) {
			break
		}
	}
	return out
}

// difference removes every convex region of cut from the convex pieces
func difference(pieces, cut [][]point) [][]point {
	for _, c := range cut {
		if len(pieces) == 0 {
			return nil
		}
		cb := bounds(c)
		next := make([][]point, 0, len(pieces))
		for _, p := range pieces {
			if !bounds(p).overlaps(cb) {
				next = append(next, p)
				continue
			}
			next = append(next, subtractConvex(p, c)...)
		}
		pieces = next
	}
	return pieces
}

func triangleRings(tris []triangle) [][]point {
	out := make([][]point, len(tris))
	for i := range tris {
		out[i] = tris[i][:]
	}
	return out
}

func area(pieces [][]point) float64 {
	total := 0.0
	for _, piece := range pieces {
		total += math.Abs(signedArea(piece))
	}
	return total
}

// intersect returns where segment pq crosses the line through ab
func intersect(a, b, p, q point) point {
	d1 := cross(a, b, p)
	d2 := cross(a, b, q)
	t := d1 / (d1 - d2)
	return point{p.x + t*(q.x-p.x), p.y + t*(q.y-p.y)}
}

type box struct{ minX, minY, maxX, maxY float64 }

func bounds(pts []point) box {
	b := box{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, p := range pts {
		b.minX, b.maxX = math.Min(b.minX, p.x), math.Max(b.maxX, p.x)
		b.minY, b.maxY = math.Min(b.minY, p.y), math.Max(b.maxY, p.y)
	}
	return b
}

func (b box) overlaps(o box) bool {
	return b.minX < o.maxX && o.minX < b.maxX && b.minY < o.maxY && o.minY < b.maxY
}

// pieces returns the convex regions shared by two simple polygons, in
// coordinates shifted so the first vertex of a is the origin.
func pieces(a, b *geom.Polygon) ([][]point, point) {
	if a == nil || b == nil || a.NumLinearRings() == 0 || b.NumLinearRings() == 0 {
		return nil, point{}
	}
	if !a.Bounds().Overlaps(geom.XY, b.Bounds()) {
		return nil, point{}
	}
	first := a.LinearRing(0).Coord(0)
	origin := point{first.X(), first.Y()}
	ta := triangulate(ringPoints(a, origin))
	tb := triangulate(ringPoints(b, origin))

	boxesB := make([]box, len(tb))
	for i, t := range tb {
		boxesB[i] = bounds(t[:])
	}
	var out [][]point
	for _, t1 := range ta {
		b1 := bounds(t1[:])
		for j, t2 := range tb {
			if !b1.overlaps(boxesB[j]) {
				continue
			}
			piece := clipConvex(t1[:], t2[:])
			if len(piece) < 3 || math.Abs(signedArea(piece)) <= eps {
				continue
			}
			out = append(out, piece)
		}
	}
	return out, origin
}

// IntersectionArea is the exact shared area of two simple polygons, in the
// square of the polygons' planar units
func IntersectionArea(a, b *geom.Polygon) float64 {
	shared, _ := pieces(a, b)
	return area(shared)
}

// Intersection returns the shared region as convex polygons
func Intersection(a, b *geom.Polygon) []*geom.Polygon {
	shared, origin := pieces(a, b)
	out := make([]*geom.Polygon, 0, len(shared))
	for _, piece := range shared {
		coords := make([]geom.Coord, 0, len(piece)+1)
		for _, p := range piece {
			coords = append(coords, geom.Coord{p.x + origin.x, p.y + origin.y})
		}
		coords = append(coords, coords[0])
		out = append(out, geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{coords}))
	}
	return out
}

