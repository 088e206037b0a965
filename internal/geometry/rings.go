package geometry

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// checkRing enforces closure, at least 3 distinct vertices and no self-crossing
func checkRing(ring orb.Ring) error {
	if len(ring) < 4 {
		return newError(KindTooFewPoints, fmt.Sprintf("ring has %d positions, need at least 4", len(ring)))
	}
	if !ring.Closed() {
		return newError(KindUnclosedRing, "first and last positions differ")
	}

	distinct := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring[:len(ring)-1] {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return newError(KindTooFewPoints, fmt.Sprintf("ring has %d distinct vertices, need at least 3", len(distinct)))
	}

	if i, j, ok := selfIntersection(compact(ring)); ok {
		return newError(KindSelfIntersection, fmt.Sprintf("edges %d and %d intersect", i, j))
	}
	return nil
}

// checkHole requires a hole to lie within its shell. Vertices on the shell
// boundary are allowed, crossing edges are not.
func checkHole(shell, hole orb.Ring) error {
	for _, p := range hole {
		if !planar.RingContains(shell, p) {
			return newError(KindMalformed, fmt.Sprintf("hole vertex [%g, %g] lies outside the shell", p[0], p[1]))
		}
	}
	if edgesCross(orb.Polygon{shell}, orb.Polygon{hole}) {
		return newError(KindMalformed, "hole edge crosses the shell")
	}
	return nil
}

// compact drops consecutive repeated vertices so zero-length edges do not
// register as contacts between their neighbours
func compact(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(ring))
	for i, p := range ring {
		if i > 0 && p == ring[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// selfIntersection looks for any pair of non-adjacent edges that touch.
// ring must be closed.
func selfIntersection(ring orb.Ring) (int, int, bool) {
	edges := len(ring) - 1
	for i := 0; i < edges; i++ {
		for j := i + 2; j < edges; j++ {
			if i == 0 && j == edges-1 {
				continue // first and last edge share the closing vertex
			}
			if segmentsTouch(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

// segmentsTouch reports whether segments ab and cd share any point
func segmentsTouch(a, b, c, d orb.Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if ((o1 > 0 && o2 < 0) || (o1 < 0 && o2 > 0)) && ((o3 > 0 && o4 < 0) || (o3 < 0 && o4 > 0)) {
		return true
	}
	switch {
	case o1 == 0 && onSegment(a, b, c):
		return true
	case o2 == 0 && onSegment(a, b, d):
		return true
	case o3 == 0 && onSegment(c, d, a):
		return true
	case o4 == 0 && onSegment(c, d, b):
		return true
	}
	return false
}

// segmentsCross reports a proper crossing, where each segment has endpoints
// strictly on opposite sides of the other. Shared borders do not cross.
func segmentsCross(a, b, c, d orb.Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)
	return ((o1 > 0 && o2 < 0) || (o1 < 0 && o2 > 0)) && ((o3 > 0 && o4 < 0) || (o3 < 0 && o4 > 0))
}

// Overlaps reports whether two parcels share interior area. Parcels that only
// share a border are not overlapping.
func Overlaps(a, b orb.MultiPolygon) bool {
	if len(a) == 0 || len(b) == 0 || !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, pa := range a {
		for _, pb := range b {
			if edgesCross(pa, pb) {
				return true
			}
		}
	}
	return sharedInteriorPoint(a, b)
}

func edgesCross(a, b orb.Polygon) bool {
	for _, ra := range a {
		for i := 0; i+1 < len(ra); i++ {
			for _, rb := range b {
				for j := 0; j+1 < len(rb); j++ {
					if segmentsCross(ra[i], ra[i+1], rb[j], rb[j+1]) {
						return true
					}
				}
			}
		}
	}
	return false
}

// sharedInteriorPoint sweeps horizontal lines between consecutive vertex
// latitudes. Between two such lines no edge starts or ends, so any region the
// parcels share is cut by the middle line, and the midpoint of each span
// between neighbouring edge crossings lies strictly inside or outside both.
func sharedInteriorPoint(a, b orb.MultiPolygon) bool {
	var ys []float64
	for _, mp := range []orb.MultiPolygon{a, b} {
		for _, poly := range mp {
			for _, ring := range poly {
				for _, p := range ring {
					ys = append(ys, p[1])
				}
			}
		}
	}
	slices.Sort(ys)
	ys = slices.Compact(ys)

	for k := 0; k+1 < len(ys); k++ {
		y := (ys[k] + ys[k+1]) / 2
		xs := append(crossings(a, y), crossings(b, y)...)
		slices.Sort(xs)
		xs = slices.Compact(xs)
		for m := 0; m+1 < len(xs); m++ {
			pt := orb.Point{(xs[m] + xs[m+1]) / 2, y}
			if planar.MultiPolygonContains(a, pt) && planar.MultiPolygonContains(b, pt) {
				return true
			}
		}
	}
	return false
}

// crossings returns the longitudes where ring edges of mp cross latitude y
func crossings(mp orb.MultiPolygon, y float64) []float64 {
	var xs []float64
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 0; i+1 < len(ring); i++ {
				p, q := ring[i], ring[i+1]
				if (p[1] > y) == (q[1] > y) {
					continue
				}
				xs = append(xs, p[0]+(y-p[1])*(q[0]-p[0])/(q[1]-p[1]))
			}
		}
	}
	return xs
}
