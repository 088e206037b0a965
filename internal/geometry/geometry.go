// Package geometry computes derived attributes of claim parcels: geodesic area,
// centroid and bounding box of Polygon/MultiPolygon GeoJSON geometries.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// SquareMetersPerHectare converts Result.AreaM2 to hectares
const SquareMetersPerHectare = 10_000.0

// Result holds the attributes derived from one geometry
type Result struct {
	AreaM2   float64          // Geodesic area
	Centroid orb.Point        // [lon, lat]
	BBox     orb.Bound        // Min = [minLon, minLat], Max = [maxLon, maxLat]
	Shape    orb.MultiPolygon // Parsed shape, Polygon inputs become a single-member MultiPolygon
}

// AreaHa returns the area in hectares
func (r *Result) AreaHa() float64 {
	return r.AreaM2 / SquareMetersPerHectare
}

// BBoxArray returns the bbox as [minLon, minLat, maxLon, maxLat]
func (r *Result) BBoxArray() [4]float64 {
	return [4]float64{r.BBox.Min[0], r.BBox.Min[1], r.BBox.Max[0], r.BBox.Max[1]}
}

// Compute parses a decoded GeoJSON geometry object and derives its attributes.
// Only Polygon and MultiPolygon are accepted; everything else, including
// degenerate or self-intersecting rings, fails with *Error.
func Compute(raw any) (*Result, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newError(KindMalformed, "geometry is not an object")
	}
	typ, _ := obj["type"].(string)

	var shape orb.MultiPolygon
	switch typ {
	case "Polygon":
		poly, err := parsePolygon(obj["coordinates"])
		if err != nil {
			return nil, err
		}
		shape = orb.MultiPolygon{poly}
	case "MultiPolygon":
		list, ok := obj["coordinates"].([]any)
		if !ok || len(list) == 0 {
			return nil, newError(KindMalformed, "multipolygon coordinates must be a non-empty array")
		}
		for i, item := range list {
			poly, err := parsePolygon(item)
			if err != nil {
				return nil, fmt.Errorf("polygon %d: %w", i, err)
			}
			shape = append(shape, poly)
		}
	case "":
		return nil, newError(KindMalformed, "geometry has no type")
	default:
		return nil, newError(KindUnsupportedType, fmt.Sprintf("unsupported geometry type %q", typ))
	}

	var area float64
	for i, poly := range shape {
		a := geo.Area(poly)
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return nil, newError(KindMalformed, "area is not finite")
		}
		if a <= 0 {
			return nil, newError(KindMalformed, fmt.Sprintf("polygon %d has no area left after its holes", i))
		}
		area += a
	}

	return &Result{
		AreaM2:   area,
		Centroid: vertexCentroid(shape),
		BBox:     shape.Bound(),
		Shape:    shape,
	}, nil
}

// parsePolygon converts a GeoJSON polygon coordinate tree and checks every ring
func parsePolygon(raw any) (orb.Polygon, error) {
	rings, ok := raw.([]any)
	if !ok || len(rings) == 0 {
		return nil, newError(KindMalformed, "polygon coordinates must be a non-empty array of rings")
	}

	poly := make(orb.Polygon, 0, len(rings))
	for i, r := range rings {
		ring, err := parseRing(r)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}
		if err := checkRing(ring); err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}
		if i > 0 {
			if err := checkHole(poly[0], ring); err != nil {
				return nil, fmt.Errorf("ring %d: %w", i, err)
			}
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

func parseRing(raw any) (orb.Ring, error) {
	positions, ok := raw.([]any)
	if !ok {
		return nil, newError(KindMalformed, "ring is not an array of positions")
	}
	ring := make(orb.Ring, 0, len(positions))
	for _, p := range positions {
		pt, err := parsePosition(p)
		if err != nil {
			return nil, err
		}
		ring = append(ring, pt)
	}
	return ring, nil
}

func parsePosition(raw any) (orb.Point, error) {
	pos, ok := raw.([]any)
	if !ok || len(pos) < 2 {
		return orb.Point{}, newError(KindMalformed, "position must hold at least [lon, lat]")
	}
	lon, ok1 := toFloat(pos[0])
	lat, ok2 := toFloat(pos[1])
	if !ok1 || !ok2 {
		return orb.Point{}, newError(KindMalformed, "position values must be numbers")
	}
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return orb.Point{}, newError(KindMalformed, "position values must be finite")
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, newError(KindOutOfRange, fmt.Sprintf("position [%g, %g] is outside WGS84 bounds", lon, lat))
	}
	return orb.Point{lon, lat}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// vertexCentroid averages ring vertices, skipping each ring's closing vertex
func vertexCentroid(shape orb.MultiPolygon) orb.Point {
	var sumLon, sumLat float64
	n := 0
	for _, poly := range shape {
		for _, ring := range poly {
			for i, p := range ring {
				if i == len(ring)-1 && ring.Closed() {
					continue
				}
				sumLon += p[0]
				sumLat += p[1]
				n++
			}
		}
	}
	if n == 0 {
		return orb.Point{}
	}
	return orb.Point{sumLon / float64(n), sumLat / float64(n)}
}
