package geometry

import "errors"

// Kind classifies a geometry failure
type Kind string

const (
	KindUnsupportedType  Kind = "unsupported_type"  // Not Polygon/MultiPolygon
	KindMalformed        Kind = "malformed"         // Coordinate tree has the wrong shape
	KindOutOfRange       Kind = "out_of_range"      // Coordinates outside WGS84 bounds
	KindUnclosedRing     Kind = "unclosed_ring"     // First and last positions differ
	KindTooFewPoints     Kind = "too_few_points"    // Fewer than 3 distinct vertices
	KindSelfIntersection Kind = "self_intersection" // Ring edges cross
)

// Error is returned for any geometry that cannot be measured
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return "geometry: " + string(e.Kind) + ": " + e.Detail
}

func newError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// KindOf returns the Kind of a geometry error anywhere in err's chain, or ""
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
