package score

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/ppiankov/fracheck/internal/geometry"
)

// OverlapStrategy scores a measured parcel against the other parcels of its
// batch. footprints[index] is never nil when Score is called; other entries
// are nil where geometry was not measured. Implementations must not modify
// footprints.
type OverlapStrategy interface {
	Score(index int, footprints []orb.MultiPolygon) float64
}

// Strategy names accepted by ParseOverlap
const (
	OverlapConstant     = "constant"
	OverlapIntersection = "intersection"
)

// ConstantOverlap awards the full overlap weight without looking at siblings
type ConstantOverlap struct{}

// Score implements OverlapStrategy
func (ConstantOverlap) Score(int, []orb.MultiPolygon) float64 {
	return OverlapWeight
}

// IntersectionOverlap awards the full overlap weight only when the parcel
// shares no interior area with any sibling
type IntersectionOverlap struct{}

// Score implements OverlapStrategy
func (IntersectionOverlap) Score(index int, footprints []orb.MultiPolygon) float64 {
	self := footprints[index]
	for i, other := range footprints {
		if i == index || other == nil {
			continue
		}
		if geometry.Overlaps(self, other) {
			return 0
		}
	}
	return OverlapWeight
}

// ParseOverlap returns the strategy with the given name. Empty selects constant.
func ParseOverlap(name string) (OverlapStrategy, error) {
	switch name {
	case "", OverlapConstant:
		return ConstantOverlap{}, nil
	case OverlapIntersection:
		return IntersectionOverlap{}, nil
	}
	return nil, fmt.Errorf("unknown overlap strategy %q (want %s or %s)", name, OverlapConstant, OverlapIntersection)
}
