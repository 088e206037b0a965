package dedupe

import (
	"math"

	"github.com/ppiankov/fracheck/internal/model"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for great-circle distance
	EarthRadiusMeters = 6_371_000.0

	DefaultDuplicateMeters = 10.0
	DefaultClusterMeters   = 50.0
)

// Haversine returns the great-circle distance in meters between two points
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Distance returns the distance between two claims. ok is false when either
// claim lacks coordinates.
func Distance(a, b model.ClaimSummary) (meters float64, ok bool) {
	if a.Lat == nil || a.Lon == nil || b.Lat == nil || b.Lon == nil {
		return 0, false
	}
	return Haversine(*a.Lat, *a.Lon, *b.Lat, *b.Lon), true
}

// IsDuplicateCoordinates reports whether two claims sit within thresholdMeters
func IsDuplicateCoordinates(a, b model.ClaimSummary, thresholdMeters float64) bool {
	d, ok := Distance(a, b)
	return ok && d <= thresholdMeters
}

// AreClustered reports whether two claims are near each other. It uses the
// same test as IsDuplicateCoordinates with the wider cluster threshold.
func AreClustered(a, b model.ClaimSummary, thresholdMeters float64) bool {
	return IsDuplicateCoordinates(a, b, thresholdMeters)
}
