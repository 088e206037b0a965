package validate

import (
	"fmt"

	"github.com/ppiankov/fracheck/internal/dedupe"
	"github.com/ppiankov/fracheck/internal/model"
)

// Region is a lat/lon box that extracted coordinates are expected to fall in
type Region struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// IndiaRegion is a rough bounding box of India
var IndiaRegion = Region{MinLat: 6, MaxLat: 37, MinLon: 68, MaxLon: 97}

// Contains reports whether the point lies inside the box, edges included
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// LowExtractionConfidence is the extraction confidence below which a claim
// is marked for manual reading
const LowExtractionConfidence = 0.5

// ClaimChecker validates claims produced by text extraction
type ClaimChecker struct {
	detector *dedupe.Detector
	region   Region
}

// NewClaimChecker creates a checker. A nil detector uses default thresholds.
func NewClaimChecker(detector *dedupe.Detector, region Region) *ClaimChecker {
	if detector == nil {
		detector = dedupe.NewDetector(dedupe.Options{})
	}
	return &ClaimChecker{detector: detector, region: region}
}

// ValidateClaims checks every claim for missing and invalid fields, duplicates
// of an earlier claim, clustering with any other claim, coordinates outside the
// region and low extraction confidence
func (c *ClaimChecker) ValidateClaims(claims []model.ExtractedClaim) []model.ValidatedClaim {
	summaries := make([]model.ClaimSummary, len(claims))
	for i, claim := range claims {
		summaries[i] = claim.Summary(fmt.Sprintf("%d", i+1))
	}

	out := make([]model.ValidatedClaim, len(claims))
	for i, claim := range claims {
		v := model.ClaimValidation{
			MissingFields: []string{},
			InvalidFields: []string{},
			Explanations:  []string{},
		}

		for _, f := range []struct {
			name, value, label string
		}{
			{"name", claim.Name, "Claimant name"},
			{"village", claim.Village, "Village name"},
			{"district", claim.District, "District"},
			{"state", claim.State, "State"},
		} {
			if f.value == "" {
				v.MissingFields = append(v.MissingFields, f.name)
				v.Explanations = append(v.Explanations, f.label+" is missing")
			}
		}

		if claim.Lat != nil && (*claim.Lat < -90 || *claim.Lat > 90) {
			v.InvalidFields = append(v.InvalidFields, "lat")
			v.Explanations = append(v.Explanations, fmt.Sprintf("Latitude %g is out of valid range (-90 to 90)", *claim.Lat))
		}
		if claim.Lon != nil && (*claim.Lon < -180 || *claim.Lon > 180) {
			v.InvalidFields = append(v.InvalidFields, "lon")
			v.Explanations = append(v.Explanations, fmt.Sprintf("Longitude %g is out of valid range (-180 to 180)", *claim.Lon))
		}
		if claim.ExtentHa != nil && *claim.ExtentHa < 0 {
			v.InvalidFields = append(v.InvalidFields, "extent_ha")
			v.Explanations = append(v.Explanations, "Area cannot be negative")
		}

		for j := 0; j < i; j++ {
			if c.detector.IsDuplicate(summaries[i], summaries[j]) {
				v.Duplicate = true
				v.Explanations = append(v.Explanations, fmt.Sprintf("Possible duplicate of claim %d", j+1))
				break
			}
		}

		for j := range summaries {
			if i != j && c.detector.AreClustered(summaries[i], summaries[j]) {
				v.ClusterFlag = true
				v.Explanations = append(v.Explanations, fmt.Sprintf("Clustered with claim %d (within %gm)", j+1, c.detector.Options().ClusterMeters))
				break
			}
		}

		if claim.Lat != nil && claim.Lon != nil && !c.region.Contains(*claim.Lat, *claim.Lon) {
			v.OutOfRegion = true
			v.Explanations = append(v.Explanations, "Coordinates appear to be outside the expected region")
		}

		if claim.ExtractionConfidence < LowExtractionConfidence {
			v.LowConfidence = true
			v.Explanations = append(v.Explanations, fmt.Sprintf("Low extraction confidence (%.0f%%)", claim.ExtractionConfidence*100))
		}

		out[i] = model.ValidatedClaim{ExtractedClaim: claim, Validation: v}
	}
	return out
}

// SummarizeClaims counts validation outcomes. A claim is valid when it has no
// missing or invalid fields, is not a duplicate and was extracted confidently.
func SummarizeClaims(claims []model.ValidatedClaim) model.ClaimStats {
	stats := model.ClaimStats{Total: len(claims)}
	for _, c := range claims {
		v := c.Validation
		if len(v.MissingFields) == 0 && len(v.InvalidFields) == 0 && !v.Duplicate && !v.LowConfidence {
			stats.Valid++
		}
		if len(v.InvalidFields) > 0 {
			stats.Invalid++
		}
		if c.Lat == nil || c.Lon == nil {
			stats.MissingCoordinates++
		}
		if v.Duplicate {
			stats.Duplicates++
		}
		if v.ClusterFlag {
			stats.Clustered++
		}
	}
	return stats
}
