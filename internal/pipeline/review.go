package pipeline

import (
	"fmt"
	"math"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/score"
)

// Band selects features by confidence tier for review
type Band string

const (
	BandAll    Band = "all"
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// ParseBand resolves a band name. Empty selects all.
func ParseBand(s string) (Band, error) {
	switch b := Band(s); b {
	case "":
		return BandAll, nil
	case BandAll, BandHigh, BandMedium, BandLow:
		return b, nil
	}
	return "", fmt.Errorf("unknown band %q", s)
}

// FilterByBand returns the features whose confidence falls in band
func FilterByBand(features []model.ProcessedFeature, band Band) []model.ProcessedFeature {
	out := make([]model.ProcessedFeature, 0, len(features))
	for _, f := range features {
		if band == BandAll || string(score.TierFor(f.Confidence)) == string(band) {
			out = append(out, f)
		}
	}
	return out
}

// Reasons a claim is skipped by BulkAccept
const (
	SkipNotFound      = "not_found"
	SkipLowConfidence = "low_confidence"
)

// Skipped is a claim BulkAccept did not accept
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// AcceptResult lists the outcome of a bulk accept
type AcceptResult struct {
	Accepted []string  `json:"accepted_ids"`
	Skipped  []Skipped `json:"skipped"`
}

// BulkAccept accepts the named claims. Claims below the high tier are skipped
// unless force is set.
func BulkAccept(features []model.ProcessedFeature, ids []string, force bool) AcceptResult {
	byID := make(map[string]model.ProcessedFeature, len(features))
	for _, f := range features {
		byID[f.Properties.ClaimID] = f
	}

	res := AcceptResult{Accepted: []string{}, Skipped: []Skipped{}}
	for _, id := range ids {
		f, ok := byID[id]
		switch {
		case !ok:
			res.Skipped = append(res.Skipped, Skipped{ID: id, Reason: SkipNotFound})
		case f.Confidence < score.HighThreshold && !force:
			res.Skipped = append(res.Skipped, Skipped{ID: id, Reason: SkipLowConfidence})
		default:
			res.Accepted = append(res.Accepted, id)
		}
	}
	return res
}

// ErrNoFeatures is the token reported when there is nothing to frame
const ErrNoFeatures = "no_features"

// Bounds returns the union bbox [minLon, minLat, maxLon, maxLat] of the
// measured features. ok is false when none was measured.
func Bounds(features []model.ProcessedFeature) (bbox [4]float64, ok bool) {
	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, f := range features {
		b := f.Properties.BBox
		if b == nil {
			continue
		}
		minLon, minLat = math.Min(minLon, b[0]), math.Min(minLat, b[1])
		maxLon, maxLat = math.Max(maxLon, b[2]), math.Max(maxLat, b[3])
		ok = true
	}
	if !ok {
		return bbox, false
	}
	return [4]float64{minLon, minLat, maxLon, maxLat}, true
}
