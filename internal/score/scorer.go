package score

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/ppiankov/fracheck/internal/model"
)

// Component weights
const (
	GeometryOK         = 0.5 // Geometry measured successfully
	GeometryFailed     = 0.2 // Geometry missing, unsupported or unmeasurable
	CompletenessWeight = 0.4 // Scaled by the share of filled completeness fields
	OverlapWeight      = 0.1 // Maximum overlap component
)

// Tier thresholds
const (
	HighThreshold   = 0.85
	MediumThreshold = 0.5
)

// Formula describes how Total is derived from the components
const Formula = "min(1, geometry(0.5 ok | 0.2 failed) + filled_fields/4 * 0.4 + overlap(<= 0.1))"

// Scorer calculates feature confidence
type Scorer struct {
	overlap OverlapStrategy
}

// NewScorer creates a scorer. A nil strategy selects ConstantOverlap.
func NewScorer(overlap OverlapStrategy) *Scorer {
	if overlap == nil {
		overlap = ConstantOverlap{}
	}
	return &Scorer{overlap: overlap}
}

// Calculate scores feature index of a batch. footprints holds one entry per
// feature of the batch, nil where geometry was not measured.
func (s *Scorer) Calculate(props model.ClaimProperties, index int, footprints []orb.MultiPolygon) model.ScoreBreakdown {
	measured := index >= 0 && index < len(footprints) && footprints[index] != nil

	geometry := GeometryFailed
	overlap := 0.0
	if measured {
		geometry = GeometryOK
		overlap = s.overlap.Score(index, footprints)
	}
	return Combine(geometry, Completeness(props), overlap)
}

// Completeness scores how many of holder, village, district and state are filled
func Completeness(props model.ClaimProperties) float64 {
	fields := props.CompletenessFields()
	return float64(props.FilledCount()) / float64(len(fields)) * CompletenessWeight
}

// Combine clamps each component to its range and sums them into Total
func Combine(geometry, completeness, overlap float64) model.ScoreBreakdown {
	geometry = clamp(geometry, 0, GeometryOK)
	completeness = clamp(completeness, 0, CompletenessWeight)
	overlap = clamp(overlap, 0, OverlapWeight)

	return model.ScoreBreakdown{
		Geometry:     round(geometry),
		Completeness: round(completeness),
		Overlap:      round(overlap),
		Total:        round(clamp(geometry+completeness+overlap, 0, 1)),
		Formula:      Formula,
	}
}

// TierFor maps a confidence to its tier
func TierFor(confidence float64) model.Tier {
	switch {
	case confidence >= HighThreshold:
		return model.TierHigh
	case confidence >= MediumThreshold:
		return model.TierMedium
	default:
		return model.TierLow
	}
}

// StyleFor returns the render style of a tier
func StyleFor(tier model.Tier) model.RenderStyle {
	switch tier {
	case model.TierHigh:
		return model.RenderStyle{FillColor: "#2ecc71", StrokeColor: "#27ae60", Opacity: 0.45}
	case model.TierMedium:
		return model.RenderStyle{FillColor: "#f39c12", StrokeColor: "#e67e22", Opacity: 0.35}
	default:
		return model.RenderStyle{FillColor: "#e74c3c", StrokeColor: "#c0392b", Opacity: 0.35}
	}
}

// Describe renders a breakdown for logs and CLI output
func Describe(b model.ScoreBreakdown) string {
	return fmt.Sprintf("%.2f = geometry %.2f + completeness %.2f + overlap %.2f", b.Total, b.Geometry, b.Completeness, b.Overlap)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// round keeps four decimals so sums like 0.5+0.3+0.1 print cleanly
func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
