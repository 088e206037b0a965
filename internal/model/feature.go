package model

// Tier is the confidence band that selects a render style
type Tier string

const (
	TierHigh   Tier = "high"   // confidence >= 0.85
	TierMedium Tier = "medium" // confidence >= 0.5
	TierLow    Tier = "low"
)

// RenderStyle is the map styling preset for a tier
type RenderStyle struct {
	FillColor   string  `json:"fillColor"`
	StrokeColor string  `json:"strokeColor"`
	Opacity     float64 `json:"opacity"`
}

// ScoreBreakdown keeps the confidence components so that revalidation can
// carry the geometry and overlap parts over without recomputing geometry
type ScoreBreakdown struct {
	Geometry     float64 `json:"geometry"`
	Completeness float64 `json:"completeness"`
	Overlap      float64 `json:"overlap"`
	Total        float64 `json:"total"`
	Formula      string  `json:"formula,omitempty"`
}

// ProcessedFeature is the immutable result of one validation pass over a feature
type ProcessedFeature struct {
	FeatureIndex int             `json:"feature_index"`
	Properties   ClaimProperties `json:"properties"`
	Geometry     any             `json:"geometry"` // Original geometry, never modified
	Flags        FlagSet         `json:"flags"`
	Confidence   float64         `json:"confidence"`
	Tier         Tier            `json:"tier"`
	RenderStyle  RenderStyle     `json:"render_style"`
	Score        ScoreBreakdown  `json:"score"`
}

// GeometryComputed reports whether geometry math succeeded for this feature
func (f ProcessedFeature) GeometryComputed() bool {
	return !f.Flags.HasAny(FlagInvalidGeometry, FlagInvalidGeometryType, FlagGeometryCalculationError)
}

// NeedsReview reports whether any flag is set
func (f ProcessedFeature) NeedsReview() bool {
	return !f.Flags.Empty()
}
