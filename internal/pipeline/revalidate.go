package pipeline

import (
	"fmt"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/score"
	"github.com/ppiankov/fracheck/internal/validate"
)

// FullyCorrectedConfidence replaces the computed confidence once a feature
// has no flags left and all four completeness fields are filled. It caps a
// corrected feature below the 1.0 a measured, complete polygon can score.
const FullyCorrectedConfidence = 0.95

// Revalidate applies a correction patch to a processed feature and recomputes
// its field flags, confidence and tier. Geometry is not measured again: the
// geometry and overlap components are carried over from f.Score. The input
// feature is not modified.
func Revalidate(f model.ProcessedFeature, patch model.PropertyPatch) (model.ProcessedFeature, error) {
	props, err := validate.ApplyPatch(f.Properties, patch)
	if err != nil {
		return f, fmt.Errorf("revalidate %s: %w", f.Properties.ClaimID, err)
	}

	flags := f.Flags.Without(model.FlagMissingVillage, model.FlagMissingHolderName)
	for _, fl := range validate.FieldFlags(props).Slice() {
		flags = flags.With(fl)
	}

	geometry, overlap := carriedComponents(f)
	breakdown := score.Combine(geometry, score.Completeness(props), overlap)
	if flags.Empty() && props.FilledCount() == len(props.CompletenessFields()) {
		breakdown.Total = FullyCorrectedConfidence
		breakdown.Formula = fmt.Sprintf("fully corrected, fixed at %.2f", FullyCorrectedConfidence)
	}

	return assemble(f.FeatureIndex, props, f.Geometry, flags, breakdown), nil
}

// carriedComponents returns the geometry and overlap scores of f. Features
// produced without a breakdown get them from their geometry flags.
func carriedComponents(f model.ProcessedFeature) (geometry, overlap float64) {
	if f.Score.Geometry > 0 {
		return f.Score.Geometry, f.Score.Overlap
	}
	if f.GeometryComputed() {
		return score.GeometryOK, score.OverlapWeight
	}
	return score.GeometryFailed, 0
}
