package model

// Status is the batch-level outcome of a validation call
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusPartial Status = "partial" // Input exceeded the processing cap and was truncated
)

// Batch-level error tokens. The first four are terminal.
const (
	ErrInvalidJSON           = "invalid_json"
	ErrNotAFeatureCollection = "not_a_feature_collection"
	ErrMissingFeaturesArray  = "missing_features_array"
	ErrTooManyFeatures       = "too_many_features"
	NoticeFeaturesTruncated  = "features_truncated"
)

// ValidationResult is the output of one batch validation call
type ValidationResult struct {
	Status   Status             `json:"status"`
	Errors   []string           `json:"errors"`
	Features []ProcessedFeature `json:"features"`
	Summary  Summary            `json:"summary"`
}

// Summary aggregates a validated batch
type Summary struct {
	TotalFeatures         int     `json:"total_features"`
	ValidFeatures         int     `json:"valid_features"`          // confidence >= 0.5
	FeaturesNeedingReview int     `json:"features_needing_review"` // flags non-empty
	TotalAreaHa           float64 `json:"total_area_ha"`
}

// ErrorResult builds a terminal error result carrying a single token
func ErrorResult(token string, totalFeatures int) *ValidationResult {
	return &ValidationResult{
		Status:   StatusError,
		Errors:   []string{token},
		Features: []ProcessedFeature{},
		Summary:  Summary{TotalFeatures: totalFeatures},
	}
}

// DuplicateCandidate is one compared pair of claims
type DuplicateCandidate struct {
	LeftID      string   `json:"left_id"`
	RightID     string   `json:"right_id"`
	LeftIndex   int      `json:"left_index"`
	RightIndex  int      `json:"right_index"`
	Similarity  float64  `json:"similarity"`           // 0..1, text proximity
	DistanceM   *float64 `json:"distance_m,omitempty"` // nil when either side lacks coordinates
	IsDuplicate bool     `json:"is_duplicate"`
	IsClustered bool     `json:"is_clustered"`
	Reasons     []string `json:"reasons,omitempty"` // text, coordinates, cluster
}
