package metrics

import "github.com/ppiankov/fracheck/internal/model"

// ObserveResult records the features of a validation result
func ObserveResult(res *model.ValidationResult) {
	if res == nil {
		return
	}
	for _, f := range res.Features {
		ObserveFeature(f)
	}
}

// ObserveFeature records one processed feature
func ObserveFeature(f model.ProcessedFeature) {
	FeaturesValidatedTotal.Inc()
	ConfidenceScore.WithLabelValues(string(f.Properties.ClaimType)).Observe(f.Confidence)
	for _, flag := range f.Flags.Strings() {
		FlagsTotal.WithLabelValues(flag).Inc()
	}
}

// ObserveCandidates records duplicate detection output
func ObserveCandidates(candidates []model.DuplicateCandidate) {
	for _, c := range candidates {
		if c.IsDuplicate {
			DuplicateCandidatesTotal.WithLabelValues("duplicate").Inc()
		}
		if c.IsClustered {
			DuplicateCandidatesTotal.WithLabelValues("cluster").Inc()
		}
	}
}
