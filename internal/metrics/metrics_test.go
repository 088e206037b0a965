package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ppiankov/fracheck/internal/model"
)

func TestObserveResult(t *testing.T) {
	before := testutil.ToFloat64(FeaturesValidatedTotal)
	villageBefore := testutil.ToFloat64(FlagsTotal.WithLabelValues(string(model.FlagMissingVillage)))

	ObserveResult(&model.ValidationResult{Features: []model.ProcessedFeature{
		{Properties: model.ClaimProperties{ClaimType: model.ClaimTypeIndividual}, Confidence: 0.6, Flags: model.NewFlagSet(model.FlagMissingVillage)},
		{Properties: model.ClaimProperties{ClaimType: model.ClaimTypeIndividual}, Confidence: 1},
	}})
	ObserveResult(nil)

	if got := testutil.ToFloat64(FeaturesValidatedTotal) - before; got != 2 {
		t.Errorf("expected 2 features counted, got %v", got)
	}
	if got := testutil.ToFloat64(FlagsTotal.WithLabelValues(string(model.FlagMissingVillage))) - villageBefore; got != 1 {
		t.Errorf("expected 1 missing_village, got %v", got)
	}
}

func TestObserveCandidates(t *testing.T) {
	dup := DuplicateCandidatesTotal.WithLabelValues("duplicate")
	cluster := DuplicateCandidatesTotal.WithLabelValues("cluster")
	dupBefore, clusterBefore := testutil.ToFloat64(dup), testutil.ToFloat64(cluster)

	ObserveCandidates([]model.DuplicateCandidate{
		{IsDuplicate: true, IsClustered: true},
		{IsClustered: true},
	})

	if got := testutil.ToFloat64(dup) - dupBefore; got != 1 {
		t.Errorf("expected 1 duplicate, got %v", got)
	}
	if got := testutil.ToFloat64(cluster) - clusterBefore; got != 2 {
		t.Errorf("expected 2 clustered, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	CacheHitsTotal.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fracheck_cache_hits_total") {
		t.Error("expected fracheck metrics in scrape output")
	}
}
