package pipeline

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/score"
)

// counterIDs generates predictable ids
type counterIDs struct{ n int }

func (c *counterIDs) NewID(t model.ClaimType) string {
	c.n++
	return fmt.Sprintf("%s-TMP-%06x", t, c.n)
}

func newTestPipeline() *Pipeline {
	return New(Options{IDs: &counterIDs{}})
}

// kmSquare is a polygon of roughly 1 km x 1 km at latitude 20
func kmSquare(lon float64) map[string]any {
	lat := 20.0
	dLat := 0.009
	dLon := 0.009 / math.Cos(lat*math.Pi/180)
	return squareGeometry(lon, lat, dLon, dLat)
}

func squareGeometry(lon, lat, dLon, dLat float64) map[string]any {
	return map[string]any{
		"type": "Polygon",
		"coordinates": []any{[]any{
			[]any{lon, lat},
			[]any{lon + dLon, lat},
			[]any{lon + dLon, lat + dLat},
			[]any{lon, lat + dLat},
			[]any{lon, lat},
		}},
	}
}

func feature(geom any, props map[string]any) map[string]any {
	return map[string]any{"type": "Feature", "geometry": geom, "properties": props}
}

func featureCollection(features ...any) map[string]any {
	if features == nil {
		features = []any{}
	}
	return map[string]any{"type": "FeatureCollection", "features": features}
}

func mustValidate(t *testing.T, p *Pipeline, doc any) *model.ValidationResult {
	t.Helper()
	res, err := p.Validate(context.Background(), doc, "IFR", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestValidate_EmptyCollection(t *testing.T) {
	res := mustValidate(t, newTestPipeline(), featureCollection())

	if res.Status != model.StatusSuccess {
		t.Errorf("expected success, got %s", res.Status)
	}
	if res.Summary.TotalFeatures != 0 || len(res.Features) != 0 || len(res.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestValidate_SquareKilometerWithoutProperties(t *testing.T) {
	res := mustValidate(t, newTestPipeline(), featureCollection(feature(kmSquare(80), nil)))

	if len(res.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(res.Features))
	}
	f := res.Features[0]

	if math.Abs(f.Properties.AreaHa-100) > 2 {
		t.Errorf("expected area near 100 ha, got %.3f", f.Properties.AreaHa)
	}
	want := model.NewFlagSet(model.FlagMissingVillage, model.FlagMissingHolderName)
	if !f.Flags.Equal(want) {
		t.Errorf("expected flags %v, got %v", want.Strings(), f.Flags.Strings())
	}
	if math.Abs(f.Confidence-0.6) > 1e-9 {
		t.Errorf("expected confidence 0.6, got %v", f.Confidence)
	}
	if f.Tier != model.TierMedium || f.RenderStyle != score.StyleFor(model.TierMedium) {
		t.Errorf("expected medium tier and style, got %s %+v", f.Tier, f.RenderStyle)
	}
	if f.Properties.ClaimID != "IFR-TMP-000001" {
		t.Errorf("expected generated id, got %s", f.Properties.ClaimID)
	}
	if f.Properties.SourceDoc != DefaultSourceDoc {
		t.Errorf("expected default source doc, got %s", f.Properties.SourceDoc)
	}
	if f.Properties.BBox == nil || f.Properties.Centroid[0] <= 80 {
		t.Errorf("expected bbox and centroid, got %v %v", f.Properties.BBox, f.Properties.Centroid)
	}
	if !f.Properties.Flags.Equal(f.Flags) || f.Properties.Confidence != f.Confidence {
		t.Error("expected properties to mirror flags and confidence")
	}
	if f.Properties.RepairedGeometry {
		t.Error("expected repaired_geometry false")
	}
}

func TestValidate_PointGeometry(t *testing.T) {
	point := map[string]any{"type": "Point", "coordinates": []any{80.0, 20.0}}
	res := mustValidate(t, newTestPipeline(), featureCollection(feature(point, map[string]any{
		"holder_name":  "Sita Devi",
		"village_name": "Kanha",
		"district":     "Mandla",
		"state":        "Madhya Pradesh",
	})))

	f := res.Features[0]
	if !f.Flags.Has(model.FlagInvalidGeometryType) || !f.Flags.Has(model.FlagInvalidArea) {
		t.Errorf("expected invalid_geometry_type and invalid_area, got %v", f.Flags.Strings())
	}
	if f.Score.Geometry != score.GeometryFailed {
		t.Errorf("expected geometry component 0.2, got %v", f.Score.Geometry)
	}
	if f.Confidence > 0.6 {
		t.Errorf("expected confidence <= 0.6, got %v", f.Confidence)
	}
	if f.Properties.BBox != nil {
		t.Errorf("expected no bbox, got %v", f.Properties.BBox)
	}
}

func TestValidate_TerminalErrors(t *testing.T) {
	many := make([]any, 201)
	for i := range many {
		many[i] = feature(kmSquare(80), nil)
	}

	tests := []struct {
		name  string
		doc   any
		token string
		total int
	}{
		{"not an object", []any{1, 2}, model.ErrInvalidJSON, 0},
		{"feature", map[string]any{"type": "Feature"}, model.ErrNotAFeatureCollection, 0},
		{"no features", map[string]any{"type": "FeatureCollection"}, model.ErrMissingFeaturesArray, 0},
		{"too many", featureCollection(many...), model.ErrTooManyFeatures, 201},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustValidate(t, newTestPipeline(), tt.doc)
			if res.Status != model.StatusError {
				t.Errorf("expected error status, got %s", res.Status)
			}
			if len(res.Errors) != 1 || res.Errors[0] != tt.token {
				t.Errorf("expected [%s], got %v", tt.token, res.Errors)
			}
			if len(res.Features) != 0 {
				t.Errorf("expected no features, got %d", len(res.Features))
			}
			if res.Summary.TotalFeatures != tt.total {
				t.Errorf("expected total %d, got %d", tt.total, res.Summary.TotalFeatures)
			}
		})
	}
}

func TestValidate_TwoHundredIsAccepted(t *testing.T) {
	features := make([]any, 200)
	for i := range features {
		features[i] = feature(nil, nil)
	}

	res := mustValidate(t, newTestPipeline(), featureCollection(features...))
	if res.Status != model.StatusPartial {
		t.Errorf("expected partial, got %s", res.Status)
	}
	if len(res.Errors) != 1 || res.Errors[0] != model.NoticeFeaturesTruncated {
		t.Errorf("expected truncation notice, got %v", res.Errors)
	}
	if len(res.Features) != 100 || res.Summary.TotalFeatures != 200 {
		t.Errorf("expected 100 of 200 processed, got %d of %d", len(res.Features), res.Summary.TotalFeatures)
	}
}

func TestValidate_GeneratedIDsUnique(t *testing.T) {
	features := make([]any, 100)
	for i := range features {
		features[i] = feature(kmSquare(80+float64(i)*0.1), nil)
	}

	res, err := New(Options{}).Validate(context.Background(), featureCollection(features...), "CFR", "doc.geojson")
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, f := range res.Features {
		if seen[f.Properties.ClaimID] {
			t.Fatalf("duplicate id %s", f.Properties.ClaimID)
		}
		seen[f.Properties.ClaimID] = true
		if f.Properties.ClaimType != model.ClaimTypeCFR || f.Properties.SourceDoc != "doc.geojson" {
			t.Fatalf("expected CFR from doc.geojson, got %s from %s", f.Properties.ClaimType, f.Properties.SourceDoc)
		}
	}
}

func TestValidate_ConfidenceAlwaysInRange(t *testing.T) {
	garbage := []any{
		nil,
		"feature",
		42,
		map[string]any{},
		feature(map[string]any{"type": "Polygon", "coordinates": "nope"}, nil),
		feature(map[string]any{"type": "MultiPolygon", "coordinates": []any{[]any{}}}, nil),
		feature(map[string]any{"type": "GeometryCollection"}, map[string]any{"holder_name": 7}),
		feature(squareGeometry(0, 0, 1, 1), map[string]any{"claim_type": "CFR", "village_name": []any{}}),
		feature(kmSquare(80), map[string]any{"holder_name": "a", "village_name": "b", "district": "c", "state": "d"}),
	}

	res := mustValidate(t, newTestPipeline(), featureCollection(garbage...))
	if len(res.Features) != len(garbage) {
		t.Fatalf("expected %d features, got %d", len(garbage), len(res.Features))
	}
	for _, f := range res.Features {
		if f.Confidence < 0 || f.Confidence > 1 {
			t.Errorf("feature %d: confidence %v out of range", f.FeatureIndex, f.Confidence)
		}
		if !f.GeometryComputed() && f.Confidence > 0.6 {
			t.Errorf("feature %d: unmeasured geometry scored %v", f.FeatureIndex, f.Confidence)
		}
	}

	last := res.Features[len(res.Features)-1]
	if !last.Flags.Empty() || last.Tier != model.TierHigh {
		t.Errorf("expected complete polygon to be clean and high, got %v %s", last.Flags.Strings(), last.Tier)
	}
}

func TestValidate_Summary(t *testing.T) {
	full := map[string]any{"holder_name": "a", "village_name": "b", "district": "c", "state": "d"}
	res := mustValidate(t, newTestPipeline(), featureCollection(
		feature(kmSquare(80), full),
		feature(kmSquare(81), nil),
		feature(nil, nil),
	))

	s := res.Summary
	if s.TotalFeatures != 3 || s.ValidFeatures != 2 || s.FeaturesNeedingReview != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if math.Abs(s.TotalAreaHa-200) > 4 {
		t.Errorf("expected total area near 200 ha, got %.2f", s.TotalAreaHa)
	}
}

func TestValidate_IntersectionOverlap(t *testing.T) {
	p := New(Options{IDs: &counterIDs{}, Overlap: score.IntersectionOverlap{}})
	res := mustValidate(t, p, featureCollection(
		feature(squareGeometry(80, 20, 0.02, 0.02), nil),
		feature(squareGeometry(80.01, 20.01, 0.02, 0.02), nil),
		feature(squareGeometry(81, 20, 0.02, 0.02), nil),
	))

	want := []float64{0.5, 0.5, 0.6}
	for i, w := range want {
		if got := res.Features[i].Confidence; math.Abs(got-w) > 1e-9 {
			t.Errorf("feature %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestValidateJSON(t *testing.T) {
	p := newTestPipeline()

	res, err := p.ValidateJSON(context.Background(), []byte(`{not json`), "IFR", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != model.StatusError || res.Errors[0] != model.ErrInvalidJSON {
		t.Errorf("expected invalid_json, got %+v", res)
	}

	res, err = p.ValidateJSON(context.Background(), []byte(`{"type":"FeatureCollection","features":[]}`), "IFR", "")
	if err != nil || res.Status != model.StatusSuccess {
		t.Errorf("expected success, got %+v (%v)", res, err)
	}
}

func TestValidate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline().Validate(ctx, featureCollection(feature(kmSquare(80), nil)), "IFR", "")
	if err == nil {
		t.Error("expected context error")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	if _, err := OptionsFromConfig(cfg, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Scoring.Overlap = "bogus"
	if _, err := OptionsFromConfig(cfg, nil); err == nil {
		t.Error("expected error for unknown overlap strategy")
	}
}
