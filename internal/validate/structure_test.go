package validate

import (
	"testing"

	"github.com/ppiankov/fracheck/internal/model"
)

func collection(n int) map[string]any {
	features := make([]any, n)
	for i := range features {
		features[i] = map[string]any{"type": "Feature"}
	}
	return map[string]any{"type": "FeatureCollection", "features": features}
}

func TestCheckStructure_TerminalErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		want string
	}{
		{"nil", nil, model.ErrInvalidJSON},
		{"array", []any{}, model.ErrInvalidJSON},
		{"string", "FeatureCollection", model.ErrInvalidJSON},
		{"wrong type", map[string]any{"type": "Feature", "features": []any{}}, model.ErrNotAFeatureCollection},
		{"missing type", map[string]any{"features": []any{}}, model.ErrNotAFeatureCollection},
		{"missing features", map[string]any{"type": "FeatureCollection"}, model.ErrMissingFeaturesArray},
		{"features not array", map[string]any{"type": "FeatureCollection", "features": map[string]any{}}, model.ErrMissingFeaturesArray},
		{"201 features", collection(201), model.ErrTooManyFeatures},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckStructure(tt.doc, DefaultLimits())
			if got.ErrToken != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.ErrToken)
			}
			if len(got.Features) != 0 {
				t.Errorf("expected no features, got %d", len(got.Features))
			}
		})
	}
}

func TestCheckStructure_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		processed int
		truncated bool
	}{
		{0, 0, false},
		{1, 1, false},
		{100, 100, false},
		{101, 100, true},
		{200, 100, true},
	}

	for _, tt := range tests {
		got := CheckStructure(collection(tt.n), DefaultLimits())
		if got.ErrToken != "" {
			t.Errorf("n=%d: expected no error, got %q", tt.n, got.ErrToken)
			continue
		}
		if len(got.Features) != tt.processed {
			t.Errorf("n=%d: expected %d features, got %d", tt.n, tt.processed, len(got.Features))
		}
		if got.Truncated != tt.truncated {
			t.Errorf("n=%d: expected truncated=%v, got %v", tt.n, tt.truncated, got.Truncated)
		}
		if got.Total != tt.n {
			t.Errorf("n=%d: expected total %d, got %d", tt.n, tt.n, got.Total)
		}
	}
}

func TestCheckStructure_CustomLimits(t *testing.T) {
	got := CheckStructure(collection(6), Limits{MaxFeatures: 5, ProcessCap: 2})
	if got.ErrToken != model.ErrTooManyFeatures {
		t.Errorf("expected too_many_features, got %q", got.ErrToken)
	}

	got = CheckStructure(collection(5), Limits{MaxFeatures: 5, ProcessCap: 2})
	if len(got.Features) != 2 || !got.Truncated {
		t.Errorf("expected 2 truncated features, got %d (truncated=%v)", len(got.Features), got.Truncated)
	}
}
