package validate

import "github.com/ppiankov/fracheck/internal/model"

// Limits bounds the size of a batch
type Limits struct {
	MaxFeatures int // Batches longer than this are rejected with too_many_features
	ProcessCap  int // Only the first ProcessCap features are processed
}

// DefaultLimits returns the built-in batch limits
func DefaultLimits() Limits {
	return Limits{MaxFeatures: 200, ProcessCap: 100}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxFeatures <= 0 {
		l.MaxFeatures = d.MaxFeatures
	}
	if l.ProcessCap <= 0 {
		l.ProcessCap = d.ProcessCap
	}
	return l
}

// Structure is the outcome of a structural check on a decoded document
type Structure struct {
	Features  []any  // Features to process, already truncated to ProcessCap
	Total     int    // Length of the input features array
	Truncated bool   // True when Total exceeded ProcessCap
	ErrToken  string // Terminal error token, empty when the document is usable
}

// CheckStructure verifies that doc is a FeatureCollection within limits.
// The first failing check, in the order object, type, features, size, wins.
func CheckStructure(doc any, limits Limits) Structure {
	limits = limits.withDefaults()

	obj, ok := doc.(map[string]any)
	if !ok {
		return Structure{ErrToken: model.ErrInvalidJSON}
	}
	if typ, _ := obj["type"].(string); typ != "FeatureCollection" {
		return Structure{ErrToken: model.ErrNotAFeatureCollection}
	}
	features, ok := obj["features"].([]any)
	if !ok {
		return Structure{ErrToken: model.ErrMissingFeaturesArray}
	}

	total := len(features)
	if total > limits.MaxFeatures {
		return Structure{Total: total, ErrToken: model.ErrTooManyFeatures}
	}

	if total > limits.ProcessCap {
		return Structure{Features: features[:limits.ProcessCap], Total: total, Truncated: true}
	}
	return Structure{Features: features, Total: total}
}
