package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/ppiankov/fracheck/internal/model"
)

var (
	// Structured-sample: {...}
	labelledJSON = regexp.MustCompile(`(?i)Structured-sample:\s*(\{[^}]+\})`)
	// Standalone flat objects naming a claim field
	claimJSON = regexp.MustCompile(`(?i)\{[^{}]*"(?:name|village|district|state|lat|lon)"[^{}]*\}`)
)

// embeddedJSON returns the claim-like JSON objects found in text, in order of
// appearance. An object matched by both patterns is returned once.
func embeddedJSON(text string) []map[string]any {
	seen := make(map[string]bool)
	var out []map[string]any

	add := func(raw string, requireClaim bool) {
		raw = strings.TrimSpace(raw)
		if seen[raw] {
			return
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return
		}
		if requireClaim && firstString(obj, "name", "village", "district") == "" {
			return
		}
		seen[raw] = true
		out = append(out, obj)
	}

	for _, m := range labelledJSON.FindAllStringSubmatch(text, -1) {
		add(m[1], false)
	}
	for _, m := range claimJSON.FindAllString(text, -1) {
		add(m, true)
	}
	return out
}

// fromJSON maps a structured record onto a claim
func fromJSON(obj map[string]any, rawText string) model.ExtractedClaim {
	return model.ExtractedClaim{
		Name:                 firstString(obj, "name", "claimant", "holder_name"),
		Spouse:               firstString(obj, "spouse"),
		Father:               firstString(obj, "father", "guardian"),
		Address:              firstString(obj, "address"),
		Village:              firstString(obj, "village", "village_name"),
		GramPanchayat:        firstString(obj, "gp", "gram_panchayat"),
		Tehsil:               firstString(obj, "tehsil", "block"),
		District:             firstString(obj, "district"),
		State:                firstString(obj, "state"),
		NatureOfClaim:        firstString(obj, "nature_of_claim", "claim_type"),
		ExtentHa:             firstFloat(obj, "extent_ha", "area_ha", "area"),
		Lat:                  firstFloat(obj, "lat", "latitude"),
		Lon:                  firstFloat(obj, "lon", "longitude"),
		Disputed:             firstString(obj, "disputed"),
		Evidence:             firstString(obj, "evidence"),
		StructuredJSONFound:  true,
		RawText:              truncate(rawText, RawTextLimit),
		ExtractionConfidence: EmbeddedJSONConfidence,
	}
}

// firstString returns the first non-blank scalar under keys
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case nil, map[string]any, []any:
			continue
		default:
			if s := strings.TrimSpace(cast.ToString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstFloat returns the first value under keys that reads as a number.
// Numeric strings are accepted.
func firstFloat(obj map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString {
			v = strings.TrimSpace(s)
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			continue
		}
		return &f
	}
	return nil
}
