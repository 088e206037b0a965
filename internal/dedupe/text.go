// Package dedupe finds claims that are probably the same parcel filed twice,
// by comparing their text and their coordinates.
package dedupe

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/fracheck/internal/model"
)

// DefaultTextThreshold is the similarity at or above which two texts are duplicates
const DefaultTextThreshold = 0.9

// Normalize puts text in the form compared by Similarity
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Similarity returns 1 - editDistance/maxLength over the normalized texts,
// counted in runes. Empty input on either side scores 0.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// TextKey joins holder, village and district into the compared text
func TextKey(c model.ClaimSummary) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.HolderName, c.Village, c.District} {
		if p = Normalize(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// TextSimilarity compares the text keys of two claims
func TextSimilarity(a, b model.ClaimSummary) float64 {
	return Similarity(TextKey(a), TextKey(b))
}

// IsDuplicateText reports whether two claims read the same at the given threshold
func IsDuplicateText(a, b model.ClaimSummary, threshold float64) bool {
	return TextSimilarity(a, b) >= threshold
}
