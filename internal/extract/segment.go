package extract

import (
	"regexp"
	"strings"
)

// minBlockChars is the shortest text kept as a claim block after a split
const minBlockChars = 50

// blockSeparators split a page into claim blocks. A separator is only
// applied when it yields more blocks than the previous ones did.
var blockSeparators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Claim\s+(?:No\.?\s*)?\d+`),
	regexp.MustCompile(`(?i)Claimant\s+\d+`),
	regexp.MustCompile(`-{3,}`),
	regexp.MustCompile(`={3,}`),
}

// segmentBlocks splits text into claim blocks. Text without separators comes
// back as a single block, unchanged.
func segmentBlocks(text string) []string {
	segments := []string{text}

	for _, sep := range blockSeparators {
		var next []string
		for _, segment := range segments {
			for _, part := range sep.Split(segment, -1) {
				if len(strings.TrimSpace(part)) > minBlockChars {
					next = append(next, part)
				}
			}
		}
		if len(next) > len(segments) {
			segments = next
		}
	}

	if len(segments) == 1 {
		return segments
	}
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
