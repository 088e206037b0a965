package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/fracheck/internal/model"
)

// EmbeddedJSONConfidence is the extraction confidence of claims read from
// structured JSON found in the text
const EmbeddedJSONConfidence = 0.95

// RawTextLimit caps the raw text kept on each claim, in runes
const RawTextLimit = 500

// fieldPattern matches one claim field. Patterns are tried in order and the
// first capture wins. Labels match in any case, names must be capitalized.
type fieldPattern struct {
	field    string
	numeric  bool
	patterns []*regexp.Regexp
}

// ClaimExtractor extracts claim records from OCR or exported document text
type ClaimExtractor struct {
	fields []fieldPattern
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{
		fields: []fieldPattern{
			{field: "name", patterns: compile(
				`(?i:name|claimant|holder)[\s:]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,3})`,
				`(?i)claimant[_\s]+(\w+(?:[_ \t]+\w+)*)`,
			)},
			{field: "spouse", patterns: compile(
				`(?i:spouse|wife|husband)[\s:]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2})`,
			)},
			{field: "father", patterns: compile(
				`(?i:father|guardian|s/o|d/o)[\s:]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2})`,
			)},
			{field: "village", patterns: compile(
				`(?i:village)[\s:_]+([A-Z][a-z]+(?:[_ \t]+[A-Z\d][a-z\d]+)*)`,
			)},
			{field: "district", patterns: compile(
				`(?i:district)[\s:_]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*)`,
			)},
			{field: "state", patterns: compile(
				`(?i)(Madhya\s+Pradesh|Maharashtra|Odisha|Chhattisgarh|Jharkhand|Andhra\s+Pradesh|Karnataka|Tamil\s+Nadu|Telangana|Tripura)`,
			)},
			{field: "extent_ha", numeric: true, patterns: compile(
				`(?i)extent[\s:]+(\d+\.?\d*)\s*(?:ha|hectare)`,
				`(?i)area[\s:]+(\d+\.?\d*)`,
				`(?i)(\d+\.?\d+)\s*ha\b`,
			)},
			{field: "lat", numeric: true, patterns: compile(
				`(?i)lat(?:itude)?[\s:]+(-?\d{1,2}\.\d{4,})`,
				`(\d{1,2}\.\d{4,})[°\s]*[NS]\b`,
			)},
			{field: "lon", numeric: true, patterns: compile(
				`(?i)lon(?:gitude)?[\s:]+(-?\d{1,3}\.\d{4,})`,
				`(\d{1,3}\.\d{4,})[°\s]*[EW]\b`,
			)},
		},
	}
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Extract extracts claims from plain text. Embedded JSON records are read
// first; the text is then split into claim blocks and each block is matched
// field by field.
func (e *ClaimExtractor) Extract(text string) []model.ExtractedClaim {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return []model.ExtractedClaim{}
	}

	var claims []model.ExtractedClaim
	for _, obj := range embeddedJSON(text) {
		claims = append(claims, fromJSON(obj, text))
	}

	blocks := segmentBlocks(text)
	if len(claims) > 0 && len(blocks) == 1 && blocks[0] == text {
		// The whole page was only a carrier for its JSON records
		return claims
	}
	for _, block := range blocks {
		claims = append(claims, e.fromText(block))
	}
	return claims
}

// ExtractHTML extracts claims from an HTML export of the document
func (e *ClaimExtractor) ExtractHTML(htmlContent string) ([]model.ExtractedClaim, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	return e.Extract(extractVisibleText(doc)), nil
}

// fromText matches every field pattern against a block. Confidence is the
// share of fields found.
func (e *ClaimExtractor) fromText(block string) model.ExtractedClaim {
	claim := model.ExtractedClaim{RawText: truncate(block, RawTextLimit)}

	found := 0
	for _, f := range e.fields {
		for _, re := range f.patterns {
			m := re.FindStringSubmatch(block)
			if m == nil || strings.TrimSpace(m[1]) == "" {
				continue
			}
			value := strings.TrimSpace(m[1])
			if f.numeric {
				num, err := strconv.ParseFloat(value, 64)
				if err != nil {
					continue
				}
				setNumber(&claim, f.field, num)
			} else {
				setText(&claim, f.field, value)
			}
			found++
			break
		}
	}

	claim.ExtractionConfidence = float64(found) / float64(len(e.fields))
	return claim
}

func setText(c *model.ExtractedClaim, field, value string) {
	switch field {
	case "name":
		c.Name = value
	case "spouse":
		c.Spouse = value
	case "father":
		c.Father = value
	case "village":
		c.Village = value
	case "district":
		c.District = value
	case "state":
		c.State = value
	}
}

func setNumber(c *model.ExtractedClaim, field string, value float64) {
	switch field {
	case "extent_ha":
		c.ExtentHa = &value
	case "lat":
		c.Lat = &value
	case "lon":
		c.Lon = &value
	}
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles.
// Block elements end a line so claim separators survive.
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "hr", "pre":
				buf.WriteString("\n")
			}
		}
	}

	walk(n)
	return buf.String()
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
