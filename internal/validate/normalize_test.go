package validate

import (
	"regexp"
	"testing"

	"github.com/ppiankov/fracheck/internal/model"
)

// fixedIDs returns the same identifier every time
type fixedIDs string

func (f fixedIDs) NewID(model.ClaimType) string { return string(f) }

func TestNormalize_CanonicalKeysWin(t *testing.T) {
	n := NewNormalizer(fixedIDs("unused"))
	props := map[string]any{
		"claim_id":     "IFR-001",
		"holder_name":  "Sita Devi",
		"holderName":   "ignored",
		"village_name": "Kanha",
		"district":     "Mandla",
		"state":        "Madhya Pradesh",
		"lgd_code":     "4321",
		"notes":        "boundary walked",
	}

	got := n.Normalize(props, model.ClaimTypeIndividual, "survey.geojson")

	if got.ClaimID != "IFR-001" {
		t.Errorf("expected claim id IFR-001, got %s", got.ClaimID)
	}
	if model.StringOrEmpty(got.HolderName) != "Sita Devi" {
		t.Errorf("expected canonical holder name, got %v", model.StringOrEmpty(got.HolderName))
	}
	if got.SourceDoc != "survey.geojson" {
		t.Errorf("expected source doc echoed, got %s", got.SourceDoc)
	}
	if got.Notes != "boundary walked" {
		t.Errorf("expected notes, got %q", got.Notes)
	}
	if got.FilledCount() != 4 {
		t.Errorf("expected 4 filled fields, got %d", got.FilledCount())
	}
	if !got.Flags.Empty() || got.Confidence != 0 {
		t.Errorf("expected flags and confidence unset, got %v / %f", got.Flags.Strings(), got.Confidence)
	}
}

func TestNormalize_Aliases(t *testing.T) {
	n := NewNormalizer(fixedIDs("unused"))
	props := map[string]any{
		"claimId":                    "CR-7",
		"claimType":                  "community",
		"claimant":                   "Gram Sabha Kanha",
		"villageName":                "Kanha",
		"districtName":               "Mandla",
		"stateName":                  "Madhya Pradesh",
		"lgdCode":                    482001,
		"supportingDocumentsPresent": true,
	}

	got := n.Normalize(props, model.ClaimTypeIndividual, "")

	if got.ClaimID != "CR-7" || got.ClaimType != model.ClaimTypeCommunity {
		t.Errorf("expected CR-7/CR, got %s/%s", got.ClaimID, got.ClaimType)
	}
	if model.StringOrEmpty(got.HolderName) != "Gram Sabha Kanha" {
		t.Errorf("expected holder from claimant alias, got %q", model.StringOrEmpty(got.HolderName))
	}
	if model.StringOrEmpty(got.LGDCode) != "482001" {
		t.Errorf("expected numeric lgd code as text, got %q", model.StringOrEmpty(got.LGDCode))
	}
	if model.StringOrEmpty(got.SupportingDocumentsPresent) != "true" {
		t.Errorf("expected supporting docs true, got %q", model.StringOrEmpty(got.SupportingDocumentsPresent))
	}
}

func TestNormalize_BlankAndNonScalarAreNull(t *testing.T) {
	n := NewNormalizer(fixedIDs("X"))
	props := map[string]any{
		"holder_name":  "   ",
		"village_name": nil,
		"district":     []any{"a"},
		"state":        map[string]any{"name": "x"},
	}

	got := n.Normalize(props, model.ClaimTypeCFR, "")

	for i, f := range got.CompletenessFields() {
		if f != nil {
			t.Errorf("field %d: expected nil, got %q", i, *f)
		}
	}
	if got.ClaimID != "X" {
		t.Errorf("expected generated id, got %s", got.ClaimID)
	}
	if got.ClaimType != model.ClaimTypeCFR {
		t.Errorf("expected default type CFR, got %s", got.ClaimType)
	}
}

func TestNormalize_UnknownClaimTypeFallsBack(t *testing.T) {
	n := NewNormalizer(nil)
	got := n.Normalize(map[string]any{"claim_type": "grazing"}, model.ClaimTypeCommunity, "")
	if got.ClaimType != model.ClaimTypeCommunity {
		t.Errorf("expected CR, got %s", got.ClaimType)
	}
}

func TestRandomIDs_Format(t *testing.T) {
	re := regexp.MustCompile(`^CFR-TMP-[0-9a-f]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := RandomIDs{}.NewID(model.ClaimTypeCFR)
		if !re.MatchString(id) {
			t.Fatalf("unexpected id format %q", id)
		}
		seen[id] = true
	}
	// 200 draws from 2^24 collide with probability near 0.1%
	if len(seen) < 198 {
		t.Errorf("expected nearly unique ids, got %d distinct of 200", len(seen))
	}
}

// sequenceIDs hands out ids in order, repeating the last one
type sequenceIDs struct {
	ids  []string
	next int
}

func (s *sequenceIDs) NewID(model.ClaimType) string {
	id := s.ids[min(s.next, len(s.ids)-1)]
	s.next++
	return id
}

func TestNormalizeInBatch_RedrawsCollisions(t *testing.T) {
	gen := &sequenceIDs{ids: []string{"IFR-TMP-000001", "IFR-TMP-000001", "IFR-TMP-000002"}}
	n := NewNormalizer(gen)
	used := IDSet{}

	first := n.NormalizeInBatch(map[string]any{}, model.ClaimTypeIndividual, "", used)
	second := n.NormalizeInBatch(map[string]any{}, model.ClaimTypeIndividual, "", used)

	if first.ClaimID != "IFR-TMP-000001" {
		t.Errorf("expected first id IFR-TMP-000001, got %s", first.ClaimID)
	}
	if second.ClaimID != "IFR-TMP-000002" {
		t.Errorf("expected redrawn id IFR-TMP-000002, got %s", second.ClaimID)
	}
	if len(used) != 2 {
		t.Errorf("expected 2 used ids, got %d", len(used))
	}
}

func TestNormalizeInBatch_GeneratedAvoidsSuppliedID(t *testing.T) {
	gen := &sequenceIDs{ids: []string{"X", "Y"}}
	n := NewNormalizer(gen)
	used := IDSet{}

	n.NormalizeInBatch(map[string]any{"claim_id": "X"}, model.ClaimTypeIndividual, "", used)
	got := n.NormalizeInBatch(map[string]any{}, model.ClaimTypeIndividual, "", used)

	if got.ClaimID != "Y" {
		t.Errorf("expected Y, got %s", got.ClaimID)
	}
}
