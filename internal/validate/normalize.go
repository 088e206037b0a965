package validate

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/spf13/cast"

	"github.com/ppiankov/fracheck/internal/model"
)

// IDGenerator produces synthetic claim identifiers for features without one
type IDGenerator interface {
	NewID(claimType model.ClaimType) string
}

// RandomIDs draws a uniform 24-bit suffix per identifier: <TYPE>-TMP-<6 hex>.
// Not suitable where identifiers must be unguessable.
type RandomIDs struct{}

// NewID implements IDGenerator
func (RandomIDs) NewID(claimType model.ClaimType) string {
	return fmt.Sprintf("%s-TMP-%06x", claimType, rand.Intn(1<<24))
}

// Property keys, canonical first, then the aliases seen on intake forms
var (
	claimIDKeys    = []string{"claim_id", "claimId", "claimID"}
	claimTypeKeys  = []string{"claim_type", "claimType"}
	holderKeys     = []string{"holder_name", "holderName", "claimant", "name"}
	villageKeys    = []string{"village_name", "villageName", "village"}
	districtKeys   = []string{"district", "districtName"}
	stateKeys      = []string{"state", "stateName"}
	lgdKeys        = []string{"lgd_code", "lgdCode"}
	supportingKeys = []string{"supporting_documents_present", "supportingDocumentsPresent"}
	notesKeys      = []string{"notes"}
)

// Normalizer turns loosely typed property bags into ClaimProperties
type Normalizer struct {
	ids IDGenerator
}

// NewNormalizer creates a normalizer. A nil generator selects RandomIDs.
func NewNormalizer(ids IDGenerator) *Normalizer {
	if ids == nil {
		ids = RandomIDs{}
	}
	return &Normalizer{ids: ids}
}

// maxRedraws bounds the attempts to find an unused generated identifier
const maxRedraws = 64

// IDSet records the claim identifiers already used in a batch
type IDSet map[string]struct{}

// Normalize resolves each attribute from props. Confidence, flags and the
// geometry-derived fields are left for later stages.
func (n *Normalizer) Normalize(props map[string]any, defaultType model.ClaimType, sourceDoc string) model.ClaimProperties {
	return n.NormalizeInBatch(props, defaultType, sourceDoc, nil)
}

// NormalizeInBatch is Normalize for one feature of a batch. A generated
// identifier is re-drawn while it is already in used; the final identifier,
// supplied or generated, is added to used.
func (n *Normalizer) NormalizeInBatch(props map[string]any, defaultType model.ClaimType, sourceDoc string, used IDSet) model.ClaimProperties {
	claimType := defaultType
	if raw := lookup(props, claimTypeKeys); raw != nil {
		if t, ok := model.ParseClaimType(*raw); ok {
			claimType = t
		}
	}

	claimID := model.StringOrEmpty(lookup(props, claimIDKeys))
	if claimID == "" {
		claimID = n.ids.NewID(claimType)
		for i := 0; i < maxRedraws && used != nil; i++ {
			if _, taken := used[claimID]; !taken {
				break
			}
			claimID = n.ids.NewID(claimType)
		}
	}
	if used != nil {
		used[claimID] = struct{}{}
	}

	return model.ClaimProperties{
		ClaimID:                    claimID,
		ClaimType:                  claimType,
		HolderName:                 lookup(props, holderKeys),
		VillageName:                lookup(props, villageKeys),
		District:                   lookup(props, districtKeys),
		State:                      lookup(props, stateKeys),
		LGDCode:                    lookup(props, lgdKeys),
		SourceDoc:                  sourceDoc,
		SupportingDocumentsPresent: lookup(props, supportingKeys),
		Notes:                      model.StringOrEmpty(lookup(props, notesKeys)),
		Flags:                      model.NewFlagSet(),
	}
}

// lookup returns the first key in keys that holds a non-blank scalar
func lookup(props map[string]any, keys []string) *string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		if s, ok := scalarText(v); ok {
			return &s
		}
	}
	return nil
}

// scalarText converts a JSON scalar to trimmed text. Objects, arrays, nulls
// and blank strings yield false.
func scalarText(v any) (string, bool) {
	switch v.(type) {
	case nil, map[string]any, []any:
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
