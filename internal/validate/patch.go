package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/fracheck/internal/model"
)

// ErrNotEditable is returned when a patch names a field that corrections may not touch
var ErrNotEditable = errors.New("field is not editable")

type editable struct {
	keys []string
	set  func(p *model.ClaimProperties, v *string)
}

// editableFields lists the correctable attributes in a fixed order
var editableFields = []editable{
	{holderKeys, func(p *model.ClaimProperties, v *string) { p.HolderName = v }},
	{villageKeys, func(p *model.ClaimProperties, v *string) { p.VillageName = v }},
	{districtKeys, func(p *model.ClaimProperties, v *string) { p.District = v }},
	{stateKeys, func(p *model.ClaimProperties, v *string) { p.State = v }},
	{lgdKeys, func(p *model.ClaimProperties, v *string) { p.LGDCode = v }},
	{supportingKeys, func(p *model.ClaimProperties, v *string) { p.SupportingDocumentsPresent = v }},
	{notesKeys, func(p *model.ClaimProperties, v *string) { p.Notes = model.StringOrEmpty(v) }},
}

// EditableKeys returns every key a patch may use, canonical names and aliases
func EditableKeys() []string {
	var keys []string
	for _, f := range editableFields {
		keys = append(keys, f.keys...)
	}
	return keys
}

// ApplyPatch returns props with the patch merged in. Blank values clear the
// field. When a patch carries both a canonical key and an alias, the
// canonical key wins. Unknown or read-only keys reject the whole patch.
func ApplyPatch(props model.ClaimProperties, patch model.PropertyPatch) (model.ClaimProperties, error) {
	allowed := make(map[string]bool)
	for _, k := range EditableKeys() {
		allowed[k] = true
	}

	var rejected []string
	for k := range patch {
		if !allowed[k] {
			rejected = append(rejected, k)
		}
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		return props, fmt.Errorf("%w: %s", ErrNotEditable, strings.Join(rejected, ", "))
	}

	for _, f := range editableFields {
		for _, k := range f.keys {
			v, ok := patch[k]
			if !ok {
				continue
			}
			var value *string
			if s := strings.TrimSpace(v); s != "" {
				value = &s
			}
			f.set(&props, value)
			break
		}
	}
	return props, nil
}
