package model

import "strings"

// ClaimType categorizes a forest-rights claim
type ClaimType string

const (
	ClaimTypeIndividual ClaimType = "IFR" // Individual forest rights
	ClaimTypeCommunity  ClaimType = "CR"  // Community rights
	ClaimTypeCFR        ClaimType = "CFR" // Community forest resource rights
)

// ParseClaimType resolves a loosely written claim type. The second return value
// is false when the input does not name a known type.
func ParseClaimType(s string) (ClaimType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ifr", "individual", "individual_forest_rights":
		return ClaimTypeIndividual, true
	case "cr", "community", "community_rights":
		return ClaimTypeCommunity, true
	case "cfr", "community_forest_resource", "community_forest_resource_rights":
		return ClaimTypeCFR, true
	}
	return ClaimType(strings.TrimSpace(s)), false
}

// ClaimProperties is the normalized attribute record of one claim
type ClaimProperties struct {
	ClaimID                    string      `json:"claim_id"`
	ClaimType                  ClaimType   `json:"claim_type"`
	HolderName                 *string     `json:"holder_name"`
	VillageName                *string     `json:"village_name"`
	District                   *string     `json:"district"`
	State                      *string     `json:"state"`
	LGDCode                    *string     `json:"lgd_code"`
	SourceDoc                  string      `json:"source_doc"`
	SupportingDocumentsPresent *string     `json:"supporting_documents_present"`
	AreaHa                     float64     `json:"area_ha"`
	Centroid                   [2]float64  `json:"centroid"`        // [lon, lat]
	BBox                       *[4]float64 `json:"bbox,omitempty"` // [minLon, minLat, maxLon, maxLat]
	Confidence                 float64     `json:"confidence"`
	Flags                      FlagSet     `json:"flags"`
	Notes                      string      `json:"notes"`
	RepairedGeometry           bool        `json:"repaired_geometry"`
}

// CompletenessFields returns the four attributes counted by the completeness score
func (p ClaimProperties) CompletenessFields() [4]*string {
	return [4]*string{p.HolderName, p.VillageName, p.District, p.State}
}

// FilledCount counts completeness fields that carry a non-blank value
func (p ClaimProperties) FilledCount() int {
	n := 0
	for _, f := range p.CompletenessFields() {
		if HasText(f) {
			n++
		}
	}
	return n
}

// HasText reports whether s is set and not blank
func HasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// StringOrEmpty dereferences an optional string
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PropertyPatch is a sparse set of corrections keyed by property name.
// An empty value clears the field.
type PropertyPatch map[string]string

// ClaimSummary is the lightweight record compared by the duplicate detector
type ClaimSummary struct {
	ID         string   `json:"id"`
	HolderName string   `json:"holder_name,omitempty"`
	Village    string   `json:"village,omitempty"`
	District   string   `json:"district,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
}

// SummaryOf builds a ClaimSummary from a processed feature. Coordinates come
// from the centroid and are left empty when geometry was not computed.
func SummaryOf(f ProcessedFeature) ClaimSummary {
	s := ClaimSummary{
		ID:         f.Properties.ClaimID,
		HolderName: StringOrEmpty(f.Properties.HolderName),
		Village:    StringOrEmpty(f.Properties.VillageName),
		District:   StringOrEmpty(f.Properties.District),
	}
	if f.GeometryComputed() {
		lon, lat := f.Properties.Centroid[0], f.Properties.Centroid[1]
		s.Lat = &lat
		s.Lon = &lon
	}
	return s
}
