package model

// ExtractedClaim is a claim read from OCR or exported document text
type ExtractedClaim struct {
	Name                 string   `json:"name,omitempty"`
	Spouse               string   `json:"spouse,omitempty"`
	Father               string   `json:"father,omitempty"`
	Address              string   `json:"address,omitempty"`
	Village              string   `json:"village,omitempty"`
	GramPanchayat        string   `json:"gp,omitempty"`
	Tehsil               string   `json:"tehsil,omitempty"`
	District             string   `json:"district,omitempty"`
	State                string   `json:"state,omitempty"`
	NatureOfClaim        string   `json:"nature_of_claim,omitempty"`
	ExtentHa             *float64 `json:"extent_ha"`
	Lat                  *float64 `json:"lat"`
	Lon                  *float64 `json:"lon"`
	Disputed             string   `json:"disputed,omitempty"`
	Evidence             string   `json:"evidence,omitempty"`
	StructuredJSONFound  bool     `json:"structured_json_found"`
	RawText              string   `json:"raw_text"`
	ExtractionConfidence float64  `json:"extraction_confidence"`
}

// Summary returns the duplicate-detector view of the claim
func (c ExtractedClaim) Summary(id string) ClaimSummary {
	return ClaimSummary{
		ID:         id,
		HolderName: c.Name,
		Village:    c.Village,
		District:   c.District,
		Lat:        c.Lat,
		Lon:        c.Lon,
	}
}

// ClaimValidation lists the problems found on an extracted claim
type ClaimValidation struct {
	MissingFields []string `json:"missing_fields"`
	InvalidFields []string `json:"invalid_fields"`
	Duplicate     bool     `json:"duplicate"`
	ClusterFlag   bool     `json:"cluster_flag"`
	OutOfRegion   bool     `json:"out_of_state"`
	LowConfidence bool     `json:"low_confidence"`
	Explanations  []string `json:"explanations"`
}

// ValidatedClaim pairs an extracted claim with its validation
type ValidatedClaim struct {
	ExtractedClaim
	Validation ClaimValidation `json:"validation"`
}

// ClaimStats summarizes a validated set of extracted claims
type ClaimStats struct {
	Total              int `json:"total"`
	Valid              int `json:"valid"`
	Invalid            int `json:"invalid"`
	MissingCoordinates int `json:"missing_coordinates"`
	Duplicates         int `json:"duplicates"`
	Clustered          int `json:"clustered"`
}
