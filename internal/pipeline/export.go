package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/ppiankov/fracheck/internal/model"
)

// ReviewCSVHeader is the first row written by WriteReviewCSV
var ReviewCSVHeader = []string{"claim_id", "type", "holder", "village", "area_ha", "confidence", "flags"}

// WriteReviewCSV writes one row per feature for offline review
func WriteReviewCSV(w io.Writer, features []model.ProcessedFeature) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReviewCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, f := range features {
		p := f.Properties
		row := []string{
			p.ClaimID,
			string(p.ClaimType),
			model.StringOrEmpty(p.HolderName),
			model.StringOrEmpty(p.VillageName),
			strconv.FormatFloat(p.AreaHa, 'f', -1, 64),
			strconv.FormatFloat(f.Confidence, 'f', -1, 64),
			strings.Join(f.Flags.Strings(), "; "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", p.ClaimID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToFeatureCollection exports processed features as GeoJSON. The original
// geometry is kept when it parses as GeoJSON and written as null otherwise.
// Properties carry the normalized attributes plus tier and render style.
func ToFeatureCollection(features []model.ProcessedFeature) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		props, err := exportProperties(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", f.FeatureIndex, err)
		}

		out := &geojson.Feature{Type: "Feature", Properties: props}
		if raw, err := json.Marshal(f.Geometry); err == nil {
			if g, err := geojson.UnmarshalGeometry(raw); err == nil && g.Coordinates != nil {
				out.Geometry = g.Geometry()
			}
		}
		if b := f.Properties.BBox; b != nil {
			out.BBox = geojson.BBox{b[0], b[1], b[2], b[3]}
		}
		fc.Append(out)
	}
	return fc, nil
}

func exportProperties(f model.ProcessedFeature) (geojson.Properties, error) {
	data, err := json.Marshal(f.Properties)
	if err != nil {
		return nil, err
	}
	var props geojson.Properties
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}
	props["feature_index"] = f.FeatureIndex
	props["tier"] = f.Tier
	props["render_style"] = f.RenderStyle
	return props, nil
}
