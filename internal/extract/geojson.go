package extract

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ppiankov/fracheck/internal/model"
)

// ToFeatureCollection turns extracted claims into a feature collection the
// validation pipeline accepts. Claims with both coordinates get a Point
// geometry, the others a null geometry.
func ToFeatureCollection(claims []model.ExtractedClaim) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range claims {
		var f *geojson.Feature
		if c.Lat != nil && c.Lon != nil {
			f = geojson.NewFeature(orb.Point{*c.Lon, *c.Lat})
		} else {
			f = &geojson.Feature{Type: "Feature", Properties: geojson.Properties{}}
		}

		setIf(f.Properties, "holder_name", c.Name)
		setIf(f.Properties, "village_name", c.Village)
		setIf(f.Properties, "district", c.District)
		setIf(f.Properties, "state", c.State)
		setIf(f.Properties, "notes", c.Evidence)
		if c.ExtentHa != nil {
			f.Properties["extent_ha"] = *c.ExtentHa
		}
		f.Properties["extraction_confidence"] = c.ExtractionConfidence
		f.Properties["structured_json_found"] = c.StructuredJSONFound

		fc.Append(f)
	}
	return fc
}

func setIf(props geojson.Properties, key, value string) {
	if value != "" {
		props[key] = value
	}
}
