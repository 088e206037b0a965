package validate

import (
	"github.com/ppiankov/fracheck/internal/geometry"
	"github.com/ppiankov/fracheck/internal/model"
)

// GeometryStatus classifies what happened when a feature's geometry was measured
type GeometryStatus int

const (
	GeometryOK          GeometryStatus = iota
	GeometryMissing                    // Absent, not an object, or no type
	GeometryUnsupported                // Type other than Polygon/MultiPolygon
	GeometryFailed                     // Polygon/MultiPolygon that could not be measured
)

// smallCFRHectares is the area below which a CFR claim is suspicious
const smallCFRHectares = 0.5

// GeometryOutcome is the result of measuring one feature's geometry
type GeometryOutcome struct {
	Status GeometryStatus
	Result *geometry.Result // Set only when Status is GeometryOK
	Err    error
}

// AreaHa returns the measured area, or 0 when measurement failed
func (o GeometryOutcome) AreaHa() float64 {
	if o.Result == nil {
		return 0
	}
	return o.Result.AreaHa()
}

// MeasureGeometry classifies a raw geometry and computes its attributes
func MeasureGeometry(raw any) GeometryOutcome {
	obj, ok := raw.(map[string]any)
	if !ok {
		return GeometryOutcome{Status: GeometryMissing}
	}
	typ, _ := obj["type"].(string)
	switch typ {
	case "":
		return GeometryOutcome{Status: GeometryMissing}
	case "Polygon", "MultiPolygon":
	default:
		return GeometryOutcome{Status: GeometryUnsupported}
	}

	res, err := geometry.Compute(obj)
	if err != nil {
		return GeometryOutcome{Status: GeometryFailed, Err: err}
	}
	return GeometryOutcome{Status: GeometryOK, Result: res}
}

// Engine evaluates the data-quality rules. Rules are independent and
// always run in the same order, so identical inputs give identical sets.
type Engine struct{}

// NewEngine creates a flag engine
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate returns the flags raised for one feature. props.AreaHa must
// already hold the area taken from geo.
func (e *Engine) Evaluate(geo GeometryOutcome, props model.ClaimProperties) model.FlagSet {
	var flags model.FlagSet

	switch geo.Status {
	case GeometryMissing:
		flags = flags.With(model.FlagInvalidGeometry)
	case GeometryUnsupported:
		flags = flags.With(model.FlagInvalidGeometryType)
	case GeometryFailed:
		flags = flags.With(model.FlagGeometryCalculationError)
	}

	if props.AreaHa <= 0 {
		flags = flags.With(model.FlagInvalidArea)
	}

	if props.ClaimType == model.ClaimTypeCFR && props.AreaHa > 0 && props.AreaHa < smallCFRHectares {
		flags = flags.With(model.FlagUnusuallySmallCFR)
	}

	for _, f := range FieldFlags(props).Slice() {
		flags = flags.With(f)
	}
	return flags
}

// FieldFlags returns the flags that depend only on editable fields, in rule order
func FieldFlags(props model.ClaimProperties) model.FlagSet {
	var flags model.FlagSet
	if !model.HasText(props.VillageName) {
		flags = flags.With(model.FlagMissingVillage)
	}
	if !model.HasText(props.HolderName) {
		flags = flags.With(model.FlagMissingHolderName)
	}
	return flags
}
