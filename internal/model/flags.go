package model

import "encoding/json"

// Flag is a stable token naming one data-quality issue on a feature
type Flag string

const (
	FlagInvalidGeometry          Flag = "invalid_geometry"           // Geometry absent or untyped
	FlagInvalidGeometryType      Flag = "invalid_geometry_type"      // Not Polygon/MultiPolygon
	FlagGeometryCalculationError Flag = "geometry_calculation_error" // Geometry math failed
	FlagInvalidArea              Flag = "invalid_area"               // area_ha <= 0
	FlagUnusuallySmallCFR        Flag = "unusually_small_cfr"        // CFR under 0.5 ha
	FlagMissingVillage           Flag = "missing_village"
	FlagMissingHolderName        Flag = "missing_holder_name"
)

// FlagSet is an immutable ordered set of flags. The zero value is empty.
// Every operation returns a new set and never touches the receiver's storage.
type FlagSet struct {
	items []Flag
}

// NewFlagSet builds a set from flags, dropping repeats and keeping first-seen order
func NewFlagSet(flags ...Flag) FlagSet {
	var s FlagSet
	for _, f := range flags {
		s = s.With(f)
	}
	return s
}

// With returns a set with f appended, or the receiver if f is already present
func (s FlagSet) With(f Flag) FlagSet {
	if s.Has(f) {
		return s
	}
	items := make([]Flag, len(s.items), len(s.items)+1)
	copy(items, s.items)
	return FlagSet{items: append(items, f)}
}

// Without returns a set with the given flags removed
func (s FlagSet) Without(drop ...Flag) FlagSet {
	items := make([]Flag, 0, len(s.items))
	for _, f := range s.items {
		keep := true
		for _, d := range drop {
			if f == d {
				keep = false
				break
			}
		}
		if keep {
			items = append(items, f)
		}
	}
	return FlagSet{items: items}
}

// Has reports whether f is in the set
func (s FlagSet) Has(f Flag) bool {
	for _, x := range s.items {
		if x == f {
			return true
		}
	}
	return false
}

// HasAny reports whether any of flags is in the set
func (s FlagSet) HasAny(flags ...Flag) bool {
	for _, f := range flags {
		if s.Has(f) {
			return true
		}
	}
	return false
}

// Len returns the number of flags
func (s FlagSet) Len() int {
	return len(s.items)
}

// Empty reports whether the set has no flags
func (s FlagSet) Empty() bool {
	return len(s.items) == 0
}

// Slice returns a copy of the flags in order
func (s FlagSet) Slice() []Flag {
	out := make([]Flag, len(s.items))
	copy(out, s.items)
	return out
}

// Strings returns the flags as plain strings
func (s FlagSet) Strings() []string {
	out := make([]string, len(s.items))
	for i, f := range s.items {
		out[i] = string(f)
	}
	return out
}

// Equal reports whether both sets hold the same flags in the same order
func (s FlagSet) Equal(o FlagSet) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as an array of tokens
func (s FlagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of tokens, dropping repeats
func (s *FlagSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	flags := make([]Flag, len(raw))
	for i, r := range raw {
		flags[i] = Flag(r)
	}
	*s = NewFlagSet(flags...)
	return nil
}
