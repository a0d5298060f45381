package quality

import (
	"strings"

	"github.com/dshills/recall-mcp/pkg/types"
)

// The seven quality dimensions, in quality-vector order.
const (
	DimEmbodied = "embodied"
	DimFocus    = "focus"
	DimMood     = "mood"
	DimPurpose  = "purpose"
	DimSpace    = "space"
	DimTime     = "time"
	DimPresence = "presence"
)

// Dimensions lists every dimension in canonical (vector) order.
var Dimensions = []string{
	DimEmbodied, DimFocus, DimMood, DimPurpose, DimSpace, DimTime, DimPresence,
}

// registry maps each dimension to its known subtypes. A label may also use
// the bare dimension name with no subtype.
var registry = map[string][]string{
	DimEmbodied: {"thinking", "sensing"},
	DimFocus:    {"narrow", "broad"},
	DimMood:     {"open", "closed"},
	DimPurpose:  {"goal", "wander"},
	DimSpace:    {"here", "there"},
	DimTime:     {"past", "present", "future"},
	DimPresence: {"individual", "collective"},
}

// DimensionIndex returns the vector index of a dimension, or -1 if the
// name is not registered.
func DimensionIndex(dimension string) int {
	for i, d := range Dimensions {
		if d == dimension {
			return i
		}
	}
	return -1
}

// KnownDimension reports whether the dimension name is registered.
func KnownDimension(dimension string) bool {
	_, ok := registry[dimension]
	return ok
}

// KnownSubtype reports whether the subtype is registered for the dimension.
func KnownSubtype(dimension, subtype string) bool {
	subtypes, ok := registry[dimension]
	if !ok {
		return false
	}
	for _, s := range subtypes {
		if s == subtype {
			return true
		}
	}
	return false
}

// SplitLabel splits a quality label into dimension and subtype.
// "embodied.sensing" -> ("embodied", "sensing"); "embodied" -> ("embodied", "").
func SplitLabel(label string) (dimension, subtype string) {
	if i := strings.IndexByte(label, '.'); i >= 0 {
		return label[:i], label[i+1:]
	}
	return label, ""
}

// HasDimension reports whether the record carries any label for the
// dimension, with or without a subtype.
func HasDimension(record *types.ExperienceRecord, dimension string) bool {
	for _, label := range record.Qualities {
		d, _ := SplitLabel(label)
		if d == dimension {
			return true
		}
	}
	return false
}

// HasLabel reports whether the record carries the literal label.
func HasLabel(record *types.ExperienceRecord, label string) bool {
	for _, l := range record.Qualities {
		if l == label {
			return true
		}
	}
	return false
}

// Prominence returns the record's quality-vector value for the dimension.
// The second return is false when the record has no quality vector or the
// dimension is unknown.
func Prominence(record *types.ExperienceRecord, dimension string) (float32, bool) {
	idx := DimensionIndex(dimension)
	if idx < 0 || len(record.QualityVector) != types.NumQualityDimensions {
		return 0, false
	}
	return record.QualityVector[idx], true
}
