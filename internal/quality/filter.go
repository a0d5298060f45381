package quality

import (
	"fmt"

	"github.com/dshills/recall-mcp/pkg/types"
)

// Validate checks every leaf of the filter tree against the dimension
// registry. A filter containing any unregistered dimension or subtype is
// invalid as a whole; callers decide whether to drop filtering or error.
func Validate(filter *types.QualityFilter) error {
	if filter == nil {
		return nil
	}

	switch {
	case len(filter.And) > 0:
		for _, sub := range filter.And {
			if err := Validate(sub); err != nil {
				return err
			}
		}
		return nil
	case len(filter.Or) > 0:
		for _, sub := range filter.Or {
			if err := Validate(sub); err != nil {
				return err
			}
		}
		return nil
	case filter.Not != nil:
		return Validate(filter.Not)
	}

	// Leaf
	if filter.Dimension == "" {
		return types.ErrEmptyFilter
	}
	if !KnownDimension(filter.Dimension) {
		return fmt.Errorf("%w: %q", types.ErrUnknownDimension, filter.Dimension)
	}
	if filter.Subtype != "" && !KnownSubtype(filter.Dimension, filter.Subtype) {
		return fmt.Errorf("%w: %q.%q", types.ErrUnknownSubtype, filter.Dimension, filter.Subtype)
	}
	for _, s := range filter.Subtypes {
		if !KnownSubtype(filter.Dimension, s) {
			return fmt.Errorf("%w: %q.%q", types.ErrUnknownSubtype, filter.Dimension, s)
		}
	}
	return nil
}

// Evaluate applies the filter to a single record. It is a pure boolean
// function; callers must Validate first - evaluation of an unregistered
// leaf simply fails to match.
func Evaluate(filter *types.QualityFilter, record *types.ExperienceRecord) bool {
	if filter == nil {
		return true
	}

	switch {
	case len(filter.And) > 0:
		for _, sub := range filter.And {
			if !Evaluate(sub, record) {
				return false
			}
		}
		return true
	case len(filter.Or) > 0:
		for _, sub := range filter.Or {
			if Evaluate(sub, record) {
				return true
			}
		}
		return false
	case filter.Not != nil:
		return !Evaluate(filter.Not, record)
	}

	return evaluateLeaf(filter, record)
}

// evaluateLeaf applies a single dimension test.
func evaluateLeaf(filter *types.QualityFilter, record *types.ExperienceRecord) bool {
	switch {
	case filter.Present != nil:
		present := HasDimension(record, filter.Dimension)
		return present == *filter.Present

	case filter.Subtype != "":
		return HasLabel(record, filter.Dimension+"."+filter.Subtype)

	case len(filter.Subtypes) > 0:
		for _, s := range filter.Subtypes {
			if HasLabel(record, filter.Dimension+"."+s) {
				return true
			}
		}
		return false

	default:
		// Bare dimension name matches any label carrying that dimension,
		// with any or no subtype.
		return HasDimension(record, filter.Dimension)
	}
}
