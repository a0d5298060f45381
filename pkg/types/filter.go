package types

// QualityFilter is a small boolean algebra over quality dimension labels.
//
// A filter is either a combinator (exactly one of And/Or/Not set) or a leaf
// naming a dimension with one of three tests:
//
//   - Subtype:  record must carry the literal "dimension.subtype" label
//   - Subtypes: OR over literal subtypes
//   - Present:  dimension presence regardless of subtype
//
// A leaf with a dimension and none of the three tests matches any record
// carrying that dimension with any or no subtype.
type QualityFilter struct {
	And []*QualityFilter `json:"$and,omitempty"`
	Or  []*QualityFilter `json:"$or,omitempty"`
	Not *QualityFilter   `json:"$not,omitempty"`

	Dimension string   `json:"dimension,omitempty"`
	Subtype   string   `json:"subtype,omitempty"`
	Subtypes  []string `json:"subtypes,omitempty"`
	Present   *bool    `json:"present,omitempty"`
}

// IsLeaf reports whether the filter is a dimension test rather than
// a combinator.
func (f *QualityFilter) IsLeaf() bool {
	return len(f.And) == 0 && len(f.Or) == 0 && f.Not == nil
}
