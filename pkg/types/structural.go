package types

// StructuralFilters narrows search by record tags. Nil fields are not
// applied. The searcher uses these as hard excludes; the scoring engine
// reuses them to compute a soft filter-relevance component.
type StructuralFilters struct {
	ContentType     *string
	Who             *string
	Perspective     *string
	ProcessingStage *string
	Crafted         *bool
}

// IsZero reports whether no filter is applied.
func (f *StructuralFilters) IsZero() bool {
	return f == nil ||
		(f.ContentType == nil && f.Who == nil && f.Perspective == nil &&
			f.ProcessingStage == nil && f.Crafted == nil)
}

// Check returns the number of applied filters and how many of them the
// record fails to match.
func (f *StructuralFilters) Check(record *ExperienceRecord) (applied, missed int) {
	if f == nil {
		return 0, 0
	}
	if f.ContentType != nil {
		applied++
		if record.ContentType != *f.ContentType {
			missed++
		}
	}
	if f.Who != nil {
		applied++
		if record.Who != *f.Who {
			missed++
		}
	}
	if f.Perspective != nil {
		applied++
		if record.Perspective != *f.Perspective {
			missed++
		}
	}
	if f.ProcessingStage != nil {
		applied++
		if record.ProcessingStage != *f.ProcessingStage {
			missed++
		}
	}
	if f.Crafted != nil {
		applied++
		if record.Crafted == nil || *record.Crafted != *f.Crafted {
			missed++
		}
	}
	return applied, missed
}

// Matches reports whether the record passes every applied filter.
func (f *StructuralFilters) Matches(record *ExperienceRecord) bool {
	_, missed := f.Check(record)
	return missed == 0
}
