package types

import "time"

// NumQualityDimensions is the fixed number of quality dimensions.
// Every quality vector carries exactly one prominence value per dimension.
const NumQualityDimensions = 7

// QualityVector is a dense [0,1] prominence value per quality dimension,
// ordered as: embodied, focus, mood, purpose, space, time, presence.
type QualityVector []float32

// Validate checks that the vector has exactly one component per dimension
// and that every component is within [0,1].
func (qv QualityVector) Validate() error {
	if len(qv) != NumQualityDimensions {
		return ErrInvalidQualityVector
	}
	for _, v := range qv {
		if v < 0 || v > 1 {
			return ErrQualityValueOutOfRange
		}
	}
	return nil
}

// ExperienceRecord is an immutable-after-creation unit of captured content.
// The recall pipeline is a pure read path over records; only the capture
// step and the bulk re-embedding migrator write them.
type ExperienceRecord struct {
	// Identification
	ID         string     // Opaque, unique, never reused
	CreatedAt  time.Time  // Capture time
	OccurredAt *time.Time // Optional time the experience happened

	// Content
	Text string

	// Structural tags
	Who             string
	Perspective     string
	ProcessingStage string
	ContentType     string
	Crafted         *bool // Nullable - unset means untagged

	// Quality signature: dimension labels, optionally subtyped
	// (e.g. "embodied" or "embodied.sensing")
	Qualities []string

	// QualityVector is the optional dense prominence encoding.
	// If present it has exactly NumQualityDimensions components in [0,1].
	QualityVector QualityVector

	// SemanticEmbedding is produced externally from Text. Nullable.
	SemanticEmbedding []float32

	// Reflects lists ids of records this record interprets or synthesizes.
	// Dangling references are tolerated.
	Reflects []string
}

// Validate checks record invariants. Reflects references are not
// resolved here; dangling ids are tolerated.
func (r *ExperienceRecord) Validate() error {
	if r.ID == "" {
		return ErrMissingRecordID
	}
	if r.QualityVector != nil {
		if err := r.QualityVector.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsPatternRealization reports whether this record synthesizes other records.
func (r *ExperienceRecord) IsPatternRealization() bool {
	return len(r.Reflects) > 0
}

// Timestamp returns the record's timestamp for the given field.
// Falls back to CreatedAt when OccurredAt is requested but unset.
func (r *ExperienceRecord) Timestamp(field TimeField) time.Time {
	if field == TimeFieldOccurred && r.OccurredAt != nil {
		return *r.OccurredAt
	}
	return r.CreatedAt
}

// TimeField selects which record timestamp temporal filters and sorting use.
type TimeField string

const (
	TimeFieldCreated  TimeField = "created"
	TimeFieldOccurred TimeField = "occurred"
)
