package types

import "errors"

// Domain errors for type validation
var (
	// Record errors
	ErrMissingRecordID        = errors.New("record id is required")
	ErrInvalidQualityVector   = errors.New("quality vector must have one value per dimension")
	ErrQualityValueOutOfRange = errors.New("quality values must be between 0 and 1")

	// Result errors
	ErrMissingRecord         = errors.New("record is required")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")

	// Filter errors
	ErrUnknownDimension = errors.New("unknown quality dimension")
	ErrUnknownSubtype   = errors.New("unknown quality subtype")
	ErrEmptyFilter      = errors.New("filter has no condition")
)
