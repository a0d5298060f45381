package types

// ScoreBreakdown explains how a composite relevance score was assembled.
// Components that were not applicable to the query are nil.
type ScoreBreakdown struct {
	Text               *float64
	VectorSimilarity   *float64
	SemanticSimilarity *float64
	FilterRelevance    float64
}

// RankedRecord is a single search result with relevance information.
type RankedRecord struct {
	Record *ExperienceRecord
	Rank   int // Position in result set (1-based)

	// RelevanceScore is the composite score in [0,1].
	RelevanceScore float64
	Breakdown      ScoreBreakdown
}

// Validate checks if the ranked record is well formed.
func (rr *RankedRecord) Validate() error {
	if rr.Record == nil {
		return ErrMissingRecord
	}
	if rr.Rank < 1 {
		return ErrInvalidRank
	}
	if rr.RelevanceScore < 0 || rr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}
	return nil
}

// VectorStoreHealth reports vector store consistency.
// Invalid means a stored vector's dimensionality disagrees with the
// store's current working dimensionality.
type VectorStoreHealth struct {
	TotalVectors   int
	ValidVectors   int
	InvalidVectors int
	Dimension      int // Current working dimensionality, 0 if unset
}
