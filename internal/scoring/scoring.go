package scoring

import (
	"github.com/dshills/recall-mcp/pkg/types"
)

// Weights holds the relevance fusion constants. These are empirical tuning
// values, not structural invariants, so they are configuration rather than
// hard-coded.
type Weights struct {
	Text     float64 // Weight of the text-match signal
	Vector   float64 // Weight of quality-vector cosine similarity
	Semantic float64 // Weight of semantic-embedding cosine similarity
	Filter   float64 // Weight of structural-filter relevance, always applied

	// MismatchPenalty multiplies filter relevance once per failed
	// structural filter. Near-disqualifying, not a hard exclude.
	MismatchPenalty float64

	// Text-match scoring constants
	ExactMatch   float64 // Score for a case-insensitive exact substring match
	WordMatch    float64 // Multiplier for the whole-word match ratio
	PartialMatch float64 // Multiplier for the within-word partial match ratio
}

// DefaultWeights returns the standard fusion constants.
func DefaultWeights() Weights {
	return Weights{
		Text:            0.4,
		Vector:          0.3,
		Semantic:        0.2,
		Filter:          0.1,
		MismatchPenalty: 0.1,
		ExactMatch:      0.9,
		WordMatch:       0.7,
		PartialMatch:    0.4,
	}
}

// Request carries the per-record query signals for one Score call.
// Nil similarity pointers mean the query did not supply that signal;
// their weights are excluded from the average entirely, not zero-padded.
type Request struct {
	QueryText          string
	VectorSimilarity   *float64
	SemanticSimilarity *float64
	Filters            *types.StructuralFilters
}

// Score is a scored record with its per-signal breakdown.
type Score struct {
	Value     float64
	Breakdown types.ScoreBreakdown
}

// Engine fuses heterogeneous relevance signals into one [0,1] score.
type Engine struct {
	weights Weights
}

// NewEngine creates a scoring engine. Zero-value weights fall back to
// the defaults.
func NewEngine(weights Weights) *Engine {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Engine{weights: weights}
}

// Weights returns the engine's fusion constants.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the composite relevance of one record for one query.
// The composite is a weighted average over whichever signals the query
// supplied; structural-filter relevance always participates. The final
// value is clamped to [0,1].
func (e *Engine) Score(record *types.ExperienceRecord, req Request) Score {
	w := e.weights

	var breakdown types.ScoreBreakdown
	var num, den float64

	if req.QueryText != "" {
		text := e.textScore(record.Text, req.QueryText)
		breakdown.Text = &text
		num += w.Text * text
		den += w.Text
	}

	if req.VectorSimilarity != nil {
		sim := *req.VectorSimilarity
		breakdown.VectorSimilarity = &sim
		num += w.Vector * sim
		den += w.Vector
	}

	if req.SemanticSimilarity != nil {
		sim := *req.SemanticSimilarity
		breakdown.SemanticSimilarity = &sim
		num += w.Semantic * sim
		den += w.Semantic
	}

	breakdown.FilterRelevance = e.filterRelevance(record, req.Filters)
	num += w.Filter * breakdown.FilterRelevance
	den += w.Filter

	value := 0.0
	if den > 0 {
		value = num / den
	}
	return Score{Value: clamp01(value), Breakdown: breakdown}
}

// filterRelevance starts at 1.0 and decays by MismatchPenalty per failed
// applied filter. No applied filters yields 1.0.
func (e *Engine) filterRelevance(record *types.ExperienceRecord, filters *types.StructuralFilters) float64 {
	_, missed := filters.Check(record)
	relevance := 1.0
	for i := 0; i < missed; i++ {
		relevance *= e.weights.MismatchPenalty
	}
	return relevance
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
