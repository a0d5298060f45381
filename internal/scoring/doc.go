// Package scoring implements the relevance scoring engine that fuses text
// match, quality-vector similarity, semantic similarity, and structural
// filter relevance into one [0,1] composite score.
//
// # Signals and Weights
//
// Each signal carries a configurable weight (defaults: text 0.4, vector
// 0.3, semantic 0.2, filter 0.1). The composite is a renormalized weighted
// average: signals the query did not supply are excluded from both the
// numerator and the denominator, rather than scored as zero. Structural
// filter relevance always participates.
//
// # Text Matching
//
// An exact case-insensitive substring match of the full query scores 0.9,
// which always dominates any partial match. Otherwise the score is the
// better of a whole-word match ratio (x0.7) and a within-word partial
// match ratio (x0.4) over query words longer than two characters.
//
// # Filter Relevance
//
// Filter relevance starts at 1.0 and multiplies by the mismatch penalty
// (default 0.1) for each applied structural filter the record fails. The
// penalty is near-disqualifying rather than a hard exclude; the searcher
// applies the hard excludes separately before scoring.
//
// All constants are empirical tuning values and surface through Weights
// rather than being hard-coded.
package scoring
