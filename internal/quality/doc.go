// Package quality implements the seven-dimension quality model and its
// filter-expression algebra.
//
// # Dimensions
//
// The dimension set is fixed: embodied, focus, mood, purpose, space, time,
// presence. Each dimension has a small registry of known subtypes
// (e.g. mood.open, time.past). A record's quality signature is a list of
// labels, each either a bare dimension or dimension.subtype.
//
// # Filter Algebra
//
// A types.QualityFilter is either a combinator ($and, $or, $not) or a leaf
// naming one dimension with an exact subtype, a list of acceptable subtypes,
// or a presence test. Evaluate is a pure boolean function of one record.
//
// # Validation
//
// Validate walks the tree and rejects any leaf naming an unregistered
// dimension or subtype. A tree with any invalid leaf is invalid as a
// whole. The searcher treats a wholly invalid filter as "no filtering"
// and surfaces the validation error through diagnostics instead of
// failing the query.
package quality
