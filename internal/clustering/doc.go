// Package clustering groups experience records into coherent themes.
//
// Two independent groupings run over the same input set:
//
// Exact-signature clustering collects records whose sorted quality-label
// sets are byte-identical. Singleton groups are valid one-member
// clusters. Clusters with two or more members are refined hierarchically
// by embedding-space proximity, recursively to a depth bound; children
// are named parentID.childIndex and live in a flat arena keyed by id,
// referencing their parent by ParentID rather than nesting.
//
// Per-dimension clustering filters, for each of the seven quality
// dimensions, to records whose prominence in that dimension clears a
// cutoff, groups the subset by embedding proximity with a minimum
// cluster size, and attaches keywords scored TF-IDF style against the
// full corpus plus a templated semantic label from a fixed keyword
// table. The seven passes are independent and run in parallel.
//
// Summaries are generated deterministically from member count and either
// common quality labels or extracted keywords, falling back to a plain
// "N experiences". Records matched by neither grouping are reported as
// outliers. Coherence is mean pairwise embedding similarity mapped into
// [0,1]; the average across all clusters is a pipeline-level statistic.
//
// Clusters are produced fresh per invocation and never persisted.
package clustering
