// Package searcher orchestrates the recall pipeline: the single read path
// that turns a query into a ranked, explainable result set.
//
// # Pipeline
//
// One Search call makes one pass over the candidate set:
//
//  1. Load all records from the record store.
//  2. Structural filters (who, perspective, processingStage, contentType,
//     crafted) as hard excludes.
//  3. Temporal filters: a Since instant keeps records on or after it; a
//     Range keeps records within inclusive bounds. Both apply to the
//     chosen timestamp field (created or occurred).
//  4. Per-dimension quality-vector thresholds. A record missing the
//     dimension's value never satisfies a threshold.
//  5. Target quality-vector cosine similarity, optionally hard-filtered
//     by a minimum. Records without a quality vector have undefined
//     similarity: excluded by a threshold, retained without one.
//  6. Semantic retrieval: embed the query, reconcile the vector store's
//     dimensionality (stale vectors are removed and counted), find
//     neighbors at the primary threshold, and intersect. If nothing
//     clears a threshold stricter than the fallback floor, retry exactly
//     once at the floor. Never a second retry.
//  7. Score survivors with the scoring engine. When a text query is
//     present, records whose text component is exactly zero are dropped
//     after scoring.
//  8. Stable sort by composite score or timestamp, descending.
//  9. Truncate to the limit and assign 1-based ranks.
//  10. If the result set is empty, classify an advisory reason.
//
// # Degradation
//
// Embedding or vector-store failures during step 6 never fail the query:
// the pipeline logs, records the failure in diagnostics, and returns
// non-semantic results. Callers always receive a result set, possibly
// empty, never a stack trace for a degraded semantic search.
//
// # Invalid Filters
//
// A quality filter expression containing any unregistered dimension or
// subtype is invalid as a whole. The pipeline then applies no quality
// filtering and reports the problem in diagnostics. See the quality
// package for the validation contract.
//
// # Caching
//
// Responses can be cached in an LRU keyed by a content hash of the
// request, with per-request TTL. Callers that write records should call
// InvalidateCache afterward.
package searcher
