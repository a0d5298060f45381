// Package migrator performs bulk re-embedding of the record set.
//
// When the embedding provider or model changes, stored semantic
// embeddings go stale: their dimensionality or vector space no longer
// matches new queries. ReembedAll regenerates every record's embedding
// in batches, rewrites the records, and upserts the vectors into the
// vector store, which then adopts the new dimensionality.
//
// Per-record failures are collected into the run statistics rather than
// aborting; a partial migration leaves the store usable, and the search
// pipeline's dimension reconciliation cleans up any leftovers.
package migrator
