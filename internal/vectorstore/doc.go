// Package vectorstore provides the pluggable vector store abstraction used
// by the recall pipeline for nearest-neighbor retrieval over semantic
// embeddings.
//
// # Backends
//
// FileStore is the default backend: an in-process map persisted as JSON,
// with no external dependency. MilvusStore is an optional remote ANN
// backend (HNSW, cosine metric) implementing the same Store contract;
// the backend is selected by configuration.
//
// # Dimensionality Contract
//
// Once a store has accepted a vector of dimension D, D is its working
// dimensionality. Vectors of any other dimensionality are flagged invalid
// and excluded from FindSimilar until RemoveInvalidVectors deletes them,
// which also adopts the new expected dimensionality. This keeps the index
// consistent when the configured embedding provider (and hence vector
// size) changes between runs.
//
// # Concurrency
//
// Upsert and RemoveInvalidVectors are the only writers and are serialized
// per store instance by a mutex; reads take a shared lock and observe
// either the pre- or post-write state, never a torn one.
//
// # Similarity
//
// Similarity is cosine similarity computed on raw vectors; stored data is
// never normalized in place. A zero vector scores 0 against anything,
// never NaN.
package vectorstore
