// Package embedder generates vector embeddings from free text.
//
// The recall pipeline treats embedding generation as a black box behind
// the Embedder interface: text in, fixed-length float vector out. The
// provider instance fixes the dimensionality; the vector store enforces
// consistency against it.
//
// # Providers
//
// OpenAIProvider talks to any OpenAI-compatible /embeddings endpoint;
// the base URL is configurable so a local Ollama or llama.cpp server
// works unchanged. LocalProvider is a deterministic hash-based embedder
// for offline use and tests.
//
// # Caching and Retry
//
// Embeddings are cached in an LRU keyed by SHA-256 content hash, so
// repeated searches for the same query text never re-call the API.
// HTTP calls retry with bounded exponential backoff and respect context
// cancellation.
//
// Callers must tolerate failure: the searcher degrades to non-semantic
// scoring when embedding generation fails.
package embedder
