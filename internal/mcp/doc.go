// Package mcp exposes the recall engine over the Model Context Protocol.
//
// The server speaks MCP on stdio: stdout carries the protocol, so all
// logging goes to stderr. Five tools are registered:
//
//   - search_experiences: the full query surface of the search pipeline
//   - discover_patterns: clustering over a query's results or the store
//   - capture_experience: record creation with an optional immediate
//     embedding
//   - reembed_experiences: bulk embedding regeneration
//   - get_store_status: record counts, vector store health, and the
//     embedding configuration
//
// NewServer wires every component from one Config: the record store, the
// vector store backend, the embedder, the scoring engine, the searcher,
// the clustering engine, and the migrator. Handlers translate tool
// arguments into typed requests, map failures onto MCP error codes, and
// render responses as indented JSON text content.
package mcp
