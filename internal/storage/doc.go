// Package storage persists experience records in SQLite.
//
// Records are the system of record; the vector store only mirrors their
// semantic embeddings for similarity search. Qualities and reflects lists
// are stored as JSON text columns, vectors as little-endian float32 blobs.
//
// # Build Modes
//
// Two drivers are supported via build tags. The default pure Go build
// uses modernc.org/sqlite and needs no C compiler. Building with
// -tags cgo_sqlite switches to github.com/mattn/go-sqlite3.
//
// # Migrations
//
// Schema changes are versioned with semver and applied on open. The
// schema_version table records what has been applied.
package storage
