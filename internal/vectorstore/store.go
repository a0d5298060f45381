package vectorstore

import (
	"context"
	"errors"
	"math"

	"github.com/dshills/recall-mcp/pkg/types"
)

// Common errors
var (
	ErrEmptyID        = errors.New("vector id cannot be empty")
	ErrEmptyVector    = errors.New("vector cannot be empty")
	ErrNotInitialized = errors.New("store not initialized")
)

// Match is a nearest-neighbor hit, ordered descending by similarity with
// ties broken by insertion order.
type Match struct {
	ID         string
	Similarity float64
}

// ValidationReport describes vectors whose dimensionality disagrees with
// the expected working dimensionality.
type ValidationReport struct {
	InvalidCount int
	Details      []string
}

// Store is the uniform capability set implemented by every vector store
// backend. Once a store has accepted a vector of dimension D it treats D
// as its working dimensionality; vectors of other dimensionality are
// flagged invalid and excluded from FindSimilar until explicitly removed.
//
// Upsert and RemoveInvalidVectors are the only writers and are serialized
// per store instance; concurrent reads see either the pre- or post-write
// state, never a torn one.
type Store interface {
	// Initialize prepares the backend (loads the file, connects, creates
	// collections). Must be called before any other operation.
	Initialize(ctx context.Context) error

	// Upsert inserts or replaces the vector stored under id.
	Upsert(ctx context.Context, id string, vector []float32) error

	// DeleteCollection removes all vectors and resets the working
	// dimensionality.
	DeleteCollection(ctx context.Context) error

	// FindSimilar returns up to limit neighbors with cosine similarity
	// >= minSimilarity, ordered descending. An empty store yields an
	// empty slice, never an error.
	FindSimilar(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]Match, error)

	// HealthStats reports total/valid/invalid vector counts.
	HealthStats(ctx context.Context) (types.VectorStoreHealth, error)

	// ValidateVectors reports vectors that disagree with expectedDim.
	ValidateVectors(ctx context.Context, expectedDim int) (ValidationReport, error)

	// RemoveInvalidVectors deletes vectors that disagree with expectedDim
	// and adopts expectedDim as the working dimensionality. Returns the
	// number removed.
	RemoveInvalidVectors(ctx context.Context, expectedDim int) (int, error)

	// Close releases backend resources.
	Close() error
}

// CosineSimilarity computes cosine similarity on raw vectors. Mismatched
// lengths and zero vectors score 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
