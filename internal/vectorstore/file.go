package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/recall-mcp/pkg/types"
)

// entry is one stored vector with its insertion sequence number.
// The sequence number gives FindSimilar its stable tie break.
type entry struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Sequence int64     `json:"seq"`
}

// fileState is the on-disk JSON layout.
type fileState struct {
	Dimension int     `json:"dimension"`
	NextSeq   int64   `json:"next_seq"`
	Entries   []entry `json:"entries"`
}

// FileStore is the in-process, file-backed vector store. It holds all
// vectors in memory and persists the full state as JSON after every
// mutation. No external dependency required.
type FileStore struct {
	path string

	mu          sync.RWMutex
	entries     map[string]entry
	dimension   int // 0 until the first vector is accepted
	nextSeq     int64
	initialized bool
}

// NewFileStore creates a file-backed store persisting to path. An empty
// path keeps the store purely in memory.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:    path,
		entries: make(map[string]entry),
	}
}

// Initialize loads persisted state if the file exists.
func (s *FileStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
		if err := s.loadLocked(); err != nil {
			return err
		}
	}

	s.initialized = true
	return nil
}

// Upsert inserts or replaces a vector. The first accepted vector locks the
// working dimensionality; later vectors of other dimensionality are stored
// but flagged invalid and excluded from search.
func (s *FileStore) Upsert(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(vector) == 0 {
		return ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	if s.dimension == 0 {
		s.dimension = len(vector)
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	prev, exists := s.entries[id]
	seq := s.nextSeq
	if exists {
		// Replacing keeps the original insertion order.
		seq = prev.Sequence
	} else {
		s.nextSeq++
	}

	s.entries[id] = entry{ID: id, Vector: stored, Sequence: seq}
	return s.persistLocked()
}

// DeleteCollection removes every vector and resets the dimensionality.
func (s *FileStore) DeleteCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]entry)
	s.dimension = 0
	s.nextSeq = 0

	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove store file: %w", err)
		}
	}
	return nil
}

// FindSimilar returns the nearest neighbors by cosine similarity.
// Vectors of stale dimensionality are skipped. An empty store yields an
// empty slice.
func (s *FileStore) FindSimilar(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	type scored struct {
		match Match
		seq   int64
	}

	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if s.dimension != 0 && len(e.Vector) != s.dimension {
			continue // Flagged invalid, excluded until removed
		}
		sim := CosineSimilarity(query, e.Vector)
		if sim < minSimilarity {
			continue
		}
		candidates = append(candidates, scored{match: Match{ID: e.ID, Similarity: sim}, seq: e.Sequence})
	}

	// Descending similarity, insertion order on ties.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].match.Similarity != candidates[j].match.Similarity {
			return candidates[i].match.Similarity > candidates[j].match.Similarity
		}
		return candidates[i].seq < candidates[j].seq
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = c.match
	}
	return matches, nil
}

// HealthStats reports the store's dimensionality consistency.
func (s *FileStore) HealthStats(ctx context.Context) (types.VectorStoreHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := types.VectorStoreHealth{
		TotalVectors: len(s.entries),
		Dimension:    s.dimension,
	}
	for _, e := range s.entries {
		if s.dimension == 0 || len(e.Vector) == s.dimension {
			health.ValidVectors++
		} else {
			health.InvalidVectors++
		}
	}
	return health, nil
}

// ValidateVectors reports vectors whose dimensionality disagrees with
// expectedDim.
func (s *FileStore) ValidateVectors(ctx context.Context, expectedDim int) (ValidationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var report ValidationReport
	for _, e := range s.entries {
		if len(e.Vector) != expectedDim {
			report.InvalidCount++
			report.Details = append(report.Details,
				fmt.Sprintf("%s: dimension %d, expected %d", e.ID, len(e.Vector), expectedDim))
		}
	}
	sort.Strings(report.Details)
	return report, nil
}

// RemoveInvalidVectors deletes vectors that disagree with expectedDim and
// adopts expectedDim as the working dimensionality.
func (s *FileStore) RemoveInvalidVectors(ctx context.Context, expectedDim int) (int, error) {
	if expectedDim <= 0 {
		return 0, fmt.Errorf("expected dimension must be positive, got %d", expectedDim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if len(e.Vector) != expectedDim {
			delete(s.entries, id)
			removed++
		}
	}
	s.dimension = expectedDim

	if removed > 0 {
		if err := s.persistLocked(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Close persists the final state.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	return s.persistLocked()
}

// loadLocked reads persisted state. Caller holds the write lock.
func (s *FileStore) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}

	s.dimension = state.Dimension
	s.nextSeq = state.NextSeq
	for _, e := range state.Entries {
		s.entries[e.ID] = e
	}
	return nil
}

// persistLocked writes the full state atomically via a temp file rename.
// Caller holds the write lock. A memory-only store is a no-op.
func (s *FileStore) persistLocked() error {
	if s.path == "" {
		return nil
	}

	state := fileState{
		Dimension: s.dimension,
		NextSeq:   s.nextSeq,
		Entries:   make([]entry, 0, len(s.entries)),
	}
	for _, e := range s.entries {
		state.Entries = append(state.Entries, e)
	}
	sort.Slice(state.Entries, func(i, j int) bool {
		return state.Entries[i].Sequence < state.Entries[j].Sequence
	})

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
