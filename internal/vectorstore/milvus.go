package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/dshills/recall-mcp/pkg/types"
)

// MilvusConfig configures the remote ANN backend.
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Dimension  int

	// HNSW index parameters
	M              int
	EfConstruction int
	EfSearch       int
}

// MilvusStore implements Store against a remote Milvus instance.
// Milvus enforces dimensionality at the schema level, so the working
// dimensionality is fixed at collection creation and individual vectors
// can never go stale; RemoveInvalidVectors rebuilds the collection when
// the expected dimensionality changes.
type MilvusStore struct {
	cfg    MilvusConfig
	milvus client.Client
}

// NewMilvusStore creates a remote vector store. Connection happens in
// Initialize.
func NewMilvusStore(cfg MilvusConfig) *MilvusStore {
	if cfg.Collection == "" {
		cfg.Collection = "experience_embeddings"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfConstruction == 0 {
		cfg.EfConstruction = 200
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 128
	}
	return &MilvusStore{cfg: cfg}
}

// Dimension returns the configured collection dimensionality.
func (s *MilvusStore) Dimension() int {
	return s.cfg.Dimension
}

// Initialize connects and ensures the collection, index, and load state.
func (s *MilvusStore) Initialize(ctx context.Context) error {
	c, err := client.NewClient(ctx, client.Config{
		Address:  s.cfg.Address,
		Username: s.cfg.Username,
		Password: s.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("connect to milvus: %w", err)
	}
	s.milvus = c

	has, err := s.milvus.HasCollection(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !has {
		if err := s.createCollection(ctx, s.cfg.Dimension); err != nil {
			return err
		}
	}

	return s.milvus.LoadCollection(ctx, s.cfg.Collection, false)
}

func (s *MilvusStore) createCollection(ctx context.Context, dim int) error {
	schema := &entity.Schema{
		CollectionName: s.cfg.Collection,
		Description:    "Experience record semantic embeddings",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "vector",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
		},
	}

	if err := s.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, s.cfg.M, s.cfg.EfConstruction)
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := s.milvus.CreateIndex(ctx, s.cfg.Collection, "vector", idx, false); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert replaces any existing vector under id, then inserts.
func (s *MilvusStore) Upsert(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(vector) == 0 {
		return ErrEmptyVector
	}
	if s.milvus == nil {
		return ErrNotInitialized
	}
	if len(vector) != s.cfg.Dimension {
		return fmt.Errorf("vector dimension %d does not match collection dimension %d", len(vector), s.cfg.Dimension)
	}

	expr := fmt.Sprintf(`id == %q`, id)
	if err := s.milvus.Delete(ctx, s.cfg.Collection, "", expr); err != nil {
		return fmt.Errorf("delete existing vector: %w", err)
	}

	idCol := entity.NewColumnVarChar("id", []string{id})
	vecCol := entity.NewColumnFloatVector("vector", s.cfg.Dimension, [][]float32{vector})
	if _, err := s.milvus.Insert(ctx, s.cfg.Collection, "", idCol, vecCol); err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}
	return nil
}

// DeleteCollection drops the backing collection.
func (s *MilvusStore) DeleteCollection(ctx context.Context) error {
	if s.milvus == nil {
		return ErrNotInitialized
	}
	has, err := s.milvus.HasCollection(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !has {
		return nil
	}
	return s.milvus.DropCollection(ctx, s.cfg.Collection)
}

// FindSimilar runs an HNSW search with the COSINE metric.
func (s *MilvusStore) FindSimilar(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]Match, error) {
	if s.milvus == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		return []Match{}, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(s.cfg.EfSearch)
	if err != nil {
		return nil, fmt.Errorf("build search param: %w", err)
	}

	results, err := s.milvus.Search(ctx,
		s.cfg.Collection,
		nil,
		"",
		[]string{"id"},
		[]entity.Vector{entity.FloatVector(query)},
		"vector",
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	matches := make([]Match, 0, limit)
	for _, result := range results {
		idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		for i := 0; i < result.ResultCount; i++ {
			sim := float64(result.Scores[i])
			if sim < minSimilarity {
				continue
			}
			matches = append(matches, Match{ID: idCol.Data()[i], Similarity: sim})
		}
	}
	return matches, nil
}

// HealthStats reports counts; schema enforcement means every stored
// vector is valid.
func (s *MilvusStore) HealthStats(ctx context.Context) (types.VectorStoreHealth, error) {
	if s.milvus == nil {
		return types.VectorStoreHealth{}, ErrNotInitialized
	}

	stats, err := s.milvus.GetCollectionStatistics(ctx, s.cfg.Collection)
	if err != nil {
		return types.VectorStoreHealth{}, fmt.Errorf("collection statistics: %w", err)
	}

	total := 0
	if rc, ok := stats["row_count"]; ok {
		total, _ = strconv.Atoi(rc)
	}
	return types.VectorStoreHealth{
		TotalVectors: total,
		ValidVectors: total,
		Dimension:    s.cfg.Dimension,
	}, nil
}

// ValidateVectors compares expectedDim against the collection schema.
func (s *MilvusStore) ValidateVectors(ctx context.Context, expectedDim int) (ValidationReport, error) {
	if expectedDim == s.cfg.Dimension {
		return ValidationReport{}, nil
	}

	health, err := s.HealthStats(ctx)
	if err != nil {
		return ValidationReport{}, err
	}
	return ValidationReport{
		InvalidCount: health.TotalVectors,
		Details: []string{fmt.Sprintf("collection %s: dimension %d, expected %d",
			s.cfg.Collection, s.cfg.Dimension, expectedDim)},
	}, nil
}

// RemoveInvalidVectors rebuilds the collection when the expected
// dimensionality changes. All vectors are lost and must be re-embedded.
func (s *MilvusStore) RemoveInvalidVectors(ctx context.Context, expectedDim int) (int, error) {
	if expectedDim <= 0 {
		return 0, fmt.Errorf("expected dimension must be positive, got %d", expectedDim)
	}
	if expectedDim == s.cfg.Dimension {
		return 0, nil
	}

	health, err := s.HealthStats(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.DeleteCollection(ctx); err != nil {
		return 0, err
	}
	s.cfg.Dimension = expectedDim
	if err := s.createCollection(ctx, expectedDim); err != nil {
		return 0, err
	}
	if err := s.milvus.LoadCollection(ctx, s.cfg.Collection, false); err != nil {
		return 0, fmt.Errorf("load collection: %w", err)
	}
	return health.TotalVectors, nil
}

// Close disconnects from Milvus.
func (s *MilvusStore) Close() error {
	if s.milvus == nil {
		return nil
	}
	return s.milvus.Close()
}
