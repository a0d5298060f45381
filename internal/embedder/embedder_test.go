package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterministic(t *testing.T) {
	provider, err := NewLocalProvider(0, nil)
	require.NoError(t, err)
	defer provider.Close()

	ctx := context.Background()
	first, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "morning walk"})
	require.NoError(t, err)
	second, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "morning walk"})
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector, "same text yields the same vector")
	assert.Len(t, first.Vector, LocalDimension)
	assert.Equal(t, LocalDimension, first.Dimension)
	assert.Equal(t, ProviderLocal, first.Provider)
}

func TestLocalProviderDistinctTexts(t *testing.T) {
	provider, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	ctx := context.Background()
	a, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "one"})
	require.NoError(t, err)
	b, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "two"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Vector, b.Vector)
}

func TestLocalProviderCustomDimension(t *testing.T) {
	provider, err := NewLocalProvider(64, nil)
	require.NoError(t, err)

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	require.NoError(t, err)
	assert.Len(t, emb.Vector, 64)
	assert.Equal(t, 64, provider.Dimension())
}

func TestLocalProviderEmptyText(t *testing.T) {
	provider, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProviderBatch(t *testing.T) {
	provider, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"one", "two", "three"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	assert.Equal(t, ProviderLocal, resp.Provider)
}

func TestBatchValidation(t *testing.T) {
	provider, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	_, err = provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"ok", ""},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(10)

	emb := &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  ProviderLocal,
		Hash:      ComputeHash("text"),
	}
	cache.Set(emb.Hash, emb)

	got, ok := cache.Get(emb.Hash)
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Mutating the returned copy must not pollute the cache.
	got.Vector[0] = 99
	again, ok := cache.Get(emb.Hash)
	require.True(t, ok)
	assert.InDelta(t, 1.0, again.Vector[0], 1e-9)
}

func TestCacheMiss(t *testing.T) {
	cache := NewCache(10)
	_, ok := cache.Get("nope")
	assert.False(t, ok)
}

func TestFactorySelectsProvider(t *testing.T) {
	testCases := []struct {
		name         string
		cfg          Config
		wantProvider string
		wantErr      error
	}{
		{
			name:         "local provider",
			cfg:          Config{Provider: "local"},
			wantProvider: ProviderLocal,
		},
		{
			name:         "empty provider defaults to local",
			cfg:          Config{},
			wantProvider: ProviderLocal,
		},
		{
			name:         "openai provider",
			cfg:          Config{Provider: "openai", APIKey: "sk-test"},
			wantProvider: ProviderOpenAI,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: "openai"},
			wantErr: ErrNoProviderEnabled,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "quantum"},
			wantErr: ErrUnsupportedModel,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			emb, err := New(tc.cfg)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantProvider, emb.Provider())
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestComputeHashStable(t *testing.T) {
	assert.Equal(t, ComputeHash("abc"), ComputeHash("abc"))
	assert.NotEqual(t, ComputeHash("abc"), ComputeHash("abd"))
	assert.Len(t, ComputeHash("abc"), 64)
}

func TestCacheKeyScopedToProviderAndModel(t *testing.T) {
	key := CacheKey(ProviderLocal, "local-embeddings", "text")

	assert.Equal(t, key, CacheKey(ProviderLocal, "local-embeddings", "text"))
	assert.NotEqual(t, key, CacheKey(ProviderOpenAI, "text-embedding-3-small", "text"))
	assert.NotEqual(t, key, CacheKey(ProviderLocal, "other-model", "text"))
	assert.NotEqual(t, key, CacheKey(ProviderLocal, "local-embeddings", "other text"))
}

func TestCachedEmbeddingNotSharedAcrossModels(t *testing.T) {
	// One shared cache, two providers. The local provider's entries must
	// not satisfy lookups for a different provider's model.
	cache := NewCache(10)
	local, err := NewLocalProvider(8, cache)
	require.NoError(t, err)

	emb, err := local.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "shared"})
	require.NoError(t, err)
	require.Len(t, emb.Vector, 8)

	_, ok := cache.Get(CacheKey(ProviderOpenAI, DefaultOpenAIModel, "shared"))
	assert.False(t, ok)
	_, ok = cache.Get(CacheKey(ProviderLocal, local.Model(), "shared"))
	assert.True(t, ok)
}
