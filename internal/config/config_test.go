package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.VectorBackend)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 0.4, cfg.Scoring.TextWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Scoring.VectorWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Scoring.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.1, cfg.Scoring.FilterWeight, 1e-9)
	assert.InDelta(t, 0.7, cfg.Search.SemanticThreshold, 1e-9)
	assert.InDelta(t, 0.4, cfg.Search.FallbackThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Clustering.MaxDepth)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recall.yaml")
	content := `
data_dir: /tmp/recall-test
vector_backend: milvus
log_level: debug
milvus:
  address: milvus.internal:19530
  dimension: 512
scoring:
  text_weight: 0.5
search:
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/recall-test", cfg.DataDir)
	assert.Equal(t, BackendMilvus, cfg.VectorBackend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "milvus.internal:19530", cfg.Milvus.Address)
	assert.Equal(t, 512, cfg.Milvus.Dimension)
	assert.InDelta(t, 0.5, cfg.Scoring.TextWeight, 1e-9)
	assert.True(t, cfg.Search.Debug)

	// Untouched keys keep their defaults.
	assert.InDelta(t, 0.3, cfg.Scoring.VectorWeight, 1e-9)
	assert.Equal(t, "experience_embeddings", cfg.Milvus.Collection)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RECALL_VECTOR_BACKEND", "milvus")
	t.Setenv("RECALL_EMBEDDING_PROVIDER", "openai")
	t.Setenv("RECALL_EMBEDDING_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMilvus, cfg.VectorBackend)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.VectorBackend = "redis" },
			wantErr: ErrInvalidBackend,
		},
		{
			name:    "weight above one",
			mutate:  func(c *Config) { c.Scoring.TextWeight = 1.5 },
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Search.SemanticThreshold = -0.1 },
			wantErr: ErrInvalidThreshold,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "recall.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join("/data", "vectors.json"), cfg.VectorFilePath())
}
