package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/recall-mcp/internal/config"
	"github.com/dshills/recall-mcp/internal/vectorstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		DataDir:       t.TempDir(),
		VectorBackend: config.BackendFile,
		Embedding: config.EmbeddingConfig{
			Provider:  "local",
			Dimension: 16,
			CacheSize: 16,
		},
	}
	srv, err := NewServer(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(srv.close)
	return srv
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callTool invokes a handler and decodes its JSON text content.
func callTool(t *testing.T, handler toolHandler, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func capture(t *testing.T, srv *Server, args map[string]interface{}) string {
	t.Helper()
	response := callTool(t, srv.handleCaptureExperience, args)
	id, ok := response["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func TestCaptureAndSearch(t *testing.T) {
	srv := newTestServer(t)

	capture(t, srv, map[string]interface{}{
		"text":      "walking through the morning market",
		"who":       "claude",
		"qualities": []interface{}{"embodied.sensing", "space"},
	})
	capture(t, srv, map[string]interface{}{
		"text":      "debugging the parser late at night",
		"who":       "claude",
		"qualities": []interface{}{"focus.narrow"},
	})

	response := callTool(t, srv.handleSearchExperiences, map[string]interface{}{
		"query": "morning market",
	})

	results := response["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "walking through the morning market", first["text"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Contains(t, first, "score_breakdown")
}

func TestCaptureGeneratesUniqueIDs(t *testing.T) {
	srv := newTestServer(t)

	a := capture(t, srv, map[string]interface{}{"text": "one"})
	b := capture(t, srv, map[string]interface{}{"text": "two"})
	assert.NotEqual(t, a, b)
}

func TestCaptureRequiresText(t *testing.T) {
	srv := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"who": "claude"}

	_, err := srv.handleCaptureExperience(context.Background(), req)
	require.Error(t, err)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeEmptyText, mcpErr.Code)
}

func TestCaptureRejectsBadQualityVector(t *testing.T) {
	srv := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"text":           "entry",
		"quality_vector": []interface{}{0.5, 0.5},
	}

	_, err := srv.handleCaptureExperience(context.Background(), req)
	require.Error(t, err)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidVector, mcpErr.Code)
}

func TestCaptureWithoutEmbedding(t *testing.T) {
	srv := newTestServer(t)

	response := callTool(t, srv.handleCaptureExperience, map[string]interface{}{
		"text":  "deferred embedding",
		"embed": false,
	})
	assert.Equal(t, false, response["embedded"])
}

func TestSearchRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"limit": float64(500)}

	_, err := srv.handleSearchExperiences(context.Background(), req)
	require.Error(t, err)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestSearchWithQualityFilter(t *testing.T) {
	srv := newTestServer(t)

	capture(t, srv, map[string]interface{}{
		"text":      "focused work session",
		"qualities": []interface{}{"focus.narrow"},
	})
	capture(t, srv, map[string]interface{}{
		"text":      "wandering attention",
		"qualities": []interface{}{"focus.wide"},
	})

	response := callTool(t, srv.handleSearchExperiences, map[string]interface{}{
		"quality_filter": map[string]interface{}{
			"dimension": "focus",
			"subtype":   "narrow",
		},
	})

	results := response["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "focused work session", first["text"])
}

func TestSearchWithStructuralFilters(t *testing.T) {
	srv := newTestServer(t)

	capture(t, srv, map[string]interface{}{"text": "mine", "who": "claude"})
	capture(t, srv, map[string]interface{}{"text": "theirs", "who": "human"})

	response := callTool(t, srv.handleSearchExperiences, map[string]interface{}{
		"filters": map[string]interface{}{"who": "claude"},
	})

	results := response["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].(map[string]interface{})["text"])
}

func TestSearchEmptyStoreExplainsItself(t *testing.T) {
	srv := newTestServer(t)

	response := callTool(t, srv.handleSearchExperiences, map[string]interface{}{})
	assert.Equal(t, float64(0), response["total"])

	diag, ok := response["diagnostics"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, diag["empty_reason"], "no records")
}

func TestDiscoverPatterns(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 2; i++ {
		capture(t, srv, map[string]interface{}{
			"text":      "morning walk",
			"qualities": []interface{}{"embodied", "space"},
		})
	}
	capture(t, srv, map[string]interface{}{
		"text":      "evening reading",
		"qualities": []interface{}{"focus"},
	})

	response := callTool(t, srv.handleDiscoverPatterns, map[string]interface{}{})

	stats := response["statistics"].(map[string]interface{})
	assert.Equal(t, float64(3), stats["total_records"])

	clusters := response["clusters"].([]interface{})
	assert.NotEmpty(t, clusters)
}

func TestDiscoverPatternsNarrowedByQuery(t *testing.T) {
	srv := newTestServer(t)

	capture(t, srv, map[string]interface{}{
		"text":      "garden work in sunshine",
		"qualities": []interface{}{"embodied"},
	})
	capture(t, srv, map[string]interface{}{
		"text":      "tax paperwork indoors",
		"qualities": []interface{}{"purpose"},
	})

	response := callTool(t, srv.handleDiscoverPatterns, map[string]interface{}{
		"query": "garden",
	})

	stats := response["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total_records"])
}

func TestReembedExperiences(t *testing.T) {
	srv := newTestServer(t)

	capture(t, srv, map[string]interface{}{"text": "first", "embed": false})
	capture(t, srv, map[string]interface{}{"text": "second", "embed": false})

	response := callTool(t, srv.handleReembedExperiences, map[string]interface{}{})
	assert.Equal(t, float64(2), response["processed"])
	assert.Equal(t, float64(2), response["embedded"])
	assert.Equal(t, float64(0), response["failed"])

	status := callTool(t, srv.handleGetStoreStatus, map[string]interface{}{})
	vectorStore := status["vector_store"].(map[string]interface{})
	assert.Equal(t, float64(2), vectorStore["total_vectors"])
}

func TestReembedRejectsZeroBatchSize(t *testing.T) {
	srv := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"batch_size": float64(0)}

	_, err := srv.handleReembedExperiences(context.Background(), req)
	require.Error(t, err)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestGetStoreStatus(t *testing.T) {
	srv := newTestServer(t)
	capture(t, srv, map[string]interface{}{"text": "entry"})

	response := callTool(t, srv.handleGetStoreStatus, map[string]interface{}{})

	assert.Equal(t, float64(1), response["records"])
	assert.Equal(t, "file", response["vector_backend"])

	embedding := response["embedding"].(map[string]interface{})
	assert.Equal(t, "local", embedding["provider"])
	assert.Equal(t, float64(16), embedding["dimension"])

	storageInfo := response["storage"].(map[string]interface{})
	assert.NotEmpty(t, storageInfo["build_mode"])
}

func TestMilvusBackendInheritsEmbeddingDimension(t *testing.T) {
	cfg := &config.Config{
		VectorBackend: config.BackendMilvus,
		Embedding:     config.EmbeddingConfig{Provider: "local", Dimension: 768},
	}

	store, err := newVectorStore(cfg)
	require.NoError(t, err)

	milvus, ok := store.(*vectorstore.MilvusStore)
	require.True(t, ok)
	assert.Equal(t, 768, milvus.Dimension())

	// An explicit milvus dimension wins over the embedding dimension.
	cfg.Milvus.Dimension = 1536
	store, err = newVectorStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1536, store.(*vectorstore.MilvusStore).Dimension())
}

func TestServerRegistersTools(t *testing.T) {
	srv := newTestServer(t)
	require.NotNil(t, srv.mcp)
}
