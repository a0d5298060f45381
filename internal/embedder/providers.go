package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"

	OpenAIDimension = 1536
	LocalDimension  = 384

	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// OpenAIProvider implements Embedder against any OpenAI-compatible
// embeddings endpoint (OpenAI itself, or a local Ollama/llama.cpp server
// via BaseURL).
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// OpenAIOptions configures the HTTP provider. Zero values use the OpenAI
// defaults.
type OpenAIOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// NewOpenAIProvider creates an embedder for an OpenAI-compatible API.
func NewOpenAIProvider(opts OpenAIOptions, cache *Cache) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: api key not set", ErrNoProviderEnabled)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOpenAIBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.Dimension == 0 {
		opts.Dimension = OpenAIDimension
	}

	return &OpenAIProvider{
		apiKey:    opts.APIKey,
		baseURL:   opts.BaseURL,
		model:     opts.Model,
		dimension: opts.Dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	if o.cache != nil {
		if emb, ok := o.cache.Get(CacheKey(ProviderOpenAI, model, req.Text)); ok {
			return emb, nil
		}
	}

	resp, err := o.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return resp.Embeddings[0], nil
}

func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	config := DefaultRetryConfig()
	embeddings, err := retryWithBackoff(ctx, config, func() ([]*Embedding, error) {
		return o.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}

	if o.cache != nil {
		for i, emb := range embeddings {
			emb.Hash = ComputeHash(req.Texts[i])
			o.cache.Set(CacheKey(ProviderOpenAI, model, req.Texts[i]), emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOpenAI,
		Model:      model,
	}, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  ProviderOpenAI,
			Model:     apiResp.Model,
		}
	}
	return embeddings, nil
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimension
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider is a deterministic hash-based embedder for offline use
// and tests. Same text always yields the same vector.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a local embedder. A zero dimension uses
// LocalDimension.
func NewLocalProvider(dimension int, cache *Cache) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     "local-embeddings",
		dimension: dimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	key := CacheKey(ProviderLocal, l.model, req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(key); ok {
			return emb, nil
		}
	}

	// Deterministic pseudo-embedding: expand the content hash across the
	// vector by re-hashing with a counter, then center to [-1,1].
	vector := make([]float32, l.dimension)
	seed := sha256.Sum256([]byte(req.Text))
	block := seed[:]
	for i := 0; i < l.dimension; i++ {
		if i%sha256.Size == 0 && i > 0 {
			next := sha256.Sum256(block)
			block = next[:]
		}
		vector[i] = float32(block[i%sha256.Size])/127.5 - 1.0
	}

	emb := &Embedding{
		Vector:    vector,
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      ComputeHash(req.Text),
	}

	if l.cache != nil {
		l.cache.Set(key, emb)
	}
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector returns a unit-length copy of v. A zero vector is
// returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
