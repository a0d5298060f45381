package embedder

import (
	"fmt"
	"strings"
)

// Config holds embedder configuration, typically loaded from the server
// config file.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	CacheSize int
}

// New creates an embedder from explicit configuration. An empty provider
// falls back to the local deterministic embedder so the server works
// offline out of the box.
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIOptions{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}
