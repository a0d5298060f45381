package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Vector store backend identifiers used in Config.VectorBackend.
const (
	BackendFile   = "file"
	BackendMilvus = "milvus"
)

var (
	// ErrInvalidBackend indicates an unknown vector store backend.
	ErrInvalidBackend = errors.New("invalid vector backend")

	// ErrInvalidWeight indicates a scoring weight outside [0,1].
	ErrInvalidWeight = errors.New("invalid scoring weight")

	// ErrInvalidThreshold indicates a similarity threshold outside [0,1].
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// Config is the explicit configuration object passed into the pipeline
// constructors. There is no process-wide mutable state; one Config scopes
// one server instance.
type Config struct {
	// DataDir holds the record database and the file vector store.
	DataDir string `mapstructure:"data_dir"`

	// VectorBackend selects the vector store: "file" or "milvus".
	VectorBackend string `mapstructure:"vector_backend"`

	Milvus     MilvusConfig     `mapstructure:"milvus"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Search     SearchConfig     `mapstructure:"search"`
	Clustering ClusteringConfig `mapstructure:"clustering"`

	// LogLevel is debug, info, warn, or error. Logs go to stderr; stdout
	// carries the MCP protocol.
	LogLevel string `mapstructure:"log_level"`
}

// MilvusConfig configures the optional remote ANN backend.
type MilvusConfig struct {
	Address    string `mapstructure:"address"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"` // SENSITIVE: never logged
	Collection string `mapstructure:"collection"`

	// Dimension fixes the collection schema. Milvus cannot defer it the
	// way the file store does; unset, the embedding dimension is used.
	Dimension int `mapstructure:"dimension"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // "local" or "openai"
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"` // SENSITIVE: never logged
	Dimension int    `mapstructure:"dimension"`
	CacheSize int    `mapstructure:"cache_size"`
}

// ScoringConfig exposes the relevance fusion constants. They are
// empirical tuning values, not structural invariants.
type ScoringConfig struct {
	TextWeight      float64 `mapstructure:"text_weight"`
	VectorWeight    float64 `mapstructure:"vector_weight"`
	SemanticWeight  float64 `mapstructure:"semantic_weight"`
	FilterWeight    float64 `mapstructure:"filter_weight"`
	MismatchPenalty float64 `mapstructure:"mismatch_penalty"`
	ExactMatch      float64 `mapstructure:"exact_match"`
	WordMatch       float64 `mapstructure:"word_match"`
	PartialMatch    float64 `mapstructure:"partial_match"`
}

// SearchConfig configures pipeline policy.
type SearchConfig struct {
	SemanticThreshold float64 `mapstructure:"semantic_threshold"`
	FallbackThreshold float64 `mapstructure:"fallback_threshold"`
	RetryDisabled     bool    `mapstructure:"retry_disabled"`
	CacheSize         int     `mapstructure:"cache_size"`
	Debug             bool    `mapstructure:"debug"`
}

// ClusteringConfig configures pattern discovery.
type ClusteringConfig struct {
	RefineThreshold    float64 `mapstructure:"refine_threshold"`
	MaxDepth           int     `mapstructure:"max_depth"`
	ProminenceCutoff   float64 `mapstructure:"prominence_cutoff"`
	DimensionThreshold float64 `mapstructure:"dimension_threshold"`
	MinClusterSize     int     `mapstructure:"min_cluster_size"`
	MaxKeywords        int     `mapstructure:"max_keywords"`
}

// Load reads configuration with the usual priority: environment
// variables (RECALL_ prefix) over a config file over defaults. The file
// is optional; an empty path searches the data directory and the current
// directory for recall.yaml.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	defaultDataDir := filepath.Join(home, ".recall")

	setDefaults(v, defaultDataDir)

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The OpenAI key is conventionally set without the prefix.
	if err := v.BindEnv("embedding.api_key", "RECALL_EMBEDDING_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("recall")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultDataDir)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults and env apply.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("vector_backend", BackendFile)
	v.SetDefault("log_level", "info")

	v.SetDefault("milvus.address", "localhost:19530")
	v.SetDefault("milvus.collection", "experience_embeddings")

	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.cache_size", 1000)

	v.SetDefault("scoring.text_weight", 0.4)
	v.SetDefault("scoring.vector_weight", 0.3)
	v.SetDefault("scoring.semantic_weight", 0.2)
	v.SetDefault("scoring.filter_weight", 0.1)
	v.SetDefault("scoring.mismatch_penalty", 0.1)
	v.SetDefault("scoring.exact_match", 0.9)
	v.SetDefault("scoring.word_match", 0.7)
	v.SetDefault("scoring.partial_match", 0.4)

	v.SetDefault("search.semantic_threshold", 0.7)
	v.SetDefault("search.fallback_threshold", 0.4)
	v.SetDefault("search.cache_size", 1000)

	v.SetDefault("clustering.refine_threshold", 0.75)
	v.SetDefault("clustering.max_depth", 3)
	v.SetDefault("clustering.prominence_cutoff", 0.4)
	v.SetDefault("clustering.dimension_threshold", 0.6)
	v.SetDefault("clustering.min_cluster_size", 2)
	v.SetDefault("clustering.max_keywords", 5)
}

// Validate checks ranges fail-fast so a misconfigured server never
// starts.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case BackendFile, BackendMilvus:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidBackend, c.VectorBackend)
	}

	weights := map[string]float64{
		"text_weight":      c.Scoring.TextWeight,
		"vector_weight":    c.Scoring.VectorWeight,
		"semantic_weight":  c.Scoring.SemanticWeight,
		"filter_weight":    c.Scoring.FilterWeight,
		"mismatch_penalty": c.Scoring.MismatchPenalty,
		"exact_match":      c.Scoring.ExactMatch,
		"word_match":       c.Scoring.WordMatch,
		"partial_match":    c.Scoring.PartialMatch,
	}
	for name, value := range weights {
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: scoring.%s = %v", ErrInvalidWeight, name, value)
		}
	}

	thresholds := map[string]float64{
		"search.semantic_threshold":      c.Search.SemanticThreshold,
		"search.fallback_threshold":      c.Search.FallbackThreshold,
		"clustering.refine_threshold":    c.Clustering.RefineThreshold,
		"clustering.prominence_cutoff":   c.Clustering.ProminenceCutoff,
		"clustering.dimension_threshold": c.Clustering.DimensionThreshold,
	}
	for name, value := range thresholds {
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidThreshold, name, value)
		}
	}

	return nil
}

// DBPath is the SQLite record database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "recall.db")
}

// VectorFilePath is the file vector store location.
func (c *Config) VectorFilePath() string {
	return filepath.Join(c.DataDir, "vectors.json")
}
