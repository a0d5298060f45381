package mcp

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/recall-mcp/internal/clustering"
	"github.com/dshills/recall-mcp/internal/config"
	"github.com/dshills/recall-mcp/internal/embedder"
	"github.com/dshills/recall-mcp/internal/migrator"
	"github.com/dshills/recall-mcp/internal/scoring"
	"github.com/dshills/recall-mcp/internal/searcher"
	"github.com/dshills/recall-mcp/internal/storage"
	"github.com/dshills/recall-mcp/internal/vectorstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "recall-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	records  storage.RecordStore
	vectors  vectorstore.Store
	embedder embedder.Embedder
	searcher *searcher.Searcher
	patterns *clustering.Engine
	migrator *migrator.Migrator
	logger   *log.Logger
}

// NewServer wires all components from one configuration object. The
// embedder is shared by the searcher, the migrator, and capture so they
// use one cache and one vector space. A nil logger discards output.
func NewServer(cfg *config.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	records, err := storage.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize record store: %w", err)
	}

	vectors, err := newVectorStore(cfg)
	if err != nil {
		_ = records.Close()
		return nil, err
	}
	if err := vectors.Initialize(context.Background()); err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = records.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	scorer := scoring.NewEngine(scoring.Weights{
		Text:            cfg.Scoring.TextWeight,
		Vector:          cfg.Scoring.VectorWeight,
		Semantic:        cfg.Scoring.SemanticWeight,
		Filter:          cfg.Scoring.FilterWeight,
		MismatchPenalty: cfg.Scoring.MismatchPenalty,
		ExactMatch:      cfg.Scoring.ExactMatch,
		WordMatch:       cfg.Scoring.WordMatch,
		PartialMatch:    cfg.Scoring.PartialMatch,
	})

	srch := searcher.NewSearcher(records, vectors, emb, scorer, searcher.Options{
		SemanticThreshold: cfg.Search.SemanticThreshold,
		FallbackThreshold: cfg.Search.FallbackThreshold,
		RetryDisabled:     cfg.Search.RetryDisabled,
		Debug:             cfg.Search.Debug,
		CacheSize:         cfg.Search.CacheSize,
	}, logger)

	patterns := clustering.NewEngine(clustering.Options{
		RefineThreshold:    cfg.Clustering.RefineThreshold,
		MaxDepth:           cfg.Clustering.MaxDepth,
		ProminenceCutoff:   cfg.Clustering.ProminenceCutoff,
		DimensionThreshold: cfg.Clustering.DimensionThreshold,
		MinClusterSize:     cfg.Clustering.MinClusterSize,
		MaxKeywords:        cfg.Clustering.MaxKeywords,
	}, logger)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		records:  records,
		vectors:  vectors,
		embedder: emb,
		searcher: srch,
		patterns: patterns,
		migrator: migrator.New(records, vectors, emb, logger),
		logger:   logger,
	}
	s.registerTools()

	return s, nil
}

func newVectorStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorBackend {
	case config.BackendMilvus:
		// Milvus fixes dimensionality in the collection schema, so it
		// must be known up front; the embedder's dimension is the one
		// every vector will actually have.
		dimension := cfg.Milvus.Dimension
		if dimension == 0 {
			dimension = cfg.Embedding.Dimension
		}
		return vectorstore.NewMilvusStore(vectorstore.MilvusConfig{
			Address:    cfg.Milvus.Address,
			Username:   cfg.Milvus.Username,
			Password:   cfg.Milvus.Password,
			Collection: cfg.Milvus.Collection,
			Dimension:  dimension,
		}), nil
	case config.BackendFile:
		return vectorstore.NewFileStore(cfg.VectorFilePath()), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidBackend, cfg.VectorBackend)
	}
}

// Serve starts the MCP server on stdio and blocks until shutdown.
// Stdout carries the protocol; all logging goes to stderr.
func (s *Server) Serve(ctx context.Context) error {
	defer s.close()
	return server.ServeStdio(s.mcp)
}

func (s *Server) close() {
	if err := s.records.Close(); err != nil {
		s.logger.Warn("failed to close record store", "error", err)
	}
	if err := s.vectors.Close(); err != nil {
		s.logger.Warn("failed to close vector store", "error", err)
	}
	if err := s.embedder.Close(); err != nil {
		s.logger.Warn("failed to close embedder", "error", err)
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchExperiencesTool(), s.handleSearchExperiences)
	s.mcp.AddTool(discoverPatternsTool(), s.handleDiscoverPatterns)
	s.mcp.AddTool(captureExperienceTool(), s.handleCaptureExperience)
	s.mcp.AddTool(reembedExperiencesTool(), s.handleReembedExperiences)
	s.mcp.AddTool(getStoreStatusTool(), s.handleGetStoreStatus)
}
