package migrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/recall-mcp/internal/embedder"
	"github.com/dshills/recall-mcp/internal/storage"
	"github.com/dshills/recall-mcp/internal/vectorstore"
	"github.com/dshills/recall-mcp/pkg/types"
)

// DefaultBatchSize bounds one embedding API call.
const DefaultBatchSize = 50

// Migrator regenerates semantic embeddings for the whole record set and
// mirrors them into the vector store. It is the bulk-rewrite step of the
// record lifecycle; everything else treats records as immutable.
type Migrator struct {
	records  storage.RecordStore
	vectors  vectorstore.Store
	embedder embedder.Embedder
	logger   *log.Logger
}

// Config contains configuration for a re-embedding run.
type Config struct {
	BatchSize int // Texts per embedding call (default: DefaultBatchSize)
}

// Statistics summarizes a re-embedding run.
type Statistics struct {
	Processed     int
	Embedded      int
	Skipped       int
	Failed        int
	Duration      time.Duration
	ErrorMessages []string
}

// New creates a Migrator. A nil logger discards output.
func New(records storage.RecordStore, vectors vectorstore.Store, emb embedder.Embedder, logger *log.Logger) *Migrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Migrator{
		records:  records,
		vectors:  vectors,
		embedder: emb,
		logger:   logger,
	}
}

// ReembedAll regenerates embeddings for every record with text, saves the
// rewritten records, and upserts the vectors. Per-record failures are
// collected in the statistics; only load failures abort the run.
func (m *Migrator) ReembedAll(ctx context.Context, config *Config) (*Statistics, error) {
	if config == nil {
		config = &Config{}
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BatchSize > embedder.MaxBatchSize {
		config.BatchSize = embedder.MaxBatchSize
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	records, err := m.records.GetAllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	for start := 0; start < len(records); start += config.BatchSize {
		end := start + config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		m.reembedBatch(ctx, records[start:end], stats)

		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(startTime)
			return stats, err
		}
	}

	stats.Duration = time.Since(startTime)
	m.logger.Info("re-embedding complete",
		"processed", stats.Processed,
		"embedded", stats.Embedded,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

// reembedBatch embeds one batch of records. A batch-level embedding
// failure falls back to per-record calls so one bad text cannot sink its
// whole batch.
func (m *Migrator) reembedBatch(ctx context.Context, records []*types.ExperienceRecord, stats *Statistics) {
	batch := make([]*types.ExperienceRecord, 0, len(records))
	texts := make([]string, 0, len(records))
	for _, record := range records {
		stats.Processed++
		if record.Text == "" {
			stats.Skipped++
			continue
		}
		batch = append(batch, record)
		texts = append(texts, record.Text)
	}
	if len(batch) == 0 {
		return
	}

	resp, err := m.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err == nil && len(resp.Embeddings) == len(batch) {
		for i, record := range batch {
			m.applyEmbedding(ctx, record, resp.Embeddings[i].Vector, stats)
		}
		return
	}
	if err != nil {
		m.logger.Warn("batch embedding failed, retrying per record", "error", err)
	}

	for _, record := range batch {
		emb, err := m.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: record.Text})
		if err != nil {
			stats.Failed++
			stats.ErrorMessages = append(stats.ErrorMessages,
				fmt.Sprintf("embed %s: %v", record.ID, err))
			continue
		}
		m.applyEmbedding(ctx, record, emb.Vector, stats)
	}
}

func (m *Migrator) applyEmbedding(ctx context.Context, record *types.ExperienceRecord, vector []float32, stats *Statistics) {
	record.SemanticEmbedding = vector
	if err := m.records.SaveRecord(ctx, record); err != nil {
		stats.Failed++
		stats.ErrorMessages = append(stats.ErrorMessages,
			fmt.Sprintf("save %s: %v", record.ID, err))
		return
	}
	if m.vectors != nil {
		if err := m.vectors.Upsert(ctx, record.ID, vector); err != nil {
			stats.Failed++
			stats.ErrorMessages = append(stats.ErrorMessages,
				fmt.Sprintf("upsert %s: %v", record.ID, err))
			return
		}
	}
	stats.Embedded++
}
