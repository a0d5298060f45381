package searcher

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/recall-mcp/internal/embedder"
	"github.com/dshills/recall-mcp/internal/quality"
	"github.com/dshills/recall-mcp/internal/scoring"
	"github.com/dshills/recall-mcp/internal/storage"
	"github.com/dshills/recall-mcp/internal/vectorstore"
	"github.com/dshills/recall-mcp/pkg/types"
)

// SortMode selects the result ordering.
type SortMode string

const (
	SortByScore SortMode = "score" // Composite relevance descending (default)
	SortByTime  SortMode = "time"  // Chosen timestamp field descending
)

// Default search policy
const (
	DefaultLimit             = 10
	MaxLimit                 = 100
	DefaultSemanticThreshold = 0.7

	// FallbackThreshold is the single-retry floor for semantic search.
	// A heuristic policy choice, kept configurable via Options.
	FallbackThreshold = 0.4
)

// TimeRange is an inclusive timestamp interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// DimensionThreshold bounds one quality dimension's prominence. Nil bounds
// are not applied. A record missing the dimension's value never satisfies
// a threshold.
type DimensionThreshold struct {
	Min *float32
	Max *float32
}

// SearchRequest contains parameters for one search pass.
type SearchRequest struct {
	// QueryText scores text relevance; records with zero text match are
	// dropped after scoring.
	QueryText string

	// SemanticQuery triggers embedding-based retrieval when non-empty.
	SemanticQuery string

	// SemanticThreshold overrides the primary similarity threshold.
	SemanticThreshold *float64

	// TargetVector scores quality-vector similarity when non-empty.
	TargetVector types.QualityVector

	// MinVectorSimilarity hard-filters on target-vector similarity.
	// Records without a quality vector are excluded by this threshold.
	MinVectorSimilarity *float64

	// Filters are hard structural excludes.
	Filters *types.StructuralFilters

	// QualityFilter is the boolean filter expression. A wholly invalid
	// expression is ignored and noted in diagnostics.
	QualityFilter *types.QualityFilter

	// Thresholds bound quality-vector prominence per dimension name.
	Thresholds map[string]DimensionThreshold

	// TimeField picks which timestamp temporal filters and time sorting
	// use. Defaults to creation time.
	TimeField types.TimeField

	// Since keeps records on or after the instant.
	Since *time.Time

	// Range keeps records within inclusive bounds.
	Range *TimeRange

	SortBy   SortMode
	Limit    int
	UseCache bool
	CacheTTL time.Duration
}

// SearchResponse contains results and query metadata.
type SearchResponse struct {
	Results        []types.RankedRecord
	Total          int
	AppliedFilters []string
	Diagnostics    *Diagnostics
	Duration       time.Duration
	CacheHit       bool
}

// Diagnostics is the optional debug payload attached to a response.
// It is structured data for the caller; the pipeline never prints it.
type Diagnostics struct {
	StageCounts       []StageCount
	InvalidFilter     string
	Degraded          []string
	RemovedStale      int
	SemanticRetried   bool
	SimilaritySamples []float64
	EmptyReason       string
}

// StageCount records how many candidates survived one pipeline stage.
type StageCount struct {
	Stage string
	Count int
}

// Options configures pipeline policy.
type Options struct {
	SemanticThreshold float64 // Primary threshold, default 0.7
	FallbackThreshold float64 // Single-retry floor, default 0.4
	RetryDisabled     bool    // Disables the single lower-threshold retry
	Debug             bool    // Attach Diagnostics to responses
	CacheSize         int     // Query cache entries, default 1000
}

// Searcher orchestrates the filter and search pipeline. It is a pure read
// path over the record store and vector store.
type Searcher struct {
	records  storage.RecordStore
	vectors  vectorstore.Store
	embedder embedder.Embedder
	scorer   *scoring.Engine
	opts     Options
	logger   *log.Logger
	cache    *queryCache
}

// NewSearcher creates a pipeline instance. The embedder and vector store
// may be nil; semantic search then degrades gracefully. A nil logger
// discards output.
func NewSearcher(records storage.RecordStore, vectors vectorstore.Store, emb embedder.Embedder, scorer *scoring.Engine, opts Options, logger *log.Logger) *Searcher {
	if scorer == nil {
		scorer = scoring.NewEngine(scoring.Weights{})
	}
	if opts.SemanticThreshold == 0 {
		opts.SemanticThreshold = DefaultSemanticThreshold
	}
	if opts.FallbackThreshold == 0 {
		opts.FallbackThreshold = FallbackThreshold
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 1000
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Searcher{
		records:  records,
		vectors:  vectors,
		embedder: emb,
		scorer:   scorer,
		opts:     opts,
		logger:   logger,
		cache:    newQueryCache(opts.CacheSize),
	}
}

// candidate carries a record through the pipeline with its per-query
// similarity signals and original load order for stable tie-breaking.
type candidate struct {
	record      *types.ExperienceRecord
	vectorSim   *float64
	semanticSim *float64
	order       int
}

// Search runs one pass of the pipeline. Collaborator failures during
// semantic retrieval degrade the response instead of failing it; the only
// hard errors are record-store failures and invalid requests.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()
	s.normalizeRequest(&req)

	if req.UseCache {
		if cached, ok := s.cache.get(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	diag := &Diagnostics{}

	// Step 1: load the candidate set.
	records, err := s.records.GetAllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	totalRecords := len(records)

	candidates := make([]candidate, 0, len(records))
	for i, record := range records {
		candidates = append(candidates, candidate{record: record, order: i})
	}
	diag.addStage("loaded", len(candidates))

	applied := []string{}

	// Step 2: structural filters are hard excludes here; the scorer reuses
	// them for its soft relevance component.
	if !req.Filters.IsZero() {
		applied = append(applied, "structural")
		candidates = filterCandidates(candidates, func(c candidate) bool {
			return req.Filters.Matches(c.record)
		})
		diag.addStage("structural", len(candidates))
	}

	// Step 3: temporal filters on the chosen timestamp field.
	if req.Since != nil || req.Range != nil {
		applied = append(applied, "temporal")
		candidates = filterCandidates(candidates, func(c candidate) bool {
			return matchesTemporal(c.record, req)
		})
		diag.addStage("temporal", len(candidates))
	}

	// Step 4: per-dimension prominence thresholds.
	if len(req.Thresholds) > 0 {
		applied = append(applied, "thresholds")
		candidates = filterCandidates(candidates, func(c candidate) bool {
			return matchesThresholds(c.record, req.Thresholds)
		})
		diag.addStage("thresholds", len(candidates))
	}

	// Step 5: target quality-vector similarity. Records without a quality
	// vector have undefined similarity: excluded by a threshold, retained
	// without one.
	if len(req.TargetVector) > 0 {
		applied = append(applied, "target_vector")
		for i := range candidates {
			if candidates[i].record.QualityVector == nil {
				continue
			}
			sim := vectorstore.CosineSimilarity(req.TargetVector, candidates[i].record.QualityVector)
			candidates[i].vectorSim = &sim
		}
		if req.MinVectorSimilarity != nil {
			candidates = filterCandidates(candidates, func(c candidate) bool {
				return c.vectorSim != nil && *c.vectorSim >= *req.MinVectorSimilarity
			})
		}
		diag.addStage("target_vector", len(candidates))
	}

	// Step 5b: quality filter expression. A wholly invalid expression
	// behaves as no filter at all; see the validation contract.
	if req.QualityFilter != nil {
		if err := quality.Validate(req.QualityFilter); err != nil {
			diag.InvalidFilter = err.Error()
			s.logger.Warn("ignoring invalid quality filter", "error", err)
		} else {
			applied = append(applied, "quality_filter")
			candidates = filterCandidates(candidates, func(c candidate) bool {
				return quality.Evaluate(req.QualityFilter, c.record)
			})
			diag.addStage("quality_filter", len(candidates))
		}
	}

	// Step 6: semantic retrieval with a single bounded lower-threshold
	// retry. Collaborator failures degrade to non-semantic results.
	semanticEmpty := false
	if req.SemanticQuery != "" {
		applied = append(applied, "semantic")
		candidates, semanticEmpty = s.applySemantic(ctx, req, candidates, diag)
		diag.addStage("semantic", len(candidates))
	}

	// Step 7: score survivors, then hard-drop zero text matches.
	results := make([]types.RankedRecord, 0, len(candidates))
	for _, c := range candidates {
		score := s.scorer.Score(c.record, scoring.Request{
			QueryText:          req.QueryText,
			VectorSimilarity:   c.vectorSim,
			SemanticSimilarity: c.semanticSim,
			Filters:            req.Filters,
		})
		if req.QueryText != "" && score.Breakdown.Text != nil && *score.Breakdown.Text == 0 {
			continue
		}
		results = append(results, types.RankedRecord{
			Record:         c.record,
			RelevanceScore: score.Value,
			Breakdown:      score.Breakdown,
		})
	}
	diag.addStage("scored", len(results))

	// Step 8: stable sort preserves pre-sort order for equal keys.
	s.sortResults(results, req)

	// Step 9: truncate.
	total := len(results)
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	// Step 10: classify an empty result for caller diagnostics.
	if len(results) == 0 {
		diag.EmptyReason = classifyEmpty(totalRecords, semanticEmpty, req)
	}

	response := &SearchResponse{
		Results:        results,
		Total:          total,
		AppliedFilters: applied,
		Duration:       time.Since(startTime),
	}
	if s.opts.Debug || diag.EmptyReason != "" || diag.InvalidFilter != "" || len(diag.Degraded) > 0 {
		if !s.opts.Debug {
			// Without debug only the advisory fields are attached.
			diag.StageCounts = nil
			diag.SimilaritySamples = nil
		}
		response.Diagnostics = diag
	}

	if req.UseCache && len(response.Results) > 0 {
		s.cache.put(req, response)
	}

	return response, nil
}

// applySemantic runs step 6: embed the query, reconcile store
// dimensionality, retrieve neighbors, and intersect. The bool result
// reports whether retrieval came back empty even after the retry.
func (s *Searcher) applySemantic(ctx context.Context, req SearchRequest, candidates []candidate, diag *Diagnostics) ([]candidate, bool) {
	if s.embedder == nil || s.vectors == nil {
		diag.degrade("semantic search unavailable: no embedder or vector store configured")
		s.logger.Warn("semantic search skipped", "reason", "embedder or vector store not configured")
		return candidates, false
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.SemanticQuery})
	if err != nil {
		diag.degrade(fmt.Sprintf("embedding failed: %v", err))
		s.logger.Warn("degrading to non-semantic results", "error", err)
		return candidates, false
	}

	// Reconcile store dimensionality before searching: stale vectors from
	// an earlier embedding model are removed, not silently mis-scored.
	report, err := s.vectors.ValidateVectors(ctx, len(embedding.Vector))
	if err == nil && report.InvalidCount > 0 {
		removed, rmErr := s.vectors.RemoveInvalidVectors(ctx, len(embedding.Vector))
		if rmErr != nil {
			s.logger.Warn("failed to remove stale vectors", "error", rmErr)
		} else {
			diag.RemovedStale = removed
			s.logger.Info("removed stale-dimension vectors", "count", removed)
		}
	}

	threshold := s.opts.SemanticThreshold
	if req.SemanticThreshold != nil {
		threshold = *req.SemanticThreshold
	}

	// Size the neighbor request to the whole store, not the surviving
	// candidate set. Vectors of already-excluded records would otherwise
	// crowd surviving ones out of the neighbor list before the intersect.
	neighborLimit := len(candidates)
	if health, healthErr := s.vectors.HealthStats(ctx); healthErr == nil && health.TotalVectors > neighborLimit {
		neighborLimit = health.TotalVectors
	}
	if neighborLimit == 0 {
		neighborLimit = 1
	}

	matches, err := s.vectors.FindSimilar(ctx, embedding.Vector, neighborLimit, threshold)
	if err != nil {
		diag.degrade(fmt.Sprintf("vector store search failed: %v", err))
		s.logger.Warn("degrading to non-semantic results", "error", err)
		return candidates, false
	}

	// One bounded retry at the fallback floor, only when the caller's
	// effective threshold was stricter than the floor. Never a second.
	if len(matches) == 0 && !s.opts.RetryDisabled && threshold > s.opts.FallbackThreshold {
		diag.SemanticRetried = true
		s.logger.Debug("retrying semantic search at fallback threshold",
			"primary", threshold, "fallback", s.opts.FallbackThreshold)
		matches, err = s.vectors.FindSimilar(ctx, embedding.Vector, neighborLimit, s.opts.FallbackThreshold)
		if err != nil {
			diag.degrade(fmt.Sprintf("vector store retry failed: %v", err))
			return candidates, false
		}
	}

	similarities := make(map[string]float64, len(matches))
	for _, m := range matches {
		similarities[m.ID] = m.Similarity
		if len(diag.SimilaritySamples) < 10 {
			diag.SimilaritySamples = append(diag.SimilaritySamples, m.Similarity)
		}
	}

	intersected := filterCandidates(candidates, func(c candidate) bool {
		_, ok := similarities[c.record.ID]
		return ok
	})
	for i := range intersected {
		sim := similarities[intersected[i].record.ID]
		intersected[i].semanticSim = &sim
	}

	return intersected, len(matches) == 0
}

func (s *Searcher) sortResults(results []types.RankedRecord, req SearchRequest) {
	switch req.SortBy {
	case SortByTime:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Record.Timestamp(req.TimeField).After(results[j].Record.Timestamp(req.TimeField))
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].RelevanceScore > results[j].RelevanceScore
		})
	}
}

func (s *Searcher) normalizeRequest(req *SearchRequest) {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.TimeField == "" {
		req.TimeField = types.TimeFieldCreated
	}
	if req.SortBy == "" {
		req.SortBy = SortByScore
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour
	}
}

func matchesTemporal(record *types.ExperienceRecord, req SearchRequest) bool {
	ts := record.Timestamp(req.TimeField)
	if req.Since != nil && ts.Before(*req.Since) {
		return false
	}
	if req.Range != nil {
		if ts.Before(req.Range.Start) || ts.After(req.Range.End) {
			return false
		}
	}
	return true
}

// matchesThresholds checks per-dimension prominence bounds. A record
// missing the dimension's value never satisfies a threshold.
func matchesThresholds(record *types.ExperienceRecord, thresholds map[string]DimensionThreshold) bool {
	for dimension, bounds := range thresholds {
		idx := quality.DimensionIndex(dimension)
		if idx < 0 {
			return false
		}
		if len(record.QualityVector) != types.NumQualityDimensions {
			return false
		}
		value := record.QualityVector[idx]
		if bounds.Min != nil && value < *bounds.Min {
			return false
		}
		if bounds.Max != nil && value > *bounds.Max {
			return false
		}
	}
	return true
}

func filterCandidates(candidates []candidate, keep func(candidate) bool) []candidate {
	filtered := candidates[:0]
	for _, c := range candidates {
		if keep(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func classifyEmpty(totalRecords int, semanticEmpty bool, req SearchRequest) string {
	switch {
	case totalRecords == 0:
		return "the store contains no records"
	case semanticEmpty:
		return "no records met the semantic similarity threshold; try lowering it"
	case req.QueryText != "":
		return "no records matched the query text; try broader terms"
	default:
		return "all records were filtered out; try relaxing filters"
	}
}

func (d *Diagnostics) addStage(stage string, count int) {
	d.StageCounts = append(d.StageCounts, StageCount{Stage: stage, Count: count})
}

func (d *Diagnostics) degrade(reason string) {
	d.Degraded = append(d.Degraded, reason)
}
