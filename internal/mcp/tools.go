package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/recall-mcp/internal/embedder"
	"github.com/dshills/recall-mcp/internal/migrator"
	"github.com/dshills/recall-mcp/internal/searcher"
	"github.com/dshills/recall-mcp/internal/storage"
	"github.com/dshills/recall-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyText        = -32001 // Capture text is missing or empty
	ErrorCodeInvalidVector    = -32002 // Quality vector malformed or out of range
	ErrorCodeInvalidTimestamp = -32003 // Timestamp parameter failed to parse
)

// handleSearchExperiences handles the search_experiences tool invocation
func (s *Server) handleSearchExperiences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	req, err := parseSearchRequest(args)
	if err != nil {
		return nil, err
	}

	response, err := s.searcher.Search(ctx, *req)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(formatSearchResponse(response))), nil
}

// handleDiscoverPatterns handles the discover_patterns tool invocation.
// With narrowing parameters the clustered set is a query's results;
// without them it is the whole store.
func (s *Server) handleDiscoverPatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	records, err := s.patternSource(ctx, args)
	if err != nil {
		return nil, err
	}

	discovery, err := s.patterns.DiscoverPatterns(ctx, records)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "pattern discovery failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	clusters := make([]map[string]interface{}, 0, len(discovery.Clusters))
	for _, id := range discovery.SignatureClusters {
		clusters = append(clusters, formatCluster(discovery.Clusters[id]))
	}
	// Refinement children live only in the arena; list them after their
	// parents in id order so the output is deterministic.
	childIDs := make([]string, 0)
	for id, cluster := range discovery.Clusters {
		if cluster.ParentID != "" {
			childIDs = append(childIDs, id)
		}
	}
	sort.Strings(childIDs)
	for _, id := range childIDs {
		clusters = append(clusters, formatCluster(discovery.Clusters[id]))
	}
	for _, id := range discovery.DimensionClusters {
		clusters = append(clusters, formatCluster(discovery.Clusters[id]))
	}

	response := map[string]interface{}{
		"clusters": clusters,
		"statistics": map[string]interface{}{
			"total_clusters":    discovery.Stats.TotalClusters,
			"total_records":     discovery.Stats.TotalRecords,
			"outlier_ids":       discovery.Stats.OutlierIDs,
			"average_coherence": discovery.Stats.AverageCoherence,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// patternSource picks the record set to cluster.
func (s *Server) patternSource(ctx context.Context, args map[string]interface{}) ([]*types.ExperienceRecord, error) {
	query := getStringDefault(args, "query", "")
	semanticQuery := getStringDefault(args, "semantic_query", "")
	_, hasFilters := args["filters"]
	_, hasQualityFilter := args["quality_filter"]

	if query == "" && semanticQuery == "" && !hasFilters && !hasQualityFilter {
		records, err := s.records.GetAllRecords(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to load records", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return records, nil
	}

	limit := getIntDefault(args, "limit", searcher.MaxLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req := searcher.SearchRequest{
		QueryText:     query,
		SemanticQuery: semanticQuery,
		Limit:         limit,
	}
	if err := parseFilterArgs(args, &req); err != nil {
		return nil, err
	}

	response, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "narrowing search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	records := make([]*types.ExperienceRecord, 0, len(response.Results))
	for _, result := range response.Results {
		records = append(records, result.Record)
	}
	return records, nil
}

// handleCaptureExperience handles the capture_experience tool invocation
func (s *Server) handleCaptureExperience(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, newMCPError(ErrorCodeEmptyText, "text parameter is required and cannot be empty", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}

	record := &types.ExperienceRecord{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Text:            text,
		Who:             getStringDefault(args, "who", ""),
		Perspective:     getStringDefault(args, "perspective", ""),
		ProcessingStage: getStringDefault(args, "processing_stage", ""),
		ContentType:     getStringDefault(args, "content_type", ""),
		Crafted:         getBoolPtr(args, "crafted"),
	}

	if raw, present := args["occurred_at"]; present {
		occurred, err := parseTimestamp(raw, "occurred_at")
		if err != nil {
			return nil, err
		}
		record.OccurredAt = &occurred
	}
	if raw, present := args["qualities"]; present {
		if err := decodeInto(raw, &record.Qualities, "qualities"); err != nil {
			return nil, err
		}
	}
	if raw, present := args["reflects"]; present {
		if err := decodeInto(raw, &record.Reflects, "reflects"); err != nil {
			return nil, err
		}
	}
	if raw, present := args["quality_vector"]; present {
		if err := decodeInto(raw, &record.QualityVector, "quality_vector"); err != nil {
			return nil, err
		}
		if err := record.QualityVector.Validate(); err != nil {
			return nil, newMCPError(ErrorCodeInvalidVector, "invalid quality vector", map[string]interface{}{
				"param": "quality_vector",
				"error": err.Error(),
			})
		}
	}

	embedded := false
	if getBoolDefault(args, "embed", true) {
		embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			// Capture must not fail on a flaky provider; the record is
			// saved without an embedding and reembed_experiences catches up.
			s.logger.Warn("capturing without embedding", "error", err)
		} else {
			record.SemanticEmbedding = embedding.Vector
			embedded = true
		}
	}

	if err := s.records.SaveRecord(ctx, record); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save record", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if embedded {
		if err := s.vectors.Upsert(ctx, record.ID, record.SemanticEmbedding); err != nil {
			s.logger.Warn("failed to mirror embedding into vector store", "id", record.ID, "error", err)
		}
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"id":         record.ID,
		"created_at": record.CreatedAt.Format(time.RFC3339),
		"embedded":   embedded,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReembedExperiences handles the reembed_experiences tool invocation
func (s *Server) handleReembedExperiences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	batchSize := getIntDefault(args, "batch_size", migrator.DefaultBatchSize)
	if batchSize < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "batch_size must be at least 1", map[string]interface{}{
			"param": "batch_size",
			"value": batchSize,
		})
	}

	stats, err := s.migrator.ReembedAll(ctx, &migrator.Config{BatchSize: batchSize})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "re-embedding failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"processed":   stats.Processed,
		"embedded":    stats.Embedded,
		"skipped":     stats.Skipped,
		"failed":      stats.Failed,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStoreStatus handles the get_store_status tool invocation
func (s *Server) handleGetStoreStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.records.Count(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count records", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"records": count,
		"storage": map[string]interface{}{
			"build_mode": storage.BuildMode,
			"driver":     storage.DriverName,
			"path":       s.cfg.DBPath(),
		},
		"embedding": map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		},
		"vector_backend": s.cfg.VectorBackend,
	}

	health, err := s.vectors.HealthStats(ctx)
	if err != nil {
		response["vector_store_error"] = err.Error()
	} else {
		response["vector_store"] = map[string]interface{}{
			"total_vectors":   health.TotalVectors,
			"valid_vectors":   health.ValidVectors,
			"invalid_vectors": health.InvalidVectors,
			"dimension":       health.Dimension,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Request parsing

// parseSearchRequest maps tool arguments onto a pipeline request.
func parseSearchRequest(args map[string]interface{}) (*searcher.SearchRequest, error) {
	req := &searcher.SearchRequest{
		QueryText:     getStringDefault(args, "query", ""),
		SemanticQuery: getStringDefault(args, "semantic_query", ""),
		UseCache:      getBoolDefault(args, "use_cache", false),
	}

	req.Limit = getIntDefault(args, "limit", searcher.DefaultLimit)
	if req.Limit < 1 || req.Limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": req.Limit,
		})
	}

	if raw, present := args["semantic_threshold"]; present {
		threshold, ok := raw.(float64)
		if !ok || threshold < 0 || threshold > 1 {
			return nil, newMCPError(ErrorCodeInvalidParams, "semantic_threshold must be between 0 and 1", map[string]interface{}{
				"param": "semantic_threshold",
				"value": raw,
			})
		}
		req.SemanticThreshold = &threshold
	}

	if raw, present := args["target_vector"]; present {
		if err := decodeInto(raw, &req.TargetVector, "target_vector"); err != nil {
			return nil, err
		}
		if err := req.TargetVector.Validate(); err != nil {
			return nil, newMCPError(ErrorCodeInvalidVector, "invalid target vector", map[string]interface{}{
				"param": "target_vector",
				"error": err.Error(),
			})
		}
	}
	if raw, present := args["min_vector_similarity"]; present {
		sim, ok := raw.(float64)
		if !ok || sim < 0 || sim > 1 {
			return nil, newMCPError(ErrorCodeInvalidParams, "min_vector_similarity must be between 0 and 1", map[string]interface{}{
				"param": "min_vector_similarity",
				"value": raw,
			})
		}
		req.MinVectorSimilarity = &sim
	}

	if err := parseFilterArgs(args, req); err != nil {
		return nil, err
	}

	if raw, present := args["thresholds"]; present {
		var bounds map[string]struct {
			Min *float32 `json:"min"`
			Max *float32 `json:"max"`
		}
		if err := decodeInto(raw, &bounds, "thresholds"); err != nil {
			return nil, err
		}
		req.Thresholds = make(map[string]searcher.DimensionThreshold, len(bounds))
		for dimension, b := range bounds {
			req.Thresholds[dimension] = searcher.DimensionThreshold{Min: b.Min, Max: b.Max}
		}
	}

	switch field := getStringDefault(args, "time_field", "created"); field {
	case "created":
		req.TimeField = types.TimeFieldCreated
	case "occurred":
		req.TimeField = types.TimeFieldOccurred
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid time_field", map[string]interface{}{
			"param":   "time_field",
			"value":   field,
			"allowed": []string{"created", "occurred"},
		})
	}

	if raw, present := args["since"]; present {
		since, err := parseTimestamp(raw, "since")
		if err != nil {
			return nil, err
		}
		req.Since = &since
	}
	_, hasStart := args["start"]
	_, hasEnd := args["end"]
	if hasStart != hasEnd {
		return nil, newMCPError(ErrorCodeInvalidParams, "start and end must be supplied together", nil)
	}
	if hasStart {
		start, err := parseTimestamp(args["start"], "start")
		if err != nil {
			return nil, err
		}
		end, err := parseTimestamp(args["end"], "end")
		if err != nil {
			return nil, err
		}
		req.Range = &searcher.TimeRange{Start: start, End: end}
	}

	switch mode := getStringDefault(args, "sort_by", "score"); mode {
	case "score":
		req.SortBy = searcher.SortByScore
	case "time":
		req.SortBy = searcher.SortByTime
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid sort_by", map[string]interface{}{
			"param":   "sort_by",
			"value":   mode,
			"allowed": []string{"score", "time"},
		})
	}

	return req, nil
}

// parseFilterArgs decodes the structural and quality filter arguments
// shared by search_experiences and discover_patterns.
func parseFilterArgs(args map[string]interface{}, req *searcher.SearchRequest) error {
	if raw, present := args["filters"]; present {
		filters, ok := raw.(map[string]interface{})
		if !ok {
			return newMCPError(ErrorCodeInvalidParams, "filters must be an object", map[string]interface{}{
				"param": "filters",
			})
		}
		req.Filters = &types.StructuralFilters{
			ContentType:     getStringPtr(filters, "content_type"),
			Who:             getStringPtr(filters, "who"),
			Perspective:     getStringPtr(filters, "perspective"),
			ProcessingStage: getStringPtr(filters, "processing_stage"),
			Crafted:         getBoolPtr(filters, "crafted"),
		}
	}

	if raw, present := args["quality_filter"]; present {
		var filter types.QualityFilter
		if err := decodeInto(raw, &filter, "quality_filter"); err != nil {
			return err
		}
		req.QualityFilter = &filter
	}

	return nil
}

// Response formatting

func formatSearchResponse(response *searcher.SearchResponse) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(response.Results))
	for _, result := range response.Results {
		results = append(results, formatResult(result))
	}

	out := map[string]interface{}{
		"results":         results,
		"total":           response.Total,
		"applied_filters": response.AppliedFilters,
		"duration_ms":     response.Duration.Milliseconds(),
		"cache_hit":       response.CacheHit,
	}

	if d := response.Diagnostics; d != nil {
		diag := map[string]interface{}{}
		if d.EmptyReason != "" {
			diag["empty_reason"] = d.EmptyReason
		}
		if d.InvalidFilter != "" {
			diag["invalid_filter"] = d.InvalidFilter
		}
		if len(d.Degraded) > 0 {
			diag["degraded"] = d.Degraded
		}
		if d.RemovedStale > 0 {
			diag["removed_stale_vectors"] = d.RemovedStale
		}
		if d.SemanticRetried {
			diag["semantic_retried"] = true
		}
		if len(d.StageCounts) > 0 {
			stages := make([]map[string]interface{}, 0, len(d.StageCounts))
			for _, sc := range d.StageCounts {
				stages = append(stages, map[string]interface{}{"stage": sc.Stage, "count": sc.Count})
			}
			diag["stage_counts"] = stages
		}
		if len(d.SimilaritySamples) > 0 {
			diag["similarity_samples"] = d.SimilaritySamples
		}
		out["diagnostics"] = diag
	}

	return out
}

func formatResult(result types.RankedRecord) map[string]interface{} {
	record := result.Record
	out := map[string]interface{}{
		"rank":            result.Rank,
		"relevance_score": result.RelevanceScore,
		"id":              record.ID,
		"text":            record.Text,
		"created_at":      record.CreatedAt.Format(time.RFC3339),
	}
	if record.OccurredAt != nil {
		out["occurred_at"] = record.OccurredAt.Format(time.RFC3339)
	}
	if record.Who != "" {
		out["who"] = record.Who
	}
	if record.Perspective != "" {
		out["perspective"] = record.Perspective
	}
	if record.ProcessingStage != "" {
		out["processing_stage"] = record.ProcessingStage
	}
	if record.ContentType != "" {
		out["content_type"] = record.ContentType
	}
	if record.Crafted != nil {
		out["crafted"] = *record.Crafted
	}
	if len(record.Qualities) > 0 {
		out["qualities"] = record.Qualities
	}
	if len(record.Reflects) > 0 {
		out["reflects"] = record.Reflects
	}

	breakdown := map[string]interface{}{
		"filter_relevance": result.Breakdown.FilterRelevance,
	}
	if result.Breakdown.Text != nil {
		breakdown["text"] = *result.Breakdown.Text
	}
	if result.Breakdown.VectorSimilarity != nil {
		breakdown["vector_similarity"] = *result.Breakdown.VectorSimilarity
	}
	if result.Breakdown.SemanticSimilarity != nil {
		breakdown["semantic_similarity"] = *result.Breakdown.SemanticSimilarity
	}
	out["score_breakdown"] = breakdown

	return out
}

func formatCluster(cluster *types.ClusterResult) map[string]interface{} {
	out := map[string]interface{}{
		"id":         cluster.ID,
		"summary":    cluster.Summary,
		"member_ids": cluster.MemberIDs,
		"size":       cluster.Size,
		"coherence":  cluster.Coherence,
	}
	if len(cluster.CommonQualities) > 0 {
		out["common_qualities"] = cluster.CommonQualities
	}
	if cluster.ParentID != "" {
		out["parent_id"] = cluster.ParentID
	}
	if cluster.Dimension != "" {
		out["dimension"] = cluster.Dimension
	}
	if len(cluster.Keywords) > 0 {
		out["keywords"] = cluster.Keywords
	}
	if cluster.SemanticLabel != "" {
		out["semantic_label"] = cluster.SemanticLabel
	}
	return out
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// decodeInto maps a decoded-JSON argument onto a typed value via a JSON
// round trip, which handles nested objects and arrays uniformly.
func decodeInto(value interface{}, dst interface{}, param string) error {
	raw, err := json.Marshal(value)
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		return newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("invalid %s", param), map[string]interface{}{
			"param": param,
			"error": err.Error(),
		})
	}
	return nil
}

// parseTimestamp parses an RFC 3339 argument.
func parseTimestamp(value interface{}, param string) (time.Time, error) {
	str, ok := value.(string)
	if !ok {
		return time.Time{}, newMCPError(ErrorCodeInvalidTimestamp, fmt.Sprintf("%s must be an RFC 3339 string", param), map[string]interface{}{
			"param": param,
		})
	}
	ts, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return time.Time{}, newMCPError(ErrorCodeInvalidTimestamp, fmt.Sprintf("invalid %s timestamp", param), map[string]interface{}{
			"param": param,
			"value": str,
			"error": err.Error(),
		})
	}
	return ts, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringPtr extracts an optional string parameter
func getStringPtr(args map[string]interface{}, key string) *string {
	if val, ok := args[key].(string); ok {
		return &val
	}
	return nil
}

// getBoolPtr extracts an optional boolean parameter
func getBoolPtr(args map[string]interface{}, key string) *bool {
	if val, ok := args[key].(bool); ok {
		return &val
	}
	return nil
}
