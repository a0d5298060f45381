package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// structuralFilterSchema is shared by search_experiences and
// discover_patterns.
func structuralFilterSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Structural tag filters; records must match every supplied tag",
		"properties": map[string]interface{}{
			"content_type": map[string]interface{}{
				"type":        "string",
				"description": "Filter by content type tag",
			},
			"who": map[string]interface{}{
				"type":        "string",
				"description": "Filter by the who tag",
			},
			"perspective": map[string]interface{}{
				"type":        "string",
				"description": "Filter by perspective tag (e.g., 'I', 'we')",
			},
			"processing_stage": map[string]interface{}{
				"type":        "string",
				"description": "Filter by processing stage tag",
			},
			"crafted": map[string]interface{}{
				"type":        "boolean",
				"description": "Filter by the crafted flag; untagged records never match",
			},
		},
	}
}

// qualityFilterSchema describes the boolean filter algebra. The structure
// is recursive; the schema documents one level and names the operators.
func qualityFilterSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"description": "Boolean filter over quality dimensions. Either one combinator " +
			"($and, $or, $not over nested filters) or one dimension test " +
			"(dimension with optional subtype, subtypes, or present)",
		"properties": map[string]interface{}{
			"$and": map[string]interface{}{
				"type":        "array",
				"description": "All nested filters must match",
				"items":       map[string]interface{}{"type": "object"},
			},
			"$or": map[string]interface{}{
				"type":        "array",
				"description": "At least one nested filter must match",
				"items":       map[string]interface{}{"type": "object"},
			},
			"$not": map[string]interface{}{
				"type":        "object",
				"description": "The nested filter must not match",
			},
			"dimension": map[string]interface{}{
				"type":        "string",
				"description": "Quality dimension name",
				"enum":        []string{"embodied", "focus", "mood", "purpose", "space", "time", "presence"},
			},
			"subtype": map[string]interface{}{
				"type":        "string",
				"description": "Require the literal dimension.subtype label",
			},
			"subtypes": map[string]interface{}{
				"type":        "array",
				"description": "Require any one of these subtypes",
				"items":       map[string]interface{}{"type": "string"},
			},
			"present": map[string]interface{}{
				"type":        "boolean",
				"description": "Require dimension presence (or absence) regardless of subtype",
			},
		},
	}
}

// searchExperiencesTool returns the tool definition for search_experiences
func searchExperiencesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_experiences",
		Description: "Search captured experiences by text, semantic similarity, quality filters, and structural tags",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text query scored against record text; records with no match are dropped",
				},
				"semantic_query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language query for embedding-based retrieval",
				},
				"semantic_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum embedding similarity (0.0-1.0); overrides the configured default",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"target_vector": map[string]interface{}{
					"type":        "array",
					"description": "Seven quality prominence values in [0,1], ordered embodied, focus, mood, purpose, space, time, presence",
					"items":       map[string]interface{}{"type": "number"},
					"minItems":    7,
					"maxItems":    7,
				},
				"min_vector_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Hard floor on target-vector similarity; records without a quality vector are excluded",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"filters":        structuralFilterSchema(),
				"quality_filter": qualityFilterSchema(),
				"thresholds": map[string]interface{}{
					"type":        "object",
					"description": "Per-dimension prominence bounds, e.g. {\"mood\": {\"min\": 0.5}}",
					"additionalProperties": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"min": map[string]interface{}{"type": "number", "minimum": 0.0, "maximum": 1.0},
							"max": map[string]interface{}{"type": "number", "minimum": 0.0, "maximum": 1.0},
						},
					},
				},
				"time_field": map[string]interface{}{
					"type":        "string",
					"description": "Which timestamp temporal filters and time sorting use",
					"enum":        []string{"created", "occurred"},
					"default":     "created",
				},
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Keep records on or after this RFC 3339 instant",
				},
				"start": map[string]interface{}{
					"type":        "string",
					"description": "Inclusive range start (RFC 3339); requires end",
				},
				"end": map[string]interface{}{
					"type":        "string",
					"description": "Inclusive range end (RFC 3339); requires start",
				},
				"sort_by": map[string]interface{}{
					"type":        "string",
					"description": "Result ordering: composite relevance or timestamp, both descending",
					"enum":        []string{"score", "time"},
					"default":     "score",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, serve repeated identical queries from the query cache",
					"default":     false,
				},
			},
		},
	}
}

// discoverPatternsTool returns the tool definition for discover_patterns
func discoverPatternsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "discover_patterns",
		Description: "Discover recurring experience patterns: quality-signature clusters with hierarchical refinement plus per-dimension thematic clusters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Optional text query; clustering runs over the matching records instead of the whole store",
				},
				"semantic_query": map[string]interface{}{
					"type":        "string",
					"description": "Optional semantic query narrowing the clustered set",
				},
				"filters":        structuralFilterSchema(),
				"quality_filter": qualityFilterSchema(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum records drawn from a narrowing query (1-100)",
					"default":     100,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// captureExperienceTool returns the tool definition for capture_experience
func captureExperienceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "capture_experience",
		Description: "Capture a new experience record with structural tags, quality signature, and an optional immediate embedding",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "The experiential content to capture",
				},
				"who": map[string]interface{}{
					"type":        "string",
					"description": "Who the experience belongs to",
				},
				"perspective": map[string]interface{}{
					"type":        "string",
					"description": "Narrative perspective (e.g., 'I', 'we')",
				},
				"processing_stage": map[string]interface{}{
					"type":        "string",
					"description": "Processing stage tag (e.g., 'during', 'right-after')",
				},
				"content_type": map[string]interface{}{
					"type":        "string",
					"description": "Content type tag",
				},
				"crafted": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether the content was deliberately composed",
				},
				"qualities": map[string]interface{}{
					"type":        "array",
					"description": "Quality labels, optionally subtyped (e.g., 'embodied.sensing')",
					"items":       map[string]interface{}{"type": "string"},
				},
				"quality_vector": map[string]interface{}{
					"type":        "array",
					"description": "Seven prominence values in [0,1], ordered embodied, focus, mood, purpose, space, time, presence",
					"items":       map[string]interface{}{"type": "number"},
					"minItems":    7,
					"maxItems":    7,
				},
				"reflects": map[string]interface{}{
					"type":        "array",
					"description": "Ids of records this record interprets or synthesizes",
					"items":       map[string]interface{}{"type": "string"},
				},
				"occurred_at": map[string]interface{}{
					"type":        "string",
					"description": "When the experience happened (RFC 3339); defaults to unset",
				},
				"embed": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, generate the semantic embedding immediately",
					"default":     true,
				},
			},
			Required: []string{"text"},
		},
	}
}

// reembedExperiencesTool returns the tool definition for reembed_experiences
func reembedExperiencesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reembed_experiences",
		Description: "Regenerate semantic embeddings for every record with the current embedding provider",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Texts per embedding call (1-100)",
					"default":     50,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// getStoreStatusTool returns the tool definition for get_store_status
func getStoreStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_store_status",
		Description: "Report record counts, vector store health, and embedding configuration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
