// Package types provides shared type definitions for the Recall MCP server.
//
// This package defines domain types used across the recall pipeline:
// experience records, quality filters, ranked results, and cluster output.
//
// # Core Types
//
// ExperienceRecord is the unit of captured content. It combines free text
// with a seven-dimensional quality signature and optional vectors:
//
//	rec := &types.ExperienceRecord{
//	    ID:        uuid.NewString(),
//	    Text:      "walked to the lake at dawn, mind quiet",
//	    Qualities: []string{"embodied.sensing", "mood.open", "time.present"},
//	}
//
// The seven quality dimensions are fixed: embodied, focus, mood, purpose,
// space, time, presence. A QualityVector encodes per-dimension prominence
// as a dense [0,1] value in that order.
//
// # Quality Filters
//
// QualityFilter is a small boolean algebra evaluated against a record's
// quality labels:
//
//	filter := &types.QualityFilter{
//	    And: []*types.QualityFilter{
//	        {Dimension: "mood", Subtype: "open"},
//	        {Not: &types.QualityFilter{Dimension: "purpose", Subtype: "goal"}},
//	    },
//	}
//
// Filter validation lives in the quality package; a filter containing any
// unregistered dimension or subtype is invalid as a whole.
//
// # Search Results
//
// RankedRecord pairs a record with its composite relevance score and a
// per-signal breakdown:
//
//	result := &types.RankedRecord{
//	    Record:         rec,
//	    Rank:           1,
//	    RelevanceScore: 0.92,
//	}
//
// Relevance scores are normalized to [0, 1], with higher values indicating
// better matches.
package types
