package clustering

import (
	"fmt"

	"github.com/dshills/recall-mcp/internal/quality"
	"github.com/dshills/recall-mcp/pkg/types"
)

// clusterByDimension builds thematic clusters for one quality dimension:
// records where the dimension's prominence clears the cutoff, grouped by
// embedding proximity, annotated with corpus-relative keywords and a
// templated label. Groups below the minimum size are dropped.
func (e *Engine) clusterByDimension(records []*types.ExperienceRecord, dimension string, corpus *corpusStats) []*types.ClusterResult {
	var prominent []*types.ExperienceRecord
	for _, record := range records {
		value, ok := quality.Prominence(record, dimension)
		if ok && float64(value) > e.opts.ProminenceCutoff {
			prominent = append(prominent, record)
		}
	}
	if len(prominent) < e.opts.MinClusterSize {
		return nil
	}

	groups := e.groupByProximity(prominent, e.opts.DimensionThreshold)

	var clusters []*types.ClusterResult
	index := 0
	for _, group := range groups {
		if len(group) < e.opts.MinClusterSize {
			continue
		}
		index++

		keywords := extractKeywords(group, corpus, e.opts.MaxKeywords)
		cluster := &types.ClusterResult{
			ID:            fmt.Sprintf("dim-%s-%d", dimension, index),
			Dimension:     dimension,
			MemberIDs:     memberIDs(group),
			Size:          len(group),
			Centroid:      centroid(group),
			Coherence:     coherence(group),
			Keywords:      keywords,
			SemanticLabel: semanticLabel(dimension, keywords),
		}
		cluster.Summary = summarize(cluster.Size, nil, keywords)
		clusters = append(clusters, cluster)
	}
	return clusters
}
