package clustering

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/recall-mcp/pkg/types"
)

func record(id string, qualities []string, mutate ...func(*types.ExperienceRecord)) *types.ExperienceRecord {
	r := &types.ExperienceRecord{
		ID:        id,
		CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Text:      "an experience",
		Qualities: qualities,
	}
	for _, m := range mutate {
		m(r)
	}
	return r
}

func withEmbedding(v ...float32) func(*types.ExperienceRecord) {
	return func(r *types.ExperienceRecord) { r.SemanticEmbedding = v }
}

func withText(text string) func(*types.ExperienceRecord) {
	return func(r *types.ExperienceRecord) { r.Text = text }
}

func withQualityVector(v ...float32) func(*types.ExperienceRecord) {
	return func(r *types.ExperienceRecord) { r.QualityVector = v }
}

func findBySize(t *testing.T, d *Discovery, ids []string, size int, common []string) *types.ClusterResult {
	t.Helper()
	for _, id := range ids {
		cluster := d.Clusters[id]
		if cluster.Size == size && assert.ObjectsAreEqual(common, cluster.CommonQualities) {
			return cluster
		}
	}
	t.Fatalf("no cluster of size %d with qualities %v", size, common)
	return nil
}

func TestExactSignaturePairs(t *testing.T) {
	// Two signature pairs must yield exactly two clusters of two, each
	// carrying the shared signature.
	records := []*types.ExperienceRecord{
		record("r1", []string{"embodied.thinking", "mood.open"}),
		record("r2", []string{"mood.open", "embodied.thinking"}),
		record("r3", []string{"space.here", "time.past"}),
		record("r4", []string{"time.past", "space.here"}),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, discovery.SignatureClusters, 2)
	first := findBySize(t, discovery, discovery.SignatureClusters, 2, []string{"embodied.thinking", "mood.open"})
	assert.ElementsMatch(t, []string{"r1", "r2"}, first.MemberIDs)
	second := findBySize(t, discovery, discovery.SignatureClusters, 2, []string{"space.here", "time.past"})
	assert.ElementsMatch(t, []string{"r3", "r4"}, second.MemberIDs)
}

func TestSingletonClustersAreValid(t *testing.T) {
	records := []*types.ExperienceRecord{
		record("solo", []string{"mood.closed"}),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, discovery.SignatureClusters, 1)
	cluster := discovery.Clusters[discovery.SignatureClusters[0]]
	assert.Equal(t, 1, cluster.Size)
	assert.Equal(t, []string{"mood.closed"}, cluster.CommonQualities)
	assert.Equal(t, "1 experience sharing mood.closed", cluster.Summary)
}

func TestEmptySignatureFallbackSummary(t *testing.T) {
	records := []*types.ExperienceRecord{
		record("a", nil),
		record("b", nil),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, discovery.SignatureClusters, 1)
	cluster := discovery.Clusters[discovery.SignatureClusters[0]]
	assert.Empty(t, cluster.CommonQualities)
	assert.Equal(t, "2 experiences", cluster.Summary)
}

func TestHierarchicalRefinement(t *testing.T) {
	// One signature, two embedding neighborhoods: the parent splits into
	// two children that reference it by id.
	records := []*types.ExperienceRecord{
		record("a1", []string{"mood.open"}, withEmbedding(1, 0, 0)),
		record("a2", []string{"mood.open"}, withEmbedding(0.99, 0.01, 0)),
		record("b1", []string{"mood.open"}, withEmbedding(0, 1, 0)),
		record("b2", []string{"mood.open"}, withEmbedding(0.01, 0.99, 0)),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, discovery.SignatureClusters, 1)
	parentID := discovery.SignatureClusters[0]

	childOne, ok := discovery.Clusters[parentID+".1"]
	require.True(t, ok, "first refinement child missing")
	childTwo, ok := discovery.Clusters[parentID+".2"]
	require.True(t, ok, "second refinement child missing")

	assert.Equal(t, parentID, childOne.ParentID)
	assert.Equal(t, parentID, childTwo.ParentID)
	assert.ElementsMatch(t, []string{"a1", "a2"}, childOne.MemberIDs)
	assert.ElementsMatch(t, []string{"b1", "b2"}, childTwo.MemberIDs)
}

func TestRefinementRespectsMaxDepth(t *testing.T) {
	records := []*types.ExperienceRecord{
		record("a1", []string{"mood.open"}, withEmbedding(1, 0, 0)),
		record("a2", []string{"mood.open"}, withEmbedding(0, 1, 0)),
	}

	engine := NewEngine(Options{MaxDepth: -1}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	parentID := discovery.SignatureClusters[0]
	_, ok := discovery.Clusters[parentID+".1"]
	assert.False(t, ok, "refinement must not run past the depth bound")
}

func TestNoRefinementForCohesiveCluster(t *testing.T) {
	records := []*types.ExperienceRecord{
		record("a1", []string{"mood.open"}, withEmbedding(1, 0, 0)),
		record("a2", []string{"mood.open"}, withEmbedding(0.99, 0.01, 0)),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	parentID := discovery.SignatureClusters[0]
	_, ok := discovery.Clusters[parentID+".1"]
	assert.False(t, ok, "a single proximity group must not split")
}

func TestPerDimensionClustering(t *testing.T) {
	embodied := func(r *types.ExperienceRecord) {
		r.QualityVector = types.QualityVector{0.9, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
	}
	records := []*types.ExperienceRecord{
		record("m1", []string{"embodied.sensing"}, embodied,
			withEmbedding(1, 0), withText("morning walk through the park")),
		record("m2", []string{"embodied.sensing"}, embodied,
			withEmbedding(0.98, 0.02), withText("another slow morning walk")),
		record("other", []string{"focus.narrow"}, withQualityVector(0.1, 0.9, 0.1, 0.1, 0.1, 0.1, 0.1),
			withEmbedding(0, 1), withText("deep in the debugger")),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	var embodiedCluster *types.ClusterResult
	for _, id := range discovery.DimensionClusters {
		if discovery.Clusters[id].Dimension == "embodied" {
			embodiedCluster = discovery.Clusters[id]
		}
	}
	require.NotNil(t, embodiedCluster, "expected a thematic cluster for embodied")

	assert.ElementsMatch(t, []string{"m1", "m2"}, embodiedCluster.MemberIDs)
	assert.Contains(t, embodiedCluster.Keywords, "morning")
	assert.Equal(t, "time-of-day patterns", embodiedCluster.SemanticLabel)
	assert.Contains(t, embodiedCluster.Summary, "around")
}

func TestSemanticLabelFallback(t *testing.T) {
	assert.Equal(t, "mood patterns", semanticLabel("mood", []string{"zebra", "quartz"}))
	assert.Equal(t, "time-of-day patterns", semanticLabel("time", []string{"evening"}))
}

func TestOutliers(t *testing.T) {
	records := []*types.ExperienceRecord{
		record("paired1", []string{"mood.open"}),
		record("paired2", []string{"mood.open"}),
		record("loner", []string{"space.there"}),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, []string{"loner"}, discovery.Stats.OutlierIDs)
	assert.Equal(t, 3, discovery.Stats.TotalRecords)
}

func TestCoherenceBounds(t *testing.T) {
	records := []*types.ExperienceRecord{
		record("a", []string{"mood.open"}, withEmbedding(1, 0)),
		record("b", []string{"mood.open"}, withEmbedding(-1, 0)),
	}

	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	for _, cluster := range discovery.Clusters {
		assert.GreaterOrEqual(t, cluster.Coherence, 0.0)
		assert.LessOrEqual(t, cluster.Coherence, 1.0)
	}
	assert.GreaterOrEqual(t, discovery.Stats.AverageCoherence, 0.0)
	assert.LessOrEqual(t, discovery.Stats.AverageCoherence, 1.0)
}

func TestDiscoveryDeterministic(t *testing.T) {
	var records []*types.ExperienceRecord
	for i := 0; i < 12; i++ {
		labels := []string{"mood.open"}
		if i%3 == 0 {
			labels = []string{"time.past", "space.here"}
		}
		records = append(records, record(fmt.Sprintf("r%d", i), labels,
			withEmbedding(float32(i%4), float32(3-i%4))))
	}

	engine := NewEngine(Options{}, nil)
	first, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)
	second, err := engine.DiscoverPatterns(context.Background(), records)
	require.NoError(t, err)

	require.Equal(t, len(first.Clusters), len(second.Clusters))
	for id, cluster := range first.Clusters {
		again, ok := second.Clusters[id]
		require.True(t, ok, "cluster %s missing on re-run", id)
		assert.Equal(t, cluster.MemberIDs, again.MemberIDs)
		assert.Equal(t, cluster.Summary, again.Summary)
	}
	assert.Equal(t, first.Stats.OutlierIDs, second.Stats.OutlierIDs)
}

func TestEmptyInput(t *testing.T) {
	engine := NewEngine(Options{}, nil)
	discovery, err := engine.DiscoverPatterns(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, discovery.Clusters)
	assert.Equal(t, 0, discovery.Stats.TotalRecords)
}
