package clustering

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/recall-mcp/internal/quality"
	"github.com/dshills/recall-mcp/internal/vectorstore"
	"github.com/dshills/recall-mcp/pkg/types"
)

// Default clustering policy
const (
	DefaultRefineThreshold    = 0.75 // Centroid similarity to join a refinement child
	DefaultMaxDepth           = 3    // Hierarchical refinement recursion bound
	DefaultProminenceCutoff   = 0.4  // Per-dimension membership prominence
	DefaultDimensionThreshold = 0.6  // Embedding proximity for thematic clusters
	DefaultMinClusterSize     = 2    // Thematic clusters smaller than this are dropped
	DefaultMaxKeywords        = 5
)

// Options configures the clustering engine. Zero values use defaults.
type Options struct {
	RefineThreshold    float64
	MaxDepth           int
	ProminenceCutoff   float64
	DimensionThreshold float64
	MinClusterSize     int
	MaxKeywords        int
}

func (o *Options) applyDefaults() {
	if o.RefineThreshold == 0 {
		o.RefineThreshold = DefaultRefineThreshold
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.ProminenceCutoff == 0 {
		o.ProminenceCutoff = DefaultProminenceCutoff
	}
	if o.DimensionThreshold == 0 {
		o.DimensionThreshold = DefaultDimensionThreshold
	}
	if o.MinClusterSize == 0 {
		o.MinClusterSize = DefaultMinClusterSize
	}
	if o.MaxKeywords == 0 {
		o.MaxKeywords = DefaultMaxKeywords
	}
}

// Discovery is the output of one pattern-discovery pass.
//
// Clusters is an arena keyed by cluster id; refinement children reference
// their parent through ParentID rather than nesting, so the hierarchy has
// no ownership cycles. SignatureClusters and DimensionClusters list ids
// in deterministic order.
type Discovery struct {
	Clusters          map[string]*types.ClusterResult
	SignatureClusters []string
	DimensionClusters []string
	Stats             types.ClusterStats
}

// Engine groups experience records into coherent themes. Results are
// deterministic for a given input ordering.
type Engine struct {
	opts   Options
	logger *log.Logger
}

// NewEngine creates a clustering engine. A nil logger discards output.
func NewEngine(opts Options, logger *log.Logger) *Engine {
	opts.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{opts: opts, logger: logger}
}

// DiscoverPatterns runs both groupings over the record set: exact
// quality-signature clustering with hierarchical refinement, and
// per-dimension thematic clustering. The seven dimension passes run in
// parallel; everything else is sequential and deterministic.
func (e *Engine) DiscoverPatterns(ctx context.Context, records []*types.ExperienceRecord) (*Discovery, error) {
	discovery := &Discovery{
		Clusters: make(map[string]*types.ClusterResult),
	}
	discovery.Stats.TotalRecords = len(records)
	if len(records) == 0 {
		return discovery, nil
	}

	corpus := buildCorpus(records)

	// Exact-signature clusters plus hierarchical refinement.
	signatureClusters := e.clusterBySignature(records)
	for _, cluster := range signatureClusters {
		discovery.Clusters[cluster.ID] = cluster
		discovery.SignatureClusters = append(discovery.SignatureClusters, cluster.ID)
		e.refine(records, cluster, 1, discovery)
	}

	// Per-dimension passes are independent; run them in parallel.
	dimensionClusters := make([][]*types.ClusterResult, len(quality.Dimensions))
	group, gctx := errgroup.WithContext(ctx)
	for i, dimension := range quality.Dimensions {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dimensionClusters[i] = e.clusterByDimension(records, dimension, corpus)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("per-dimension clustering: %w", err)
	}

	for _, clusters := range dimensionClusters {
		for _, cluster := range clusters {
			discovery.Clusters[cluster.ID] = cluster
			discovery.DimensionClusters = append(discovery.DimensionClusters, cluster.ID)
		}
	}

	e.finishStats(records, discovery)
	return discovery, nil
}

// clusterBySignature groups records whose sorted quality-label sets are
// byte-identical. Singleton groups are valid one-member clusters.
func (e *Engine) clusterBySignature(records []*types.ExperienceRecord) []*types.ClusterResult {
	groups := make(map[string][]*types.ExperienceRecord)
	for _, record := range records {
		sig := signature(record)
		groups[sig] = append(groups[sig], record)
	}

	signatures := make([]string, 0, len(groups))
	for sig := range groups {
		signatures = append(signatures, sig)
	}
	sort.Strings(signatures)

	clusters := make([]*types.ClusterResult, 0, len(signatures))
	for i, sig := range signatures {
		members := groups[sig]
		var common []string
		if sig != "" {
			common = strings.Split(sig, "|")
		}

		cluster := &types.ClusterResult{
			ID:              fmt.Sprintf("sig-%d", i+1),
			MemberIDs:       memberIDs(members),
			CommonQualities: common,
			Size:            len(members),
			Centroid:        centroid(members),
			Coherence:       coherence(members),
		}
		cluster.Summary = summarize(cluster.Size, common, nil)
		clusters = append(clusters, cluster)
	}
	return clusters
}

// refine splits a cluster with two or more members by embedding-space
// proximity, recursively up to the depth bound. Children live in the
// arena beside their parent, named parentID.childIndex.
func (e *Engine) refine(records []*types.ExperienceRecord, parent *types.ClusterResult, depth int, discovery *Discovery) {
	if depth > e.opts.MaxDepth || parent.Size < 2 {
		return
	}

	members := recordsByID(records, parent.MemberIDs)
	groups := e.groupByProximity(members, e.opts.RefineThreshold)
	if len(groups) < 2 {
		// No refinement possible; the parent stands as a leaf.
		return
	}

	for i, group := range groups {
		child := &types.ClusterResult{
			ID:              fmt.Sprintf("%s.%d", parent.ID, i+1),
			ParentID:        parent.ID,
			MemberIDs:       memberIDs(group),
			CommonQualities: parent.CommonQualities,
			Size:            len(group),
			Centroid:        centroid(group),
			Coherence:       coherence(group),
		}
		child.Summary = summarize(child.Size, child.CommonQualities, nil)
		discovery.Clusters[child.ID] = child
		e.refine(records, child, depth+1, discovery)
	}
}

// groupByProximity assigns each record to the first existing group whose
// centroid is at least threshold-similar, creating a new group otherwise.
// Records without an embedding form their own group together so they are
// never silently dropped.
func (e *Engine) groupByProximity(records []*types.ExperienceRecord, threshold float64) [][]*types.ExperienceRecord {
	var groups [][]*types.ExperienceRecord
	var centroids [][]float32
	var unembedded []*types.ExperienceRecord

	for _, record := range records {
		if record.SemanticEmbedding == nil {
			unembedded = append(unembedded, record)
			continue
		}

		assigned := false
		for i := range groups {
			if vectorstore.CosineSimilarity(record.SemanticEmbedding, centroids[i]) >= threshold {
				groups[i] = append(groups[i], record)
				centroids[i] = meanVector(embeddings(groups[i]))
				assigned = true
				break
			}
		}
		if !assigned {
			groups = append(groups, []*types.ExperienceRecord{record})
			centroids = append(centroids, append([]float32(nil), record.SemanticEmbedding...))
		}
	}

	if len(unembedded) > 0 {
		groups = append(groups, unembedded)
	}
	return groups
}

// finishStats computes outliers and aggregate coherence. An outlier is a
// record that neither shares its exact signature with another record nor
// belongs to any thematic cluster.
func (e *Engine) finishStats(records []*types.ExperienceRecord, discovery *Discovery) {
	grouped := make(map[string]bool)
	for _, id := range discovery.SignatureClusters {
		cluster := discovery.Clusters[id]
		if cluster.Size >= 2 {
			for _, member := range cluster.MemberIDs {
				grouped[member] = true
			}
		}
	}
	for _, id := range discovery.DimensionClusters {
		for _, member := range discovery.Clusters[id].MemberIDs {
			grouped[member] = true
		}
	}
	for _, record := range records {
		if !grouped[record.ID] {
			discovery.Stats.OutlierIDs = append(discovery.Stats.OutlierIDs, record.ID)
		}
	}

	discovery.Stats.TotalClusters = len(discovery.Clusters)
	if len(discovery.Clusters) > 0 {
		var sum float64
		for _, cluster := range discovery.Clusters {
			sum += cluster.Coherence
		}
		discovery.Stats.AverageCoherence = sum / float64(len(discovery.Clusters))
	}
}

// signature is the sorted, joined quality-label set of a record. Records
// with no labels share the empty signature.
func signature(record *types.ExperienceRecord) string {
	labels := append([]string(nil), record.Qualities...)
	sort.Strings(labels)
	return strings.Join(labels, "|")
}

// summarize builds a deterministic cluster summary: common labels first,
// then keywords, then a generic member count.
func summarize(size int, common, keywords []string) string {
	noun := "experiences"
	if size == 1 {
		noun = "experience"
	}
	switch {
	case len(common) > 0:
		return fmt.Sprintf("%d %s sharing %s", size, noun, strings.Join(common, ", "))
	case len(keywords) > 0:
		return fmt.Sprintf("%d %s around %s", size, noun, strings.Join(keywords, ", "))
	default:
		return fmt.Sprintf("%d %s", size, noun)
	}
}

// coherence measures internal consistency as the mean pairwise embedding
// similarity mapped into [0,1]. Clusters without comparable embeddings
// score 1.0: their members were grouped by an exact property.
func coherence(records []*types.ExperienceRecord) float64 {
	vectors := embeddings(records)
	if len(vectors) < 2 {
		return 1.0
	}

	var sum float64
	var pairs int
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sum += vectorstore.CosineSimilarity(vectors[i], vectors[j])
			pairs++
		}
	}
	value := (sum/float64(pairs) + 1) / 2
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func centroid(records []*types.ExperienceRecord) []float32 {
	return meanVector(embeddings(records))
}

func embeddings(records []*types.ExperienceRecord) [][]float32 {
	var vectors [][]float32
	for _, record := range records {
		if record.SemanticEmbedding != nil {
			vectors = append(vectors, record.SemanticEmbedding)
		}
	}
	return vectors
}

// meanVector averages vectors of equal length. Mixed dimensionality uses
// the majority length and skips the rest.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	counts := make(map[int]int)
	for _, v := range vectors {
		counts[len(v)]++
	}
	dim, best := 0, 0
	for length, count := range counts {
		if count > best || (count == best && length > dim) {
			dim, best = length, count
		}
	}

	mean := make([]float32, dim)
	var used int
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, val := range v {
			mean[i] += val
		}
		used++
	}
	for i := range mean {
		mean[i] /= float32(used)
	}
	return mean
}

func memberIDs(records []*types.ExperienceRecord) []string {
	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}
	return ids
}

func recordsByID(records []*types.ExperienceRecord, ids []string) []*types.ExperienceRecord {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var selected []*types.ExperienceRecord
	for _, record := range records {
		if wanted[record.ID] {
			selected = append(selected, record)
		}
	}
	return selected
}
