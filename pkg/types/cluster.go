package types

// ClusterResult is one discovered grouping of experience records.
// Clusters are produced fresh per invocation and never persisted.
type ClusterResult struct {
	ID      string
	Summary string

	// MemberIDs are the record ids grouped into this cluster.
	MemberIDs []string

	// CommonQualities are dimension labels shared by every member.
	CommonQualities []string

	Size      int
	Coherence float64 // Internal consistency in [0,1]

	// Centroid is the mean semantic embedding of members that have one.
	// Nil when no member carries an embedding.
	Centroid []float32

	// ParentID names the cluster this one was refined from.
	// Empty for top-level clusters.
	ParentID string

	// Dimension is set for per-dimension thematic clusters.
	Dimension string

	// Keywords are representative terms extracted against the full corpus.
	Keywords []string

	// SemanticLabel is a templated theme label (e.g. "time-of-day patterns").
	SemanticLabel string
}

// ClusterStats summarizes a clustering invocation.
type ClusterStats struct {
	TotalClusters    int
	TotalRecords     int
	OutlierIDs       []string
	AverageCoherence float64
}
