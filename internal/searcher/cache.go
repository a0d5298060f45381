package searcher

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/recall-mcp/pkg/types"
)

// cacheEntry is a cached search response with an expiration time.
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// queryCache is an LRU of recent search responses keyed by a content hash
// of the request. Entries expire after the request's TTL.
type queryCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[[32]byte, *cacheEntry]
}

func newQueryCache(size int) *queryCache {
	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		// Only possible with a non-positive size.
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &queryCache{cache: cache}
}

func (q *queryCache) get(req SearchRequest) (*SearchResponse, bool) {
	hash := computeQueryHash(req)
	now := time.Now()

	q.mu.RLock()
	entry, found := q.cache.Get(hash)
	if !found {
		q.mu.RUnlock()
		return nil, false
	}

	if now.After(entry.expiresAt) {
		q.mu.RUnlock()
		q.mu.Lock()
		q.cache.Remove(hash)
		q.mu.Unlock()
		return nil, false
	}

	// Deep copy under the read lock so the cached entry can't be mutated
	// through the returned response.
	response := copyResponse(entry.response)
	q.mu.RUnlock()

	return response, true
}

func (q *queryCache) put(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	q.mu.Lock()
	q.cache.Add(computeQueryHash(req), entry)
	q.mu.Unlock()
}

// purge drops every cached response. Called after writes to the record
// store invalidate prior results.
func (q *queryCache) purge() {
	q.mu.Lock()
	q.cache.Purge()
	q.mu.Unlock()
}

// InvalidateCache drops all cached search responses. Callers invoke this
// after capturing or re-embedding records.
func (s *Searcher) InvalidateCache() {
	s.cache.purge()
}

// copyResponse creates a deep copy of a SearchResponse. Records themselves
// are shared: they are immutable after creation.
func copyResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		Total:    src.Total,
		Duration: src.Duration,
		CacheHit: src.CacheHit,
	}
	if src.Results != nil {
		dst.Results = append([]types.RankedRecord(nil), src.Results...)
	}
	if src.AppliedFilters != nil {
		dst.AppliedFilters = append([]string(nil), src.AppliedFilters...)
	}
	if src.Diagnostics != nil {
		diag := *src.Diagnostics
		diag.StageCounts = append([]StageCount(nil), src.Diagnostics.StageCounts...)
		diag.Degraded = append([]string(nil), src.Diagnostics.Degraded...)
		diag.SimilaritySamples = append([]float64(nil), src.Diagnostics.SimilaritySamples...)
		dst.Diagnostics = &diag
	}
	return dst
}

// computeQueryHash builds a deterministic hash of a search request.
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.QueryText)
	data.WriteString("|")
	data.WriteString(req.SemanticQuery)
	data.WriteString("|")
	if req.SemanticThreshold != nil {
		fmt.Fprintf(&data, "%.4f", *req.SemanticThreshold)
	}
	data.WriteString("|")
	for _, v := range req.TargetVector {
		fmt.Fprintf(&data, "%.4f,", v)
	}
	data.WriteString("|")
	if req.MinVectorSimilarity != nil {
		fmt.Fprintf(&data, "%.4f", *req.MinVectorSimilarity)
	}
	data.WriteString("|")
	if !req.Filters.IsZero() {
		// JSON keeps the key stable; %v would print pointer addresses.
		if encoded, err := json.Marshal(req.Filters); err == nil {
			data.Write(encoded)
		}
	}
	data.WriteString("|")
	if req.QualityFilter != nil {
		if encoded, err := json.Marshal(req.QualityFilter); err == nil {
			data.Write(encoded)
		}
	}
	data.WriteString("|")
	// Map iteration order is random; sort for a stable key.
	dims := make([]string, 0, len(req.Thresholds))
	for dim := range req.Thresholds {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	for _, dim := range dims {
		bounds := req.Thresholds[dim]
		data.WriteString(dim)
		if bounds.Min != nil {
			fmt.Fprintf(&data, ">=%.4f", *bounds.Min)
		}
		if bounds.Max != nil {
			fmt.Fprintf(&data, "<=%.4f", *bounds.Max)
		}
		data.WriteString(",")
	}
	data.WriteString("|")
	data.WriteString(string(req.TimeField))
	data.WriteString("|")
	if req.Since != nil {
		data.WriteString(req.Since.UTC().Format(time.RFC3339Nano))
	}
	data.WriteString("|")
	if req.Range != nil {
		data.WriteString(req.Range.Start.UTC().Format(time.RFC3339Nano))
		data.WriteString("..")
		data.WriteString(req.Range.End.UTC().Format(time.RFC3339Nano))
	}
	data.WriteString("|")
	data.WriteString(string(req.SortBy))
	data.WriteString("|")
	fmt.Fprintf(&data, "%d", req.Limit)

	return sha256.Sum256([]byte(data.String()))
}
