package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/database"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/vectormath"
)

// SemanticSearch runs hybrid retrieval: vector similarity blended with
// keyword overlap, filtered by domain, type, tags, and age. When no query
// vector can be resolved the search degrades to keyword-only scoring and the
// degradation is counted in statistics. An empty result is not an error.
func (s *Store) SemanticSearch(ctx context.Context, q apptype.SemanticQuery) ([]apptype.QueryResult, error) {
	done := metrics.TimeOp("semantic_search")
	results, err := s.semanticSearch(ctx, q)
	done(err == nil)
	return results, err
}

func (s *Store) semanticSearch(ctx context.Context, q apptype.SemanticQuery) ([]apptype.QueryResult, error) {
	if strings.TrimSpace(q.QueryText) == "" && len(q.QueryEmbedding) == 0 {
		return nil, fmt.Errorf("query needs text or an embedding: %w", apptype.ErrInvalidInput)
	}
	if q.Metric != "" && !vectormath.ValidMetric(q.Metric) {
		return nil, fmt.Errorf("unknown similarity metric %q: %w", q.Metric, apptype.ErrInvalidInput)
	}
	if len(q.QueryEmbedding) > 0 && s.cfg.EmbeddingDims > 0 && len(q.QueryEmbedding) != s.cfg.EmbeddingDims {
		return nil, fmt.Errorf("query embedding has %d dimensions, store requires %d: %w",
			len(q.QueryEmbedding), s.cfg.EmbeddingDims, apptype.ErrInvalidInput)
	}
	if q.DomainFilter != "" && !q.DomainFilter.Valid() {
		return nil, fmt.Errorf("unknown domain %q: %w", q.DomainFilter, apptype.ErrInvalidInput)
	}
	for _, kt := range q.TypeFilters {
		if !kt.Valid() {
			return nil, fmt.Errorf("unknown knowledge type %q: %w", kt, apptype.ErrInvalidInput)
		}
	}

	threshold := q.SimilarityThreshold
	if threshold == 0 {
		threshold = s.cfg.SimilarityThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %f out of [0,1]: %w", threshold, apptype.ErrInvalidInput)
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = s.cfg.MaxResults
	}
	if maxResults > s.cfg.MaxResultsCap {
		maxResults = s.cfg.MaxResultsCap
	}

	s.totalSearches.Add(1)

	queryVec := q.QueryEmbedding
	degraded := false
	if len(queryVec) == 0 && s.embedder != nil {
		vec, err := s.embedder.GetOrGenerate(ctx, q.QueryText)
		if err != nil {
			log.Printf("Warning: query embedding failed, degrading to keyword search: %v", err)
			degraded = true
		} else {
			queryVec = vec
		}
	}
	if len(queryVec) == 0 && !degraded {
		// No provider configured; keyword scoring is the only signal.
		degraded = true
	}
	if degraded {
		s.degradedSearches.Add(1)
	}

	candidates := s.candidateIDs(ctx, q, queryVec, maxResults)

	now := s.now()
	terms := queryTerms(q.QueryText)

	type scored struct {
		entity   apptype.KnowledgeEntity
		combined float64
		vecScore float64
		kwScore  float64
		matched  []string
	}
	var hits []scored

	s.entityMu.RLock()
	for _, id := range candidates {
		e, ok := s.entities[id]
		if !ok {
			// Index or prefilter pointed at an entity the store no longer
			// holds; skip rather than fail the whole query.
			continue
		}
		if expired(e, now) {
			continue
		}
		if q.MaxAge > 0 && now.Sub(e.CreatedAt) > q.MaxAge {
			continue
		}

		kwScore, matched := keywordScore(terms, e.Title, e.Content)
		var vecScore, combined float64
		if len(queryVec) > 0 && len(e.Embedding) > 0 {
			vecScore = vectormath.Similarity(queryVec, e.Embedding, q.Metric)
			if vecScore < threshold {
				continue
			}
			if len(terms) == 0 {
				// Vector-only query; nothing to blend against.
				combined = vecScore
			} else {
				combined = s.cfg.VectorWeight*vecScore + s.cfg.KeywordWeight*kwScore
			}
		} else {
			if kwScore < threshold {
				continue
			}
			combined = kwScore
		}

		hits = append(hits, scored{
			entity:   cloneEntity(e),
			combined: combined,
			vecScore: vecScore,
			kwScore:  kwScore,
			matched:  matched,
		})
	}
	s.entityMu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].combined != hits[j].combined {
			return hits[i].combined > hits[j].combined
		}
		if hits[i].entity.ConfidenceScore != hits[j].entity.ConfidenceScore {
			return hits[i].entity.ConfidenceScore > hits[j].entity.ConfidenceScore
		}
		if hits[i].entity.AccessCount != hits[j].entity.AccessCount {
			return hits[i].entity.AccessCount > hits[j].entity.AccessCount
		}
		return hits[i].entity.ID < hits[j].entity.ID
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	results := make([]apptype.QueryResult, 0, len(hits))
	accessed := make([]string, 0, len(hits))
	for _, h := range hits {
		entity := h.entity
		if q.IncludeRelationships {
			entity.Relationships = relationshipsMap(s.outgoingEdges(entity.ID))
		}
		results = append(results, apptype.QueryResult{
			Entity:          entity,
			SimilarityScore: h.combined,
			MatchedTerms:    h.matched,
			Explanation: map[string]any{
				"vector_score":  h.vecScore,
				"keyword_score": h.kwScore,
				"metric":        metricName(q.Metric),
				"threshold":     threshold,
				"degraded":      degraded,
			},
		})
		accessed = append(accessed, entity.ID)
	}

	go s.recordAccess(accessed)
	return results, nil
}

// candidateIDs narrows the scoring set. Discrete filters intersect the
// in-memory indexes; a large unfiltered vector query is prefiltered through
// the database's vector index instead of scanning everything.
func (s *Store) candidateIDs(ctx context.Context, q apptype.SemanticQuery, queryVec []float32, maxResults int) []string {
	hasFilters := q.DomainFilter != "" || len(q.TypeFilters) > 0 || len(q.TagFilters) > 0
	if hasFilters {
		return s.filteredIDs(q)
	}

	s.entityMu.RLock()
	total := len(s.entities)
	s.entityMu.RUnlock()

	if len(queryVec) > 0 && s.cfg.PrefilterMinEntities > 0 && total > s.cfg.PrefilterMinEntities {
		limit := maxResults * 10
		if limit < 100 {
			limit = 100
		}
		dbResults, err := s.db.SearchSimilar(ctx, queryVec, limit)
		switch {
		case err == nil:
			ids := make([]string, 0, len(dbResults))
			for _, r := range dbResults {
				ids = append(ids, r.Entity.ID)
			}
			// Vector-less entities never appear in the database's vector
			// index but still participate via keyword scoring.
			return append(ids, s.vectorlessIDs()...)
		case errors.Is(err, database.ErrVectorUnsupported):
			// fall through to the full scan
		default:
			log.Printf("Warning: vector prefilter failed, scanning in memory: %v", err)
		}
	}

	s.entityMu.RLock()
	ids := make([]string, 0, total)
	for id := range s.entities {
		ids = append(ids, id)
	}
	s.entityMu.RUnlock()
	return ids
}

func (s *Store) vectorlessIDs() []string {
	s.entityMu.RLock()
	defer s.entityMu.RUnlock()
	var ids []string
	for id, e := range s.entities {
		if len(e.Embedding) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// filteredIDs intersects the discrete index sets named by the query.
func (s *Store) filteredIDs(q apptype.SemanticQuery) []string {
	var sets [][]string
	if q.DomainFilter != "" {
		sets = append(sets, s.indexes.Domain.IDs(string(q.DomainFilter)))
	}
	if len(q.TypeFilters) > 0 {
		var union []string
		for _, kt := range q.TypeFilters {
			union = append(union, s.indexes.Type.IDs(string(kt))...)
		}
		sets = append(sets, union)
	}
	for _, tag := range q.TagFilters {
		sets = append(sets, s.indexes.Tag.IDs(tag))
	}

	if len(sets) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, set := range sets {
		seen := make(map[string]struct{}, len(set))
		for _, id := range set {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			counts[id]++
		}
	}
	var out []string
	for id, n := range counts {
		if n == len(sets) {
			out = append(out, id)
		}
	}
	return out
}

// queryTerms tokenizes query text for keyword overlap scoring.
func queryTerms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// keywordScore is the fraction of query terms present in the entity's title
// or content.
func keywordScore(terms []string, title, content string) (float64, []string) {
	if len(terms) == 0 {
		return 0, nil
	}
	haystack := strings.ToLower(title + " " + content)
	var matched []string
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			matched = append(matched, term)
		}
	}
	return float64(len(matched)) / float64(len(terms)), matched
}

func relationshipsMap(edges []apptype.Relationship) map[string]map[string]any {
	if len(edges) == 0 {
		return nil
	}
	out := make(map[string]map[string]any, len(edges))
	for _, e := range edges {
		props := map[string]any{"type": e.Type}
		for k, v := range e.Properties {
			props[k] = v
		}
		out[e.TargetID] = props
	}
	return out
}

func metricName(metric string) string {
	if metric == "" {
		return vectormath.MetricCosine
	}
	return metric
}
