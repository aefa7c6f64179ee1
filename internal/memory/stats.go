package memory

import (
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

// Statistics returns an operational snapshot of the store.
func (s *Store) Statistics() apptype.MemoryStatistics {
	stats := apptype.MemoryStatistics{
		ByDomain: make(map[apptype.KnowledgeDomain]int),
		ByPolicy: make(map[apptype.RetentionPolicy]apptype.PolicyStats),
	}

	now := s.now()
	s.entityMu.RLock()
	stats.TotalEntities = len(s.entities)
	for _, e := range s.entities {
		stats.ByDomain[e.Domain]++
		ps := stats.ByPolicy[e.RetentionPolicy]
		ps.Total++
		if expired(e, now) {
			ps.Expired++
		}
		stats.ByPolicy[e.RetentionPolicy] = ps
	}
	s.entityMu.RUnlock()

	stats.TotalRelationships = s.relationshipCount()
	stats.TotalSearches = s.totalSearches.Load()
	stats.DegradedSearches = s.degradedSearches.Load()
	stats.SweepDeleted = s.sweepDeleted.Load()
	stats.SweepErrors = s.sweepErrors.Load()
	stats.LearningErrors = s.learningErrors.Load()

	if s.embedder != nil {
		size, hits, misses := s.embedder.Stats()
		stats.EmbeddingCacheSize = size
		stats.CacheHits = hits
		stats.CacheMisses = misses
	}
	return stats
}

// PopularEntities ranks entities by access_count * confidence_score.
func (s *Store) PopularEntities(limit int) []apptype.PopularEntity {
	if limit <= 0 {
		limit = 10
	}

	s.entityMu.RLock()
	rows := make([]apptype.PopularEntity, 0, len(s.entities))
	for _, e := range s.entities {
		rows = append(rows, apptype.PopularEntity{
			ID:          e.ID,
			Title:       e.Title,
			AccessCount: e.AccessCount,
			Confidence:  e.ConfidenceScore,
		})
	}
	s.entityMu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		si := float64(rows[i].AccessCount) * rows[i].Confidence
		sj := float64(rows[j].AccessCount) * rows[j].Confidence
		if si != sj {
			return si > sj
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// DomainStatistics summarizes one domain.
func (s *Store) DomainStatistics(domain apptype.KnowledgeDomain) (apptype.DomainStatistics, error) {
	if !domain.Valid() {
		return apptype.DomainStatistics{}, fmt.Errorf("unknown domain %q: %w", domain, apptype.ErrInvalidInput)
	}

	stats := apptype.DomainStatistics{
		Domain: domain,
		ByType: make(map[apptype.KnowledgeType]int),
	}

	var confidenceSum float64
	s.entityMu.RLock()
	for _, id := range s.indexes.Domain.IDs(string(domain)) {
		e, ok := s.entities[id]
		if !ok {
			continue
		}
		stats.EntityCount++
		stats.ByType[e.KnowledgeType]++
		stats.TotalAccesses += e.AccessCount
		confidenceSum += e.ConfidenceScore
	}
	s.entityMu.RUnlock()

	if stats.EntityCount > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.EntityCount)
	}
	return stats, nil
}

// LearningRecommendations surfaces entities worth curator attention:
// frequently retrieved but still below 0.7 confidence, most accessed first.
func (s *Store) LearningRecommendations(domain apptype.KnowledgeDomain, limit int) ([]apptype.PopularEntity, error) {
	if domain != "" && !domain.Valid() {
		return nil, fmt.Errorf("unknown domain %q: %w", domain, apptype.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	var rows []apptype.PopularEntity
	s.entityMu.RLock()
	for _, e := range s.entities {
		if domain != "" && e.Domain != domain {
			continue
		}
		if e.AccessCount == 0 || e.ConfidenceScore >= 0.7 {
			continue
		}
		rows = append(rows, apptype.PopularEntity{
			ID:          e.ID,
			Title:       e.Title,
			AccessCount: e.AccessCount,
			Confidence:  e.ConfidenceScore,
		})
	}
	s.entityMu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccessCount != rows[j].AccessCount {
			return rows[i].AccessCount > rows[j].AccessCount
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
