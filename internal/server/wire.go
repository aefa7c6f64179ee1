package server

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

// Timestamps cross the tool boundary as RFC 3339 strings; empty means unset.

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func entityView(e apptype.KnowledgeEntity) apptype.EntityView {
	return apptype.EntityView{
		ID:              e.ID,
		Domain:          string(e.Domain),
		KnowledgeType:   string(e.KnowledgeType),
		Title:           e.Title,
		Content:         e.Content,
		Metadata:        e.Metadata,
		Embedding:       e.Embedding,
		RetentionPolicy: string(e.RetentionPolicy),
		CreatedAt:       formatTime(e.CreatedAt),
		LastAccessed:    formatTime(e.LastAccessed),
		ExpiresAt:       formatTime(e.ExpiresAt),
		AccessCount:     e.AccessCount,
		ConfidenceScore: e.ConfidenceScore,
		Tags:            e.Tags,
		Relationships:   e.Relationships,
	}
}

func entityFromView(v apptype.EntityView) (apptype.KnowledgeEntity, error) {
	createdAt, err := parseTime(v.CreatedAt)
	if err != nil {
		return apptype.KnowledgeEntity{}, fmt.Errorf("createdAt: %w", err)
	}
	lastAccessed, err := parseTime(v.LastAccessed)
	if err != nil {
		return apptype.KnowledgeEntity{}, fmt.Errorf("lastAccessed: %w", err)
	}
	expiresAt, err := parseTime(v.ExpiresAt)
	if err != nil {
		return apptype.KnowledgeEntity{}, fmt.Errorf("expiresAt: %w", err)
	}
	return apptype.KnowledgeEntity{
		ID:              v.ID,
		Domain:          apptype.KnowledgeDomain(v.Domain),
		KnowledgeType:   apptype.KnowledgeType(v.KnowledgeType),
		Title:           v.Title,
		Content:         v.Content,
		Metadata:        v.Metadata,
		Embedding:       v.Embedding,
		RetentionPolicy: apptype.RetentionPolicy(v.RetentionPolicy),
		CreatedAt:       createdAt,
		LastAccessed:    lastAccessed,
		ExpiresAt:       expiresAt,
		AccessCount:     v.AccessCount,
		ConfidenceScore: v.ConfidenceScore,
		Tags:            v.Tags,
		Relationships:   v.Relationships,
	}, nil
}

func entityViews(entities []apptype.KnowledgeEntity) []apptype.EntityView {
	out := make([]apptype.EntityView, len(entities))
	for i, e := range entities {
		out[i] = entityView(e)
	}
	return out
}

func queryResultViews(results []apptype.QueryResult) []apptype.QueryResultView {
	out := make([]apptype.QueryResultView, len(results))
	for i, r := range results {
		out[i] = apptype.QueryResultView{
			Entity:          entityView(r.Entity),
			SimilarityScore: r.SimilarityScore,
			MatchedTerms:    r.MatchedTerms,
			Explanation:     r.Explanation,
		}
	}
	return out
}

func exportView(payload apptype.KnowledgeExport) apptype.KnowledgeExportView {
	out := apptype.KnowledgeExportView{
		Metadata: apptype.ExportMetadataView{
			ExportedAt:    formatTime(payload.Metadata.ExportedAt),
			Version:       payload.Metadata.Version,
			DomainCount:   payload.Metadata.DomainCount,
			EntityCount:   payload.Metadata.EntityCount,
			RelationCount: payload.Metadata.RelationCount,
		},
		Domains: make(map[string]apptype.DomainExportView, len(payload.Domains)),
	}
	for domain, de := range payload.Domains {
		out.Domains[string(domain)] = apptype.DomainExportView{
			Entities:      entityViews(de.Entities),
			Relationships: de.Relationships,
		}
	}
	return out
}

func exportFromView(v apptype.KnowledgeExportView) (apptype.KnowledgeExport, error) {
	exportedAt, err := parseTime(v.Metadata.ExportedAt)
	if err != nil {
		return apptype.KnowledgeExport{}, fmt.Errorf("exportedAt: %w", err)
	}
	out := apptype.KnowledgeExport{
		Metadata: apptype.ExportMetadata{
			ExportedAt:    exportedAt,
			Version:       v.Metadata.Version,
			DomainCount:   v.Metadata.DomainCount,
			EntityCount:   v.Metadata.EntityCount,
			RelationCount: v.Metadata.RelationCount,
		},
		Domains: make(map[apptype.KnowledgeDomain]apptype.DomainExport, len(v.Domains)),
	}
	for domain, de := range v.Domains {
		entities := make([]apptype.KnowledgeEntity, len(de.Entities))
		for i, ev := range de.Entities {
			e, err := entityFromView(ev)
			if err != nil {
				return apptype.KnowledgeExport{}, fmt.Errorf("entity %s: %w", ev.ID, err)
			}
			entities[i] = e
		}
		out.Domains[apptype.KnowledgeDomain(domain)] = apptype.DomainExport{
			Entities:      entities,
			Relationships: de.Relationships,
		}
	}
	return out, nil
}
