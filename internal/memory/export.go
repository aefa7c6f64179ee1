package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
)

// Export snapshots entities and relationships keyed by domain. When domain is
// empty every domain is exported. Embeddings, timestamps, access counters,
// and confidence are preserved so the payload reconstructs the store without
// re-embedding. Relationships are grouped under their source entity's domain.
func (s *Store) Export(ctx context.Context, domain apptype.KnowledgeDomain) (apptype.KnowledgeExport, error) {
	done := metrics.TimeOp("export_knowledge_base")
	out, err := s.export(domain)
	done(err == nil)
	return out, err
}

func (s *Store) export(domain apptype.KnowledgeDomain) (apptype.KnowledgeExport, error) {
	if domain != "" && !domain.Valid() {
		return apptype.KnowledgeExport{}, fmt.Errorf("unknown domain %q: %w", domain, apptype.ErrInvalidInput)
	}

	out := apptype.KnowledgeExport{
		Domains: make(map[apptype.KnowledgeDomain]apptype.DomainExport),
	}

	domainOf := make(map[string]apptype.KnowledgeDomain)
	s.entityMu.RLock()
	for _, e := range s.entities {
		domainOf[e.ID] = e.Domain
		if domain != "" && e.Domain != domain {
			continue
		}
		de := out.Domains[e.Domain]
		de.Entities = append(de.Entities, cloneEntity(e))
		out.Domains[e.Domain] = de
	}
	s.entityMu.RUnlock()

	s.graphMu.RLock()
	for source, edges := range s.out {
		srcDomain, ok := domainOf[source]
		if !ok {
			continue
		}
		if domain != "" && srcDomain != domain {
			continue
		}
		de := out.Domains[srcDomain]
		for _, edge := range edges {
			// An edge crossing out of the exported domain would dangle on
			// import; keep only edges whose target ships in this payload.
			tgtDomain, ok := domainOf[edge.TargetID]
			if !ok || (domain != "" && tgtDomain != domain) {
				continue
			}
			de.Relationships = append(de.Relationships, edge)
		}
		out.Domains[srcDomain] = de
	}
	s.graphMu.RUnlock()

	entityCount, relationCount := 0, 0
	for d, de := range out.Domains {
		sort.Slice(de.Entities, func(i, j int) bool { return de.Entities[i].ID < de.Entities[j].ID })
		sort.Slice(de.Relationships, func(i, j int) bool {
			a, b := de.Relationships[i], de.Relationships[j]
			if a.SourceID != b.SourceID {
				return a.SourceID < b.SourceID
			}
			if a.TargetID != b.TargetID {
				return a.TargetID < b.TargetID
			}
			return a.Type < b.Type
		})
		out.Domains[d] = de
		entityCount += len(de.Entities)
		relationCount += len(de.Relationships)
	}

	out.Metadata = apptype.ExportMetadata{
		ExportedAt:    s.now(),
		Version:       buildinfo.Version,
		DomainCount:   len(out.Domains),
		EntityCount:   entityCount,
		RelationCount: relationCount,
	}
	return out, nil
}

// Import reconstructs entities and relationships from an export payload.
// Identifiers, embeddings, timestamps, access counters, and confidence are
// preserved. Items are independent: a rejected entity is reported but does
// not abort the rest, and relationships with missing endpoints are skipped.
func (s *Store) Import(ctx context.Context, payload apptype.KnowledgeExport) (entities, relationships int, err error) {
	done := metrics.TimeOp("import_knowledge_base")
	entities, relationships, err = s.importPayload(ctx, payload)
	done(err == nil)
	return entities, relationships, err
}

func (s *Store) importPayload(ctx context.Context, payload apptype.KnowledgeExport) (int, int, error) {
	var errs []error
	imported := 0

	for domain, de := range payload.Domains {
		for _, e := range de.Entities {
			if e.Domain == "" {
				e.Domain = domain
			}
			if err := s.importEntity(ctx, e); err != nil {
				errs = append(errs, fmt.Errorf("entity %s: %w", e.ID, err))
				continue
			}
			imported++
		}
	}

	linked := 0
	for _, de := range payload.Domains {
		for _, rel := range de.Relationships {
			if err := s.createRelationship(ctx, rel); err != nil {
				if errors.Is(err, apptype.ErrNotFound) {
					log.Printf("Warning: skipping relationship %s -> %s, endpoint missing", rel.SourceID, rel.TargetID)
					continue
				}
				errs = append(errs, fmt.Errorf("relationship %s -> %s: %w", rel.SourceID, rel.TargetID, err))
				continue
			}
			linked++
		}
	}

	return imported, linked, errors.Join(errs...)
}

func (s *Store) importEntity(ctx context.Context, e apptype.KnowledgeEntity) error {
	if e.ID == "" {
		return fmt.Errorf("imported entity needs an id: %w", apptype.ErrInvalidInput)
	}
	if err := validateEntityInput(&e, s.cfg.EmbeddingDims); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.entityMu.RLock()
	_, exists := s.entities[e.ID]
	s.entityMu.RUnlock()
	if !exists {
		if err := s.checkDomainCapacity(e.Domain); err != nil {
			return err
		}
	}

	if e.ExpiresAt.IsZero() {
		created := e.CreatedAt
		if created.IsZero() {
			created = s.now()
			e.CreatedAt = created
			e.LastAccessed = created
		}
		e.ExpiresAt = created.Add(s.cfg.RetentionWindow(e.RetentionPolicy))
	}

	if err := s.db.UpsertEntity(ctx, e); err != nil {
		return &apptype.DependencyError{Op: "import_knowledge_base", Err: err}
	}

	s.entityMu.Lock()
	if prev, ok := s.entities[e.ID]; ok {
		s.indexes.Remove(prev.ID, string(prev.Domain), string(prev.KnowledgeType), prev.Tags)
	}
	delete(s.tombstones, e.ID)
	stored := e
	s.entities[e.ID] = &stored
	s.entityMu.Unlock()
	s.indexes.Insert(e.ID, string(e.Domain), string(e.KnowledgeType), e.Tags)
	return nil
}
