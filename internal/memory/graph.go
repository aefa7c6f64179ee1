package memory

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
)

// CreateRelationship writes a directed, typed edge between two existing
// entities. Re-creating an edge with the same (source, target, type)
// replaces its properties.
func (s *Store) CreateRelationship(ctx context.Context, rel apptype.Relationship) error {
	done := metrics.TimeOp("create_relationship")
	err := s.createRelationship(ctx, rel)
	done(err == nil)
	return err
}

func (s *Store) createRelationship(ctx context.Context, rel apptype.Relationship) error {
	if rel.SourceID == "" || rel.TargetID == "" || rel.Type == "" {
		return fmt.Errorf("relationship fields cannot be empty: %w", apptype.ErrInvalidInput)
	}
	if rel.SourceID == rel.TargetID {
		return fmt.Errorf("relationship cannot point at its own source: %w", apptype.ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.entityMu.RLock()
	_, srcOK := s.entities[rel.SourceID]
	_, tgtOK := s.entities[rel.TargetID]
	s.entityMu.RUnlock()
	if !srcOK {
		return fmt.Errorf("source entity %s: %w", rel.SourceID, apptype.ErrNotFound)
	}
	if !tgtOK {
		return fmt.Errorf("target entity %s: %w", rel.TargetID, apptype.ErrNotFound)
	}

	if err := s.db.UpsertRelationship(ctx, rel); err != nil {
		return &apptype.DependencyError{Op: "create_relationship", Err: err}
	}

	s.graphMu.Lock()
	s.linkLocked(rel)
	s.graphMu.Unlock()
	return nil
}

// DeleteRelationship removes one specific edge.
func (s *Store) DeleteRelationship(ctx context.Context, source, target, relationType string) error {
	done := metrics.TimeOp("delete_relationship")
	err := s.deleteRelationship(ctx, source, target, relationType)
	done(err == nil)
	return err
}

func (s *Store) deleteRelationship(ctx context.Context, source, target, relationType string) error {
	if source == "" || target == "" || relationType == "" {
		return fmt.Errorf("relationship parameters cannot be empty: %w", apptype.ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.DeleteRelationship(ctx, source, target, relationType); err != nil {
		return err
	}

	s.graphMu.Lock()
	edges := s.out[source]
	kept := edges[:0]
	for _, e := range edges {
		if !(e.TargetID == target && e.Type == relationType) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(s.out, source)
	} else {
		s.out[source] = kept
	}
	s.pruneInboundLocked(source, target)
	s.graphMu.Unlock()
	return nil
}

// GetRelatedEntities walks outgoing edges breadth-first from id, up to
// maxDepth hops (default 2), optionally restricted to one edge type. The
// root entity is not included in the result.
func (s *Store) GetRelatedEntities(ctx context.Context, id, relationType string, maxDepth int) ([]apptype.KnowledgeEntity, error) {
	done := metrics.TimeOp("get_related_entities")
	out, err := s.getRelatedEntities(id, relationType, maxDepth)
	done(err == nil)
	return out, err
}

func (s *Store) getRelatedEntities(id, relationType string, maxDepth int) ([]apptype.KnowledgeEntity, error) {
	if _, ok := s.getEntity(id); !ok {
		return nil, fmt.Errorf("entity %s: %w", id, apptype.ErrNotFound)
	}
	if maxDepth <= 0 {
		maxDepth = 2
	}

	visited := map[string]struct{}{id: {}}
	frontier := []string{id}
	var order []string

	s.graphMu.RLock()
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, edge := range s.out[cur] {
				if relationType != "" && edge.Type != relationType {
					continue
				}
				if _, seen := visited[edge.TargetID]; seen {
					continue
				}
				visited[edge.TargetID] = struct{}{}
				order = append(order, edge.TargetID)
				next = append(next, edge.TargetID)
			}
		}
		frontier = next
	}
	s.graphMu.RUnlock()

	entities := make([]apptype.KnowledgeEntity, 0, len(order))
	for _, targetID := range order {
		if e, ok := s.getEntity(targetID); ok {
			entities = append(entities, e)
		}
	}
	return entities, nil
}

// outgoingEdges snapshots the edges leaving id.
func (s *Store) outgoingEdges(id string) []apptype.Relationship {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	edges := s.out[id]
	if len(edges) == 0 {
		return nil
	}
	return append([]apptype.Relationship(nil), edges...)
}

// linkLocked inserts or replaces an edge in the adjacency maps. Callers hold
// graphMu (or run before the store is shared).
func (s *Store) linkLocked(rel apptype.Relationship) {
	edges := s.out[rel.SourceID]
	replaced := false
	for i, e := range edges {
		if e.TargetID == rel.TargetID && e.Type == rel.Type {
			edges[i] = rel
			replaced = true
			break
		}
	}
	if !replaced {
		edges = append(edges, rel)
	}
	s.out[rel.SourceID] = edges

	sources, ok := s.in[rel.TargetID]
	if !ok {
		sources = make(map[string]struct{})
		s.in[rel.TargetID] = sources
	}
	sources[rel.SourceID] = struct{}{}
}

// pruneInboundLocked drops source from target's inbound set when no edge of
// any type remains between them. Callers hold graphMu.
func (s *Store) pruneInboundLocked(source, target string) {
	for _, e := range s.out[source] {
		if e.TargetID == target {
			return
		}
	}
	if sources, ok := s.in[target]; ok {
		delete(sources, source)
		if len(sources) == 0 {
			delete(s.in, target)
		}
	}
}

// unlinkAll removes every edge touching id in either direction.
func (s *Store) unlinkAll(id string) {
	s.graphMu.Lock()
	defer s.graphMu.Unlock()

	for _, edge := range s.out[id] {
		s.pruneInboundAfterSourceRemovalLocked(id, edge.TargetID)
	}
	delete(s.out, id)

	for source := range s.in[id] {
		edges := s.out[source]
		kept := edges[:0]
		for _, e := range edges {
			if e.TargetID != id {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.out, source)
		} else {
			s.out[source] = kept
		}
	}
	delete(s.in, id)
}

// pruneInboundAfterSourceRemovalLocked removes source from target's inbound
// set unconditionally; used when source's outgoing edges are being dropped.
func (s *Store) pruneInboundAfterSourceRemovalLocked(source, target string) {
	if sources, ok := s.in[target]; ok {
		delete(sources, source)
		if len(sources) == 0 {
			delete(s.in, target)
		}
	}
}

// relationshipCount reports the number of live edges.
func (s *Store) relationshipCount() int {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	n := 0
	for _, edges := range s.out {
		n += len(edges)
	}
	return n
}
