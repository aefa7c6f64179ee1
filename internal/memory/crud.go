package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
)

// EntityUpdate is a partial update. Nil fields leave the stored value
// unchanged; non-nil Metadata and Tags replace the stored sets.
type EntityUpdate struct {
	ID              string
	Title           *string
	Content         *string
	Metadata        map[string]any
	RetentionPolicy *apptype.RetentionPolicy
	Confidence      *float64
	Tags            []string
}

// StoreEntity validates, embeds, persists and indexes one entity, returning
// its id. A missing id is generated; a tombstoned id is rejected so deleted
// identifiers are never reused. When the embedding provider fails the entity
// is stored without a vector and participates in keyword retrieval only.
func (s *Store) StoreEntity(ctx context.Context, e apptype.KnowledgeEntity) (string, error) {
	done := metrics.TimeOp("store_entity")
	id, err := s.storeEntity(ctx, e)
	done(err == nil)
	return id, err
}

func (s *Store) storeEntity(ctx context.Context, e apptype.KnowledgeEntity) (string, error) {
	if err := validateEntityInput(&e, s.cfg.EmbeddingDims); err != nil {
		return "", err
	}

	// Embed before taking the write lock; provider calls can be slow and
	// must not serialize unrelated writers.
	if len(e.Embedding) == 0 && s.embedder != nil {
		vec, err := s.embedder.GetOrGenerate(ctx, e.Title+"\n"+e.Content)
		if err != nil {
			log.Printf("Warning: embedding failed for entity %q, storing without vector: %v", e.Title, err)
		} else {
			e.Embedding = vec
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	} else {
		s.entityMu.RLock()
		_, tombstoned := s.tombstones[e.ID]
		_, exists := s.entities[e.ID]
		s.entityMu.RUnlock()
		if tombstoned {
			return "", fmt.Errorf("entity id %q was deleted and cannot be reused: %w", e.ID, apptype.ErrInvalidInput)
		}
		if exists {
			return "", fmt.Errorf("entity id %q already exists: %w", e.ID, apptype.ErrInvalidInput)
		}
	}

	if err := s.checkDomainCapacity(e.Domain); err != nil {
		return "", err
	}

	now := s.now()
	e.CreatedAt = now
	e.LastAccessed = now
	e.ExpiresAt = now.Add(s.cfg.RetentionWindow(e.RetentionPolicy))

	if err := s.db.UpsertEntity(ctx, e); err != nil {
		return "", &apptype.DependencyError{Op: "store_entity", Err: err}
	}

	s.entityMu.Lock()
	stored := e
	s.entities[e.ID] = &stored
	s.entityMu.Unlock()
	s.indexes.Insert(e.ID, string(e.Domain), string(e.KnowledgeType), e.Tags)

	return e.ID, nil
}

// StoreEntitiesBatch stores entities in chunks of Config.BatchSize. Items are
// independent: a failed item is reported but does not abort the rest. The
// returned ids are the successfully stored entities in input order.
func (s *Store) StoreEntitiesBatch(ctx context.Context, entities []apptype.KnowledgeEntity) ([]string, error) {
	done := metrics.TimeOp("store_entities_batch")

	var ids []string
	var errs []error
	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	for start := 0; start < len(entities); start += batch {
		end := start + batch
		if end > len(entities) {
			end = len(entities)
		}
		for i := start; i < end; i++ {
			id, err := s.storeEntity(ctx, entities[i])
			if err != nil {
				errs = append(errs, fmt.Errorf("item %d: %w", i, err))
				continue
			}
			ids = append(ids, id)
		}
	}

	err := errors.Join(errs...)
	done(err == nil)
	return ids, err
}

// UpdateEntity applies a partial update. Changing title or content re-embeds
// the merged text; changing the retention policy recomputes expiry from the
// original creation time.
func (s *Store) UpdateEntity(ctx context.Context, update EntityUpdate) error {
	done := metrics.TimeOp("update_entity")
	err := s.updateEntity(ctx, update)
	done(err == nil)
	return err
}

func (s *Store) updateEntity(ctx context.Context, update EntityUpdate) error {
	if update.ID == "" {
		return fmt.Errorf("entity id cannot be empty: %w", apptype.ErrInvalidInput)
	}
	if update.RetentionPolicy != nil && !update.RetentionPolicy.Valid() {
		return fmt.Errorf("unknown retention policy %q: %w", *update.RetentionPolicy, apptype.ErrInvalidInput)
	}
	if update.Confidence != nil && (*update.Confidence < 0 || *update.Confidence > 1) {
		return fmt.Errorf("confidence %f out of [0,1]: %w", *update.Confidence, apptype.ErrInvalidInput)
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return fmt.Errorf("title cannot be blank: %w", apptype.ErrInvalidInput)
	}
	if update.Content != nil && strings.TrimSpace(*update.Content) == "" {
		return fmt.Errorf("content cannot be blank: %w", apptype.ErrInvalidInput)
	}

	// Embed the merged text before taking the write lock. If a concurrent
	// writer changes the text underneath us the precomputed vector no longer
	// applies and the stale one is kept.
	snapshot, ok := s.getEntity(update.ID)
	if !ok {
		return fmt.Errorf("entity %s: %w", update.ID, apptype.ErrNotFound)
	}
	mergedTitle, mergedContent := snapshot.Title, snapshot.Content
	if update.Title != nil {
		mergedTitle = *update.Title
	}
	if update.Content != nil {
		mergedContent = *update.Content
	}
	var newVec []float32
	if (mergedTitle != snapshot.Title || mergedContent != snapshot.Content) && s.embedder != nil {
		vec, err := s.embedder.GetOrGenerate(ctx, mergedTitle+"\n"+mergedContent)
		if err != nil {
			log.Printf("Warning: re-embedding failed for entity %q, keeping stale vector: %v", update.ID, err)
		} else {
			newVec = vec
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.getEntity(update.ID)
	if !ok {
		return fmt.Errorf("entity %s: %w", update.ID, apptype.ErrNotFound)
	}

	next := current
	textChanged := false
	if update.Title != nil && *update.Title != next.Title {
		next.Title = *update.Title
		textChanged = true
	}
	if update.Content != nil && *update.Content != next.Content {
		next.Content = *update.Content
		textChanged = true
	}
	if update.Metadata != nil {
		next.Metadata = update.Metadata
	}
	if update.Tags != nil {
		next.Tags = update.Tags
	}
	if update.Confidence != nil {
		next.ConfidenceScore = *update.Confidence
	}
	if update.RetentionPolicy != nil && *update.RetentionPolicy != next.RetentionPolicy {
		next.RetentionPolicy = *update.RetentionPolicy
		next.ExpiresAt = next.CreatedAt.Add(s.cfg.RetentionWindow(next.RetentionPolicy))
	}

	if textChanged && newVec != nil && next.Title == mergedTitle && next.Content == mergedContent {
		next.Embedding = newVec
	}

	if err := s.db.UpsertEntity(ctx, next); err != nil {
		return &apptype.DependencyError{Op: "update_entity", Err: err}
	}

	s.entityMu.Lock()
	stored := next
	s.entities[next.ID] = &stored
	s.entityMu.Unlock()

	if !equalTags(current.Tags, next.Tags) {
		s.indexes.Remove(current.ID, string(current.Domain), string(current.KnowledgeType), current.Tags)
		s.indexes.Insert(next.ID, string(next.Domain), string(next.KnowledgeType), next.Tags)
	}

	return nil
}

// DeleteEntity removes an entity, its index entries, and every relationship
// touching it in either direction. Deleting an absent entity is a no-op; the
// id is tombstoned either way.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	done := metrics.TimeOp("delete_entity")
	err := s.deleteEntity(ctx, id)
	done(err == nil)
	return err
}

func (s *Store) deleteEntity(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("entity id cannot be empty: %w", apptype.ErrInvalidInput)
	}

	s.writeMu.Lock()
	s.removeEntityLocked(id)
	s.writeMu.Unlock()

	if err := s.db.DeleteEntity(ctx, id); err != nil {
		return &apptype.DependencyError{Op: "delete_entity", Err: err}
	}
	return nil
}

// removeEntityLocked drops the entity from memory, tombstones its id, and
// prunes index entries and graph edges. Requires writeMu. The persistence
// delete happens outside the lock; the tombstone keeps the id from being
// reused while it is in flight.
func (s *Store) removeEntityLocked(id string) {
	s.entityMu.Lock()
	e, existed := s.entities[id]
	delete(s.entities, id)
	s.tombstones[id] = struct{}{}
	s.entityMu.Unlock()

	if existed {
		s.indexes.Remove(id, string(e.Domain), string(e.KnowledgeType), e.Tags)
	}
	s.unlinkAll(id)
}

// SetRetentionPolicy moves an entity to a different retention tier and
// recomputes its expiry from the original creation time.
func (s *Store) SetRetentionPolicy(ctx context.Context, id string, policy apptype.RetentionPolicy) error {
	done := metrics.TimeOp("set_memory_policy")
	err := s.updateEntity(ctx, EntityUpdate{ID: id, RetentionPolicy: &policy})
	done(err == nil)
	return err
}

// UpdateConfidence sets an entity's confidence, clamped to [0,1].
func (s *Store) UpdateConfidence(ctx context.Context, id string, score float64) error {
	return s.adjustConfidence(ctx, id, func(float64) float64 { return score })
}

// adjustConfidence reads the current confidence and applies next to it inside
// the write critical section, then persists the clamped result outside it.
// The in-memory value is authoritative; a failed persistence write surfaces
// as a DependencyError.
func (s *Store) adjustConfidence(ctx context.Context, id string, next func(current float64) float64) error {
	s.writeMu.Lock()
	s.entityMu.Lock()
	e, ok := s.entities[id]
	if !ok {
		s.entityMu.Unlock()
		s.writeMu.Unlock()
		return fmt.Errorf("entity %s: %w", id, apptype.ErrNotFound)
	}
	score := clamp01(next(e.ConfidenceScore))
	e.ConfidenceScore = score
	s.entityMu.Unlock()
	s.writeMu.Unlock()

	if err := s.db.UpdateConfidence(ctx, id, score); err != nil {
		return &apptype.DependencyError{Op: "update_confidence", Err: err}
	}
	return nil
}

// checkDomainCapacity requires writeMu.
func (s *Store) checkDomainCapacity(domain apptype.KnowledgeDomain) error {
	if s.cfg.MaxEntitiesPerDomain <= 0 {
		return nil
	}
	var count int
	if s.cfg.ArchivalCountsTowardCap {
		count = s.indexes.Domain.Count(string(domain))
	} else {
		s.entityMu.RLock()
		for _, id := range s.indexes.Domain.IDs(string(domain)) {
			if e, ok := s.entities[id]; ok && e.RetentionPolicy != apptype.RetentionArchival {
				count++
			}
		}
		s.entityMu.RUnlock()
	}
	if count >= s.cfg.MaxEntitiesPerDomain {
		return fmt.Errorf("domain %s is at capacity (%d entities): %w", domain, count, apptype.ErrInvalidInput)
	}
	return nil
}

func validateEntityInput(e *apptype.KnowledgeEntity, dims int) error {
	if !e.Domain.Valid() {
		return fmt.Errorf("unknown domain %q: %w", e.Domain, apptype.ErrInvalidInput)
	}
	if !e.KnowledgeType.Valid() {
		return fmt.Errorf("unknown knowledge type %q: %w", e.KnowledgeType, apptype.ErrInvalidInput)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title cannot be blank: %w", apptype.ErrInvalidInput)
	}
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("content cannot be blank: %w", apptype.ErrInvalidInput)
	}
	if e.RetentionPolicy == "" {
		e.RetentionPolicy = apptype.RetentionSession
	}
	if !e.RetentionPolicy.Valid() {
		return fmt.Errorf("unknown retention policy %q: %w", e.RetentionPolicy, apptype.ErrInvalidInput)
	}
	if len(e.Embedding) > 0 && dims > 0 && len(e.Embedding) != dims {
		return fmt.Errorf("embedding has %d dimensions, store requires %d: %w", len(e.Embedding), dims, apptype.ErrInvalidInput)
	}
	if e.ConfidenceScore == 0 {
		e.ConfidenceScore = 0.5
	}
	if e.ConfidenceScore < 0 || e.ConfidenceScore > 1 {
		return fmt.Errorf("confidence %f out of [0,1]: %w", e.ConfidenceScore, apptype.ErrInvalidInput)
	}
	return nil
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
