// Package memory implements the semantic memory store: entity CRUD with
// write-through indexing, hybrid vector and keyword retrieval, a typed
// relationship graph, and retention plus learning maintenance loops.
package memory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/embeddings"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/index"
)

// Store is the in-process semantic memory. All exported methods are safe for
// concurrent use. Mutating operations are serialized through writeMu. Entity
// creation and update write through to the persistence layer inside the
// critical section; deletes and confidence adjustments mutate memory under
// the lock and persist after releasing it, so sweeps and learning passes
// never hold writeMu across an external call.
type Store struct {
	cfg      Config
	db       Persistence
	embedder *embeddings.Cache
	now      func() time.Time

	// writeMu serializes mutating operations so check-then-act sequences
	// (id reuse, capacity) stay atomic. Readers only need entityMu.
	writeMu sync.Mutex

	entityMu   sync.RWMutex
	entities   map[string]*apptype.KnowledgeEntity
	tombstones map[string]struct{}

	indexes *index.Set

	graphMu sync.RWMutex
	out     map[string][]apptype.Relationship
	in      map[string]map[string]struct{}

	accessMu sync.Mutex
	accessed map[string]int

	totalSearches    atomic.Int64
	degradedSearches atomic.Int64
	sweepDeleted     atomic.Int64
	sweepErrors      atomic.Int64
	learningErrors   atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a store over db and embedder and warm-loads all persisted
// entities and relationships into memory.
func New(ctx context.Context, cfg Config, db Persistence, embedder *embeddings.Cache) (*Store, error) {
	s := &Store{
		cfg:        cfg,
		db:         db,
		embedder:   embedder,
		now:        time.Now,
		entities:   make(map[string]*apptype.KnowledgeEntity),
		tombstones: make(map[string]struct{}),
		indexes:    index.NewSet(),
		out:        make(map[string][]apptype.Relationship),
		in:         make(map[string]map[string]struct{}),
		accessed:   make(map[string]int),
		stopCh:     make(chan struct{}),
	}

	entities, err := db.LoadAllEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	for i := range entities {
		e := entities[i]
		s.entities[e.ID] = &e
		s.indexes.Insert(e.ID, string(e.Domain), string(e.KnowledgeType), e.Tags)
	}

	relationships, err := db.LoadRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	for _, rel := range relationships {
		s.linkLocked(rel)
	}

	return s, nil
}

// SetClock overrides the store's time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Embedder returns the store's embedding cache.
func (s *Store) Embedder() *embeddings.Cache { return s.embedder }

// Config returns the store's configuration.
func (s *Store) Config() Config { return s.cfg }

// Close stops background maintenance and closes the persistence layer.
func (s *Store) Close() error {
	s.Stop()
	return s.db.Close()
}

// getEntity returns a deep enough copy of the entity to hand to callers
// without exposing internal state to mutation.
func (s *Store) getEntity(id string) (apptype.KnowledgeEntity, bool) {
	s.entityMu.RLock()
	defer s.entityMu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return apptype.KnowledgeEntity{}, false
	}
	return cloneEntity(e), true
}

// GetEntity returns one entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (apptype.KnowledgeEntity, error) {
	e, ok := s.getEntity(id)
	if !ok {
		return apptype.KnowledgeEntity{}, fmt.Errorf("entity %s: %w", id, apptype.ErrNotFound)
	}
	return e, nil
}

func cloneEntity(e *apptype.KnowledgeEntity) apptype.KnowledgeEntity {
	out := *e
	if e.Embedding != nil {
		out.Embedding = append([]float32(nil), e.Embedding...)
	}
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	out.Relationships = nil
	return out
}

// recordAccess bumps access counters for entities returned by a search.
// Search fires it on a goroutine so result latency doesn't pay for the
// write-through.
func (s *Store) recordAccess(ids []string) {
	if len(ids) == 0 {
		return
	}
	at := s.now()

	s.entityMu.Lock()
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			e.AccessCount++
			e.LastAccessed = at
		}
	}
	s.entityMu.Unlock()

	s.accessMu.Lock()
	for _, id := range ids {
		s.accessed[id]++
	}
	s.accessMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.db.UpdateAccess(ctx, ids, at); err != nil {
		log.Printf("Warning: failed to persist access update: %v", err)
	}
}

// expired reports whether e is past its retention window at time t.
func expired(e *apptype.KnowledgeEntity, t time.Time) bool {
	return !e.ExpiresAt.After(t)
}
