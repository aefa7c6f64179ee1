// Package index provides lock-guarded discrete indexes mapping keys (domain,
// type, tag) to entity id sets.
package index

import "sync"

// Index maps a key to the set of entity ids carrying it.
type Index struct {
	mu   sync.RWMutex
	keys map[string]map[string]struct{}
}

// New returns an empty index.
func New() *Index {
	return &Index{keys: make(map[string]map[string]struct{})}
}

// Add registers id under key.
func (ix *Index) Add(key, id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	set, ok := ix.keys[key]
	if !ok {
		set = make(map[string]struct{})
		ix.keys[key] = set
	}
	set[id] = struct{}{}
}

// Remove unregisters id from key. Empty key sets are dropped so stale keys
// don't accumulate.
func (ix *Index) Remove(key, id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	set, ok := ix.keys[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(ix.keys, key)
	}
}

// IDs returns the ids registered under key.
func (ix *Index) IDs(key string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	set, ok := ix.keys[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Has reports whether id is registered under key.
func (ix *Index) Has(key, id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.keys[key][id]
	return ok
}

// Keys returns every key with at least one id.
func (ix *Index) Keys() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.keys))
	for k := range ix.keys {
		out = append(out, k)
	}
	return out
}

// Count returns the number of ids registered under key.
func (ix *Index) Count(key string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.keys[key])
}

// Set bundles the three discrete indexes the store maintains.
type Set struct {
	Domain *Index
	Type   *Index
	Tag    *Index
}

// NewSet returns empty domain/type/tag indexes.
func NewSet() *Set {
	return &Set{Domain: New(), Type: New(), Tag: New()}
}

// Insert registers an entity under its domain, type, and tags.
func (s *Set) Insert(id, domain, knowledgeType string, tags []string) {
	s.Domain.Add(domain, id)
	s.Type.Add(knowledgeType, id)
	for _, tag := range tags {
		s.Tag.Add(tag, id)
	}
}

// Remove unregisters an entity from its domain, type, and tags.
func (s *Set) Remove(id, domain, knowledgeType string, tags []string) {
	s.Domain.Remove(domain, id)
	s.Type.Remove(knowledgeType, id)
	for _, tag := range tags {
		s.Tag.Remove(tag, id)
	}
}
