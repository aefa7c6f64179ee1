package memory

import (
	"context"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/database"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/embeddings"
	core "github.com/ZanzyTHEbar/semantic-memory-go/internal/memory"
)

// Re-exported domain types so library consumers do not import internal
// packages.
type (
	KnowledgeEntity  = apptype.KnowledgeEntity
	SemanticQuery    = apptype.SemanticQuery
	QueryResult      = apptype.QueryResult
	Relationship     = apptype.Relationship
	KnowledgeExport  = apptype.KnowledgeExport
	MemoryStatistics = apptype.MemoryStatistics
	DomainStatistics = apptype.DomainStatistics
	PopularEntity    = apptype.PopularEntity
	EntityUpdate     = core.EntityUpdate

	KnowledgeDomain = apptype.KnowledgeDomain
	KnowledgeType   = apptype.KnowledgeType
	RetentionPolicy = apptype.RetentionPolicy
)

// Service provides a library-first API for semantic memory without MCP
// transport. Background cleanup and learning loops run until Close.
type Service struct {
	store *core.Store
}

// NewService constructs a Service with the provided config and starts the
// background maintenance loops.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	dbCfg := cfg.toDatabase()

	var provider embeddings.Provider
	if cfg.EmbeddingsProvider != "" {
		provider = embeddings.NewNamed(cfg.EmbeddingsProvider)
	} else {
		provider = embeddings.NewFromEnv()
	}
	if provider != nil {
		provider = embeddings.WrapToDims(provider, dbCfg.EmbeddingDims, "pad_or_truncate")
	}

	db, err := database.NewManager(dbCfg)
	if err != nil {
		return nil, err
	}

	storeCfg := cfg.toStore(dbCfg.EmbeddingDims)
	cache := embeddings.NewCache(provider, storeCfg.CacheTTL, storeCfg.CacheSize)
	store, err := core.New(ctx, storeCfg, db, cache)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.Start()
	return &Service{store: store}, nil
}

// Close stops the maintenance loops and releases resources.
func (s *Service) Close() error { return s.store.Close() }

// Store exposes the underlying store for advanced wiring such as the MCP
// server.
func (s *Service) Store() *core.Store { return s.store }

// StoreEntity stores one entity and returns its id.
func (s *Service) StoreEntity(ctx context.Context, e KnowledgeEntity) (string, error) {
	return s.store.StoreEntity(ctx, e)
}

// StoreEntitiesBatch stores entities independently, returning the ids that
// succeeded and a joined error for the items that did not.
func (s *Service) StoreEntitiesBatch(ctx context.Context, entities []KnowledgeEntity) ([]string, error) {
	return s.store.StoreEntitiesBatch(ctx, entities)
}

// GetEntity fetches one entity by id.
func (s *Service) GetEntity(ctx context.Context, id string) (KnowledgeEntity, error) {
	return s.store.GetEntity(ctx, id)
}

// UpdateEntity applies a partial update.
func (s *Service) UpdateEntity(ctx context.Context, update EntityUpdate) error {
	return s.store.UpdateEntity(ctx, update)
}

// DeleteEntity removes an entity and every relationship touching it.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	return s.store.DeleteEntity(ctx, id)
}

// SetMemoryPolicy changes an entity's retention policy.
func (s *Service) SetMemoryPolicy(ctx context.Context, id string, policy RetentionPolicy) error {
	return s.store.SetRetentionPolicy(ctx, id, policy)
}

// SemanticSearch runs hybrid vector and keyword retrieval.
func (s *Service) SemanticSearch(ctx context.Context, q SemanticQuery) ([]QueryResult, error) {
	return s.store.SemanticSearch(ctx, q)
}

// CreateRelationship creates or updates a typed directed edge.
func (s *Service) CreateRelationship(ctx context.Context, rel Relationship) error {
	return s.store.CreateRelationship(ctx, rel)
}

// DeleteRelationship removes one edge.
func (s *Service) DeleteRelationship(ctx context.Context, source, target, relationType string) error {
	return s.store.DeleteRelationship(ctx, source, target, relationType)
}

// GetRelatedEntities walks outgoing edges up to maxDepth hops.
func (s *Service) GetRelatedEntities(ctx context.Context, id, relationType string, maxDepth int) ([]KnowledgeEntity, error) {
	return s.store.GetRelatedEntities(ctx, id, relationType, maxDepth)
}

// LearnFromInteraction adjusts an entity's confidence from an outcome signal
// in [-1,1].
func (s *Service) LearnFromInteraction(ctx context.Context, query, selectedID string, reward float64) error {
	return s.store.LearnFromInteraction(ctx, query, selectedID, reward)
}

// Statistics returns store-wide counters and breakdowns.
func (s *Service) Statistics() MemoryStatistics { return s.store.Statistics() }

// PopularEntities ranks entities by access count weighted by confidence.
func (s *Service) PopularEntities(limit int) []PopularEntity {
	return s.store.PopularEntities(limit)
}

// DomainStatistics summarizes one domain.
func (s *Service) DomainStatistics(domain KnowledgeDomain) (DomainStatistics, error) {
	return s.store.DomainStatistics(domain)
}

// LearningRecommendations lists frequently accessed low-confidence entities.
func (s *Service) LearningRecommendations(domain KnowledgeDomain, limit int) ([]PopularEntity, error) {
	return s.store.LearningRecommendations(domain, limit)
}

// Export snapshots entities and relationships keyed by domain.
func (s *Service) Export(ctx context.Context, domain KnowledgeDomain) (KnowledgeExport, error) {
	return s.store.Export(ctx, domain)
}

// Import reconstructs entities and relationships from an export payload.
func (s *Service) Import(ctx context.Context, payload KnowledgeExport) (entities, relationships int, err error) {
	return s.store.Import(ctx, payload)
}

// HealthCheck reports build and embedding configuration information.
func (s *Service) HealthCheck() apptype.HealthResult {
	embedder := s.store.Embedder()
	return apptype.HealthResult{
		Name:          "semantic-memory-go",
		Version:       buildinfo.Version,
		Revision:      buildinfo.Revision,
		BuildDate:     buildinfo.BuildDate,
		EmbeddingDims: embedder.Dimensions(),
		Provider:      embedder.Name(),
	}
}

// RunCleanupOnce runs one retention sweep outside the background cadence.
func (s *Service) RunCleanupOnce(ctx context.Context) (int, error) {
	return s.store.RunCleanupOnce(ctx)
}

// RunLearningOnce runs one learning pass outside the background cadence.
func (s *Service) RunLearningOnce(ctx context.Context) error {
	return s.store.RunLearningOnce(ctx)
}
