package apptype

// EntityInput is the wire shape for storing or importing an entity.
type EntityInput struct {
	ID              string         `json:"entityId,omitempty" jsonschema:"Optional entity id. Generated when empty."`
	Domain          string         `json:"domain" jsonschema:"Knowledge domain, e.g. REGULATORY_COMPLIANCE."`
	KnowledgeType   string         `json:"knowledgeType" jsonschema:"Knowledge type, e.g. FACT or RULE."`
	Title           string         `json:"title" jsonschema:"Short entity title."`
	Content         string         `json:"content" jsonschema:"Entity body text."`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata."`
	Embedding       []float32      `json:"embedding,omitempty" jsonschema:"Optional pre-computed embedding. Generated from title and content when empty."`
	RetentionPolicy string         `json:"retentionPolicy,omitempty" jsonschema:"EPHEMERAL, SESSION, PERSISTENT or ARCHIVAL (default SESSION)."`
	Confidence      *float64       `json:"confidence,omitempty" jsonschema:"Initial confidence score in [0,1] (default 0.5)."`
	Tags            []string       `json:"tags,omitempty" jsonschema:"Discrete tags for filtered retrieval."`
}

// StoreEntityArgs represents the arguments for the store_entity tool.
type StoreEntityArgs struct {
	Entity EntityInput `json:"entity" jsonschema:"The entity to store."`
}

// StoreEntityResult carries the id assigned to a stored entity.
type StoreEntityResult struct {
	EntityID string `json:"entityId"`
}

// StoreEntitiesBatchArgs represents the arguments for the store_entities_batch tool.
type StoreEntitiesBatchArgs struct {
	Entities []EntityInput `json:"entities" jsonschema:"Entities to store. Items are processed independently."`
}

// StoreEntitiesBatchResult reports per-item outcomes of a batch store.
type StoreEntitiesBatchResult struct {
	Stored   []string `json:"stored"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}

// UpdateEntityArgs represents the arguments for the update_entity tool.
// Empty fields leave the stored value unchanged.
type UpdateEntityArgs struct {
	EntityID        string         `json:"entityId" jsonschema:"The entity to update."`
	Title           string         `json:"title,omitempty" jsonschema:"New title, unchanged when empty."`
	Content         string         `json:"content,omitempty" jsonschema:"New content, unchanged when empty."`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Replacement metadata, unchanged when empty."`
	RetentionPolicy string         `json:"retentionPolicy,omitempty" jsonschema:"New retention policy, unchanged when empty."`
	Confidence      *float64       `json:"confidence,omitempty" jsonschema:"New confidence score in [0,1]."`
	Tags            []string       `json:"tags,omitempty" jsonschema:"Replacement tag set, unchanged when empty."`
}

// DeleteEntityArgs represents the arguments for the delete_entity tool.
type DeleteEntityArgs struct {
	EntityID string `json:"entityId" jsonschema:"The entity to delete."`
}

// SetMemoryPolicyArgs represents the arguments for the set_memory_policy tool.
type SetMemoryPolicyArgs struct {
	EntityID string `json:"entityId" jsonschema:"The entity whose retention policy changes."`
	Policy   string `json:"policy" jsonschema:"EPHEMERAL, SESSION, PERSISTENT or ARCHIVAL."`
}

// SemanticSearchArgs represents the arguments for the semantic_search tool.
type SemanticSearchArgs struct {
	Query                string    `json:"query,omitempty" jsonschema:"Query text. Embedded automatically unless queryEmbedding is set."`
	QueryEmbedding       []float32 `json:"queryEmbedding,omitempty" jsonschema:"Optional pre-computed query embedding."`
	Domain               string    `json:"domain,omitempty" jsonschema:"Restrict results to one knowledge domain."`
	KnowledgeTypes       []string  `json:"knowledgeTypes,omitempty" jsonschema:"Restrict results to these knowledge types."`
	Tags                 []string  `json:"tags,omitempty" jsonschema:"Require all of these tags."`
	Metric               string    `json:"metric,omitempty" jsonschema:"cosine|dot|euclidean|manhattan (default cosine)."`
	Threshold            *float64  `json:"threshold,omitempty" jsonschema:"Minimum similarity in [0,1] (default 0.7)."`
	MaxResults           int       `json:"maxResults,omitempty" jsonschema:"Maximum results to return (default 10, cap 50)."`
	MaxAgeHours          int       `json:"maxAgeHours,omitempty" jsonschema:"Only return entities created within this many hours."`
	IncludeRelationships bool      `json:"includeRelationships,omitempty" jsonschema:"Attach outgoing relationships to each result."`
}

// EntityView is the wire rendering of a stored entity. Timestamps are
// RFC 3339 strings so the tool schemas stay plain JSON types.
type EntityView struct {
	ID              string                    `json:"entityId"`
	Domain          string                    `json:"domain"`
	KnowledgeType   string                    `json:"knowledgeType"`
	Title           string                    `json:"title"`
	Content         string                    `json:"content"`
	Metadata        map[string]any            `json:"metadata,omitempty"`
	Embedding       []float32                 `json:"embedding,omitempty"`
	RetentionPolicy string                    `json:"retentionPolicy"`
	CreatedAt       string                    `json:"createdAt,omitempty"`
	LastAccessed    string                    `json:"lastAccessed,omitempty"`
	ExpiresAt       string                    `json:"expiresAt,omitempty"`
	AccessCount     int64                     `json:"accessCount"`
	ConfidenceScore float64                   `json:"confidenceScore"`
	Tags            []string                  `json:"tags,omitempty"`
	Relationships   map[string]map[string]any `json:"relationships,omitempty"`
}

// QueryResultView is the wire rendering of one search hit.
type QueryResultView struct {
	Entity          EntityView     `json:"entity"`
	SimilarityScore float64        `json:"similarityScore"`
	MatchedTerms    []string       `json:"matchedTerms,omitempty"`
	Explanation     map[string]any `json:"explanation,omitempty"`
}

// SemanticSearchResult is the structured payload of the semantic_search tool.
type SemanticSearchResult struct {
	Results []QueryResultView `json:"results"`
}

// CreateRelationshipArgs represents the arguments for the create_relationship tool.
type CreateRelationshipArgs struct {
	SourceID   string         `json:"sourceId" jsonschema:"Source entity id."`
	TargetID   string         `json:"targetId" jsonschema:"Target entity id."`
	Type       string         `json:"type" jsonschema:"Relationship type, e.g. supersedes or derived_from."`
	Properties map[string]any `json:"properties,omitempty" jsonschema:"Free-form edge properties."`
}

// GetRelatedEntitiesArgs represents the arguments for the get_related_entities tool.
type GetRelatedEntitiesArgs struct {
	EntityID string `json:"entityId" jsonschema:"Entity to expand from."`
	Type     string `json:"type,omitempty" jsonschema:"Only follow edges of this type."`
	MaxDepth int    `json:"maxDepth,omitempty" jsonschema:"Maximum hop depth (default 2)."`
}

// RelatedEntitiesResult is the structured payload of get_related_entities.
type RelatedEntitiesResult struct {
	Entities []EntityView `json:"entities"`
}

// LearnFromInteractionArgs represents the arguments for the learn_from_interaction tool.
type LearnFromInteractionArgs struct {
	Query            string  `json:"query" jsonschema:"The query that produced the interaction."`
	SelectedEntityID string  `json:"selectedEntityId" jsonschema:"The entity the agent acted on."`
	Reward           float64 `json:"reward" jsonschema:"Outcome signal in [-1,1]."`
}

// GetStatisticsArgs represents the arguments for the get_memory_statistics tool.
type GetStatisticsArgs struct{}

// GetPopularEntitiesArgs represents the arguments for the get_popular_entities tool.
type GetPopularEntitiesArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum rows to return (default 10)."`
}

// PopularEntitiesResult is the structured payload of get_popular_entities.
type PopularEntitiesResult struct {
	Entities []PopularEntity `json:"entities"`
}

// GetDomainStatisticsArgs represents the arguments for the get_domain_statistics tool.
type GetDomainStatisticsArgs struct {
	Domain string `json:"domain" jsonschema:"The knowledge domain to summarize."`
}

// GetLearningRecommendationsArgs represents the arguments for the
// get_learning_recommendations tool.
type GetLearningRecommendationsArgs struct {
	Domain string `json:"domain,omitempty" jsonschema:"Restrict recommendations to one domain."`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum rows to return (default 10)."`
}

// LearningRecommendationsResult is the structured payload of
// get_learning_recommendations.
type LearningRecommendationsResult struct {
	Entities []PopularEntity `json:"entities"`
}

// ExportArgs represents the arguments for the export_knowledge_base tool.
type ExportArgs struct {
	Domain string `json:"domain,omitempty" jsonschema:"Export only this domain. Exports everything when empty."`
}

// ExportMetadataView is the wire rendering of export metadata.
type ExportMetadataView struct {
	ExportedAt    string `json:"exportedAt"`
	Version       string `json:"version"`
	DomainCount   int    `json:"domainCount"`
	EntityCount   int    `json:"entityCount"`
	RelationCount int    `json:"relationCount"`
}

// DomainExportView is the wire rendering of one domain's export slice.
type DomainExportView struct {
	Entities      []EntityView   `json:"entities,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// KnowledgeExportView is the wire rendering of a full export payload.
type KnowledgeExportView struct {
	Metadata ExportMetadataView          `json:"metadata"`
	Domains  map[string]DomainExportView `json:"domains"`
}

// ImportArgs represents the arguments for the import_knowledge_base tool.
type ImportArgs struct {
	Export KnowledgeExportView `json:"export" jsonschema:"A payload previously produced by export_knowledge_base."`
}

// ImportResult reports what an import reconstructed.
type ImportResult struct {
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
}

// Health
type HealthArgs struct{}

type HealthResult struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Revision      string `json:"revision"`
	BuildDate     string `json:"buildDate"`
	EmbeddingDims int    `json:"embeddingDims"`
	Provider      string `json:"provider"`
}
