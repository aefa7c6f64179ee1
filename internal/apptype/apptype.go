package apptype

import "time"

// KnowledgeDomain classifies which business area an entity belongs to.
type KnowledgeDomain string

const (
	DomainRegulatoryCompliance  KnowledgeDomain = "REGULATORY_COMPLIANCE"
	DomainTransactionMonitoring KnowledgeDomain = "TRANSACTION_MONITORING"
	DomainAuditIntelligence     KnowledgeDomain = "AUDIT_INTELLIGENCE"
	DomainBusinessProcesses     KnowledgeDomain = "BUSINESS_PROCESSES"
	DomainRiskManagement        KnowledgeDomain = "RISK_MANAGEMENT"
	DomainLegalFrameworks       KnowledgeDomain = "LEGAL_FRAMEWORKS"
	DomainFinancialInstruments  KnowledgeDomain = "FINANCIAL_INSTRUMENTS"
	DomainMarketIntelligence    KnowledgeDomain = "MARKET_INTELLIGENCE"
)

// AllDomains returns the closed set of knowledge domains.
func AllDomains() []KnowledgeDomain {
	return []KnowledgeDomain{
		DomainRegulatoryCompliance,
		DomainTransactionMonitoring,
		DomainAuditIntelligence,
		DomainBusinessProcesses,
		DomainRiskManagement,
		DomainLegalFrameworks,
		DomainFinancialInstruments,
		DomainMarketIntelligence,
	}
}

// Valid reports whether d is a member of the closed domain enumeration.
func (d KnowledgeDomain) Valid() bool {
	switch d {
	case DomainRegulatoryCompliance, DomainTransactionMonitoring,
		DomainAuditIntelligence, DomainBusinessProcesses,
		DomainRiskManagement, DomainLegalFrameworks,
		DomainFinancialInstruments, DomainMarketIntelligence:
		return true
	}
	return false
}

// KnowledgeType classifies the kind of knowledge an entity carries.
type KnowledgeType string

const (
	TypeFact         KnowledgeType = "FACT"
	TypeRule         KnowledgeType = "RULE"
	TypePattern      KnowledgeType = "PATTERN"
	TypeRelationship KnowledgeType = "RELATIONSHIP"
	TypeContext      KnowledgeType = "CONTEXT"
	TypeExperience   KnowledgeType = "EXPERIENCE"
	TypeDecision     KnowledgeType = "DECISION"
	TypePrediction   KnowledgeType = "PREDICTION"
)

// Valid reports whether t is a member of the closed type enumeration.
func (t KnowledgeType) Valid() bool {
	switch t {
	case TypeFact, TypeRule, TypePattern, TypeRelationship,
		TypeContext, TypeExperience, TypeDecision, TypePrediction:
		return true
	}
	return false
}

// RetentionPolicy controls how long an entity survives before the cleanup
// sweep removes it.
type RetentionPolicy string

const (
	RetentionEphemeral  RetentionPolicy = "EPHEMERAL"
	RetentionSession    RetentionPolicy = "SESSION"
	RetentionPersistent RetentionPolicy = "PERSISTENT"
	RetentionArchival   RetentionPolicy = "ARCHIVAL"
)

// Valid reports whether p is a member of the closed retention enumeration.
func (p RetentionPolicy) Valid() bool {
	switch p {
	case RetentionEphemeral, RetentionSession, RetentionPersistent, RetentionArchival:
		return true
	}
	return false
}

// KnowledgeEntity is the unit of stored knowledge.
type KnowledgeEntity struct {
	ID              string                    `json:"entity_id"`
	Domain          KnowledgeDomain           `json:"domain"`
	KnowledgeType   KnowledgeType             `json:"knowledge_type"`
	Title           string                    `json:"title"`
	Content         string                    `json:"content"`
	Metadata        map[string]any            `json:"metadata,omitempty"`
	Embedding       []float32                 `json:"embedding,omitempty"`
	RetentionPolicy RetentionPolicy           `json:"retention_policy"`
	CreatedAt       time.Time                 `json:"created_at"`
	LastAccessed    time.Time                 `json:"last_accessed"`
	ExpiresAt       time.Time                 `json:"expires_at"`
	AccessCount     int64                     `json:"access_count"`
	ConfidenceScore float64                   `json:"confidence_score"`
	Tags            []string                  `json:"tags,omitempty"`
	Relationships   map[string]map[string]any `json:"relationships,omitempty"`
}

// SemanticQuery is an ephemeral search request. At least one of QueryText and
// QueryEmbedding must be set.
type SemanticQuery struct {
	QueryText            string            `json:"query_text,omitempty"`
	QueryEmbedding       []float32         `json:"query_embedding,omitempty"`
	DomainFilter         KnowledgeDomain   `json:"domain_filter,omitempty"`
	TypeFilters          []KnowledgeType   `json:"type_filters,omitempty"`
	TagFilters           []string          `json:"tag_filters,omitempty"`
	Metric               string            `json:"similarity_metric,omitempty"`
	SimilarityThreshold  float64           `json:"similarity_threshold,omitempty"`
	MaxResults           int               `json:"max_results,omitempty"`
	MaxAge               time.Duration     `json:"max_age,omitempty"`
	IncludeRelationships bool              `json:"include_relationships,omitempty"`
}

// QueryResult is one ranked hit produced by a semantic search.
type QueryResult struct {
	Entity          KnowledgeEntity `json:"entity"`
	SimilarityScore float64         `json:"similarity_score"`
	MatchedTerms    []string        `json:"matched_terms,omitempty"`
	Explanation     map[string]any  `json:"explanation,omitempty"`
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	SourceID   string         `json:"source_entity_id"`
	TargetID   string         `json:"target_entity_id"`
	Type       string         `json:"relationship_type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// SearchResult pairs an entity with its raw vector distance from the
// persistence layer's range query.
type SearchResult struct {
	Entity   KnowledgeEntity `json:"entity"`
	Distance float64         `json:"distance"`
}

// PolicyStats summarizes entities under one retention policy.
type PolicyStats struct {
	Total   int `json:"total_count"`
	Expired int `json:"expired_count"`
}

// MemoryStatistics is the operational snapshot returned by
// get_memory_statistics.
type MemoryStatistics struct {
	TotalEntities      int                             `json:"total_entities"`
	TotalRelationships int                             `json:"total_relationships"`
	ByDomain           map[KnowledgeDomain]int         `json:"by_domain"`
	ByPolicy           map[RetentionPolicy]PolicyStats `json:"by_policy"`
	TotalSearches      int64                           `json:"total_searches"`
	DegradedSearches   int64                           `json:"degraded_searches"`
	EmbeddingCacheSize int                             `json:"embedding_cache_size"`
	CacheHits          int64                           `json:"cache_hits"`
	CacheMisses        int64                           `json:"cache_misses"`
	SweepDeleted       int64                           `json:"sweep_deleted"`
	SweepErrors        int64                           `json:"sweep_errors"`
	LearningErrors     int64                           `json:"learning_errors"`
}

// DomainStatistics summarizes one domain's knowledge.
type DomainStatistics struct {
	Domain        KnowledgeDomain       `json:"domain"`
	EntityCount   int                   `json:"entity_count"`
	ByType        map[KnowledgeType]int `json:"by_type"`
	AvgConfidence float64               `json:"avg_confidence"`
	TotalAccesses int64                 `json:"total_accesses"`
}

// PopularEntity is one row of the popularity report, ranked by
// access_count * confidence_score.
type PopularEntity struct {
	ID          string  `json:"entity_id"`
	Title       string  `json:"title"`
	AccessCount int64   `json:"access_count"`
	Confidence  float64 `json:"confidence_score"`
}

// ExportMetadata describes an export payload.
type ExportMetadata struct {
	ExportedAt    time.Time `json:"exported_at"`
	Version       string    `json:"version"`
	DomainCount   int       `json:"domain_count"`
	EntityCount   int       `json:"entity_count"`
	RelationCount int       `json:"relation_count"`
}

// DomainExport holds one domain's full entity records and the relationships
// whose source lives in that domain.
type DomainExport struct {
	Entities      []KnowledgeEntity `json:"entities"`
	Relationships []Relationship    `json:"relationships,omitempty"`
}

// KnowledgeExport is the bulk transfer payload, keyed by domain. Embeddings
// are included so an import reconstructs the store without re-embedding.
type KnowledgeExport struct {
	Metadata ExportMetadata                  `json:"metadata"`
	Domains  map[KnowledgeDomain]DomainExport `json:"domains"`
}
