package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/memory"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "semantic-memory-go"

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server *mcp.Server
	store  *memory.Store
}

// NewMCPServer creates a new MCP server over the given store
func NewMCPServer(store *memory.Store) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: buildinfo.Version,
	}, nil)

	mcpServer := &MCPServer{
		server: server,
		store:  store,
	}

	// initialize metrics from env (no-op if disabled)
	metrics.InitFromEnv()
	mcpServer.setupToolHandlers()
	return mcpServer
}

func mustSchema[T any](name string) *jsonschema.Schema {
	s, err := jsonschema.For[T]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for %s: %v", name, err))
	}
	return s
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "store_entity",
		Title:        "Store Entity",
		Description:  "Store one knowledge entity with automatic embedding and retention policy.",
		InputSchema:  mustSchema[apptype.StoreEntityArgs]("StoreEntityArgs"),
		OutputSchema: mustSchema[apptype.StoreEntityResult]("StoreEntityResult"),
	}, s.handleStoreEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "store_entities_batch",
		Title:        "Store Entities Batch",
		Description:  "Store multiple entities. Items are independent; failures are reported per item.",
		InputSchema:  mustSchema[apptype.StoreEntitiesBatchArgs]("StoreEntitiesBatchArgs"),
		OutputSchema: mustSchema[apptype.StoreEntitiesBatchResult]("StoreEntitiesBatchResult"),
	}, s.handleStoreEntitiesBatch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_entity",
		Title:       "Update Entity",
		Description: "Partially update an entity. Changed text is re-embedded; a changed policy recomputes expiry.",
		InputSchema: mustSchema[apptype.UpdateEntityArgs]("UpdateEntityArgs"),
	}, s.handleUpdateEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_entity",
		Title:       "Delete Entity",
		Description: "Delete an entity and all relationships touching it. The id is never reused.",
		InputSchema: mustSchema[apptype.DeleteEntityArgs]("DeleteEntityArgs"),
	}, s.handleDeleteEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_memory_policy",
		Title:       "Set Memory Policy",
		Description: "Change an entity's retention policy. Expiry is recomputed from creation time.",
		InputSchema: mustSchema[apptype.SetMemoryPolicyArgs]("SetMemoryPolicyArgs"),
	}, s.handleSetMemoryPolicy)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "semantic_search",
		Title:        "Semantic Search",
		Description:  "Hybrid vector and keyword retrieval with domain, type, tag and age filters.",
		InputSchema:  mustSchema[apptype.SemanticSearchArgs]("SemanticSearchArgs"),
		OutputSchema: mustSchema[apptype.SemanticSearchResult]("SemanticSearchResult"),
	}, s.handleSemanticSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_relationship",
		Title:       "Create Relationship",
		Description: "Create or update a typed, directed relationship between two entities.",
		InputSchema: mustSchema[apptype.CreateRelationshipArgs]("CreateRelationshipArgs"),
	}, s.handleCreateRelationship)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_related_entities",
		Title:        "Get Related Entities",
		Description:  "Bounded-depth traversal over outgoing relationships from an entity.",
		InputSchema:  mustSchema[apptype.GetRelatedEntitiesArgs]("GetRelatedEntitiesArgs"),
		OutputSchema: mustSchema[apptype.RelatedEntitiesResult]("RelatedEntitiesResult"),
	}, s.handleGetRelatedEntities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "learn_from_interaction",
		Title:       "Learn From Interaction",
		Description: "Adjust an entity's confidence from an interaction outcome signal.",
		InputSchema: mustSchema[apptype.LearnFromInteractionArgs]("LearnFromInteractionArgs"),
	}, s.handleLearnFromInteraction)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_memory_statistics",
		Title:        "Get Memory Statistics",
		Description:  "Store-wide counts, per-domain and per-policy breakdowns, and cache counters.",
		InputSchema:  mustSchema[apptype.GetStatisticsArgs]("GetStatisticsArgs"),
		OutputSchema: mustSchema[apptype.MemoryStatistics]("MemoryStatistics"),
	}, s.handleGetStatistics)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_popular_entities",
		Title:        "Get Popular Entities",
		Description:  "Entities ranked by access count weighted by confidence.",
		InputSchema:  mustSchema[apptype.GetPopularEntitiesArgs]("GetPopularEntitiesArgs"),
		OutputSchema: mustSchema[apptype.PopularEntitiesResult]("PopularEntitiesResult"),
	}, s.handleGetPopularEntities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_domain_statistics",
		Title:        "Get Domain Statistics",
		Description:  "Entity counts, type breakdown, and confidence summary for one domain.",
		InputSchema:  mustSchema[apptype.GetDomainStatisticsArgs]("GetDomainStatisticsArgs"),
		OutputSchema: mustSchema[apptype.DomainStatistics]("DomainStatistics"),
	}, s.handleGetDomainStatistics)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_learning_recommendations",
		Title:        "Get Learning Recommendations",
		Description:  "Frequently accessed, low-confidence entities that would benefit from curation.",
		InputSchema:  mustSchema[apptype.GetLearningRecommendationsArgs]("GetLearningRecommendationsArgs"),
		OutputSchema: mustSchema[apptype.LearningRecommendationsResult]("LearningRecommendationsResult"),
	}, s.handleGetLearningRecommendations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "export_knowledge_base",
		Title:        "Export Knowledge Base",
		Description:  "Export entities and relationships keyed by domain, embeddings included.",
		InputSchema:  mustSchema[apptype.ExportArgs]("ExportArgs"),
		OutputSchema: mustSchema[apptype.KnowledgeExportView]("KnowledgeExportView"),
	}, s.handleExport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "import_knowledge_base",
		Title:        "Import Knowledge Base",
		Description:  "Reconstruct entities and relationships from an export payload.",
		InputSchema:  mustSchema[apptype.ImportArgs]("ImportArgs"),
		OutputSchema: mustSchema[apptype.ImportResult]("ImportResult"),
	}, s.handleImport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Returns server and configuration information.",
		InputSchema:  mustSchema[apptype.HealthArgs]("HealthArgs"),
		OutputSchema: mustSchema[apptype.HealthResult]("HealthResult"),
	}, s.handleHealth)
}

func entityFromInput(in apptype.EntityInput) apptype.KnowledgeEntity {
	e := apptype.KnowledgeEntity{
		ID:              in.ID,
		Domain:          apptype.KnowledgeDomain(in.Domain),
		KnowledgeType:   apptype.KnowledgeType(in.KnowledgeType),
		Title:           in.Title,
		Content:         in.Content,
		Metadata:        in.Metadata,
		Embedding:       in.Embedding,
		RetentionPolicy: apptype.RetentionPolicy(in.RetentionPolicy),
		Tags:            in.Tags,
	}
	if in.Confidence != nil {
		e.ConfidenceScore = *in.Confidence
	}
	return e
}

// handleStoreEntity handles the store_entity tool call
func (s *MCPServer) handleStoreEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.StoreEntityArgs],
) (*mcp.CallToolResultFor[apptype.StoreEntityResult], error) {
	done := metrics.TimeTool("store_entity")
	var success bool
	defer func() { done(success) }()

	id, err := s.store.StoreEntity(ctx, entityFromInput(params.Arguments.Entity))
	if err != nil {
		return nil, fmt.Errorf("failed to store entity: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.StoreEntityResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Stored entity %s", id)}},
		StructuredContent: apptype.StoreEntityResult{EntityID: id},
	}, nil
}

// handleStoreEntitiesBatch handles the store_entities_batch tool call
func (s *MCPServer) handleStoreEntitiesBatch(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.StoreEntitiesBatchArgs],
) (*mcp.CallToolResultFor[apptype.StoreEntitiesBatchResult], error) {
	done := metrics.TimeTool("store_entities_batch")
	var success bool
	defer func() { done(success) }()

	entities := make([]apptype.KnowledgeEntity, len(params.Arguments.Entities))
	for i, in := range params.Arguments.Entities {
		entities[i] = entityFromInput(in)
	}

	ids, err := s.store.StoreEntitiesBatch(ctx, entities)
	result := apptype.StoreEntitiesBatchResult{Stored: ids}
	if err != nil {
		// errors.Join carries one entry per rejected item
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				result.Failures = append(result.Failures, e.Error())
			}
		} else {
			result.Failures = append(result.Failures, err.Error())
		}
	}
	result.Failed = len(result.Failures)
	success = result.Failed == 0

	return &mcp.CallToolResultFor[apptype.StoreEntitiesBatchResult]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Stored %d entities, %d failed", len(ids), result.Failed),
		}},
		StructuredContent: result,
	}, nil
}

// handleUpdateEntity handles the update_entity tool call
func (s *MCPServer) handleUpdateEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.UpdateEntityArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("update_entity")
	var success bool
	defer func() { done(success) }()

	args := params.Arguments
	update := memory.EntityUpdate{
		ID:         args.EntityID,
		Metadata:   args.Metadata,
		Confidence: args.Confidence,
		Tags:       args.Tags,
	}
	if args.Title != "" {
		update.Title = &args.Title
	}
	if args.Content != "" {
		update.Content = &args.Content
	}
	if args.RetentionPolicy != "" {
		policy := apptype.RetentionPolicy(args.RetentionPolicy)
		update.RetentionPolicy = &policy
	}

	if err := s.store.UpdateEntity(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Updated entity %s", args.EntityID)}},
	}, nil
}

// handleDeleteEntity handles the delete_entity tool call
func (s *MCPServer) handleDeleteEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteEntityArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("delete_entity")
	var success bool
	defer func() { done(success) }()

	id := params.Arguments.EntityID
	if err := s.store.DeleteEntity(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete entity: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Deleted entity %s", id)}},
	}, nil
}

// handleSetMemoryPolicy handles the set_memory_policy tool call
func (s *MCPServer) handleSetMemoryPolicy(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.SetMemoryPolicyArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("set_memory_policy")
	var success bool
	defer func() { done(success) }()

	id := params.Arguments.EntityID
	policy := apptype.RetentionPolicy(params.Arguments.Policy)
	if err := s.store.SetRetentionPolicy(ctx, id, policy); err != nil {
		return nil, fmt.Errorf("failed to set memory policy: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Entity %s retention policy set to %s", id, policy)}},
	}, nil
}

// handleSemanticSearch handles the semantic_search tool call
func (s *MCPServer) handleSemanticSearch(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.SemanticSearchArgs],
) (*mcp.CallToolResultFor[apptype.SemanticSearchResult], error) {
	done := metrics.TimeTool("semantic_search")
	var success bool
	defer func() { done(success) }()

	args := params.Arguments
	query := apptype.SemanticQuery{
		QueryText:            args.Query,
		QueryEmbedding:       args.QueryEmbedding,
		DomainFilter:         apptype.KnowledgeDomain(args.Domain),
		TagFilters:           args.Tags,
		Metric:               args.Metric,
		MaxResults:           args.MaxResults,
		IncludeRelationships: args.IncludeRelationships,
	}
	for _, kt := range args.KnowledgeTypes {
		query.TypeFilters = append(query.TypeFilters, apptype.KnowledgeType(kt))
	}
	if args.Threshold != nil {
		query.SimilarityThreshold = *args.Threshold
	}
	if args.MaxAgeHours > 0 {
		query.MaxAge = time.Duration(args.MaxAgeHours) * time.Hour
	}

	results, err := s.store.SemanticSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.SemanticSearchResult]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Search returned %d results", len(results)),
		}},
		StructuredContent: apptype.SemanticSearchResult{Results: queryResultViews(results)},
	}, nil
}

// handleCreateRelationship handles the create_relationship tool call
func (s *MCPServer) handleCreateRelationship(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CreateRelationshipArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("create_relationship")
	var success bool
	defer func() { done(success) }()

	args := params.Arguments
	rel := apptype.Relationship{
		SourceID:   args.SourceID,
		TargetID:   args.TargetID,
		Type:       args.Type,
		Properties: args.Properties,
	}
	if err := s.store.CreateRelationship(ctx, rel); err != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Created relationship %s -> %s (%s)", args.SourceID, args.TargetID, args.Type),
		}},
	}, nil
}

// handleGetRelatedEntities handles the get_related_entities tool call
func (s *MCPServer) handleGetRelatedEntities(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetRelatedEntitiesArgs],
) (*mcp.CallToolResultFor[apptype.RelatedEntitiesResult], error) {
	done := metrics.TimeTool("get_related_entities")
	var success bool
	defer func() { done(success) }()

	args := params.Arguments
	entities, err := s.store.GetRelatedEntities(ctx, args.EntityID, args.Type, args.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to get related entities: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.RelatedEntitiesResult]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Found %d related entities", len(entities)),
		}},
		StructuredContent: apptype.RelatedEntitiesResult{Entities: entityViews(entities)},
	}, nil
}

// handleLearnFromInteraction handles the learn_from_interaction tool call
func (s *MCPServer) handleLearnFromInteraction(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.LearnFromInteractionArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("learn_from_interaction")
	var success bool
	defer func() { done(success) }()

	args := params.Arguments
	if err := s.store.LearnFromInteraction(ctx, args.Query, args.SelectedEntityID, args.Reward); err != nil {
		return nil, fmt.Errorf("failed to learn from interaction: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Recorded interaction outcome for entity %s", args.SelectedEntityID),
		}},
	}, nil
}

// handleGetStatistics handles the get_memory_statistics tool call
func (s *MCPServer) handleGetStatistics(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetStatisticsArgs],
) (*mcp.CallToolResultFor[apptype.MemoryStatistics], error) {
	done := metrics.TimeTool("get_memory_statistics")
	defer func() { done(true) }()

	stats := s.store.Statistics()
	return &mcp.CallToolResultFor[apptype.MemoryStatistics]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "Statistics collected"}},
		StructuredContent: stats,
	}, nil
}

// handleGetPopularEntities handles the get_popular_entities tool call
func (s *MCPServer) handleGetPopularEntities(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetPopularEntitiesArgs],
) (*mcp.CallToolResultFor[apptype.PopularEntitiesResult], error) {
	done := metrics.TimeTool("get_popular_entities")
	defer func() { done(true) }()

	rows := s.store.PopularEntities(params.Arguments.Limit)
	return &mcp.CallToolResultFor[apptype.PopularEntitiesResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Found %d popular entities", len(rows))}},
		StructuredContent: apptype.PopularEntitiesResult{Entities: rows},
	}, nil
}

// handleGetDomainStatistics handles the get_domain_statistics tool call
func (s *MCPServer) handleGetDomainStatistics(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetDomainStatisticsArgs],
) (*mcp.CallToolResultFor[apptype.DomainStatistics], error) {
	done := metrics.TimeTool("get_domain_statistics")
	var success bool
	defer func() { done(success) }()

	stats, err := s.store.DomainStatistics(apptype.KnowledgeDomain(params.Arguments.Domain))
	if err != nil {
		return nil, fmt.Errorf("failed to get domain statistics: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.DomainStatistics]{
		Content:           []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Statistics for domain %s", stats.Domain)}},
		StructuredContent: stats,
	}, nil
}

// handleGetLearningRecommendations handles the get_learning_recommendations tool call
func (s *MCPServer) handleGetLearningRecommendations(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetLearningRecommendationsArgs],
) (*mcp.CallToolResultFor[apptype.LearningRecommendationsResult], error) {
	done := metrics.TimeTool("get_learning_recommendations")
	var success bool
	defer func() { done(success) }()

	args := params.Arguments
	rows, err := s.store.LearningRecommendations(apptype.KnowledgeDomain(args.Domain), args.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning recommendations: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.LearningRecommendationsResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Found %d candidates", len(rows))}},
		StructuredContent: apptype.LearningRecommendationsResult{Entities: rows},
	}, nil
}

// handleExport handles the export_knowledge_base tool call
func (s *MCPServer) handleExport(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ExportArgs],
) (*mcp.CallToolResultFor[apptype.KnowledgeExportView], error) {
	done := metrics.TimeTool("export_knowledge_base")
	var success bool
	defer func() { done(success) }()

	payload, err := s.store.Export(ctx, apptype.KnowledgeDomain(params.Arguments.Domain))
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.KnowledgeExportView]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Exported %d entities and %d relationships from %d domains",
				payload.Metadata.EntityCount, payload.Metadata.RelationCount, payload.Metadata.DomainCount),
		}},
		StructuredContent: exportView(payload),
	}, nil
}

// handleImport handles the import_knowledge_base tool call
func (s *MCPServer) handleImport(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ImportArgs],
) (*mcp.CallToolResultFor[apptype.ImportResult], error) {
	done := metrics.TimeTool("import_knowledge_base")
	var success bool
	defer func() { done(success) }()

	payload, err := exportFromView(params.Arguments.Export)
	if err != nil {
		return nil, fmt.Errorf("invalid import payload: %w", err)
	}
	entities, relationships, err := s.store.Import(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("import failed: %w", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.ImportResult]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Imported %d entities and %d relationships", entities, relationships),
		}},
		StructuredContent: apptype.ImportResult{Entities: entities, Relationships: relationships},
	}, nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()

	embedder := s.store.Embedder()
	res := apptype.HealthResult{
		Name:          serverName,
		Version:       buildinfo.Version,
		Revision:      buildinfo.Revision,
		BuildDate:     buildinfo.BuildDate,
		EmbeddingDims: embedder.Dimensions(),
		Provider:      embedder.Name(),
	}
	return &mcp.CallToolResultFor[apptype.HealthResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "ok"}},
		StructuredContent: res,
	}, nil
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("SSE MCP server listening on %s%s", addr, endpoint)
	return srv.ListenAndServe()
}
