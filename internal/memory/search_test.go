package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

func seedSearchFixtures(t *testing.T, env *testEnv) (wireID, auditID string) {
	t.Helper()
	ctx := context.Background()

	wire := complianceEntity("wire transfer alert", "large wire transfer to sanctioned country")
	wire.Tags = []string{"aml", "sanctions"}
	var err error
	wireID, err = env.store.StoreEntity(ctx, wire)
	require.NoError(t, err)

	audit := apptype.KnowledgeEntity{
		Domain:          apptype.DomainAuditIntelligence,
		KnowledgeType:   apptype.TypeFact,
		Title:           "quarterly audit schedule",
		Content:         "internal audit calendar covering payments systems",
		RetentionPolicy: apptype.RetentionSession,
		Tags:            []string{"audit"},
	}
	auditID, err = env.store.StoreEntity(ctx, audit)
	require.NoError(t, err)
	return wireID, auditID
}

func TestSemanticSearchHybridScoring(t *testing.T) {
	env := newTestStore(t, nil)
	wireID, _ := seedSearchFixtures(t, env)

	results, err := env.store.SemanticSearch(context.Background(), apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wireID, results[0].Entity.ID)
	assert.ElementsMatch(t, []string{"sanctioned", "country", "transfer"}, results[0].MatchedTerms)

	vec := results[0].Explanation["vector_score"].(float64)
	kw := results[0].Explanation["keyword_score"].(float64)
	assert.InDelta(t, 0.7*vec+0.3*kw, results[0].SimilarityScore, 1e-9)
	assert.Greater(t, vec, 0.5)
	assert.InDelta(t, 1.0, kw, 1e-9)
	assert.Equal(t, false, results[0].Explanation["degraded"])
}

func TestSemanticSearchValidation(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	_, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{})
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))

	_, err = env.store.SemanticSearch(ctx, apptype.SemanticQuery{QueryText: "x", Metric: "chebyshev"})
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))

	_, err = env.store.SemanticSearch(ctx, apptype.SemanticQuery{QueryEmbedding: []float32{1, 2, 3}})
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))

	_, err = env.store.SemanticSearch(ctx, apptype.SemanticQuery{QueryText: "x", DomainFilter: "NOPE"})
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))

	_, err = env.store.SemanticSearch(ctx, apptype.SemanticQuery{QueryText: "x", SimilarityThreshold: 1.2})
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))
}

func TestSemanticSearchEmptyResultIsNotError(t *testing.T) {
	env := newTestStore(t, nil)
	seedSearchFixtures(t, env)

	results, err := env.store.SemanticSearch(context.Background(), apptype.SemanticQuery{
		QueryText: "unrelated celestial navigation treatise",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSemanticSearchThresholdMonotonic(t *testing.T) {
	env := newTestStore(t, nil)
	seedSearchFixtures(t, env)
	ctx := context.Background()

	loose, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{QueryText: "sanctioned country transfer", SimilarityThreshold: 0.3})
	require.NoError(t, err)
	tight, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{QueryText: "sanctioned country transfer", SimilarityThreshold: 0.6})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(tight), len(loose))
	looseIDs := make(map[string]struct{})
	for _, r := range loose {
		looseIDs[r.Entity.ID] = struct{}{}
	}
	for _, r := range tight {
		_, ok := looseIDs[r.Entity.ID]
		assert.True(t, ok, "tight results must be a subset of loose results")
	}
}

func TestSemanticSearchDiscreteFilters(t *testing.T) {
	env := newTestStore(t, nil)
	wireID, auditID := seedSearchFixtures(t, env)
	ctx := context.Background()

	// domain filter excludes the audit entity even with a loose threshold
	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "audit transfer schedule country",
		DomainFilter:        apptype.DomainTransactionMonitoring,
		SimilarityThreshold: 0.1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wireID, results[0].Entity.ID)

	// tag filter
	results, err = env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "audit transfer schedule country",
		TagFilters:          []string{"audit"},
		SimilarityThreshold: 0.1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, auditID, results[0].Entity.ID)

	// intersecting filters that no entity satisfies
	results, err = env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "audit transfer",
		DomainFilter:        apptype.DomainAuditIntelligence,
		TagFilters:          []string{"sanctions"},
		SimilarityThreshold: 0.1,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSemanticSearchExcludesExpired(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	e := complianceEntity("short lived alert", "sanctioned country transfer pattern")
	e.RetentionPolicy = apptype.RetentionEphemeral
	_, err := env.store.StoreEntity(ctx, e)
	require.NoError(t, err)

	env.advance(25 * time.Hour)
	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.3,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSemanticSearchMaxAge(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	_, err := env.store.StoreEntity(ctx, complianceEntity("old alert", "sanctioned country transfer pattern"))
	require.NoError(t, err)
	env.advance(48 * time.Hour)
	freshID, err := env.store.StoreEntity(ctx, complianceEntity("fresh alert", "sanctioned country transfer spike"))
	require.NoError(t, err)

	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.3,
		MaxAge:              24 * time.Hour,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, freshID, results[0].Entity.ID)
}

func TestSemanticSearchDegradesWithoutEmbeddings(t *testing.T) {
	env := newTestStore(t, nil)
	wireID, _ := seedSearchFixtures(t, env)

	env.mock.SetFail(true)
	results, err := env.store.SemanticSearch(context.Background(), apptype.SemanticQuery{
		QueryText: "sanctioned country transfer phrasing",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wireID, results[0].Entity.ID)
	assert.Equal(t, true, results[0].Explanation["degraded"])
	assert.Zero(t, results[0].Explanation["vector_score"])

	stats := env.store.Statistics()
	assert.EqualValues(t, 1, stats.DegradedSearches)
}

func TestSemanticSearchVectorlessEntityMatchesByKeyword(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	env.mock.SetFail(true)
	id, err := env.store.StoreEntity(ctx, complianceEntity("vectorless alert", "sanctioned country transfer memo"))
	require.NoError(t, err)
	env.mock.SetFail(false)

	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.9,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Entity.ID)
	assert.Zero(t, results[0].Explanation["vector_score"])
}

func TestSemanticSearchPrefiltersThroughDatabase(t *testing.T) {
	env := newTestStore(t, func(c *Config) { c.PrefilterMinEntities = 1 })
	wireID, _ := seedSearchFixtures(t, env)
	ctx := context.Background()

	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wireID, results[0].Entity.ID)

	env.db.mu.Lock()
	calls := env.db.searchCalls
	env.db.mu.Unlock()
	assert.Equal(t, 1, calls)

	// a backend without vector support falls back to the in-memory scan
	env.db.mu.Lock()
	env.db.vectorUnsupported = true
	env.db.mu.Unlock()
	results, err = env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wireID, results[0].Entity.ID)
}

func TestSemanticSearchMaxResultsCap(t *testing.T) {
	env := newTestStore(t, func(c *Config) { c.MaxResultsCap = 3 })
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		e := complianceEntity("alert", "sanctioned country transfer pattern")
		e.Title = e.Title + " " + string(rune('a'+i))
		_, err := env.store.StoreEntity(ctx, e)
		require.NoError(t, err)
	}

	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.3,
		MaxResults:          10,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSemanticSearchRanksByConfidenceOnTie(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	low := complianceEntity("duplicate alert", "sanctioned country transfer pattern")
	lowID, err := env.store.StoreEntity(ctx, low)
	require.NoError(t, err)
	high := complianceEntity("duplicate alert", "sanctioned country transfer pattern")
	highID, err := env.store.StoreEntity(ctx, high)
	require.NoError(t, err)

	require.NoError(t, env.store.UpdateConfidence(ctx, highID, 0.9))
	require.NoError(t, env.store.UpdateConfidence(ctx, lowID, 0.2))

	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:           "sanctioned country transfer",
		SimilarityThreshold: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, highID, results[0].Entity.ID)
	assert.Equal(t, lowID, results[1].Entity.ID)
}

func TestSemanticSearchIncludeRelationships(t *testing.T) {
	env := newTestStore(t, nil)
	wireID, auditID := seedSearchFixtures(t, env)
	ctx := context.Background()

	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{
		SourceID: wireID, TargetID: auditID, Type: "flagged_in",
		Properties: map[string]any{"strength": 0.8},
	}))

	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryText:            "sanctioned country transfer",
		SimilarityThreshold:  0.5,
		IncludeRelationships: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	rels := results[0].Entity.Relationships
	require.Contains(t, rels, auditID)
	assert.Equal(t, "flagged_in", rels[auditID]["type"])
	assert.Equal(t, 0.8, rels[auditID]["strength"])
}

func TestSemanticSearchWithProvidedEmbedding(t *testing.T) {
	env := newTestStore(t, nil)
	wireID, _ := seedSearchFixtures(t, env)
	ctx := context.Background()

	e, err := env.store.GetEntity(ctx, wireID)
	require.NoError(t, err)

	results, err := env.store.SemanticSearch(ctx, apptype.SemanticQuery{
		QueryEmbedding:      e.Embedding,
		SimilarityThreshold: 0.95,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wireID, results[0].Entity.ID)
	assert.InDelta(t, 1.0, results[0].Explanation["vector_score"].(float64), 1e-6)
	// With no query text the vector score carries the ranking unweighted, so
	// an exact match clears even a 0.95 threshold at full score.
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
}
