package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

var testDBCounter int

func newTestManager(t *testing.T, dims int) *Manager {
	t.Helper()
	testDBCounter++
	cfg := &Config{
		URL:           fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter),
		EmbeddingDims: dims,
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func testEntity(id string, embedding []float32) apptype.KnowledgeEntity {
	now := time.Now().Truncate(time.Second).UTC()
	return apptype.KnowledgeEntity{
		ID:              id,
		Domain:          apptype.DomainRegulatoryCompliance,
		KnowledgeType:   apptype.TypeRule,
		Title:           "KYC verification rule",
		Content:         "Customers above the reporting threshold require enhanced due diligence",
		Metadata:        map[string]any{"jurisdiction": "EU"},
		Embedding:       embedding,
		RetentionPolicy: apptype.RetentionSession,
		CreatedAt:       now,
		LastAccessed:    now,
		ExpiresAt:       now.Add(30 * 24 * time.Hour),
		ConfidenceScore: 0.5,
		Tags:            []string{"kyc", "aml"},
	}
}

func TestUpsertAndGetEntity(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	e := testEntity("ent-1", []float32{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, m.UpsertEntity(ctx, e))

	got, err := m.GetEntity(ctx, "ent-1")
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Domain, got.Domain)
	assert.Equal(t, e.KnowledgeType, got.KnowledgeType)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, e.Content, got.Content)
	assert.Equal(t, "EU", got.Metadata["jurisdiction"])
	assert.Equal(t, e.Tags, got.Tags)
	assert.Equal(t, e.RetentionPolicy, got.RetentionPolicy)
	assert.InDelta(t, 0.5, got.ConfidenceScore, 1e-9)
	require.Len(t, got.Embedding, 4)
	assert.InDelta(t, 0.2, float64(got.Embedding[1]), 1e-6)
	assert.True(t, e.ExpiresAt.Equal(got.ExpiresAt))
}

func TestUpsertEntityUpdatesInPlace(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	e := testEntity("ent-1", []float32{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, m.UpsertEntity(ctx, e))

	e.Title = "KYC verification rule v2"
	e.ConfidenceScore = 0.8
	require.NoError(t, m.UpsertEntity(ctx, e))

	got, err := m.GetEntity(ctx, "ent-1")
	require.NoError(t, err)
	assert.Equal(t, "KYC verification rule v2", got.Title)
	assert.InDelta(t, 0.8, got.ConfidenceScore, 1e-9)

	all, err := m.LoadAllEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEntityWithoutEmbedding(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	e := testEntity("no-vec", nil)
	require.NoError(t, m.UpsertEntity(ctx, e))

	got, err := m.GetEntity(ctx, "no-vec")
	require.NoError(t, err)
	assert.Empty(t, got.Embedding)
}

func TestUpsertEntityDimsMismatch(t *testing.T) {
	m := newTestManager(t, 4)
	err := m.UpsertEntity(context.Background(), testEntity("bad", []float32{1, 2}))
	assert.Error(t, err)
}

func TestGetEntityNotFound(t *testing.T) {
	m := newTestManager(t, 4)
	_, err := m.GetEntity(context.Background(), "missing")
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
}

func TestUpdateAccess(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	require.NoError(t, m.UpsertEntity(ctx, testEntity("ent-1", nil)))
	at := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
	require.NoError(t, m.UpdateAccess(ctx, []string{"ent-1"}, at))
	require.NoError(t, m.UpdateAccess(ctx, []string{"ent-1"}, at))

	got, err := m.GetEntity(ctx, "ent-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.AccessCount)
	assert.True(t, at.Equal(got.LastAccessed))
}

func TestUpdateConfidenceClamped(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()
	require.NoError(t, m.UpsertEntity(ctx, testEntity("ent-1", nil)))

	require.NoError(t, m.UpdateConfidence(ctx, "ent-1", 1.7))
	got, err := m.GetEntity(ctx, "ent-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.ConfidenceScore, 1e-9)

	require.NoError(t, m.UpdateConfidence(ctx, "ent-1", -0.3))
	got, err = m.GetEntity(ctx, "ent-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got.ConfidenceScore, 1e-9)

	err = m.UpdateConfidence(ctx, "missing", 0.5)
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
}

func TestDeleteEntityCascades(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	require.NoError(t, m.UpsertEntity(ctx, testEntity("a", nil)))
	require.NoError(t, m.UpsertEntity(ctx, testEntity("b", nil)))
	require.NoError(t, m.UpsertRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "b", Type: "supersedes"}))
	require.NoError(t, m.UpsertRelationship(ctx, apptype.Relationship{SourceID: "b", TargetID: "a", Type: "derived_from"}))

	require.NoError(t, m.DeleteEntity(ctx, "a"))

	_, err := m.GetEntity(ctx, "a")
	assert.True(t, errors.Is(err, apptype.ErrNotFound))

	rels, err := m.LoadRelationships(ctx)
	require.NoError(t, err)
	assert.Empty(t, rels)

	// Deleting again is a no-op
	assert.NoError(t, m.DeleteEntity(ctx, "a"))
}

func TestRelationshipUpsertReplacesProperties(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	require.NoError(t, m.UpsertEntity(ctx, testEntity("a", nil)))
	require.NoError(t, m.UpsertEntity(ctx, testEntity("b", nil)))

	rel := apptype.Relationship{SourceID: "a", TargetID: "b", Type: "supersedes", Properties: map[string]any{"strength": 0.4}}
	require.NoError(t, m.UpsertRelationship(ctx, rel))

	rel.Properties = map[string]any{"strength": 0.9}
	require.NoError(t, m.UpsertRelationship(ctx, rel))

	rels, err := m.LoadRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.9, rels[0].Properties["strength"].(float64), 1e-9)
}

func TestDeleteRelationship(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	require.NoError(t, m.UpsertEntity(ctx, testEntity("a", nil)))
	require.NoError(t, m.UpsertEntity(ctx, testEntity("b", nil)))
	require.NoError(t, m.UpsertRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "b", Type: "supersedes"}))

	require.NoError(t, m.DeleteRelationship(ctx, "a", "b", "supersedes"))
	err := m.DeleteRelationship(ctx, "a", "b", "supersedes")
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
}

func TestSearchSimilarOrdersByDistance(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	near := testEntity("near", []float32{1, 0, 0, 0})
	mid := testEntity("mid", []float32{0.7, 0.7, 0, 0})
	far := testEntity("far", []float32{0, 1, 0, 0})
	noVec := testEntity("no-vec", nil)
	for _, e := range []apptype.KnowledgeEntity{near, mid, far, noVec} {
		require.NoError(t, m.UpsertEntity(ctx, e))
	}

	results, err := m.SearchSimilar(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Entity.ID)
	assert.Equal(t, "mid", results[1].Entity.ID)
	assert.Equal(t, "far", results[2].Entity.ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestSearchSimilarEmptyEmbedding(t *testing.T) {
	m := newTestManager(t, 4)
	_, err := m.SearchSimilar(context.Background(), nil, 10)
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))
}
