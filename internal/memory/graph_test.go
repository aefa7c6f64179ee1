package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

func seedChain(t *testing.T, env *testEnv, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		e := complianceEntity("node "+id, "body for "+id)
		e.ID = id
		_, err := env.store.StoreEntity(ctx, e)
		require.NoError(t, err)
	}
}

func TestCreateRelationshipValidation(t *testing.T) {
	env := newTestStore(t, nil)
	seedChain(t, env, "a", "b")
	ctx := context.Background()

	err := env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "b"})
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))

	err = env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "a", Type: "self"})
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))

	err = env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "ghost", Type: "supersedes"})
	assert.True(t, errors.Is(err, apptype.ErrNotFound))

	err = env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "ghost", TargetID: "b", Type: "supersedes"})
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
}

func TestCreateRelationshipUpsertsProperties(t *testing.T) {
	env := newTestStore(t, nil)
	seedChain(t, env, "a", "b")
	ctx := context.Background()

	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{
		SourceID: "a", TargetID: "b", Type: "supersedes", Properties: map[string]any{"strength": 0.4},
	}))
	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{
		SourceID: "a", TargetID: "b", Type: "supersedes", Properties: map[string]any{"strength": 0.9},
	}))

	assert.Equal(t, 1, env.store.relationshipCount())
	edges := env.store.outgoingEdges("a")
	require.Len(t, edges, 1)
	assert.Equal(t, 0.9, edges[0].Properties["strength"])

	// a different type between the same pair is a distinct edge
	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{
		SourceID: "a", TargetID: "b", Type: "derived_from",
	}))
	assert.Equal(t, 2, env.store.relationshipCount())
}

func TestGetRelatedEntitiesBFS(t *testing.T) {
	env := newTestStore(t, nil)
	seedChain(t, env, "a", "b", "c", "d")
	ctx := context.Background()

	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "b", Type: "supersedes"}))
	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "b", TargetID: "c", Type: "supersedes"}))
	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "c", TargetID: "d", Type: "supersedes"}))

	// default depth is two hops
	related, err := env.store.GetRelatedEntities(ctx, "a", "", 0)
	require.NoError(t, err)
	ids := entityIDs(related)
	assert.ElementsMatch(t, []string{"b", "c"}, ids)

	related, err = env.store.GetRelatedEntities(ctx, "a", "", 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, entityIDs(related))

	related, err = env.store.GetRelatedEntities(ctx, "a", "", 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c", "d"}, entityIDs(related))
}

func TestGetRelatedEntitiesCycleSafe(t *testing.T) {
	env := newTestStore(t, nil)
	seedChain(t, env, "a", "b")
	ctx := context.Background()

	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "b", Type: "supersedes"}))
	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "b", TargetID: "a", Type: "supersedes"}))

	related, err := env.store.GetRelatedEntities(ctx, "a", "", 10)
	require.NoError(t, err)
	// the root never appears even when a cycle leads back to it
	assert.ElementsMatch(t, []string{"b"}, entityIDs(related))
}

func TestGetRelatedEntitiesTypeFilter(t *testing.T) {
	env := newTestStore(t, nil)
	seedChain(t, env, "a", "b", "c")
	ctx := context.Background()

	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "b", Type: "supersedes"}))
	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "c", Type: "derived_from"}))

	related, err := env.store.GetRelatedEntities(ctx, "a", "derived_from", 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c"}, entityIDs(related))
}

func TestGetRelatedEntitiesMissingRoot(t *testing.T) {
	env := newTestStore(t, nil)
	_, err := env.store.GetRelatedEntities(context.Background(), "ghost", "", 2)
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
}

func TestDeleteRelationship(t *testing.T) {
	env := newTestStore(t, nil)
	seedChain(t, env, "a", "b")
	ctx := context.Background()

	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: "a", TargetID: "b", Type: "supersedes"}))
	require.NoError(t, env.store.DeleteRelationship(ctx, "a", "b", "supersedes"))
	assert.Equal(t, 0, env.store.relationshipCount())

	err := env.store.DeleteRelationship(ctx, "a", "b", "supersedes")
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
}

func entityIDs(entities []apptype.KnowledgeEntity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}
