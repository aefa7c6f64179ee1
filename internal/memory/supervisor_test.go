package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

func storeWithPolicy(t *testing.T, env *testEnv, policy apptype.RetentionPolicy) string {
	t.Helper()
	e := complianceEntity("entry "+string(policy), "body for "+string(policy))
	e.RetentionPolicy = policy
	id, err := env.store.StoreEntity(context.Background(), e)
	require.NoError(t, err)
	return id
}

func TestCleanupSweepsExpiredByPolicy(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	ephemeralID := storeWithPolicy(t, env, apptype.RetentionEphemeral)
	sessionID := storeWithPolicy(t, env, apptype.RetentionSession)
	persistentID := storeWithPolicy(t, env, apptype.RetentionPersistent)
	archivalID := storeWithPolicy(t, env, apptype.RetentionArchival)

	env.advance(25 * time.Hour)
	removed, err := env.store.RunCleanupOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = env.store.GetEntity(ctx, ephemeralID)
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
	_, err = env.store.GetEntity(ctx, sessionID)
	assert.NoError(t, err)

	env.advance(31 * 24 * time.Hour)
	removed, err = env.store.RunCleanupOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = env.store.GetEntity(ctx, sessionID)
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
	_, err = env.store.GetEntity(ctx, persistentID)
	assert.NoError(t, err)

	// even far past every window, archival is never swept
	env.advance(20 * 365 * 24 * time.Hour)
	_, err = env.store.RunCleanupOnce(ctx)
	require.NoError(t, err)
	_, err = env.store.GetEntity(ctx, archivalID)
	assert.NoError(t, err)
	_, err = env.store.GetEntity(ctx, persistentID)
	assert.True(t, errors.Is(err, apptype.ErrNotFound))

	stats := env.store.Statistics()
	assert.EqualValues(t, 3, stats.SweepDeleted)
}

func TestCleanupTombstonesSweptIDs(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	id := storeWithPolicy(t, env, apptype.RetentionEphemeral)
	env.advance(25 * time.Hour)
	_, err := env.store.RunCleanupOnce(ctx)
	require.NoError(t, err)

	e := complianceEntity("replacement", "replacement body")
	e.ID = id
	_, err = env.store.StoreEntity(ctx, e)
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))
}

func TestCleanupPersistsDeletesOutsideWriteLock(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	storeWithPolicy(t, env, apptype.RetentionEphemeral)
	env.advance(25 * time.Hour)

	// A writer arriving while the sweep is inside the persistence delete
	// must be able to take the write lock.
	storedDuringSweep := make(chan error, 1)
	env.db.onDelete = func(string) {
		_, err := env.store.StoreEntity(ctx, complianceEntity("mid sweep arrival", "pattern stored while the sweep persists a delete"))
		storedDuringSweep <- err
	}

	removed, err := env.store.RunCleanupOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.NoError(t, <-storedDuringSweep)
}

func TestLearningBoostsRecentlyAccessed(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	id, err := env.store.StoreEntity(ctx, complianceEntity("hot entity", "frequently retrieved pattern"))
	require.NoError(t, err)

	env.store.recordAccess([]string{id})
	env.store.recordAccess([]string{id})
	require.NoError(t, env.store.RunLearningOnce(ctx))

	e, err := env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	// 0.5 + 0.05*2*(1-0.5)
	assert.InDelta(t, 0.55, e.ConfidenceScore, 1e-9)

	// the accessed ledger resets after a pass
	require.NoError(t, env.store.RunLearningOnce(ctx))
	e, err = env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, e.ConfidenceScore, 1e-9)
}

func TestLearningDecaysStaleTowardFloor(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	id, err := env.store.StoreEntity(ctx, complianceEntity("cold entity", "rarely retrieved pattern"))
	require.NoError(t, err)
	require.NoError(t, env.store.UpdateConfidence(ctx, id, 0.11))

	env.advance(8 * 24 * time.Hour)
	require.NoError(t, env.store.RunLearningOnce(ctx))

	e, err := env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, e.ConfidenceScore, 1e-9)

	// at the floor, further passes are a no-op
	require.NoError(t, env.store.RunLearningOnce(ctx))
	e, err = env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, e.ConfidenceScore, 1e-9)
}

func TestLearningDecaySingleStep(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	id, err := env.store.StoreEntity(ctx, complianceEntity("cooling entity", "slowly fading pattern"))
	require.NoError(t, err)

	env.advance(8 * 24 * time.Hour)
	require.NoError(t, env.store.RunLearningOnce(ctx))

	e, err := env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.48, e.ConfidenceScore, 1e-9)
}

func TestLearnFromInteraction(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	id, err := env.store.StoreEntity(ctx, complianceEntity("decision support", "pattern used in an alert decision"))
	require.NoError(t, err)

	require.NoError(t, env.store.LearnFromInteraction(ctx, "wire alert", id, 1))
	e, err := env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, e.ConfidenceScore, 1e-9)

	require.NoError(t, env.store.LearnFromInteraction(ctx, "wire alert", id, -0.5))
	e, err = env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, e.ConfidenceScore, 1e-9)

	err = env.store.LearnFromInteraction(ctx, "q", "ghost", 0.5)
	assert.True(t, errors.Is(err, apptype.ErrNotFound))
	err = env.store.LearnFromInteraction(ctx, "q", id, 1.5)
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))
	err = env.store.LearnFromInteraction(ctx, "q", id, -2)
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))
}

func TestLearnFromInteractionConcurrentRewardsAllLand(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	id, err := env.store.StoreEntity(ctx, complianceEntity("reinforced pattern", "pattern rewarded by several agents at once"))
	require.NoError(t, err)
	require.NoError(t, env.store.UpdateConfidence(ctx, id, 0))

	const rewards = 5
	errs := make(chan error, rewards)
	var wg sync.WaitGroup
	for i := 0; i < rewards; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.store.LearnFromInteraction(ctx, "which pattern fired", id, 1)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Each reward shifts confidence by 0.1 from the value the previous one
	// left behind; none may be lost to a stale read.
	e, err := env.store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, e.ConfidenceScore, 1e-9)
}

func TestStartStopIdempotent(t *testing.T) {
	env := newTestStore(t, func(c *Config) {
		c.CleanupInterval = time.Hour
		c.LearningInterval = time.Hour
	})
	env.store.Start()
	env.store.Stop()
	env.store.Stop()
}

func TestStatisticsSnapshot(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	a := storeWithPolicy(t, env, apptype.RetentionEphemeral)
	storeWithPolicy(t, env, apptype.RetentionSession)
	legal := complianceEntity("statute", "statute body")
	legal.Domain = apptype.DomainLegalFrameworks
	legalID, err := env.store.StoreEntity(ctx, legal)
	require.NoError(t, err)
	require.NoError(t, env.store.CreateRelationship(ctx, apptype.Relationship{SourceID: a, TargetID: legalID, Type: "cites"}))

	env.advance(25 * time.Hour)
	stats := env.store.Statistics()
	assert.Equal(t, 3, stats.TotalEntities)
	assert.Equal(t, 1, stats.TotalRelationships)
	assert.Equal(t, 2, stats.ByDomain[apptype.DomainTransactionMonitoring])
	assert.Equal(t, 1, stats.ByDomain[apptype.DomainLegalFrameworks])
	assert.Equal(t, 1, stats.ByPolicy[apptype.RetentionEphemeral].Expired)
	assert.Equal(t, 0, stats.ByPolicy[apptype.RetentionSession].Expired)
	assert.Positive(t, stats.CacheMisses)
}

func TestPopularEntities(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	hotID, err := env.store.StoreEntity(ctx, complianceEntity("hot", "hot body"))
	require.NoError(t, err)
	coldID, err := env.store.StoreEntity(ctx, complianceEntity("cold", "cold body"))
	require.NoError(t, err)

	env.store.recordAccess([]string{hotID})
	env.store.recordAccess([]string{hotID})
	env.store.recordAccess([]string{coldID})
	require.NoError(t, env.store.UpdateConfidence(ctx, coldID, 0.1))

	rows := env.store.PopularEntities(10)
	require.Len(t, rows, 2)
	assert.Equal(t, hotID, rows[0].ID)

	rows = env.store.PopularEntities(1)
	assert.Len(t, rows, 1)
}

func TestDomainStatistics(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	id1, err := env.store.StoreEntity(ctx, complianceEntity("p1", "pattern one"))
	require.NoError(t, err)
	fact := complianceEntity("f1", "fact one")
	fact.KnowledgeType = apptype.TypeFact
	_, err = env.store.StoreEntity(ctx, fact)
	require.NoError(t, err)
	require.NoError(t, env.store.UpdateConfidence(ctx, id1, 0.9))
	env.store.recordAccess([]string{id1})

	stats, err := env.store.DomainStatistics(apptype.DomainTransactionMonitoring)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntityCount)
	assert.Equal(t, 1, stats.ByType[apptype.TypePattern])
	assert.Equal(t, 1, stats.ByType[apptype.TypeFact])
	assert.InDelta(t, 0.7, stats.AvgConfidence, 1e-9)
	assert.EqualValues(t, 1, stats.TotalAccesses)

	_, err = env.store.DomainStatistics("NOPE")
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))
}

func TestLearningRecommendations(t *testing.T) {
	env := newTestStore(t, nil)
	ctx := context.Background()

	// accessed but low confidence: recommended
	needyID, err := env.store.StoreEntity(ctx, complianceEntity("needy", "needs curation"))
	require.NoError(t, err)
	env.store.recordAccess([]string{needyID, needyID})

	// accessed and confident: not recommended
	solidID, err := env.store.StoreEntity(ctx, complianceEntity("solid", "well established"))
	require.NoError(t, err)
	env.store.recordAccess([]string{solidID})
	require.NoError(t, env.store.UpdateConfidence(ctx, solidID, 0.9))

	// never accessed: not recommended
	_, err = env.store.StoreEntity(ctx, complianceEntity("idle", "never retrieved"))
	require.NoError(t, err)

	rows, err := env.store.LearningRecommendations("", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, needyID, rows[0].ID)

	rows, err = env.store.LearningRecommendations(apptype.DomainLegalFrameworks, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = env.store.LearningRecommendations("NOPE", 10)
	assert.True(t, errors.Is(err, apptype.ErrInvalidInput))
}
