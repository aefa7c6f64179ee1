package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.55")
	t.Setenv("VECTOR_WEIGHT", "0.8")
	t.Setenv("CLEANUP_INTERVAL", "90s")
	t.Setenv("LEARNING_INTERVAL", "3m")
	t.Setenv("MAX_ENTITIES_PER_DOMAIN", "500")

	cfg := ConfigFromEnv()
	assert.Equal(t, 0.55, cfg.SimilarityThreshold)
	assert.Equal(t, 0.8, cfg.VectorWeight)
	assert.InDelta(t, 0.2, cfg.KeywordWeight, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.CleanupInterval)
	assert.Equal(t, 3*time.Minute, cfg.LearningInterval)
	assert.Equal(t, 500, cfg.MaxEntitiesPerDomain)
}

func TestConfigFromEnvIgnoresBadValues(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "high")
	t.Setenv("VECTOR_WEIGHT", "1.5")
	t.Setenv("CLEANUP_INTERVAL", "-5m")

	cfg := ConfigFromEnv()
	defaults := DefaultConfig()
	assert.Equal(t, defaults.SimilarityThreshold, cfg.SimilarityThreshold)
	assert.Equal(t, defaults.VectorWeight, cfg.VectorWeight)
	assert.Equal(t, defaults.CleanupInterval, cfg.CleanupInterval)
}

func TestRetentionWindows(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 24*time.Hour, cfg.RetentionWindow(apptype.RetentionEphemeral))
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionWindow(apptype.RetentionSession))
	assert.Equal(t, 365*24*time.Hour, cfg.RetentionWindow(apptype.RetentionPersistent))
	assert.Equal(t, 10*365*24*time.Hour, cfg.RetentionWindow(apptype.RetentionArchival))
	// unknown policies fall back to the session window
	assert.Equal(t, cfg.SessionWindow, cfg.RetentionWindow(""))
}
