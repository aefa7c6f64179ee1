package memory

import (
	"os"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

// Config tunes the memory store. DefaultConfig values match the windows and
// weights the store was operated with in production compliance deployments.
type Config struct {
	// EmbeddingDims is the dimensionality every stored and queried vector
	// must have.
	EmbeddingDims int

	// SimilarityThreshold is the default minimum similarity for search hits.
	SimilarityThreshold float64
	// MaxResults is the default result count; MaxResultsCap bounds what a
	// caller may request.
	MaxResults    int
	MaxResultsCap int
	// VectorWeight and KeywordWeight blend vector similarity and keyword
	// overlap into the final ranking score.
	VectorWeight  float64
	KeywordWeight float64
	// PrefilterMinEntities is the store size above which an unfiltered
	// vector search is prefiltered through the database's vector index
	// instead of scanning every entity in memory.
	PrefilterMinEntities int

	// Retention windows per policy.
	EphemeralWindow  time.Duration
	SessionWindow    time.Duration
	PersistentWindow time.Duration
	ArchivalWindow   time.Duration

	// Background maintenance cadence.
	CleanupInterval  time.Duration
	LearningInterval time.Duration

	// Learning loop tunables. Boost is applied per recent access step toward
	// 1.0, decay pulls idle entities toward the floor. The floor keeps stale
	// entities re-discoverable.
	ConfidenceBoost float64
	ConfidenceDecay float64
	ConfidenceFloor float64
	StalenessWindow time.Duration

	// Embedding cache bounds.
	CacheTTL  time.Duration
	CacheSize int

	// BatchSize chunks bulk stores.
	BatchSize int

	// MaxEntitiesPerDomain caps live entities per domain.
	// ArchivalCountsTowardCap controls whether ARCHIVAL entities consume
	// capacity.
	MaxEntitiesPerDomain    int
	ArchivalCountsTowardCap bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		EmbeddingDims:        384,
		SimilarityThreshold:  0.7,
		MaxResults:           10,
		MaxResultsCap:        50,
		VectorWeight:         0.7,
		KeywordWeight:        0.3,
		PrefilterMinEntities: 1024,
		EphemeralWindow:      24 * time.Hour,
		SessionWindow:        30 * 24 * time.Hour,
		PersistentWindow:     365 * 24 * time.Hour,
		ArchivalWindow:       10 * 365 * 24 * time.Hour,
		CleanupInterval:      5 * time.Minute,
		LearningInterval:     10 * time.Minute,
		ConfidenceBoost:      0.05,
		ConfidenceDecay:      0.02,
		ConfidenceFloor:      0.1,
		StalenessWindow:      7 * 24 * time.Hour,
		CacheTTL:             time.Hour,
		CacheSize:            10000,
		BatchSize:            100,
		MaxEntitiesPerDomain: 100000,
	}
}

// ConfigFromEnv returns DefaultConfig overlaid with environment overrides.
// SIMILARITY_THRESHOLD and VECTOR_WEIGHT take values in [0,1]; the keyword
// weight is the vector weight's complement. CLEANUP_INTERVAL and
// LEARNING_INTERVAL take Go duration strings. Unparseable values are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.VectorWeight = f
			cfg.KeywordWeight = 1 - f
		}
	}
	if v := os.Getenv("CLEANUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CleanupInterval = d
		}
	}
	if v := os.Getenv("LEARNING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.LearningInterval = d
		}
	}
	if v := os.Getenv("MAX_ENTITIES_PER_DOMAIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxEntitiesPerDomain = n
		}
	}
	return cfg
}

// RetentionWindow returns the lifetime for a policy.
func (c Config) RetentionWindow(policy apptype.RetentionPolicy) time.Duration {
	switch policy {
	case apptype.RetentionEphemeral:
		return c.EphemeralWindow
	case apptype.RetentionSession:
		return c.SessionWindow
	case apptype.RetentionPersistent:
		return c.PersistentWindow
	case apptype.RetentionArchival:
		return c.ArchivalWindow
	}
	return c.SessionWindow
}
