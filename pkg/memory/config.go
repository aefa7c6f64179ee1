package memory

import (
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/database"
	core "github.com/ZanzyTHEbar/semantic-memory-go/internal/memory"
)

// Config exposes a stable wrapper for store configuration in package mode.
// Zero values fall back to environment-driven or production defaults.
type Config struct {
	// URL is the libSQL database URL, e.g. file:./semantic-memory.db or
	// libsql://host. AuthToken applies to remote databases.
	URL       string
	AuthToken string

	// EmbeddingsProvider selects the embedding backend ("openai" or
	// "ollama"). When empty the EMBEDDINGS_PROVIDER environment variable
	// decides; when that is unset too the store runs keyword-only.
	EmbeddingsProvider string
	EmbeddingDims      int

	// Search tunables. Zero values keep the production defaults.
	SimilarityThreshold float64
	MaxResults          int

	// Retention windows per policy. Zero values keep the production
	// defaults.
	EphemeralWindow  time.Duration
	SessionWindow    time.Duration
	PersistentWindow time.Duration
	ArchivalWindow   time.Duration

	// Background maintenance cadence. Zero values keep the production
	// defaults.
	CleanupInterval  time.Duration
	LearningInterval time.Duration

	// MaxEntitiesPerDomain caps live entities per domain.
	MaxEntitiesPerDomain int
}

func (c *Config) toDatabase() *database.Config {
	dbCfg := database.NewConfig()
	if c.URL != "" {
		dbCfg.URL = c.URL
	}
	if c.AuthToken != "" {
		dbCfg.AuthToken = c.AuthToken
	}
	if c.EmbeddingDims > 0 {
		dbCfg.EmbeddingDims = c.EmbeddingDims
	}
	return dbCfg
}

func (c *Config) toStore(dims int) core.Config {
	cfg := core.DefaultConfig()
	cfg.EmbeddingDims = dims
	if c.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = c.SimilarityThreshold
	}
	if c.MaxResults > 0 {
		cfg.MaxResults = c.MaxResults
	}
	if c.EphemeralWindow > 0 {
		cfg.EphemeralWindow = c.EphemeralWindow
	}
	if c.SessionWindow > 0 {
		cfg.SessionWindow = c.SessionWindow
	}
	if c.PersistentWindow > 0 {
		cfg.PersistentWindow = c.PersistentWindow
	}
	if c.ArchivalWindow > 0 {
		cfg.ArchivalWindow = c.ArchivalWindow
	}
	if c.CleanupInterval > 0 {
		cfg.CleanupInterval = c.CleanupInterval
	}
	if c.LearningInterval > 0 {
		cfg.LearningInterval = c.LearningInterval
	}
	if c.MaxEntitiesPerDomain > 0 {
		cfg.MaxEntitiesPerDomain = c.MaxEntitiesPerDomain
	}
	return cfg
}
