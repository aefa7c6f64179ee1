package memory

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

// Persistence is the durable backing the store writes through to.
// *database.Manager satisfies it; tests use an in-memory fake.
type Persistence interface {
	UpsertEntity(ctx context.Context, e apptype.KnowledgeEntity) error
	DeleteEntity(ctx context.Context, id string) error
	UpdateAccess(ctx context.Context, ids []string, at time.Time) error
	UpdateConfidence(ctx context.Context, id string, score float64) error
	LoadAllEntities(ctx context.Context) ([]apptype.KnowledgeEntity, error)
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]apptype.SearchResult, error)

	UpsertRelationship(ctx context.Context, rel apptype.Relationship) error
	DeleteRelationship(ctx context.Context, source, target, relationType string) error
	LoadRelationships(ctx context.Context) ([]apptype.Relationship, error)

	Close() error
}
