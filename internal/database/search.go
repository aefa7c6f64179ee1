package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

// ErrVectorUnsupported signals that the connected database build lacks the
// native vector functions. Callers fall back to in-process scoring.
var ErrVectorUnsupported = errors.New("vector functions unsupported by database")

// SearchSimilar performs a vector range query ordered by cosine distance.
func (m *Manager) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]apptype.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("search embedding cannot be empty: %w", apptype.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	vectorString, err := m.vectorToString(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to convert search embedding: %w", err)
	}

	query := `
		SELECT ` + entityColumns + `,
			   vector_distance_cos(embedding, vector32(?)) as distance
		FROM knowledge_entities
		WHERE embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?
	`

	rows, err := m.db.QueryContext(ctx, query, vectorString, limit)
	if err != nil {
		if isMissingVectorFunc(err) {
			return nil, ErrVectorUnsupported
		}
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var searchResults []apptype.SearchResult
	for rows.Next() {
		var distance float64
		e, err := m.scanEntity(rows, &distance)
		if err != nil {
			log.Printf("Warning: Failed to scan search result row: %v", err)
			continue
		}
		searchResults = append(searchResults, apptype.SearchResult{Entity: *e, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return searchResults, nil
}

func isMissingVectorFunc(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such function") &&
		(strings.Contains(msg, "vector32") || strings.Contains(msg, "vector_distance_cos"))
}
