package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

const entityColumns = `entity_id, domain, knowledge_type, title, content, metadata,
	embedding, retention_policy, confidence_score, access_count, tags,
	created_at, last_accessed, expires_at`

// UpsertEntity writes a full entity row, updating in place when the id
// already exists.
func (m *Manager) UpsertEntity(ctx context.Context, e apptype.KnowledgeEntity) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity id must be a non-empty string")
	}

	vectorString, err := m.vectorToString(e.Embedding)
	if err != nil {
		return fmt.Errorf("failed to convert embedding for entity %q: %w", e.ID, err)
	}
	metadata, tags, err := encodeJSONColumns(e.Metadata, e.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode columns for entity %q: %w", e.ID, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for entity %q: %w", e.ID, err)
	}
	defer tx.Rollback()

	var result sql.Result
	if vectorString == "" {
		result, err = tx.ExecContext(ctx, `UPDATE knowledge_entities SET
			domain = ?, knowledge_type = ?, title = ?, content = ?, metadata = ?,
			embedding = NULL, retention_policy = ?, confidence_score = ?,
			access_count = ?, tags = ?, created_at = ?, last_accessed = ?, expires_at = ?
			WHERE entity_id = ?`,
			e.Domain, e.KnowledgeType, e.Title, e.Content, metadata,
			e.RetentionPolicy, e.ConfidenceScore, e.AccessCount, tags,
			e.CreatedAt.Unix(), e.LastAccessed.Unix(), e.ExpiresAt.Unix(), e.ID)
	} else {
		result, err = tx.ExecContext(ctx, `UPDATE knowledge_entities SET
			domain = ?, knowledge_type = ?, title = ?, content = ?, metadata = ?,
			embedding = vector32(?), retention_policy = ?, confidence_score = ?,
			access_count = ?, tags = ?, created_at = ?, last_accessed = ?, expires_at = ?
			WHERE entity_id = ?`,
			e.Domain, e.KnowledgeType, e.Title, e.Content, metadata, vectorString,
			e.RetentionPolicy, e.ConfidenceScore, e.AccessCount, tags,
			e.CreatedAt.Unix(), e.LastAccessed.Unix(), e.ExpiresAt.Unix(), e.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update entity %q: %w", e.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update: %w", err)
	}

	if rowsAffected == 0 {
		if vectorString == "" {
			_, err = tx.ExecContext(ctx, `INSERT INTO knowledge_entities (`+entityColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.Domain, e.KnowledgeType, e.Title, e.Content, metadata,
				e.RetentionPolicy, e.ConfidenceScore, e.AccessCount, tags,
				e.CreatedAt.Unix(), e.LastAccessed.Unix(), e.ExpiresAt.Unix())
		} else {
			_, err = tx.ExecContext(ctx, `INSERT INTO knowledge_entities (`+entityColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, vector32(?), ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.Domain, e.KnowledgeType, e.Title, e.Content, metadata, vectorString,
				e.RetentionPolicy, e.ConfidenceScore, e.AccessCount, tags,
				e.CreatedAt.Unix(), e.LastAccessed.Unix(), e.ExpiresAt.Unix())
		}
		if err != nil {
			return fmt.Errorf("failed to insert entity %q: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// GetEntity retrieves a single entity by id.
func (m *Manager) GetEntity(ctx context.Context, id string) (*apptype.KnowledgeEntity, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM knowledge_entities WHERE entity_id = ?`, id)

	e, err := m.scanEntity(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("entity %s: %w", id, apptype.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}
	return e, nil
}

// LoadAllEntities streams every entity row, skipping rows that fail to decode.
func (m *Manager) LoadAllEntities(ctx context.Context) ([]apptype.KnowledgeEntity, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM knowledge_entities`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []apptype.KnowledgeEntity
	for rows.Next() {
		e, err := m.scanEntity(rows)
		if err != nil {
			log.Printf("Warning: Failed to scan entity row: %v", err)
			continue
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}
	return entities, nil
}

// UpdateAccess bumps access counters and last_accessed for the given ids.
func (m *Manager) UpdateAccess(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := m.getPreparedStmt(ctx,
		`UPDATE knowledge_entities SET access_count = access_count + 1, last_accessed = ? WHERE entity_id = ?`)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, at.Unix(), id); err != nil {
			return fmt.Errorf("failed to update access for entity %q: %w", id, err)
		}
	}
	return nil
}

// UpdateConfidence sets an entity's confidence score, clamped to [0,1] at the
// SQL level so no writer can push it out of range.
func (m *Manager) UpdateConfidence(ctx context.Context, id string, score float64) error {
	stmt, err := m.getPreparedStmt(ctx,
		`UPDATE knowledge_entities SET confidence_score = MIN(MAX(?, 0.0), 1.0) WHERE entity_id = ?`)
	if err != nil {
		return err
	}
	result, err := stmt.ExecContext(ctx, score, id)
	if err != nil {
		return fmt.Errorf("failed to update confidence for entity %q: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("entity %s: %w", id, apptype.ErrNotFound)
	}
	return nil
}

// DeleteEntity deletes an entity and its relationships in both directions.
// Deleting an absent entity is a no-op.
func (m *Manager) DeleteEntity(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("entity id cannot be empty: %w", apptype.ErrInvalidInput)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM knowledge_relationships WHERE source_entity_id = ? OR target_entity_id = ?`, id, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM knowledge_entities WHERE entity_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntity decodes one entity row. Extra scan targets (e.g. a computed
// distance column) are appended after the entity columns.
func (m *Manager) scanEntity(row rowScanner, extra ...any) (*apptype.KnowledgeEntity, error) {
	var e apptype.KnowledgeEntity
	var metadata, tags sql.NullString
	var embeddingBytes []byte
	var createdAt, lastAccessed, expiresAt int64

	dest := []any{&e.ID, &e.Domain, &e.KnowledgeType, &e.Title, &e.Content,
		&metadata, &embeddingBytes, &e.RetentionPolicy, &e.ConfidenceScore,
		&e.AccessCount, &tags, &createdAt, &lastAccessed, &expiresAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	vector, err := m.ExtractVector(embeddingBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to extract vector for entity %q: %w", e.ID, err)
	}
	e.Embedding = vector
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	e.LastAccessed = time.Unix(lastAccessed, 0).UTC()
	e.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for entity %q: %w", e.ID, err)
		}
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for entity %q: %w", e.ID, err)
		}
	}
	return &e, nil
}

func encodeJSONColumns(metadata map[string]any, tags []string) (sql.NullString, sql.NullString, error) {
	var metaCol, tagsCol sql.NullString
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return metaCol, tagsCol, fmt.Errorf("failed to encode metadata: %w", err)
		}
		metaCol = sql.NullString{String: string(b), Valid: true}
	}
	if len(tags) > 0 {
		b, err := json.Marshal(tags)
		if err != nil {
			return metaCol, tagsCol, fmt.Errorf("failed to encode tags: %w", err)
		}
		tagsCol = sql.NullString{String: string(b), Valid: true}
	}
	return metaCol, tagsCol, nil
}
