package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
)

// UpsertRelationship writes a directed edge. Re-creating an edge with the
// same (source, target, type) replaces its properties.
func (m *Manager) UpsertRelationship(ctx context.Context, rel apptype.Relationship) error {
	if rel.SourceID == "" || rel.TargetID == "" || rel.Type == "" {
		return fmt.Errorf("relationship fields cannot be empty: %w", apptype.ErrInvalidInput)
	}

	var props sql.NullString
	if len(rel.Properties) > 0 {
		b, err := json.Marshal(rel.Properties)
		if err != nil {
			return fmt.Errorf("failed to encode relationship properties: %w", err)
		}
		props = sql.NullString{String: string(b), Valid: true}
	}

	stmt, err := m.getPreparedStmt(ctx, `INSERT INTO knowledge_relationships
		(source_entity_id, target_entity_id, relation_type, properties, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source_entity_id, target_entity_id, relation_type)
		DO UPDATE SET properties = excluded.properties`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, rel.SourceID, rel.TargetID, rel.Type, props, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to upsert relationship (%s -> %s): %w", rel.SourceID, rel.TargetID, err)
	}
	return nil
}

// DeleteRelationship deletes one specific edge.
func (m *Manager) DeleteRelationship(ctx context.Context, source, target, relationType string) error {
	if source == "" || target == "" || relationType == "" {
		return fmt.Errorf("relationship parameters cannot be empty: %w", apptype.ErrInvalidInput)
	}

	result, err := m.db.ExecContext(ctx,
		`DELETE FROM knowledge_relationships WHERE source_entity_id = ? AND target_entity_id = ? AND relation_type = ?`,
		source, target, relationType)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("relationship %s -> %s (%s): %w", source, target, relationType, apptype.ErrNotFound)
	}
	return nil
}

// LoadRelationships returns every stored edge.
func (m *Manager) LoadRelationships(ctx context.Context) ([]apptype.Relationship, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT source_entity_id, target_entity_id, relation_type, properties FROM knowledge_relationships`)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var relationships []apptype.Relationship
	for rows.Next() {
		var rel apptype.Relationship
		var props sql.NullString
		if err := rows.Scan(&rel.SourceID, &rel.TargetID, &rel.Type, &props); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &rel.Properties); err != nil {
				log.Printf("Warning: Failed to decode properties for relationship %s -> %s: %v", rel.SourceID, rel.TargetID, err)
			}
		}
		relationships = append(relationships, rel)
	}
	return relationships, rows.Err()
}
