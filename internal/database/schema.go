package database

import "fmt"

// dynamicSchema returns schema DDL using the configured embedding dimension.
// Timestamps are stored as epoch seconds so round-trips don't depend on
// driver-side time parsing.
func dynamicSchema(embeddingDims int) []string {
	if embeddingDims <= 0 {
		embeddingDims = 4
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS knowledge_entities (
        entity_id TEXT PRIMARY KEY,
        domain TEXT NOT NULL,
        knowledge_type TEXT NOT NULL,
        title TEXT NOT NULL,
        content TEXT NOT NULL,
        metadata TEXT,
        embedding F32_BLOB(%d),
        retention_policy TEXT NOT NULL,
        confidence_score REAL NOT NULL DEFAULT 0.5,
        access_count INTEGER NOT NULL DEFAULT 0,
        tags TEXT,
        created_at INTEGER NOT NULL,
        last_accessed INTEGER NOT NULL,
        expires_at INTEGER NOT NULL
    )`, embeddingDims),

		`CREATE TABLE IF NOT EXISTS knowledge_relationships (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source_entity_id TEXT NOT NULL,
        target_entity_id TEXT NOT NULL,
        relation_type TEXT NOT NULL,
        properties TEXT,
        created_at INTEGER NOT NULL,
        UNIQUE (source_entity_id, target_entity_id, relation_type),
        FOREIGN KEY (source_entity_id) REFERENCES knowledge_entities(entity_id),
        FOREIGN KEY (target_entity_id) REFERENCES knowledge_entities(entity_id)
    )`,

		`CREATE INDEX IF NOT EXISTS idx_entities_domain ON knowledge_entities(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_type ON knowledge_entities(knowledge_type)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_policy ON knowledge_entities(retention_policy)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_expires ON knowledge_entities(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_source ON knowledge_relationships(source_entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_target ON knowledge_relationships(target_entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_type_source ON knowledge_relationships(relation_type, source_entity_id)`,

		`CREATE INDEX IF NOT EXISTS idx_entities_embedding ON knowledge_entities(libsql_vector_idx(embedding))`,
	}
}
