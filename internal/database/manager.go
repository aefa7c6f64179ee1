package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/tursodatabase/go-libsql"
)

// Manager handles all database operations against a single libSQL database.
type Manager struct {
	config *Config
	db     *sql.DB

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt
}

// NewManager opens the configured database and applies the schema.
func NewManager(config *Config) (*Manager, error) {
	dbURL := config.URL
	if !strings.HasPrefix(dbURL, "file:") && config.AuthToken != "" {
		dbURL += "?authToken=" + config.AuthToken
	}

	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector: %w", err)
	}

	m := &Manager{
		config:    config,
		db:        db,
		stmtCache: make(map[string]*sql.Stmt),
	}
	if err := m.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return m, nil
}

// initialize creates tables and indexes if they don't exist
func (m *Manager) initialize() error {
	tx, err := m.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range dynamicSchema(m.config.EmbeddingDims) {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return tx.Commit()
}

// getPreparedStmt returns or prepares and caches a statement.
func (m *Manager) getPreparedStmt(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	m.stmtMu.RLock()
	stmt, ok := m.stmtCache[sqlText]
	m.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	stmt, err := m.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	m.stmtMu.Lock()
	// Another goroutine may have prepared it concurrently; keep the first one.
	if existing, ok := m.stmtCache[sqlText]; ok {
		m.stmtMu.Unlock()
		stmt.Close()
		return existing, nil
	}
	m.stmtCache[sqlText] = stmt
	m.stmtMu.Unlock()
	return stmt, nil
}

// Close closes prepared statements and the database connection.
func (m *Manager) Close() error {
	m.stmtMu.Lock()
	for _, stmt := range m.stmtCache {
		stmt.Close()
	}
	m.stmtCache = make(map[string]*sql.Stmt)
	m.stmtMu.Unlock()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
