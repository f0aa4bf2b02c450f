package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql.DB connection and provides access to stores
type DB struct {
	*sql.DB
	History     *HistoryStore
	ResultCache *ResultCacheStore
}

// Open opens a database connection and initializes stores
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{
		DB:          db,
		History:     NewHistoryStore(db),
		ResultCache: NewResultCacheStore(db),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// migrate creates the database schema
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracking_history (
		id TEXT PRIMARY KEY,
		carrier TEXT NOT NULL,
		tracking_number TEXT NOT NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_status TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS result_cache (
		key TEXT PRIMARY KEY,
		tag TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON tracking_history(timestamp);
	CREATE INDEX IF NOT EXISTS idx_history_carrier ON tracking_history(carrier);
	CREATE INDEX IF NOT EXISTS idx_cache_expires ON result_cache(expires_at);
	CREATE INDEX IF NOT EXISTS idx_cache_tag ON result_cache(tag);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
