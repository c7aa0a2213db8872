// Package journal keeps a local SQLite record of the guides this process
// created and of seed runs, with optional FTS5 search over guide text.
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS guides (
	id             TEXT PRIMARY KEY,
	transaction_id TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL,
	slug           TEXT NOT NULL,
	summary        TEXT NOT NULL DEFAULT '',
	guide_type     TEXT NOT NULL DEFAULT '',
	topic          TEXT NOT NULL DEFAULT '',
	topic_checksum TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL DEFAULT '',
	places         TEXT NOT NULL DEFAULT '[]',
	neighborhoods  TEXT NOT NULL DEFAULT '[]',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_guides_topic_checksum ON guides(topic_checksum);
CREATE INDEX IF NOT EXISTS idx_guides_created_at ON guides(created_at);

CREATE TABLE IF NOT EXISTS seed_runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	neighborhoods INTEGER NOT NULL DEFAULT 0,
	places        INTEGER NOT NULL DEFAULT 0,
	created       INTEGER NOT NULL DEFAULT 0,
	existing      INTEGER NOT NULL DEFAULT 0,
	dry_run       INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL
);
`

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is usable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
