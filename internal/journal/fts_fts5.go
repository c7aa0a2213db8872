//go:build sqlite_fts5

package journal

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS guides_fts USING fts5(
			id UNINDEXED,
			title,
			summary,
			topic,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, summary, topic string) error {
	_, _ = tx.Exec(`DELETE FROM guides_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO guides_fts (id, title, summary, topic) VALUES (?, ?, ?, ?)`,
		id, title, summary, topic)
	if err != nil {
		return fmt.Errorf("journal: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search over guide title, summary and topic.
func (db *DB) Search(query string, limit int) ([]GuideRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT g.id, g.transaction_id, g.title, g.slug, g.summary, g.guide_type, g.topic,
		       g.topic_checksum, g.source, g.places, g.neighborhoods, g.created_at
		FROM guides_fts f
		JOIN guides g ON g.id = f.id
		WHERE guides_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	defer rows.Close()
	return scanGuides(rows)
}
