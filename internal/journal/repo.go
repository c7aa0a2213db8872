package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/guidesmith/internal/apperr"
)

// Sources a guide can be created from.
const (
	SourceCLI   = "cli"
	SourceAPI   = "api"
	SourceMCP   = "mcp"
	SourceInbox = "inbox"
	SourceBatch = "batch"
)

// GuideRow is one created guide.
type GuideRow struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Summary       string    `json:"summary"`
	GuideType     string    `json:"guideType"`
	Topic         string    `json:"topic"`
	TopicChecksum string    `json:"topicChecksum"`
	Source        string    `json:"source"`
	Places        []string  `json:"places"`
	Neighborhoods []string  `json:"neighborhoods"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SeedRunRow is one seed run.
type SeedRunRow struct {
	ID            int64     `json:"id"`
	Neighborhoods int       `json:"neighborhoods"`
	Places        int       `json:"places"`
	Created       int       `json:"created"`
	Existing      int       `json:"existing"`
	DryRun        bool      `json:"dryRun"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

const guideColumns = `id, transaction_id, title, slug, summary, guide_type, topic, topic_checksum, source, places, neighborhoods, created_at`

// RecordGuide stores g together with its search entry. Recording the same id
// twice replaces the earlier row.
func (db *DB) RecordGuide(g GuideRow) error {
	if g.ID == "" {
		return fmt.Errorf("%w: guide id is required", apperr.ErrInvalidInput)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	places, _ := json.Marshal(nonNil(g.Places))
	neighborhoods, _ := json.Marshal(nonNil(g.Neighborhoods))

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO guides (`+guideColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			transaction_id = excluded.transaction_id,
			title          = excluded.title,
			slug           = excluded.slug,
			summary        = excluded.summary,
			guide_type     = excluded.guide_type,
			topic          = excluded.topic,
			topic_checksum = excluded.topic_checksum,
			source         = excluded.source,
			places         = excluded.places,
			neighborhoods  = excluded.neighborhoods
	`, g.ID, g.TransactionID, g.Title, g.Slug, g.Summary, g.GuideType, g.Topic, g.TopicChecksum,
		g.Source, string(places), string(neighborhoods), g.CreatedAt)
	if err != nil {
		return fmt.Errorf("journal: record guide: %w", err)
	}

	if err := ftsUpsert(tx, g.ID, g.Title, g.Summary, g.Topic); err != nil {
		return err
	}
	return tx.Commit()
}

// GetGuide returns the guide with id, or apperr.ErrNotFound.
func (db *DB) GetGuide(id string) (*GuideRow, error) {
	row := db.conn.QueryRow(`SELECT `+guideColumns+` FROM guides WHERE id = ?`, id)
	g, err := scanGuide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("guide %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get guide: %w", err)
	}
	return g, nil
}

// ListGuides returns guides newest first, with the total count.
func (db *DB) ListGuides(limit, offset int) ([]GuideRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM guides`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("journal: count guides: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+guideColumns+` FROM guides ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("journal: list guides: %w", err)
	}
	defer rows.Close()

	out, err := scanGuides(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// HasTopic reports whether a guide was already created for the topic
// checksum.
func (db *DB) HasTopic(checksum string) (bool, error) {
	if checksum == "" {
		return false, nil
	}
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM guides WHERE topic_checksum = ?`, checksum).Scan(&n); err != nil {
		return false, fmt.Errorf("journal: has topic: %w", err)
	}
	return n > 0, nil
}

// RecordSeedRun stores r and returns its row id.
func (db *DB) RecordSeedRun(r SeedRunRow) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO seed_runs (neighborhoods, places, created, existing, dry_run, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Neighborhoods, r.Places, r.Created, r.Existing, r.DryRun, r.Error, r.StartedAt, r.FinishedAt)
	if err != nil {
		return 0, fmt.Errorf("journal: record seed run: %w", err)
	}
	return res.LastInsertId()
}

// ListSeedRuns returns the most recent seed runs first.
func (db *DB) ListSeedRuns(limit int) ([]SeedRunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, neighborhoods, places, created, existing, dry_run, error, started_at, finished_at
		FROM seed_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list seed runs: %w", err)
	}
	defer rows.Close()

	var out []SeedRunRow
	for rows.Next() {
		var r SeedRunRow
		if err := rows.Scan(&r.ID, &r.Neighborhoods, &r.Places, &r.Created, &r.Existing, &r.DryRun,
			&r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGuide(s scanner) (*GuideRow, error) {
	var g GuideRow
	var places, neighborhoods string
	if err := s.Scan(&g.ID, &g.TransactionID, &g.Title, &g.Slug, &g.Summary, &g.GuideType, &g.Topic,
		&g.TopicChecksum, &g.Source, &places, &neighborhoods, &g.CreatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(places), &g.Places)
	_ = json.Unmarshal([]byte(neighborhoods), &g.Neighborhoods)
	g.Places = nonNil(g.Places)
	g.Neighborhoods = nonNil(g.Neighborhoods)
	return &g, nil
}

func scanGuides(rows *sql.Rows) ([]GuideRow, error) {
	out := []GuideRow{}
	for rows.Next() {
		g, err := scanGuide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
