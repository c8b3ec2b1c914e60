// Package store owns the persistent entity model: authors, raw posts,
// opinions, verifications, and credibility profiles, backed by SQLite.
// It is the single source of truth for opinion status.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is the canonical on-disk timestamp format.
const timeLayout = time.RFC3339Nano

// Store wraps the database handle. All repositories are methods on Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; serialize access through a single
	// connection to avoid SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS authors (
			id           TEXT PRIMARY KEY,
			platform     TEXT NOT NULL,
			display_name TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			UNIQUE (platform, display_name)
		)`,
		`CREATE TABLE IF NOT EXISTS raw_posts (
			id           TEXT PRIMARY KEY,
			author_id    TEXT NOT NULL REFERENCES authors(id),
			platform     TEXT NOT NULL,
			content      TEXT NOT NULL,
			captured_at  TEXT NOT NULL,
			source_url   TEXT NOT NULL DEFAULT '',
			state        TEXT NOT NULL DEFAULT 'pending',
			processed_at TEXT,
			created_at   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS opinions (
			id                TEXT PRIMARY KEY,
			raw_post_id       TEXT NOT NULL REFERENCES raw_posts(id),
			author_id         TEXT NOT NULL REFERENCES authors(id),
			type              TEXT NOT NULL,
			abstraction_level INTEGER NOT NULL,
			status            TEXT NOT NULL,
			fragment          TEXT NOT NULL,
			confidence        REAL NOT NULL,
			fingerprint       TEXT NOT NULL UNIQUE,
			attrs             TEXT NOT NULL,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_opinions_status ON opinions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_opinions_author ON opinions(author_id)`,
		`CREATE TABLE IF NOT EXISTS verifications (
			id           TEXT PRIMARY KEY,
			opinion_id   TEXT NOT NULL REFERENCES opinions(id) ON DELETE CASCADE,
			attempted_at TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			evidence     TEXT NOT NULL DEFAULT '{}',
			notes        TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_opinion ON verifications(opinion_id, attempted_at)`,
		`CREATE TABLE IF NOT EXISTS credibility_profiles (
			author_id  TEXT PRIMARY KEY REFERENCES authors(id),
			accuracy   REAL NOT NULL,
			correct    INTEGER NOT NULL,
			partial    INTEGER NOT NULL,
			incorrect  INTEGER NOT NULL,
			expired    INTEGER NOT NULL,
			resolved   INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}
