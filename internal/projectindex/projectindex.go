// Package projectindex maintains a small embedded-sqlite catalogue of
// known projects (id, name, thumbnail, updated-at) so a project picker UI
// can list projects without walking the filesystem and parsing every
// project.json. This supplements spec.md's file-per-project persistence
// model (§4.5/§6) rather than replacing it: project.json remains the
// source of truth, the index is a disposable cache rebuildable by
// rescanning the projects directory.
package projectindex

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Entry struct {
	ID        uuid.UUID
	Name      string
	Thumbnail string
	UpdatedAt time.Time
}

type Index struct {
	db *sql.DB
}

// Open creates (or reopens) the catalogue database at path. An empty path
// uses an in-memory database, useful for tests and for a first-run where
// no catalogue file exists yet.
func Open(path string) (*Index, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("projectindex: open: %w", err)
	}
	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) migrate() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			thumbnail TEXT,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("projectindex: migrate: %w", err)
	}
	return nil
}

// Upsert records (or refreshes) a project's catalogue entry, called after
// every successful save.
func (idx *Index) Upsert(e Entry) error {
	_, err := idx.db.Exec(`
		INSERT INTO projects (id, name, thumbnail, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, thumbnail=excluded.thumbnail, updated_at=excluded.updated_at
	`, e.ID.String(), e.Name, e.Thumbnail, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("projectindex: upsert: %w", err)
	}
	return nil
}

func (idx *Index) Remove(id uuid.UUID) error {
	_, err := idx.db.Exec(`DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("projectindex: remove: %w", err)
	}
	return nil
}

// List returns every catalogued project, most recently updated first —
// the shape a project picker renders directly.
func (idx *Index) List() ([]Entry, error) {
	rows, err := idx.db.Query(`SELECT id, name, thumbnail, updated_at FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("projectindex: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var idStr string
		var thumb sql.NullString
		if err := rows.Scan(&idStr, &e.Name, &thumb, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("projectindex: scan: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("projectindex: bad id %q: %w", idStr, err)
		}
		e.ID = id
		e.Thumbnail = thumb.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (idx *Index) Close() error {
	return idx.db.Close()
}
