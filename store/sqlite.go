package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"badger/tag"
)

// SQLite is a Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS tags (
		tag TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);`)
	return err
}

// Lookup implements Store.Lookup.
func (s *SQLite) Lookup(t tag.Tag) (Record, error) {
	rec := Record{Tag: t}
	err := s.db.QueryRow(`SELECT name, comment, updated_at FROM tags WHERE tag = ?`, t.String()).
		Scan(&rec.Name, &rec.Comment, &rec.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("lookup %s: %w", t, err)
	}
	return rec, nil
}

// Upsert implements Store.Upsert.
func (s *SQLite) Upsert(rec Record) error {
	if rec.Tag.IsZero() {
		return fmt.Errorf("upsert: empty tag")
	}
	if rec.Updated.IsZero() {
		rec.Updated = time.Now().UTC()
	}
	_, err := s.db.Exec(`
	INSERT INTO tags (tag, name, comment, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(tag) DO UPDATE SET name = excluded.name, comment = excluded.comment,
		updated_at = excluded.updated_at`,
		rec.Tag.String(), rec.Name, rec.Comment, rec.Updated)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Tag, err)
	}
	return nil
}

// Delete implements Store.Delete.
func (s *SQLite) Delete(t tag.Tag) error {
	res, err := s.db.Exec(`DELETE FROM tags WHERE tag = ?`, t.String())
	if err != nil {
		return fmt.Errorf("delete %s: %w", t, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", t, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Store.List.
func (s *SQLite) List() ([]Record, error) {
	rows, err := s.db.Query(`SELECT tag, name, comment, updated_at FROM tags ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var hexTag string
		var rec Record
		if err := rows.Scan(&hexTag, &rec.Name, &rec.Comment, &rec.Updated); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		rec.Tag, err = tag.Parse(hexTag)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close implements Store.Close.
func (s *SQLite) Close() error {
	return s.db.Close()
}
