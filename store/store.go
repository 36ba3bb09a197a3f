// Package store persists the tag → (name, comment) records the kiosk prints from.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"badger/tag"
)

// ErrNotFound is returned by Lookup and Delete when the tag has no record.
var ErrNotFound = errors.New("tag not found")

// Record is the resolved identity for a known tag.
type Record struct {
	Tag     tag.Tag
	Name    string
	Comment string
	Updated time.Time
}

// Store is the interface for all lookup store implementations.
type Store interface {
	// Lookup returns the record for t, or ErrNotFound.
	Lookup(t tag.Tag) (Record, error)

	// Upsert creates or replaces the record for rec.Tag.
	Upsert(rec Record) error

	// Delete removes the record for t. Returns ErrNotFound if there was none.
	Delete(t tag.Tag) error

	// List returns all records ordered by tag.
	List() ([]Record, error)

	// Close releases any resources held by the store.
	Close() error
}

// Config holds configuration for store implementations.
type Config struct {
	Type string `yaml:"type"` // "sqlite", "file"
	Path string `yaml:"path"` // database or tag file path
}

// New opens a Store based on the provided configuration.
// Returns (nil, nil) if no path is configured.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	// Typed nils must not leak out as a non-nil Store.
	switch cfg.Type {
	case "file", "tsv":
		f, err := OpenFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "sqlite", "":
		db, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// clean flattens characters the file format uses as separators.
func clean(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(s)
}
