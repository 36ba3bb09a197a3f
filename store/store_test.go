package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"badger/tag"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	db, err := OpenSQLite(filepath.Join(dir, "tags.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	file, err := OpenFile(filepath.Join(dir, "tags.tsv"))
	if err != nil {
		t.Fatalf("Failed to open file store: %v", err)
	}

	stores := map[string]Store{"sqlite": db, "file": file}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreCRUD(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			alice := tag.MustParse("11223344")

			if _, err := s.Lookup(alice); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Expected ErrNotFound before insert, got %v", err)
			}

			if err := s.Upsert(Record{Tag: alice, Name: "Alice", Comment: "Speaker"}); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
			rec, err := s.Lookup(alice)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if rec.Name != "Alice" || rec.Comment != "Speaker" {
				t.Errorf("Got %q/%q, want Alice/Speaker", rec.Name, rec.Comment)
			}
			if rec.Updated.IsZero() {
				t.Error("Upsert should stamp Updated")
			}

			// Replace
			if err := s.Upsert(Record{Tag: alice, Name: "Alice B", Comment: "Organiser"}); err != nil {
				t.Fatalf("Second upsert failed: %v", err)
			}
			rec, _ = s.Lookup(alice)
			if rec.Name != "Alice B" {
				t.Errorf("Expected replaced name, got %q", rec.Name)
			}

			if err := s.Upsert(Record{Tag: tag.MustParse("aabbccdd"), Name: "Bob"}); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
			list, err := s.List()
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(list) != 2 || list[0].Tag != alice {
				t.Errorf("Unexpected list %+v", list)
			}

			if err := s.Delete(alice); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := s.Delete(alice); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
			}
			if _, err := s.Lookup(alice); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestUpsertRejectsEmptyTag(t *testing.T) {
	for name, s := range openStores(t) {
		if err := s.Upsert(Record{Name: "nobody"}); err == nil {
			t.Errorf("%s: expected error for empty tag", name)
		}
	}
}

func TestFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tags.tsv")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if err := f.Upsert(Record{Tag: tag.MustParse("11223344"), Name: "Alice\tX", Comment: "two\nlines"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("Expected a single line, got %q", data)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	rec, err := reopened.Lookup(tag.MustParse("11223344"))
	if err != nil {
		t.Fatalf("Lookup after reopen failed: %v", err)
	}
	if rec.Name != "Alice X" || rec.Comment != "two lines" {
		t.Errorf("Got %q/%q after reopen", rec.Name, rec.Comment)
	}
}

func TestFileSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.tsv")
	content := "# comment\nnothex\tX\n11223344\tAlice\tSpeaker\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	list, _ := f.List()
	if len(list) != 1 || list[0].Name != "Alice" {
		t.Errorf("Unexpected records %+v", list)
	}
}

func TestNew(t *testing.T) {
	s, err := New(Config{})
	if err != nil || s != nil {
		t.Errorf("Expected nil store for empty config, got %v, %v", s, err)
	}

	if _, err := New(Config{Type: "redis", Path: "x"}); err == nil {
		t.Error("Expected error for unknown type")
	}

	s, err = New(Config{Type: "file", Path: filepath.Join(t.TempDir(), "t.tsv")})
	if err != nil {
		t.Fatalf("New file failed: %v", err)
	}
	s.Close()
}

func TestFileSaveFailureRemovesTemp(t *testing.T) {
	// A directory in place of the tag file makes the rename fail.
	path := filepath.Join(t.TempDir(), "tags")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
	f := &File{path: path, records: map[tag.Tag]Record{
		tag.MustParse("11223344"): {Tag: tag.MustParse("11223344"), Name: "Alice"},
	}}

	if err := f.save(); err == nil {
		t.Fatal("Expected save to fail")
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Temp file left behind: %v", err)
	}
}

func TestSQLitePragmas(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "tags.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}
