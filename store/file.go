package store

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"badger/tag"
)

// File is a Store kept in memory and persisted to a tab-separated file.
//
// Format: one record per line, "tag\tname\tcomment\tupdated" with the time in
// RFC3339. The file is rewritten through a temp file and rename on every change.
type File struct {
	mu      sync.RWMutex
	path    string
	records map[tag.Tag]Record
}

// OpenFile loads the tag file at path, creating it if it doesn't exist.
func OpenFile(path string) (*File, error) {
	f := &File{
		path:    path,
		records: make(map[tag.Tag]Record),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create tag file directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open tag file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		t, err := tag.Parse(parts[0])
		if err != nil {
			slog.Warn("skipping bad tag file line", "line", line, "error", err)
			continue
		}

		rec := Record{Tag: t}
		if len(parts) > 1 {
			rec.Name = parts[1]
		}
		if len(parts) > 2 {
			rec.Comment = parts[2]
		}
		if len(parts) > 3 {
			rec.Updated, _ = time.Parse(time.RFC3339, parts[3])
		}
		f.records[t] = rec
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read tag file: %w", err)
	}
	return nil
}

// save writes all records. Must be called with f.mu held.
func (f *File) save() (err error) {
	tmp := f.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(file)
	for _, rec := range f.sortedLocked() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Tag, clean(rec.Name), clean(rec.Comment),
			rec.Updated.UTC().Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename tag file: %w", err)
	}
	return nil
}

func (f *File) sortedLocked() []Record {
	out := make([]Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Tag.String() < out[j].Tag.String()
	})
	return out
}

// Lookup implements Store.Lookup.
func (f *File) Lookup(t tag.Tag) (Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, ok := f.records[t]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Upsert implements Store.Upsert.
func (f *File) Upsert(rec Record) error {
	if rec.Tag.IsZero() {
		return fmt.Errorf("upsert: empty tag")
	}
	if rec.Updated.IsZero() {
		rec.Updated = time.Now().UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.records[rec.Tag]
	f.records[rec.Tag] = rec
	if err := f.save(); err != nil {
		if existed {
			f.records[rec.Tag] = prev
		} else {
			delete(f.records, rec.Tag)
		}
		return err
	}
	return nil
}

// Delete implements Store.Delete.
func (f *File) Delete(t tag.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, ok := f.records[t]
	if !ok {
		return ErrNotFound
	}
	delete(f.records, t)
	if err := f.save(); err != nil {
		f.records[t] = prev
		return err
	}
	return nil
}

// List implements Store.List.
func (f *File) List() ([]Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sortedLocked(), nil
}

// Close implements Store.Close.
func (f *File) Close() error {
	return nil
}
