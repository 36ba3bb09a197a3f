package controller

import (
	"errors"
	"image"
	"testing"

	"badger/label"
	"badger/page"
	"badger/store"
	"badger/tag"
)

// scriptSource returns one scripted tag per ReadTag call, then nothing.
type scriptSource struct {
	tags    []tag.Tag
	errs    []error
	buttons int
	reads   int
	btnRead int
}

func (s *scriptSource) ReadTag() (tag.Tag, error) {
	i := s.reads
	s.reads++
	if i < len(s.errs) && s.errs[i] != nil {
		return tag.Tag{}, s.errs[i]
	}
	if i < len(s.tags) {
		return s.tags[i], nil
	}
	return tag.Tag{}, nil
}

func (s *scriptSource) ReadButtons() (int, error) {
	s.btnRead++
	return s.buttons, nil
}

func (s *scriptSource) Close() error { return nil }

// memStore is an in-memory store that counts calls.
type memStore struct {
	records   map[tag.Tag]store.Record
	deleteErr error
	lookupErr error
	calls     int
}

func newMemStore(recs ...store.Record) *memStore {
	m := &memStore{records: make(map[tag.Tag]store.Record)}
	for _, r := range recs {
		m.records[r.Tag] = r
	}
	return m
}

func (m *memStore) Lookup(t tag.Tag) (store.Record, error) {
	m.calls++
	if m.lookupErr != nil {
		return store.Record{}, m.lookupErr
	}
	rec, ok := m.records[t]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) Upsert(rec store.Record) error {
	m.calls++
	m.records[rec.Tag] = rec
	return nil
}

func (m *memStore) Delete(t tag.Tag) error {
	m.calls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.records[t]; !ok {
		return store.ErrNotFound
	}
	delete(m.records, t)
	return nil
}

func (m *memStore) List() ([]store.Record, error) { return nil, nil }
func (m *memStore) Close() error                  { return nil }

type recordPrinter struct {
	prints int
	err    error
}

func (p *recordPrinter) Print(img image.Image) error {
	if p.err != nil {
		return p.err
	}
	p.prints++
	return nil
}

type kiosk struct {
	book     *page.Book
	printer  *recordPrinter
	selected []string
}

// newKiosk builds a real page book whose selections are recorded.
// s may be nil.
func newKiosk(t *testing.T, s store.Store) *kiosk {
	t.Helper()
	r := label.NewRenderer(label.Config{Font: "/nonexistent.ttf"})
	k := &kiosk{printer: &recordPrinter{}}
	k.book = page.NewBook(
		page.NewLabelPage("Name Badge", label.Badge, r, k.printer),
		page.NewLabelPage("Storage Label", label.Storage, r, k.printer),
		page.NewLabelPage("General Label", label.General, r, k.printer),
		page.NewEditPage(s, r),
	)
	k.book.OnSelect(func(p page.Page) {
		k.selected = append(k.selected, p.Name())
	})
	return k
}

func (k *kiosk) lastSelected() string {
	if len(k.selected) == 0 {
		return ""
	}
	return k.selected[len(k.selected)-1]
}

var errDisk = errors.New("disk on fire")
