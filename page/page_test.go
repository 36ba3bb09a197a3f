package page

import (
	"errors"
	"image"
	"testing"

	"badger/label"
	"badger/store"
	"badger/tag"
)

type countPrinter struct {
	n   int
	err error
}

func (p *countPrinter) Print(image.Image) error {
	if p.err != nil {
		return p.err
	}
	p.n++
	return nil
}

type oneStore struct {
	saved []store.Record
}

func (s *oneStore) Lookup(tag.Tag) (store.Record, error) { return store.Record{}, store.ErrNotFound }
func (s *oneStore) Upsert(r store.Record) error           { s.saved = append(s.saved, r); return nil }
func (s *oneStore) Delete(tag.Tag) error                  { return store.ErrNotFound }
func (s *oneStore) List() ([]store.Record, error)         { return s.saved, nil }
func (s *oneStore) Close() error                          { return nil }

func testRenderer() *label.Renderer {
	return label.NewRenderer(label.Config{Font: "/nonexistent.ttf", Lines: 200, BytesPerLine: 8})
}

func testBook(p label.Printer, s store.Store) *Book {
	r := testRenderer()
	return NewBook(
		NewLabelPage("Name Badge", label.Badge, r, p),
		NewLabelPage("Storage Label", label.Storage, r, p),
		NewLabelPage("General Label", label.General, r, p),
		NewEditPage(s, r),
	)
}

func TestBookNavigation(t *testing.T) {
	b := testBook(&countPrinter{}, nil)
	var seen []string
	b.OnSelect(func(p Page) { seen = append(seen, p.Name()) })

	if b.Selected() != b.Badge {
		t.Fatalf("Initial tab = %s", b.Selected().Name())
	}

	b.Prev()
	if b.Selected() != b.Edit {
		t.Errorf("Prev from first tab should wrap, got %s", b.Selected().Name())
	}
	b.Next()
	b.Next()
	if b.Selected() != b.Storage {
		t.Errorf("Expected storage tab, got %s", b.Selected().Name())
	}
	b.Select(b.General)

	want := []string{"Edit Tag", "Name Badge", "Storage Label", "General Label"}
	if len(seen) != len(want) {
		t.Fatalf("Selections = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Selection %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestSelectUnknownPage(t *testing.T) {
	b := testBook(nil, nil)
	other := NewEditPage(nil, testRenderer())
	b.Select(other)
	if b.Selected() != b.Badge {
		t.Errorf("Selecting a foreign page should be ignored, got %s", b.Selected().Name())
	}
}

func TestResetAll(t *testing.T) {
	b := testBook(nil, nil)
	b.General.SetPlaceholder(label.Content{Text: "Welcome"})
	b.Badge.Populate("Alice", "Speaker")
	b.General.SetText("Coats")
	b.Edit.Populate(tag.MustParse("11223344"), "Alice", "Speaker")

	b.ResetAll()

	if c := b.Badge.Content(); c.Name != PlaceholderName || c.Comment != PlaceholderComment {
		t.Errorf("Badge = %+v", c)
	}
	if c := b.General.Content(); c.Text != "Welcome" {
		t.Errorf("General should restore its placeholder, got %+v", c)
	}
	if tg, name, comment := b.Edit.Fields(); !tg.IsZero() || name != "" || comment != "" {
		t.Errorf("Edit = %s %q %q", tg, name, comment)
	}
}

func TestLabelPagePrint(t *testing.T) {
	p := &countPrinter{}
	b := testBook(p, nil)
	b.Badge.Populate("Alice", "Speaker")

	if err := b.PrintSelected(); err != nil {
		t.Fatalf("Print failed: %v", err)
	}
	if p.n != 1 {
		t.Errorf("Expected one print, got %d", p.n)
	}

	p.err = errors.New("jam")
	if err := b.PrintSelected(); !errors.Is(err, p.err) {
		t.Errorf("Expected wrapped printer error, got %v", err)
	}

	// The edit tab has nothing to print.
	b.Select(b.Edit)
	if err := b.PrintSelected(); err != nil {
		t.Errorf("Edit tab print = %v", err)
	}
}

func TestLabelPageWithoutPrinter(t *testing.T) {
	b := testBook(nil, nil)
	if err := b.Badge.Print(); err == nil {
		t.Error("Expected an error with no printer")
	}
}

func TestEditPageSave(t *testing.T) {
	r := testRenderer()

	if err := NewEditPage(nil, r).Save(); err == nil {
		t.Error("Expected an error with no database")
	}

	s := &oneStore{}
	e := NewEditPage(s, r)
	if err := e.Save(); err == nil {
		t.Error("Expected an error with an empty form")
	}

	a := tag.MustParse("11223344")
	e.Populate(a, "Alice", "Speaker")
	if err := e.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(s.saved) != 1 || s.saved[0].Tag != a || s.saved[0].Name != "Alice" {
		t.Errorf("Saved = %+v", s.saved)
	}
}

func TestPreviews(t *testing.T) {
	b := testBook(nil, nil)
	w, h := testRenderer().Size()
	for _, p := range b.Pages() {
		img, err := p.Preview()
		if err != nil {
			t.Fatalf("%s preview: %v", p.Name(), err)
		}
		if got := img.Bounds(); got.Dx() != w || got.Dy() != h {
			t.Errorf("%s preview is %v, want %dx%d", p.Name(), got, w, h)
		}
	}
}
