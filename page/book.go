package page

import (
	"fmt"
	"log/slog"
)

// Book is the notebook of pages with a single selected tab.
type Book struct {
	Badge   *LabelPage
	Storage *LabelPage
	General *LabelPage
	Edit    *EditPage

	pages    []Page
	selected int
	onSelect func(Page)
	log      *slog.Logger
}

// NewBook creates a Book with the tabs in kiosk order. The badge tab starts selected.
func NewBook(badge, storage, general *LabelPage, edit *EditPage) *Book {
	return &Book{
		Badge:   badge,
		Storage: storage,
		General: general,
		Edit:    edit,
		pages:   []Page{badge, storage, general, edit},
		log:     slog.Default().With("component", "book"),
	}
}

// OnSelect registers fn to be called whenever a page is selected.
func (b *Book) OnSelect(fn func(Page)) {
	b.onSelect = fn
}

// Pages returns the tabs in order.
func (b *Book) Pages() []Page {
	return b.pages
}

// Selected returns the current tab.
func (b *Book) Selected() Page {
	return b.pages[b.selected]
}

// ResetAll clears every page back to placeholder content.
func (b *Book) ResetAll() {
	for _, p := range b.pages {
		p.Reset()
	}
}

// Select makes p the current tab.
func (b *Book) Select(p Page) {
	for i, q := range b.pages {
		if q == p {
			b.selectIndex(i)
			return
		}
	}
	b.log.Warn("select of unknown page", "page", p.Name())
}

// Next selects the tab after the current one, wrapping around.
func (b *Book) Next() {
	b.selectIndex((b.selected + 1) % len(b.pages))
}

// Prev selects the tab before the current one, wrapping around.
func (b *Book) Prev() {
	b.selectIndex((b.selected + len(b.pages) - 1) % len(b.pages))
}

func (b *Book) selectIndex(i int) {
	b.selected = i
	b.log.Debug("selected", "page", b.pages[i].Name())
	if b.onSelect != nil {
		b.onSelect(b.pages[i])
	}
}

// PrintSelected prints the current tab.
func (b *Book) PrintSelected() error {
	p := b.Selected()
	if err := p.Print(); err != nil {
		return fmt.Errorf("print selected: %w", err)
	}
	return nil
}
