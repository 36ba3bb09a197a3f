// Package page holds the kiosk's on-screen pages and the notebook that
// selects between them.
package page

import (
	"fmt"
	"image"
	"log/slog"

	"badger/label"
	"badger/store"
	"badger/tag"
)

// Placeholder content shown on a blank page.
const (
	PlaceholderName    = "Your Name"
	PlaceholderComment = "Your Comment"
)

// Page is the capability every page offers the controller.
type Page interface {
	// Name returns the tab title.
	Name() string

	// Reset clears the page back to its placeholder content.
	Reset()

	// Print outputs the page's label. Pages without a label return nil.
	Print() error

	// Preview renders the page for display.
	Preview() (image.Image, error)
}

// LabelPage is a page that prints one label layout.
type LabelPage struct {
	name     string
	kind     label.Kind
	renderer *label.Renderer
	printer  label.Printer
	log      *slog.Logger

	content     label.Content
	placeholder label.Content
}

// NewLabelPage creates a page for the given layout.
func NewLabelPage(name string, kind label.Kind, r *label.Renderer, p label.Printer) *LabelPage {
	lp := &LabelPage{
		name:     name,
		kind:     kind,
		renderer: r,
		printer:  p,
		log:      slog.Default().With("component", "page", "page", name),
		placeholder: label.Content{
			Name:    PlaceholderName,
			Comment: PlaceholderComment,
		},
	}
	lp.Reset()
	return lp
}

// SetPlaceholder changes what Reset restores, e.g. the general label's default text.
func (p *LabelPage) SetPlaceholder(c label.Content) {
	p.placeholder = c
}

// Name implements Page.Name.
func (p *LabelPage) Name() string { return p.name }

// Kind returns the page's label layout.
func (p *LabelPage) Kind() label.Kind { return p.kind }

// Reset implements Page.Reset.
func (p *LabelPage) Reset() {
	p.content = p.placeholder
}

// Populate fills the page for a known tag.
func (p *LabelPage) Populate(name, comment string) {
	p.content.Name = name
	p.content.Comment = comment
}

// SetText sets the free text of a general label.
func (p *LabelPage) SetText(text string) {
	p.content.Text = text
}

// Content returns what the page currently shows.
func (p *LabelPage) Content() label.Content {
	return p.content
}

// Preview implements Page.Preview.
func (p *LabelPage) Preview() (image.Image, error) {
	return p.renderer.Render(p.kind, p.content)
}

// Print implements Page.Print.
func (p *LabelPage) Print() error {
	img, err := p.Preview()
	if err != nil {
		return err
	}
	if p.printer == nil {
		return fmt.Errorf("print %s: no printer", p.name)
	}
	if err := p.printer.Print(img); err != nil {
		return fmt.Errorf("print %s: %w", p.name, err)
	}
	p.log.Info("printed", "kind", p.kind, "label", p.content.Name)
	return nil
}

// EditPage is the form for enrolling or editing a tag record.
type EditPage struct {
	store    store.Store
	renderer *label.Renderer

	tag     tag.Tag
	name    string
	comment string
}

// NewEditPage creates the edit page. s may be nil, in which case Save fails.
func NewEditPage(s store.Store, r *label.Renderer) *EditPage {
	return &EditPage{store: s, renderer: r}
}

// Name implements Page.Name.
func (p *EditPage) Name() string { return "Edit Tag" }

// Reset implements Page.Reset.
func (p *EditPage) Reset() {
	p.tag = tag.Tag{}
	p.name = ""
	p.comment = ""
}

// Populate fills the form.
func (p *EditPage) Populate(t tag.Tag, name, comment string) {
	p.tag = t
	p.name = name
	p.comment = comment
}

// Fields returns the form contents.
func (p *EditPage) Fields() (t tag.Tag, name, comment string) {
	return p.tag, p.name, p.comment
}

// Save writes the form to the store.
func (p *EditPage) Save() error {
	if p.store == nil {
		return fmt.Errorf("save: no database")
	}
	if p.tag.IsZero() {
		return fmt.Errorf("save: no tag on form")
	}
	return p.store.Upsert(store.Record{Tag: p.tag, Name: p.name, Comment: p.comment})
}

// Print implements Page.Print. The edit page has nothing to print.
func (p *EditPage) Print() error { return nil }

// Preview implements Page.Preview, showing the form as a general label.
func (p *EditPage) Preview() (image.Image, error) {
	text := fmt.Sprintf("%s\n%s\n%s", p.tag, p.name, p.comment)
	return p.renderer.Render(label.General, label.Content{Text: text})
}
