// Package label renders the kiosk's label layouts and sends them to a printer.
package label

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/fogleman/gg"
)

// Kind identifies a label layout.
type Kind int

const (
	Badge   Kind = iota // name badge
	Storage             // storage pass with a keep-until date
	General             // free text
)

func (k Kind) String() string {
	switch k {
	case Badge:
		return "badge"
	case Storage:
		return "storage"
	case General:
		return "general"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a layout name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "badge", "name":
		return Badge, nil
	case "storage", "trove":
		return Storage, nil
	case "general":
		return General, nil
	default:
		return 0, fmt.Errorf("unknown label kind %q", s)
	}
}

// Content is what gets drawn on a label.
type Content struct {
	Name    string
	Comment string
	Text    string // general label body
}

// Config holds label geometry and rendering settings.
type Config struct {
	Lines        int    `yaml:"lines"`          // label length in print lines
	BytesPerLine int    `yaml:"bytes_per_line"` // print head width in bytes (8 dots each)
	Font         string `yaml:"font"`           // TrueType font path
	StorageDays  int    `yaml:"storage_days"`   // days a storage pass is valid
	Notice       string `yaml:"notice"`         // small print on the storage pass
}

// Defaults for a Dymo LabelWriter 450 with 89x36mm labels.
const (
	DefaultLines        = 960
	DefaultBytesPerLine = 38
	DefaultFont         = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
	DefaultStorageDays  = 3
	DefaultNotice       = "Items may be discarded and disposal charges may be incurred if items are left after specified date."
)

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.Lines == 0 {
		c.Lines = DefaultLines
	}
	if c.BytesPerLine == 0 {
		c.BytesPerLine = DefaultBytesPerLine
	}
	if c.Font == "" {
		c.Font = DefaultFont
	}
	if c.StorageDays == 0 {
		c.StorageDays = DefaultStorageDays
	}
	if c.Notice == "" {
		c.Notice = DefaultNotice
	}
	return c
}

// Renderer draws label layouts. Labels are drawn landscape: the image width is
// the label length and the height is the print head width.
type Renderer struct {
	cfg Config
	now func() time.Time
	log *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg Config) *Renderer {
	return &Renderer{
		cfg: cfg.WithDefaults(),
		now: time.Now,
		log: slog.Default().With("component", "label"),
	}
}

// Size returns the label image dimensions.
func (r *Renderer) Size() (width, height int) {
	return r.cfg.Lines, r.cfg.BytesPerLine * 8
}

// Render draws the layout for kind.
func (r *Renderer) Render(kind Kind, c Content) (image.Image, error) {
	w, h := r.Size()
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)

	switch kind {
	case Badge:
		r.drawBadge(dc, c)
	case Storage:
		r.drawStorage(dc, c)
	case General:
		r.drawGeneral(dc, c)
	default:
		return nil, fmt.Errorf("render: unknown kind %v", kind)
	}
	return dc.Image(), nil
}

func (r *Renderer) setFontSize(dc *gg.Context, size float64) {
	// gg keeps its built-in face if the font is missing, so the label still renders.
	if err := dc.LoadFontFace(r.cfg.Font, size); err != nil {
		r.log.Debug("load font", "font", r.cfg.Font, "error", err)
	}
}

func (r *Renderer) drawBorder(dc *gg.Context) {
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetLineWidth(2)
	dc.DrawRectangle(10, 10, w-20, h-20)
	dc.Stroke()
}

func (r *Renderer) drawBadge(dc *gg.Context, c Content) {
	w, h := float64(dc.Width()), float64(dc.Height())
	r.drawBorder(dc)

	r.setFontSize(dc, 96)
	dc.DrawStringAnchored(c.Name, w/2, h*0.4, 0.5, 0.5)

	if c.Comment != "" {
		r.setFontSize(dc, 48)
		dc.DrawStringAnchored(c.Comment, w/2, h*0.75, 0.5, 0.5)
	}
}

func (r *Renderer) drawStorage(dc *gg.Context, c Content) {
	w, h := float64(dc.Width()), float64(dc.Height())
	r.drawBorder(dc)

	now := r.now()
	until := now.AddDate(0, 0, r.cfg.StorageDays).Format("Mon, 02-Jan-06")
	leftOn := now.Format("Mon, 02-Jan-2006 03:04 PM")

	r.setFontSize(dc, 48)
	dc.DrawStringAnchored(c.Name, w/2, 60, 0.5, 0.5)
	if c.Comment != "" {
		r.setFontSize(dc, 32)
		dc.DrawStringAnchored(c.Comment, w/2, 110, 0.5, 0.5)
	}

	r.setFontSize(dc, 72)
	dc.DrawStringAnchored(until, w/2, 170, 0.5, 0.5)

	r.setFontSize(dc, 24)
	dc.DrawStringAnchored(fmt.Sprintf("Left on: %s", leftOn), w/2, 225, 0.5, 0.5)

	r.setFontSize(dc, 18)
	dc.DrawStringWrapped(r.cfg.Notice, w/2, h-32, 0.5, 0.5, w*0.75, 1.2, gg.AlignCenter)
}

func (r *Renderer) drawGeneral(dc *gg.Context, c Content) {
	w, h := float64(dc.Width()), float64(dc.Height())
	r.drawBorder(dc)

	text := c.Text
	if text == "" {
		text = c.Name
	}
	r.setFontSize(dc, 64)
	dc.DrawStringWrapped(text, w/2, h/2, 0.5, 0.5, w-60, 1.2, gg.AlignCenter)
}
