package label

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Printer is the interface for all label output implementations.
type Printer interface {
	// Print outputs one label.
	Print(img image.Image) error
}

// PrinterConfig holds configuration for printer implementations.
type PrinterConfig struct {
	Type   string `yaml:"type"`   // "d450", "display", "display_r90", "png"
	Device string `yaml:"device"` // lp device for d450, e.g. "/dev/usb/lp0"
	Dir    string `yaml:"dir"`    // output directory for png
}

// Display is anything that can show an image, e.g. the framebuffer.
type Display interface {
	Show(img image.Image) error
}

// NewPrinter creates a Printer based on the provided configuration.
// disp may be nil when no screen is available; display types then fall back to png.
func NewPrinter(cfg PrinterConfig, disp Display) (Printer, error) {
	switch cfg.Type {
	case "d450", "dymo":
		device := cfg.Device
		if device == "" {
			device = "/dev/usb/lp0"
		}
		return &Dymo{Device: device}, nil
	case "display", "display_r90":
		var p Printer
		if disp != nil {
			p = &Screen{Display: disp}
		} else {
			slog.Warn("no display available, printing to png", "dir", pngDir(cfg))
			p = &PNGDir{Dir: pngDir(cfg)}
		}
		if cfg.Type == "display_r90" {
			p = &Rotate{Printer: p}
		}
		return p, nil
	case "png", "":
		return &PNGDir{Dir: pngDir(cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown printer type %q", cfg.Type)
	}
}

func pngDir(cfg PrinterConfig) string {
	if cfg.Dir == "" {
		return "labels"
	}
	return cfg.Dir
}

// Dymo prints on a Dymo LabelWriter through its USB line printer device.
type Dymo struct {
	Device string
}

// Print implements Printer.Print.
func (d *Dymo) Print(img image.Image) error {
	f, err := os.OpenFile(d.Device, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open printer %s: %w", d.Device, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := EncodeDymo(w, img); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write printer %s: %w", d.Device, err)
	}
	return nil
}

// EncodeDymo writes img in the LabelWriter raster format. Each image column
// is one print line; rows are packed bottom-up, eight dots per byte, LSB first.
// The image height should be a multiple of 8.
func EncodeDymo(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bpl := b.Dy() / 8
	lines := b.Dx()

	if bpl == 0 || bpl > 255 {
		return fmt.Errorf("encode dymo: bad head width %d bytes", bpl)
	}

	header := []byte{
		0x1b, 'D', byte(bpl), // bytes per line
		0x1b, 'L', byte(lines >> 8), byte(lines), // label length
	}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("encode dymo: %w", err)
	}

	line := make([]byte, 1+bpl)
	line[0] = 0x16
	for x := b.Min.X; x < b.Max.X; x++ {
		for i := 0; i < bpl; i++ {
			var data byte
			for bit := 0; bit < 8; bit++ {
				y := b.Max.Y - 1 - (i*8 + bit)
				r, g, bl, _ := img.At(x, y).RGBA()
				if (r+g+bl)/3 <= 0x8000 {
					data |= 1 << bit
				}
			}
			line[1+i] = data
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("encode dymo: %w", err)
		}
	}

	if _, err := w.Write([]byte{0x1b, 'E'}); err != nil { // form feed
		return fmt.Errorf("encode dymo: %w", err)
	}
	return nil
}

// PNGDir writes each label to a timestamped PNG file.
type PNGDir struct {
	Dir string
	now func() time.Time
}

// Print implements Printer.Print.
func (p *PNGDir) Print(img image.Image) error {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return fmt.Errorf("create label dir: %w", err)
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}
	name := filepath.Join(p.Dir, fmt.Sprintf("label-%s.png", now().Format("20060102-150405.000")))
	return WritePNG(name, img)
}

// WritePNG saves img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// Screen shows labels on a Display instead of printing them.
type Screen struct {
	Display Display
}

// Print implements Printer.Print.
func (s *Screen) Print(img image.Image) error {
	return s.Display.Show(img)
}

// Rotate turns labels 90° clockwise before passing them on.
type Rotate struct {
	Printer Printer
}

// Print implements Printer.Print.
func (r *Rotate) Print(img image.Image) error {
	return r.Printer.Print(Rotate90(img))
}

// Rotate90 returns img rotated 90° clockwise.
func Rotate90(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))

	// src→dst: dx = h - sy, dy = sx
	h := float64(b.Dy())
	s2d := f64.Aff3{
		0, -1, h + float64(b.Min.Y),
		1, 0, -float64(b.Min.X),
	}
	draw.NearestNeighbor.Transform(dst, s2d, img, b, draw.Src, nil)
	return dst
}
