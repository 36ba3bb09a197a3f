//go:build screen

package video

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/d21d3q/framebuffer"
	"github.com/fogleman/gg"
)

// ScreenSupported returns whether screen support is compiled in.
func ScreenSupported() bool {
	return true
}

// Display draws page previews and status messages on a 16bpp framebuffer.
type Display struct {
	cfg Config
	log *slog.Logger

	mu         sync.Mutex
	pixBuffer  []byte
	backBuffer []byte
	width      int
	height     int
	stride     int
}

// New opens the framebuffer.
func New(cfg Config) (*Display, error) {
	cfg = cfg.WithDefaults()
	fb, err := framebuffer.OpenFrameBuffer(cfg.Device, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("open framebuffer %s: %w", cfg.Device, err)
	}

	varInfo, err := fb.VarScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get variable screen info: %w", err)
	}
	fixedInfo, err := fb.FixScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get fixed screen info: %w", err)
	}
	if varInfo.BitsPerPixel != 16 {
		return nil, fmt.Errorf("framebuffer %s: %d bpp, want 16", cfg.Device, varInfo.BitsPerPixel)
	}

	pix, err := fb.Pixels()
	if err != nil {
		return nil, fmt.Errorf("get pixel data: %w", err)
	}

	d := &Display{
		cfg:       cfg,
		log:       slog.Default().With("component", "video"),
		pixBuffer: pix,
		width:     int(varInfo.XRes),
		height:    int(varInfo.YRes),
		stride:    int(fixedInfo.LineLength),
	}
	d.backBuffer = make([]byte, d.height*d.stride)
	d.log.Info("framebuffer open", "width", d.width, "height", d.height, "stride", d.stride)

	d.Clear()
	return d, nil
}

// Show scales img to the screen and displays it.
func (d *Display) Show(img image.Image) error {
	d.flip(Fit(img, d.width, d.height))
	return nil
}

// Message fills the screen with a background colour and a centered line of text.
func (d *Display) Message(text string, r, g, b float64) {
	dc := gg.NewContext(d.width, d.height)
	dc.SetRGB(r, g, b)
	dc.Clear()
	if err := dc.LoadFontFace(d.cfg.Font, 48); err != nil {
		d.log.Debug("load font", "font", d.cfg.Font, "error", err)
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(text, float64(d.width)/2, float64(d.height)/2, 0.5, 0.5)
	d.flip(dc.Image().(*image.RGBA))
}

// Clear blanks the screen.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pixBuffer {
		d.pixBuffer[i] = 0
	}
}

// Release blanks the screen and drops the framebuffer.
func (d *Display) Release() error {
	d.Clear()
	d.mu.Lock()
	d.pixBuffer = nil
	d.mu.Unlock()
	return nil
}

// Width returns the display width.
func (d *Display) Width() int { return d.width }

// Height returns the display height.
func (d *Display) Height() int { return d.height }

func (d *Display) flip(frame *image.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pixBuffer == nil {
		return
	}
	PackRGB565(d.backBuffer, frame, d.stride)
	copy(d.pixBuffer, d.backBuffer)
}
