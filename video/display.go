package video

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ErrScreenNotCompiled is returned when screen support was not compiled in.
var ErrScreenNotCompiled = errors.New("screen support not compiled in (build with -tags=screen)")

// Config holds video display configuration.
type Config struct {
	Device string `yaml:"device"` // framebuffer device, default /dev/fb0
	Font   string `yaml:"font"`   // TrueType face for status messages
}

const (
	defaultDevice = "/dev/fb0"
	defaultFont   = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
)

// WithDefaults fills empty fields.
func (c Config) WithDefaults() Config {
	if c.Device == "" {
		c.Device = defaultDevice
	}
	if c.Font == "" {
		c.Font = defaultFont
	}
	return c
}

// Fit scales img to fit inside a w x h frame, keeping its aspect ratio and
// centering it on a black background.
func Fit(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	sb := img.Bounds()
	if sb.Empty() || w == 0 || h == 0 {
		return dst
	}
	sw, sh := sb.Dx(), sb.Dy()
	dw, dh := w, sh*w/sw
	if dh > h {
		dw, dh = sw*h/sh, h
	}
	x0, y0 := (w-dw)/2, (h-dh)/2
	draw.ApproxBiLinear.Scale(dst, image.Rect(x0, y0, x0+dw, y0+dh), img, sb, draw.Over, nil)
	return dst
}

// PackRGB565 writes src into dst as little-endian RGB565 rows of stride bytes.
func PackRGB565(dst []byte, src *image.RGBA, stride int) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := y*stride + x*2
			if i+1 >= len(dst) {
				break
			}
			o := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			r, g, bl := uint16(src.Pix[o]), uint16(src.Pix[o+1]), uint16(src.Pix[o+2])
			binary.LittleEndian.PutUint16(dst[i:], (r>>3)<<11|(g>>2)<<5|bl>>3)
		}
	}
}
