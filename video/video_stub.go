//go:build !screen

package video

import "image"

// ScreenSupported returns whether screen support is compiled in.
func ScreenSupported() bool {
	return false
}

// Display is a stub when screen support is not compiled in.
type Display struct{}

// New returns an error when screen support is not compiled in.
func New(cfg Config) (*Display, error) {
	return nil, ErrScreenNotCompiled
}

func (d *Display) Show(img image.Image) error          { return ErrScreenNotCompiled }
func (d *Display) Message(text string, r, g, b float64) {}
func (d *Display) Clear()                               {}
func (d *Display) Release() error                       { return nil }
func (d *Display) Width() int                           { return 0 }
func (d *Display) Height() int                          { return 0 }
