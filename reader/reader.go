// Package reader talks to the RFID tag reader hardware.
package reader

import (
	"errors"
	"fmt"
	"time"

	"badger/tag"
)

// ErrNoDevice is returned by New when no reader device is configured.
var ErrNoDevice = errors.New("no reader device configured")

// Source is the interface for all tag reader implementations.
// Implementations must not block for longer than their read timeout.
type Source interface {
	// ReadTag returns the tag currently on the reader, or the zero Tag if none.
	ReadTag() (tag.Tag, error)

	// ReadButtons returns the code of the buttons currently held.
	ReadButtons() (int, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Config holds common configuration for reader implementations.
type Config struct {
	Type          string `yaml:"type"`            // "query", "frame", "keyboard", "none"
	Device        string `yaml:"device"`          // e.g. "/dev/ttyACM0", "/dev/input/event0"
	Baud          int    `yaml:"baud"`            // baud rate for serial devices
	ReadTimeoutMs int    `yaml:"read_timeout_ms"` // serial read timeout
	Format        string `yaml:"format"`          // keyboard digits, e.g. "8h", "10d"
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeoutMs == 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// New creates a Source based on the provided configuration.
func New(cfg Config) (Source, error) {
	if cfg.Type == "none" {
		return &Noop{}, nil
	}
	if cfg.Device == "" {
		return nil, ErrNoDevice
	}

	var (
		src Source
		err error
	)
	switch cfg.Type {
	case "query", "":
		src, err = OpenQuery(cfg.Device, cfg.Baud, cfg.readTimeout())
	case "frame":
		src, err = OpenFrame(cfg.Device, cfg.Baud, cfg.readTimeout())
	case "keyboard":
		src, err = OpenKeyboard(cfg.Device, cfg.Format)
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Noop implements Source but never sees a tag.
// Used when no reader is configured or it could not be opened.
type Noop struct{}

// ReadTag implements Source.ReadTag.
func (n *Noop) ReadTag() (tag.Tag, error) { return tag.Tag{}, nil }

// ReadButtons implements Source.ReadButtons.
func (n *Noop) ReadButtons() (int, error) { return 0, nil }

// Close implements Source.Close.
func (n *Noop) Close() error { return nil }
