package reader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kenshaw/evdev"

	"badger/tag"
)

// KeyFormat describes what a keyboard reader types: a digit count and a base.
type KeyFormat struct {
	Digits  int // 0 accepts any length
	Decimal bool
}

// ParseKeyFormat parses formats such as "8h", "10d" or "10". A bare count
// is decimal; an empty string means hex of any length.
func ParseKeyFormat(s string) (KeyFormat, error) {
	orig := s
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "h" {
		return KeyFormat{}, nil
	}

	var kf KeyFormat
	switch {
	case strings.HasSuffix(s, "h"):
		s = strings.TrimSuffix(s, "h")
	case strings.HasSuffix(s, "d"):
		s = strings.TrimSuffix(s, "d")
		kf.Decimal = true
	default:
		kf.Decimal = true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return KeyFormat{}, fmt.Errorf("bad keyboard format %q", orig)
	}
	kf.Digits = n
	return kf, nil
}

// Parse converts one typed line into a tag. Decimal ids become 4-byte tags.
func (kf KeyFormat) Parse(line string) (tag.Tag, error) {
	if kf.Digits > 0 && len(line) != kf.Digits {
		return tag.Tag{}, fmt.Errorf("expected %d digits, got %d", kf.Digits, len(line))
	}
	if !kf.Decimal {
		return tag.Parse(line)
	}
	n, err := strconv.ParseUint(line, 10, 64)
	if err != nil {
		return tag.Tag{}, fmt.Errorf("decode tag %q: %w", line, err)
	}
	return tag.FromUint32(uint32(n & 0xffffffff)), nil
}

func (kf KeyFormat) String() string {
	base := "h"
	if kf.Decimal {
		base = "d"
	}
	if kf.Digits == 0 {
		return "any" + base
	}
	return strconv.Itoa(kf.Digits) + base
}

// Keyboard implements Source for USB keyboard-style RFID readers that type
// the tag id followed by Enter, as hex or decimal digits per its KeyFormat.
//
// Such readers report a tap, not presence: a typed tag reads as present for
// exactly one poll and absent afterwards. They have no buttons.
type Keyboard struct {
	device *evdev.Evdev
	format KeyFormat
	taps   chan tag.Tag
	cancel context.CancelFunc
	log    *slog.Logger
}

// OpenKeyboard opens a keyboard reader on the specified input device.
func OpenKeyboard(device, format string) (*Keyboard, error) {
	kf, err := ParseKeyFormat(format)
	if err != nil {
		return nil, err
	}
	dev, err := evdev.OpenFile(device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", device, err)
	}

	k := &Keyboard{
		device: dev,
		format: kf,
		taps:   make(chan tag.Tag, 1),
		log:    slog.Default().With("component", "reader", "device", device),
	}
	k.log.Info("opened keyboard device", "name", dev.Name(), "format", kf,
		"vendor", fmt.Sprintf("0x%04x", dev.ID().Vendor),
		"product", fmt.Sprintf("0x%04x", dev.ID().Product))

	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel
	go k.listen(ctx)
	return k, nil
}

func (k *Keyboard) listen(ctx context.Context) {
	ch := k.device.Poll(ctx)
	var line strings.Builder

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if event == nil {
				k.log.Warn("keyboard device closed")
				return
			}
			if _, ok := event.Type.(evdev.KeyType); !ok || event.Value != 1 {
				continue
			}

			if event.Type == evdev.KeyEnter {
				k.submit(line.String())
				line.Reset()
				continue
			}
			line.WriteString(evdev.KeyType(event.Code).String())
		}
	}
}

// submit parses a typed line and offers it to the next poll. An unread tap
// is replaced by the newer one.
func (k *Keyboard) submit(s string) {
	if s == "" {
		return
	}
	t, err := k.format.Parse(s)
	if err != nil {
		k.log.Warn("bad badge line", "line", s, "error", err)
		return
	}

	select {
	case <-k.taps:
	default:
	}
	k.taps <- t
}

// ReadTag implements Source.ReadTag.
func (k *Keyboard) ReadTag() (tag.Tag, error) {
	select {
	case t := <-k.taps:
		return t, nil
	default:
		return tag.Tag{}, nil
	}
}

// ReadButtons implements Source.ReadButtons.
func (k *Keyboard) ReadButtons() (int, error) {
	return 0, nil
}

// Close implements Source.Close.
func (k *Keyboard) Close() error {
	if k.cancel != nil {
		k.cancel()
	}
	if k.device == nil {
		return nil
	}
	return k.device.Close()
}
