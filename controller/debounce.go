package controller

import (
	"log/slog"

	"badger/reader"
	"badger/tag"
)

// Event is one debounced tap: a tag that has just been placed on the reader
// and the buttons held at that moment.
type Event struct {
	Tag    tag.Tag
	Button tag.Button
}

// Debouncer turns the reader's level signal ("a tag is present") into
// one Event per placement.
//
// A tag must be seen absent before the same tag can fire again. A
// removal and replacement faster than the poll cadence looks like
// continuous presence and does not fire.
type Debouncer struct {
	src     reader.Source
	last    tag.Tag
	failing bool
	log     *slog.Logger
}

// NewDebouncer creates a Debouncer. src may be nil, in which case Poll never fires.
func NewDebouncer(src reader.Source) *Debouncer {
	return &Debouncer{
		src: src,
		log: slog.Default().With("component", "debounce"),
	}
}

// Poll reads the source once and reports a newly placed tag.
func (d *Debouncer) Poll() (Event, bool) {
	if d.src == nil {
		return Event{}, false
	}

	t, err := d.src.ReadTag()
	if err != nil {
		if !d.failing {
			d.log.Warn("read tag", "error", err)
			d.failing = true
		}
		d.last = tag.Tag{}
		return Event{}, false
	}
	if d.failing {
		d.log.Info("reader recovered")
		d.failing = false
	}

	if t.IsZero() {
		d.last = tag.Tag{}
		return Event{}, false
	}
	if t == d.last {
		return Event{}, false
	}

	d.last = t
	return Event{Tag: t, Button: d.readButtons()}, true
}

func (d *Debouncer) readButtons() tag.Button {
	b, err := d.src.ReadButtons()
	if err != nil {
		d.log.Warn("read buttons", "error", err)
		return tag.Unknown
	}
	return tag.Button(b)
}

// Holding reports whether a tag is currently resting on the reader.
func (d *Debouncer) Holding() bool {
	return !d.last.IsZero()
}
