package controller

import (
	"errors"
	"testing"

	"badger/tag"
)

func countEvents(d *Debouncer, polls int) []Event {
	var out []Event
	for i := 0; i < polls; i++ {
		if evt, ok := d.Poll(); ok {
			out = append(out, evt)
		}
	}
	return out
}

func TestDebounceSameTagFiresOnce(t *testing.T) {
	a := tag.MustParse("11223344")
	src := &scriptSource{tags: []tag.Tag{a, a, a, a, a}, buttons: 2}
	d := NewDebouncer(src)

	events := countEvents(d, 5)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Tag != a || events[0].Button != tag.Storage {
		t.Errorf("Unexpected event %+v", events[0])
	}
	if src.btnRead != 1 {
		t.Errorf("Buttons should be read once per event, read %d times", src.btnRead)
	}
	if !d.Holding() {
		t.Error("Expected debouncer to be holding the tag")
	}
}

func TestDebounceAbsenceRearms(t *testing.T) {
	a := tag.MustParse("11223344")
	src := &scriptSource{tags: []tag.Tag{a, a, {}, a}}
	d := NewDebouncer(src)

	if events := countEvents(d, 4); len(events) != 2 {
		t.Errorf("Expected 2 events with an intervening absence, got %d", len(events))
	}
}

func TestDebounceDifferentTags(t *testing.T) {
	a := tag.MustParse("11223344")
	b := tag.MustParse("aabbccdd")
	src := &scriptSource{tags: []tag.Tag{a, b, b, a}}
	d := NewDebouncer(src)

	events := countEvents(d, 4)
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[1].Tag != b || events[2].Tag != a {
		t.Errorf("Unexpected events %+v", events)
	}
}

func TestDebounceReadErrorIsAbsence(t *testing.T) {
	a := tag.MustParse("11223344")
	src := &scriptSource{
		tags: []tag.Tag{a, {}, {}, a},
		errs: []error{nil, errors.New("unplugged"), errors.New("unplugged"), nil},
	}
	d := NewDebouncer(src)

	if events := countEvents(d, 4); len(events) != 2 {
		t.Errorf("Expected read errors to re-arm like absence, got %d events", len(events))
	}
	if d.failing {
		t.Error("Expected recovery after a good read")
	}
}

func TestDebounceNilSource(t *testing.T) {
	d := NewDebouncer(nil)
	if events := countEvents(d, 10); len(events) != 0 {
		t.Errorf("Nil source should never fire, got %d", len(events))
	}
	if d.Holding() {
		t.Error("Nil source should never hold")
	}
}
