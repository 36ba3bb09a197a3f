package controller

import (
	"errors"
	"log/slog"
	"time"

	"badger/page"
	"badger/store"
	"badger/tag"
)

// Action names what a dispatch did.
type Action string

const (
	ActionGeneral      Action = "general"       // sentinel tag, general page shown
	ActionIgnored      Action = "ignored"       // no database, nothing to do
	ActionEnrol        Action = "enrol"         // unknown tag, edit form pre-filled
	ActionPrint        Action = "print"         // badge printed
	ActionEdit         Action = "edit"          // record opened for editing
	ActionStorage      Action = "storage"       // storage label shown
	ActionErase        Action = "erase"         // record deleted
	ActionEraseFailed  Action = "erase_failed"  // delete failed, pages left alone
	ActionLookupFailed Action = "lookup_failed" // store error other than not-found
	ActionNone         Action = "none"          // unassigned button code
	ActionSaved        Action = "saved"         // edit form written to the store
)

// Outcome reports the result of one dispatch.
type Outcome struct {
	Tag    tag.Tag
	Button tag.Button
	Action Action
	Name   string
	Err    error
}

// Notifier is told about every interaction.
type Notifier interface {
	Notify(now time.Time)
}

// State is the router's dispatch state.
type State int

const (
	StateIdle State = iota
	StateDispatching
)

// Router decides what each tap does: which page to show, what to print and
// what to change in the store.
type Router struct {
	book  *page.Book
	store store.Store
	idle  Notifier
	now   func() time.Time
	log   *slog.Logger
	state State
}

// NewRouter creates a Router. s may be nil, in which case only the general
// tag does anything.
func NewRouter(book *page.Book, s store.Store, idle Notifier) *Router {
	return &Router{
		book:  book,
		store: s,
		idle:  idle,
		now:   time.Now,
		log:   slog.Default().With("component", "router"),
	}
}

// Dispatch handles one debounced tap and returns what it did.
func (r *Router) Dispatch(evt Event) Outcome {
	out := Outcome{Tag: evt.Tag, Button: evt.Button}
	if r.state == StateDispatching {
		// A page callback tried to dispatch from inside a dispatch.
		r.log.Warn("dispatch while dispatching, dropped", "tag", evt.Tag)
		out.Action = ActionNone
		return out
	}
	r.state = StateDispatching
	defer func() { r.state = StateIdle }()

	// Every tap starts from clean pages.
	r.book.ResetAll()
	if r.idle != nil {
		r.idle.Notify(r.now())
	}
	r.log.Info("tag", "tag", evt.Tag, "buttons", evt.Button)

	if evt.Tag == tag.General {
		r.book.Select(r.book.General)
		out.Action = ActionGeneral
		return out
	}

	if r.store == nil {
		out.Action = ActionIgnored
		return out
	}

	rec, err := r.store.Lookup(evt.Tag)
	if errors.Is(err, store.ErrNotFound) {
		r.log.Info("tag not in database, enrol it", "tag", evt.Tag)
		r.showPlaceholder(evt.Tag)
		out.Action = ActionEnrol
		return out
	}
	if err != nil {
		r.log.Error("lookup", "tag", evt.Tag, "error", err)
		out.Action = ActionLookupFailed
		out.Err = err
		return out
	}
	out.Name = rec.Name

	// The badge page is filled on every branch so switching to it later
	// shows the right name without another read.
	switch evt.Button {
	case tag.Print:
		r.book.Badge.Populate(rec.Name, rec.Comment)
		r.book.Storage.Populate(rec.Name, rec.Comment)
		r.book.Select(r.book.Badge)
		out.Action = ActionPrint
		if err := r.book.Badge.Print(); err != nil {
			r.log.Error("print badge", "tag", evt.Tag, "error", err)
			out.Err = err
		}

	case tag.Edit:
		r.book.Edit.Populate(evt.Tag, rec.Name, rec.Comment)
		r.book.Badge.Populate(rec.Name, rec.Comment)
		r.book.Select(r.book.Edit)
		out.Action = ActionEdit

	case tag.Storage:
		r.book.Storage.Populate(rec.Name, rec.Comment)
		r.book.Badge.Populate(rec.Name, rec.Comment)
		r.book.Select(r.book.Storage)
		out.Action = ActionStorage

	case tag.Erase:
		if err := r.store.Delete(evt.Tag); err != nil {
			r.log.Error("erase", "tag", evt.Tag, "error", err)
			out.Action = ActionEraseFailed
			out.Err = err
			return out
		}
		r.log.Info("erased", "tag", evt.Tag, "name", rec.Name)
		r.showPlaceholder(evt.Tag)
		out.Action = ActionErase

	default:
		r.log.Warn("unassigned button code", "tag", evt.Tag, "buttons", evt.Button)
		out.Action = ActionNone
	}
	return out
}

// State returns the current dispatch state.
func (r *Router) State() State {
	return r.state
}

func (r *Router) showPlaceholder(t tag.Tag) {
	r.book.Edit.Populate(t, page.PlaceholderName, page.PlaceholderComment)
	r.book.Select(r.book.Edit)
}
