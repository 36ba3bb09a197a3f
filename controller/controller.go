// Package controller runs the kiosk's interaction loop: it debounces the tag
// reader, routes taps to pages and store changes, and blanks the pages after
// a period without interaction.
//
// All state is owned by the goroutine running Controller.Run. Other goroutines
// (MQTT, the event pipe, the rotary encoder) talk to it only through Submit.
package controller

import (
	"context"
	"log/slog"
	"time"

	"badger/page"
	"badger/reader"
	"badger/store"
	"badger/tag"
)

// Config holds the loop cadence settings.
type Config struct {
	PollMs      int `yaml:"poll_ms"`       // poll interval with no tag on the reader
	HoldPollMs  int `yaml:"hold_poll_ms"`  // poll interval while a tag rests on the reader
	IdleMs      int `yaml:"idle_ms"`       // quiet period before pages are blanked
	IdleCheckMs int `yaml:"idle_check_ms"` // how often the quiet period is checked
}

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.PollMs == 0 {
		c.PollMs = 300
	}
	if c.HoldPollMs == 0 {
		c.HoldPollMs = 100
	}
	if c.IdleMs == 0 {
		c.IdleMs = 30000
	}
	if c.IdleCheckMs == 0 {
		c.IdleCheckMs = 1000
	}
	return c
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// CommandType identifies a Command.
type CommandType int

const (
	CmdTap        CommandType = iota // simulated tap, dispatched like a reader event
	CmdPrint                         // print the selected page
	CmdNextPage                      // select the next tab
	CmdPrevPage                      // select the previous tab
	CmdSave                          // write a record and show it on the edit page
	CmdSetGeneral                    // set the general label text
	CmdResetAll                      // blank every page
)

// Command is a request from outside the loop.
type Command struct {
	Type    CommandType
	Tag     tag.Tag
	Button  tag.Button
	Name    string
	Comment string
	Text    string
}

// Hooks holds optional callbacks run on the loop goroutine.
type Hooks struct {
	OnOutcome func(Outcome) // after every dispatch or save
	OnIdle    func()        // after the idle reset blanks the pages
	OnChange  func()        // after anything that may have changed the pages
}

// Controller is the kiosk's single-threaded event loop.
type Controller struct {
	cfg      Config
	book     *page.Book
	debounce *Debouncer
	router   *Router
	idle     *IdleTimer
	hooks    Hooks
	cmds     chan Command
	now      func() time.Time
	log      *slog.Logger
}

// New creates a Controller. src and s may be nil when the reader or the
// database is unavailable; the controller then runs in a degraded mode.
func New(cfg Config, book *page.Book, src reader.Source, s store.Store, hooks Hooks) *Controller {
	cfg = cfg.WithDefaults()
	c := &Controller{
		cfg:      cfg,
		book:     book,
		debounce: NewDebouncer(src),
		hooks:    hooks,
		cmds:     make(chan Command, 16),
		now:      time.Now,
		log:      slog.Default().With("component", "controller"),
	}
	c.idle = NewIdleTimer(ms(cfg.IdleMs), c.now(), c.onIdle)
	c.router = NewRouter(book, s, c.idle)

	if src == nil {
		c.log.Warn("no tag reader, taps will not be detected")
	}
	if s == nil {
		c.log.Warn("no database, only the general tag will work")
	}
	return c
}

// Run drives the loop until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("running", "poll", ms(c.cfg.PollMs), "idle", ms(c.cfg.IdleMs))

	// The poll timer is re-armed only after a poll and its dispatch finish,
	// so polls never overlap.
	poll := time.NewTimer(ms(c.cfg.PollMs))
	defer poll.Stop()
	check := time.NewTicker(ms(c.cfg.IdleCheckMs))
	defer check.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			poll.Reset(c.pollOnce())
		case <-check.C:
			c.idle.Check(c.now())
		case cmd := <-c.cmds:
			c.handle(cmd)
		}
	}
}

// Submit queues cmd for the loop. Safe to call from any goroutine.
func (c *Controller) Submit(ctx context.Context, cmd Command) error {
	select {
	case c.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pollOnce reads the reader, dispatches a new tap, and returns the delay
// until the next poll.
func (c *Controller) pollOnce() time.Duration {
	if evt, ok := c.debounce.Poll(); ok {
		c.report(c.router.Dispatch(evt))
		c.changed()
	}
	if c.debounce.Holding() {
		return ms(c.cfg.HoldPollMs)
	}
	return ms(c.cfg.PollMs)
}

func (c *Controller) handle(cmd Command) {
	switch cmd.Type {
	case CmdTap:
		c.report(c.router.Dispatch(Event{Tag: cmd.Tag, Button: cmd.Button}))
		c.changed()
		return

	case CmdPrint:
		if err := c.book.PrintSelected(); err != nil {
			c.log.Error("print", "error", err)
		}

	case CmdNextPage:
		c.book.Next()

	case CmdPrevPage:
		c.book.Prev()

	case CmdSave:
		c.book.Edit.Populate(cmd.Tag, cmd.Name, cmd.Comment)
		c.book.Select(c.book.Edit)
		out := Outcome{Tag: cmd.Tag, Action: ActionSaved, Name: cmd.Name}
		if err := c.book.Edit.Save(); err != nil {
			c.log.Error("save", "tag", cmd.Tag, "error", err)
			out.Err = err
		} else {
			c.log.Info("saved", "tag", cmd.Tag, "name", cmd.Name)
			c.book.Badge.Populate(cmd.Name, cmd.Comment)
		}
		c.report(out)

	case CmdSetGeneral:
		c.book.General.SetText(cmd.Text)
		c.book.Select(c.book.General)

	case CmdResetAll:
		c.book.ResetAll()

	default:
		c.log.Warn("unknown command", "type", cmd.Type)
		return
	}
	c.idle.Notify(c.now())
	c.changed()
}

func (c *Controller) onIdle() {
	c.log.Info("idle, clearing pages")
	c.book.ResetAll()
	if c.hooks.OnIdle != nil {
		c.hooks.OnIdle()
	}
	c.changed()
}

func (c *Controller) changed() {
	if c.hooks.OnChange != nil {
		c.hooks.OnChange()
	}
}

func (c *Controller) report(out Outcome) {
	if c.hooks.OnOutcome != nil {
		c.hooks.OnOutcome(out)
	}
}
