package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"badger/console"
	"badger/controller"
	"badger/directory"
	"badger/eventpipe"
	"badger/indicator"
	"badger/label"
	"badger/mqtt"
	"badger/page"
	"badger/reader"
	"badger/rotary"
	"badger/store"
	"badger/video"
)

// App holds the application state and dependencies.
type App struct {
	cfg       *Config
	mqtt      *mqtt.Client
	source    reader.Source
	store     store.Store
	indicator indicator.Indicator
	display   *video.Display
	rotary    *rotary.Rotary
	pipe      *eventpipe.EventPipe
	directory *directory.Client
	book      *page.Book
	ctrl      *controller.Controller
	remote    *remote
	ui        *tea.Program
	last      string // last outcome, for the console
	ctx       context.Context
	log       *slog.Logger

	indMu sync.Mutex
}

func runKiosk(cmd *cobra.Command, args []string) error {
	if cfg.ClientID == "" {
		return errors.New("client_id missing in config file")
	}
	slog.Info("badger starting", "build", myBuild, "client_id", cfg.ClientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(ctx, cfg)
	defer app.shutdown()

	return app.run(ctx)
}

func (app *App) run(ctx context.Context) error {
	err := app.ctrl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newApp opens every device. Missing or broken hardware is logged and
// replaced by a no-op so the kiosk still starts.
func newApp(ctx context.Context, cfg *Config) *App {
	app := &App{
		cfg:    cfg,
		ctx:    ctx,
		log:    slog.Default().With("component", "app"),
		remote: newRemote(cfg.ClientID, cfg.ControlSecret),
	}

	var err error
	app.indicator, err = indicator.New(cfg.Indicator)
	if err != nil {
		app.log.Error("indicator unavailable", "error", err)
		app.indicator = &indicator.Noop{}
	}
	app.show(indicator.Offline)

	if cfg.VideoEnabled {
		if !video.ScreenSupported() {
			app.log.Error("video enabled but screen support not compiled in")
		} else if app.display, err = video.New(cfg.Video); err != nil {
			app.log.Error("display unavailable", "error", err)
			app.display = nil
		} else {
			app.display.Message("Starting", 0.5, 0.3, 0)
		}
	}

	// A nil *video.Display must not become a non-nil label.Display.
	var disp label.Display
	if app.display != nil {
		disp = app.display
	}
	printer, err := label.NewPrinter(cfg.Printer, disp)
	if err != nil {
		app.log.Error("printer unavailable, writing png files", "error", err)
		printer = &label.PNGDir{Dir: "labels"}
	}

	app.store, err = store.New(cfg.Store)
	if err != nil {
		app.log.Error("store unavailable", "path", cfg.Store.Path, "error", err)
		app.store = nil
	}

	app.source, err = reader.New(cfg.Reader)
	if err != nil {
		app.log.Error("reader unavailable", "device", cfg.Reader.Device, "error", err)
		app.source = &reader.Noop{}
	}

	app.book = newBook(cfg, printer, app.store)
	if app.display != nil {
		app.book.OnSelect(app.preview)
	}

	app.ctrl = controller.New(cfg.Controller, app.book, app.source, app.store, controller.Hooks{
		OnOutcome: app.onOutcome,
		OnIdle:    app.onIdle,
		OnChange:  app.onChange,
	})

	app.directory, err = directory.New(cfg.Directory)
	if err != nil {
		app.log.Error("directory unavailable", "error", err)
	}

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnMessage:    app.onMQTTMessage,
	})
	if err != nil {
		app.log.Error("mqtt unavailable", "error", err)
		app.mqtt, _ = mqtt.New(mqtt.Config{}, cfg.ClientID, mqtt.Handlers{OnConnect: app.onMQTTConnect})
	}

	app.pipe, err = eventpipe.New(cfg.EventPipe, app.submit)
	if err != nil {
		app.log.Error("event pipe unavailable", "error", err)
	}

	app.rotary, err = rotary.New(cfg.Rotary, rotary.Handlers{
		OnTurn: func(delta int) {
			if delta > 0 {
				app.submit(controller.Command{Type: controller.CmdNextPage})
			} else {
				app.submit(controller.Command{Type: controller.CmdPrevPage})
			}
		},
		OnPress: func() { app.submit(controller.Command{Type: controller.CmdPrint}) },
	})
	if err != nil {
		app.log.Error("rotary unavailable", "error", err)
	}

	go func() {
		if err := app.mqtt.Connect(); err != nil {
			app.log.Error("mqtt connect", "error", err)
		}
	}()
	if app.pipe != nil {
		go app.pipe.Start()
	}
	go app.pingSender()

	return app
}

// newBook builds the kiosk's pages in tab order.
func newBook(cfg *Config, p label.Printer, s store.Store) *page.Book {
	r := label.NewRenderer(cfg.Label)
	general := page.NewLabelPage("General Label", label.General, r, p)
	general.SetPlaceholder(label.Content{Text: cfg.GeneralText})

	b := page.NewBook(
		page.NewLabelPage("Name Badge", label.Badge, r, p),
		page.NewLabelPage("Storage Label", label.Storage, r, p),
		general,
		page.NewEditPage(s, r),
	)
	b.ResetAll()
	return b
}

func (app *App) shutdown() {
	app.log.Info("shutting down")
	app.show(indicator.Shutdown)

	if app.pipe != nil {
		app.pipe.Close()
	}
	if app.rotary != nil {
		app.rotary.Release()
	}
	app.mqtt.Disconnect()
	app.source.Close()
	if app.store != nil {
		app.store.Close()
	}
	app.indicator.Release()
	if app.display != nil {
		app.display.Message("Shutting down", 0.3, 0.3, 0.3)
		app.display.Release()
	}
	app.log.Info("shutdown complete")
}

// submit hands cmd to the controller loop.
func (app *App) submit(cmd controller.Command) {
	if err := app.ctrl.Submit(app.ctx, cmd); err != nil {
		app.log.Warn("command dropped", "type", cmd.Type, "error", err)
	}
}

func (app *App) show(s indicator.State) {
	app.indMu.Lock()
	defer app.indMu.Unlock()
	app.indicator.Show(s)
}

func (app *App) preview(p page.Page) {
	img, err := p.Preview()
	if err != nil {
		app.log.Warn("preview", "page", p.Name(), "error", err)
		return
	}
	if err := app.display.Show(img); err != nil {
		app.log.Warn("show preview", "page", p.Name(), "error", err)
	}
}

// onOutcome runs on the controller loop after every dispatch or save.
func (app *App) onOutcome(out controller.Outcome) {
	app.last = summarize(out)
	app.show(stateFor(out))
	if app.display != nil {
		app.preview(app.book.Selected())
	}

	if err := app.mqtt.PublishJSON(mqtt.StatusTopic(app.cfg.ClientID, "tag"), newTagEvent(out, time.Now())); err != nil {
		app.log.Error("publish outcome", "error", err)
	}
}

// onChange runs on the controller loop whenever the pages may have changed.
func (app *App) onChange() {
	if app.ui != nil {
		app.ui.Send(console.SnapshotMsg(console.Take(app.book, app.last)))
	}
}

func summarize(out controller.Outcome) string {
	s := string(out.Action)
	if !out.Tag.IsZero() {
		s += " " + out.Tag.String()
	}
	if out.Name != "" {
		s += " (" + out.Name + ")"
	}
	if out.Err != nil {
		s += ": " + out.Err.Error()
	}
	return s
}

func (app *App) onIdle() {
	app.show(indicator.Idle)
	if app.display != nil {
		app.preview(app.book.Selected())
	}
}

// stateFor picks the indicator state that reports out.
func stateFor(out controller.Outcome) indicator.State {
	switch {
	case out.Err != nil:
		return indicator.Fault
	case out.Action == controller.ActionIgnored:
		return indicator.Fault
	case out.Action == controller.ActionEnrol:
		return indicator.Attention
	case out.Action == controller.ActionNone:
		return indicator.Idle
	default:
		return indicator.Busy
	}
}

// tagEvent is the JSON published for every outcome.
type tagEvent struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Tag    string    `json:"tag"`
	Button int       `json:"button"`
	Action string    `json:"action"`
	Name   string    `json:"name,omitempty"`
	Error  string    `json:"error,omitempty"`
}

func newTagEvent(out controller.Outcome, now time.Time) tagEvent {
	evt := tagEvent{
		ID:     uuid.NewString(),
		Time:   now.UTC(),
		Tag:    out.Tag.String(),
		Button: int(out.Button),
		Action: string(out.Action),
		Name:   out.Name,
	}
	if out.Err != nil {
		evt.Error = out.Err.Error()
	}
	return evt
}

func (app *App) onMQTTConnect() {
	topics := []string{
		mqtt.ControlTopic(app.cfg.ClientID, "tap"),
		mqtt.ControlTopic(app.cfg.ClientID, "record"),
		mqtt.ControlTopic(app.cfg.ClientID, "print"),
		mqtt.BroadcastTopic("directory/update"),
	}
	for _, t := range topics {
		if err := app.mqtt.Subscribe(t); err != nil {
			app.log.Error("subscribe", "topic", t, "error", err)
		}
	}
	app.show(indicator.Idle)
}

func (app *App) onMQTTDisconnect() {
	app.show(indicator.Offline)
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	if topic == mqtt.BroadcastTopic("directory/update") {
		go app.syncDirectory()
		return
	}

	cmd, err := app.remote.parse(topic, payload)
	if err != nil {
		app.log.Warn("rejected control message", "topic", topic, "error", err)
		return
	}
	app.submit(cmd)
}

// syncDirectory imports the member list. Stores are safe for use outside
// the controller loop.
func (app *App) syncDirectory() {
	if app.directory == nil || app.store == nil {
		app.log.Warn("directory update ignored, no directory or store configured")
		return
	}
	n, err := app.directory.Sync(app.ctx, app.store)
	if err != nil {
		app.log.Error("directory sync", "error", err)
		return
	}
	app.log.Info("directory synced", "records", n)
	status := struct {
		Status  string `json:"status"`
		Records int    `json:"records"`
	}{"synced", n}
	if err := app.mqtt.PublishJSON(mqtt.StatusTopic(app.cfg.ClientID, "directory"), status); err != nil {
		app.log.Error("publish directory status", "error", err)
	}
}

func (app *App) pingSender() {
	ticker := time.NewTicker(120 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Publish(mqtt.StatusTopic(app.cfg.ClientID, "ping"), []byte(`{"status":"ok"}`))
		}
	}
}
