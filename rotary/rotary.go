//go:build linux

package rotary

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Rotary turns encoder edges into page steps and button presses. Handlers
// run on gpiocdev's event goroutines.
type Rotary struct {
	dtLine  *gpiocdev.Line
	clkLine *gpiocdev.Line
	btnLine *gpiocdev.Line

	mu  sync.Mutex
	dec decoder
	det detents
	pos int64

	onTurn  func(delta int)
	onPress func()
	log     *slog.Logger
}

// New requests the encoder lines. It returns nil, nil when no pins are
// configured.
func New(cfg Config, handlers Handlers) (*Rotary, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}

	debounceRotary := 250 * time.Microsecond
	debounceButton := 2 * time.Millisecond

	r := &Rotary{
		det:     detents{per: cfg.StepsPerDetent},
		onTurn:  handlers.OnTurn,
		onPress: handlers.OnPress,
		log:     slog.Default().With("component", "rotary"),
	}

	var err error
	r.dtLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.DTPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounceRotary),
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		return nil, fmt.Errorf("request dt line %d: %w", cfg.DTPin, err)
	}

	r.clkLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.CLKPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounceRotary),
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		r.dtLine.Close()
		return nil, fmt.Errorf("request clk line %d: %w", cfg.CLKPin, err)
	}

	if cfg.ButtonPin > 0 {
		r.btnLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.ButtonPin,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithDebounce(debounceButton),
			gpiocdev.WithEventHandler(r.handleButton))
		if err != nil {
			r.dtLine.Close()
			r.clkLine.Close()
			return nil, fmt.Errorf("request button line %d: %w", cfg.ButtonPin, err)
		}
	}

	r.log.Info("encoder ready", "chip", cfg.Chip, "clk", cfg.CLKPin, "dt", cfg.DTPin, "button", cfg.ButtonPin)
	return r, nil
}

func (r *Rotary) handleEvent(evt gpiocdev.LineEvent) {
	var level int
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		level = 1
	case gpiocdev.LineEventFallingEdge:
		level = 0
	default:
		return
	}

	r.mu.Lock()
	delta := r.det.add(r.dec.edge(evt.Offset == r.clkLine.Offset(), level))
	r.mu.Unlock()

	if delta == 0 {
		return
	}
	atomic.AddInt64(&r.pos, int64(delta))
	r.log.Debug("turn", "delta", delta)
	if r.onTurn != nil {
		r.onTurn(delta)
	}
}

func (r *Rotary) handleButton(evt gpiocdev.LineEvent) {
	r.log.Debug("press")
	if r.onPress != nil {
		r.onPress()
	}
}

// Position returns the current encoder position.
func (r *Rotary) Position() int64 {
	return atomic.LoadInt64(&r.pos)
}

// Release releases GPIO resources.
func (r *Rotary) Release() error {
	for _, l := range []*gpiocdev.Line{r.dtLine, r.clkLine, r.btnLine} {
		if l != nil {
			l.Close()
		}
	}
	return nil
}
