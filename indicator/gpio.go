package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// GPIO implements Indicator using discrete GPIO LED pins.
type GPIO struct {
	hw        govattu.Vattu
	greenPin  *uint8
	yellowPin *uint8
	redPin    *uint8
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(greenPin, yellowPin, redPin *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{
		hw:        hw,
		greenPin:  greenPin,
		yellowPin: yellowPin,
		redPin:    redPin,
	}
	for _, pin := range g.pins() {
		hw.PinMode(*pin, govattu.ALToutput)
		hw.PinClear(*pin)
	}
	return g, nil
}

// Show implements Indicator.Show.
//
//	idle      green
//	busy      green + yellow
//	attention yellow
//	fault     red
//	offline   yellow + red
//	shutdown  all off
func (g *GPIO) Show(s State) {
	g.allOff()
	switch s {
	case Idle:
		g.set(g.greenPin)
	case Busy:
		g.set(g.greenPin)
		g.set(g.yellowPin)
	case Attention:
		g.set(g.yellowPin)
	case Fault:
		g.set(g.redPin)
	case Offline:
		g.set(g.yellowPin)
		g.set(g.redPin)
	}
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.allOff()
	return g.hw.Close()
}

func (g *GPIO) pins() []*uint8 {
	var out []*uint8
	for _, p := range []*uint8{g.greenPin, g.yellowPin, g.redPin} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (g *GPIO) set(pin *uint8) {
	if pin != nil {
		g.hw.PinSet(*pin)
	}
}

func (g *GPIO) allOff() {
	for _, pin := range g.pins() {
		g.hw.PinClear(*pin)
	}
}
