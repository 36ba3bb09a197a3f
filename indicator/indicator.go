package indicator

// State is a kiosk status shown on the indicator.
type State int

const (
	Idle      State = iota // ready for a tap
	Busy                   // a known tag was handled
	Attention              // an unknown tag was enrolled and needs the operator
	Fault                  // a store or printer operation failed
	Offline                // the broker connection is down
	Shutdown               // the kiosk is stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Attention:
		return "attention"
	case Fault:
		return "fault"
	case Offline:
		return "offline"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Indicator is the interface for status indicator implementations (LEDs, neopixels, etc).
type Indicator interface {
	// Show switches the indicator to state s.
	Show(s State)

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// GPIO LED pins (nil = not configured)
	GreenPin  *uint8 `yaml:"green_pin"`
	YellowPin *uint8 `yaml:"yellow_pin"`
	RedPin    *uint8 `yaml:"red_pin"`

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`
}

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if both GPIO and Neopixel are configured.
func New(cfg Config) (Indicator, error) {
	var indicators []Indicator

	if cfg.GreenPin != nil || cfg.YellowPin != nil || cfg.RedPin != nil {
		gpio, err := NewGPIO(cfg.GreenPin, cfg.YellowPin, cfg.RedPin)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, gpio)
	}

	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			for _, ind := range indicators {
				ind.Release()
			}
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	switch len(indicators) {
	case 0:
		return &Noop{}, nil
	case 1:
		return indicators[0], nil
	default:
		return NewMulti(indicators...), nil
	}
}
