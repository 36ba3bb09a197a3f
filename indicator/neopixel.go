package indicator

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoConnectionLost = "@2 !150000 001010"
	neoNormalIdle     = "@3 !150000 400000"
	neoBusy           = "@1 !50000 8000"
	neoAttention      = "@2 !30000 404000"
	neoFault          = "@2 !10000 ff"
	neoTerminated     = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
type Neopixel struct {
	pipe io.WriteCloser
	log  *slog.Logger
}

// NewNeopixel opens the neopixel tool's pipe.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}
	return &Neopixel{pipe: f, log: slog.Default().With("component", "neopixel")}, nil
}

// Show implements Indicator.Show.
func (n *Neopixel) Show(s State) {
	var cmd string
	switch s {
	case Idle:
		cmd = neoNormalIdle
	case Busy:
		cmd = neoBusy
	case Attention:
		cmd = neoAttention
	case Fault:
		cmd = neoFault
	case Offline:
		cmd = neoConnectionLost
	case Shutdown:
		cmd = neoTerminated
	default:
		return
	}
	if _, err := io.WriteString(n.pipe, cmd+"\n"); err != nil {
		n.log.Warn("write", "state", s, "error", err)
	}
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	if n.pipe == nil {
		return nil
	}
	return n.pipe.Close()
}
