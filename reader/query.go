package reader

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"

	"badger/tag"
)

// Query implements Source for a reader that answers line-based queries:
//
//	T  → "TAG <hex>" or "NONE"
//	B  → "BTN <n>"
//
// Each query is answered within one read timeout or treated as a failure.
type Query struct {
	port    io.ReadWriteCloser
	timeout time.Duration
}

var errNoReply = errors.New("no reply from reader")

// OpenQuery opens a query reader on the specified serial port.
func OpenQuery(device string, baud int, timeout time.Duration) (*Query, error) {
	if baud == 0 {
		baud = 115200
	}

	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	// Short reads so a silent reader can't stall the poll loop.
	if err := p.SetReadTimeout(10 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return newQuery(p, timeout), nil
}

func newQuery(port io.ReadWriteCloser, timeout time.Duration) *Query {
	return &Query{port: port, timeout: timeout}
}

// ReadTag implements Source.ReadTag.
func (q *Query) ReadTag() (tag.Tag, error) {
	reply, err := q.ask("T")
	if err != nil {
		return tag.Tag{}, err
	}

	if reply == "NONE" {
		return tag.Tag{}, nil
	}
	hexTag, ok := strings.CutPrefix(reply, "TAG ")
	if !ok {
		return tag.Tag{}, fmt.Errorf("unexpected reply %q", reply)
	}
	return tag.Parse(hexTag)
}

// ReadButtons implements Source.ReadButtons.
func (q *Query) ReadButtons() (int, error) {
	reply, err := q.ask("B")
	if err != nil {
		return 0, err
	}

	n, ok := strings.CutPrefix(reply, "BTN ")
	if !ok {
		return 0, fmt.Errorf("unexpected reply %q", reply)
	}
	b, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil {
		return 0, fmt.Errorf("parse buttons %q: %w", n, err)
	}
	return b, nil
}

func (q *Query) ask(cmd string) (string, error) {
	q.flush()
	if _, err := q.port.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("write %s: %w", cmd, err)
	}
	return q.readLine()
}

// readLine reads up to '\n', giving up after the query timeout.
func (q *Query) readLine() (string, error) {
	deadline := time.Now().Add(q.timeout)
	var line strings.Builder
	buf := make([]byte, 1)

	for {
		n, err := q.port.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read reply: %w", err)
		}
		if n == 0 {
			if time.Now().After(deadline) || errors.Is(err, io.EOF) {
				return "", errNoReply
			}
			continue
		}
		if buf[0] == '\n' {
			return strings.TrimSpace(line.String()), nil
		}
		line.WriteByte(buf[0])
	}
}

func (q *Query) flush() {
	if p, ok := q.port.(interface{ ResetInputBuffer() error }); ok {
		_ = p.ResetInputBuffer()
	}
}

// Close implements Source.Close.
func (q *Query) Close() error {
	if q.port == nil {
		return nil
	}
	return q.port.Close()
}
