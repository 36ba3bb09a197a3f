package reader

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"badger/tag"
)

const (
	frameLen = 9

	// readLimit bounds the bytes taken per poll so a reader that streams
	// continuously cannot hold the loop.
	readLimit = 8 * frameLen
)

var framePreamble = []byte{0x02, 0x09}

// Frame implements Source for readers that stream a 9-byte frame while a
// tag is in the field:
//
//	[0x02][0x09][d0][t0 t1 t2 t3][xor][0x03]
//
// t0..t3 is the tag id. A read timeout with no bytes means no tag.
// These readers have no buttons, so ReadButtons always returns 0.
type Frame struct {
	port    io.ReadWriteCloser
	pending []byte // unconsumed bytes, at most one partial frame
}

// OpenFrame opens a frame reader on the specified serial port.
func OpenFrame(device string, baud int, timeout time.Duration) (*Frame, error) {
	if baud == 0 {
		baud = 115200
	}
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: timeout,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	// Frames queued before we started describe a tag that may be gone.
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush serial %s: %w", device, err)
	}
	return &Frame{port: port}, nil
}

// ReadTag implements Source.ReadTag. It reports the newest complete frame
// received since the last call, skipping anything that is not a frame.
func (f *Frame) ReadTag() (tag.Tag, error) {
	buf := make([]byte, readLimit)
	got := 0
	for got < readLimit {
		m, err := f.port.Read(buf[got:])
		got += m
		if m == 0 || err != nil {
			break // timeout
		}
	}
	if got == 0 {
		// Nothing in the field. A partial frame left over will never complete.
		f.pending = f.pending[:0]
		return tag.Tag{}, nil
	}
	f.pending = append(f.pending, buf[:got]...)

	t, found, err := f.scan()
	switch {
	case found:
		return t, nil
	case err != nil:
		return tag.Tag{}, err
	case len(f.pending) > 0:
		return tag.Tag{}, fmt.Errorf("partial frame (%d bytes)", len(f.pending))
	default:
		return tag.Tag{}, fmt.Errorf("no frame in %d bytes", got)
	}
}

// scan consumes f.pending and returns the last valid frame in it. Bytes in
// front of a preamble are dropped, and so is a preamble whose frame fails
// to parse. An incomplete frame at the end stays pending.
func (f *Frame) scan() (last tag.Tag, found bool, err error) {
	p := f.pending
	for {
		i := bytes.Index(p, framePreamble)
		if i < 0 {
			// A trailing 0x02 may be the start of the next frame.
			if n := len(p); n > 0 && p[n-1] == framePreamble[0] {
				p = p[n-1:]
			} else {
				p = nil
			}
			break
		}
		p = p[i:]
		if len(p) < frameLen {
			break
		}
		t, perr := parseFrame(p[:frameLen])
		if perr != nil {
			err = perr
			p = p[1:]
			continue
		}
		last, found = t, true
		p = p[frameLen:]
	}
	f.pending = append(f.pending[:0], p...)
	return last, found, err
}

func parseFrame(buf []byte) (tag.Tag, error) {
	if !bytes.Equal(buf[0:2], framePreamble) {
		return tag.Tag{}, fmt.Errorf("bad preamble % x", buf[0:2])
	}
	if buf[8] != 0x03 {
		return tag.Tag{}, fmt.Errorf("bad terminator %02x", buf[8])
	}

	data := buf[1:7]
	xor := data[0]
	for _, b := range data[1:] {
		xor ^= b
	}
	if xor != buf[7] {
		return tag.Tag{}, fmt.Errorf("checksum mismatch: got %02x want %02x", buf[7], xor)
	}

	return tag.New(buf[3:7]), nil
}

// ReadButtons implements Source.ReadButtons.
func (f *Frame) ReadButtons() (int, error) {
	return 0, nil
}

// Close implements Source.Close.
func (f *Frame) Close() error {
	if f.port == nil {
		return nil
	}
	return f.port.Close()
}
