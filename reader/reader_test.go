package reader

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"badger/tag"
)

// fakePort answers each query line from a script.
type fakePort struct {
	replies map[string]string
	pending bytes.Buffer
	written []string
	resets  int
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	cmd := strings.TrimSpace(string(b))
	p.written = append(p.written, cmd)
	if reply, ok := p.replies[cmd]; ok {
		p.pending.WriteString(reply)
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.pending.Len() == 0 {
		return 0, nil // read timeout
	}
	return p.pending.Read(b)
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestQueryReadTag(t *testing.T) {
	port := &fakePort{replies: map[string]string{"T": "TAG 4777701C\r\n", "B": "BTN 2\n"}}
	q := newQuery(port, 20*time.Millisecond)

	got, err := q.ReadTag()
	if err != nil {
		t.Fatalf("ReadTag failed: %v", err)
	}
	if got != tag.General {
		t.Errorf("ReadTag = %s, want %s", got, tag.General)
	}

	b, err := q.ReadButtons()
	if err != nil || b != 2 {
		t.Errorf("ReadButtons = %d, %v; want 2", b, err)
	}

	if strings.Join(port.written, ",") != "T,B" {
		t.Errorf("Unexpected commands %v", port.written)
	}
	if port.resets != 2 {
		t.Errorf("Expected input flushed before each query, got %d", port.resets)
	}

	q.Close()
	if !port.closed {
		t.Error("Close should close the port")
	}
}

func TestQueryNoTag(t *testing.T) {
	q := newQuery(&fakePort{replies: map[string]string{"T": "NONE\n"}}, 20*time.Millisecond)

	got, err := q.ReadTag()
	if err != nil {
		t.Fatalf("ReadTag failed: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("Expected no tag, got %s", got)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name    string
		replies map[string]string
		wantErr error
	}{
		{name: "silent", replies: nil, wantErr: errNoReply},
		{name: "garbage", replies: map[string]string{"T": "HELLO\n"}},
		{name: "bad hex", replies: map[string]string{"T": "TAG xyz\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newQuery(&fakePort{replies: tt.replies}, 5*time.Millisecond)
			_, err := q.ReadTag()
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Got %v, want %v", err, tt.wantErr)
			}
		})
	}

	q := newQuery(&fakePort{replies: map[string]string{"B": "BTN x\n"}}, 5*time.Millisecond)
	if _, err := q.ReadButtons(); err == nil {
		t.Error("Expected error for bad button reply")
	}
}

func frameFor(id []byte) []byte {
	data := append([]byte{0x09, 0x00}, id...)
	xor := data[0]
	for _, b := range data[1:] {
		xor ^= b
	}
	return append(append([]byte{0x02}, data...), xor, 0x03)
}

func TestParseFrame(t *testing.T) {
	frame := frameFor([]byte{0x11, 0x22, 0x33, 0x44})
	if len(frame) != 9 {
		t.Fatalf("Test frame is %d bytes", len(frame))
	}

	got, err := parseFrame(frame)
	if err != nil {
		t.Fatalf("parseFrame failed: %v", err)
	}
	if got.String() != "11223344" {
		t.Errorf("parseFrame = %s", got)
	}

	bad := append([]byte(nil), frame...)
	bad[7] ^= 0xff
	if _, err := parseFrame(bad); err == nil {
		t.Error("Expected checksum error")
	}

	bad = append([]byte(nil), frame...)
	bad[0] = 0x00
	if _, err := parseFrame(bad); err == nil {
		t.Error("Expected preamble error")
	}
}

type chunkPort struct {
	fakePort
	data []byte
}

func (p *chunkPort) Read(b []byte) (int, error) {
	if len(p.data) == 0 {
		return 0, nil
	}
	// Deliver at most 4 bytes per read, like a slow UART.
	n := copy(b[:min(len(b), 4)], p.data)
	p.data = p.data[n:]
	return n, nil
}

func TestFrameReadTag(t *testing.T) {
	port := &chunkPort{data: frameFor([]byte{0xaa, 0xbb, 0xcc, 0xdd})}
	f := &Frame{port: port}

	got, err := f.ReadTag()
	if err != nil {
		t.Fatalf("ReadTag failed: %v", err)
	}
	if got.String() != "aabbccdd" {
		t.Errorf("ReadTag = %s", got)
	}

	// Nothing more in the field.
	got, err = f.ReadTag()
	if err != nil || !got.IsZero() {
		t.Errorf("Expected absent tag, got %s, %v", got, err)
	}

	port.data = []byte{0x02, 0x09}
	if _, err := f.ReadTag(); err == nil {
		t.Error("Expected partial frame error")
	}
}

func TestFrameResyncsAfterJunk(t *testing.T) {
	id := []byte{0x11, 0x22, 0x33, 0x44}
	stream := []byte{0xff}
	for i := 0; i < 5; i++ {
		stream = append(stream, frameFor(id)...)
	}
	port := &chunkPort{data: stream}
	f := &Frame{port: port}

	seen := 0
	for i := 0; i < 4; i++ {
		got, err := f.ReadTag()
		if got.IsZero() {
			if err != nil {
				t.Errorf("read %d: %v", i, err)
			}
			continue
		}
		if got.String() != "11223344" {
			t.Errorf("read %d: tag %s", i, got)
		}
		seen++
	}
	if seen == 0 {
		t.Fatal("Expected the reader to find a frame after the junk byte")
	}
	if got, err := f.ReadTag(); err != nil || !got.IsZero() {
		t.Errorf("Expected absent tag once the stream ends, got %s, %v", got, err)
	}
}

func TestFrameSkipsCorruptFrame(t *testing.T) {
	bad := frameFor([]byte{0x11, 0x22, 0x33, 0x44})
	bad[7] ^= 0xff
	stream := append(append([]byte{0x00, 0x03}, bad...), frameFor([]byte{0xaa, 0xbb, 0xcc, 0xdd})...)
	f := &Frame{port: &chunkPort{data: stream}}

	got, err := f.ReadTag()
	if err != nil || got.String() != "aabbccdd" {
		t.Errorf("ReadTag = %s, %v", got, err)
	}
}

func TestFrameReportsNewestFrame(t *testing.T) {
	stream := append(frameFor([]byte{0x11, 0x22, 0x33, 0x44}), frameFor([]byte{0xaa, 0xbb, 0xcc, 0xdd})...)
	f := &Frame{port: &chunkPort{data: stream}}

	got, err := f.ReadTag()
	if err != nil || got.String() != "aabbccdd" {
		t.Errorf("ReadTag = %s, %v", got, err)
	}
}

func TestFrameDropsStalePartial(t *testing.T) {
	port := &chunkPort{data: []byte{0x02, 0x09, 0x00}}
	f := &Frame{port: port}

	if _, err := f.ReadTag(); err == nil {
		t.Error("Expected partial frame error")
	}
	// A quiet poll discards the fragment; a fresh frame then parses cleanly.
	if got, err := f.ReadTag(); err != nil || !got.IsZero() {
		t.Errorf("Expected absent tag, got %s, %v", got, err)
	}
	port.data = frameFor([]byte{0x11, 0x22, 0x33, 0x44})
	if got, err := f.ReadTag(); err != nil || got.String() != "11223344" {
		t.Errorf("ReadTag = %s, %v", got, err)
	}
}

func TestFrameJunkOnly(t *testing.T) {
	f := &Frame{port: &chunkPort{data: []byte{0xff, 0xfe, 0xfd}}}
	if got, err := f.ReadTag(); err == nil || !got.IsZero() {
		t.Errorf("Expected an error for a stream with no frame, got %s, %v", got, err)
	}
	if len(f.pending) != 0 {
		t.Errorf("Junk should be discarded, %d bytes pending", len(f.pending))
	}
}

func TestKeyboardTapReadsOnce(t *testing.T) {
	k := &Keyboard{taps: make(chan tag.Tag, 1), log: slog.Default()}

	k.submit("")
	k.submit("not hex")
	if got, _ := k.ReadTag(); !got.IsZero() {
		t.Fatalf("Expected no tap, got %s", got)
	}

	k.submit("11223344")
	k.submit("AABBCCDD") // replaces the unread tap

	got, err := k.ReadTag()
	if err != nil || got.String() != "aabbccdd" {
		t.Errorf("ReadTag = %s, %v", got, err)
	}
	if got, _ := k.ReadTag(); !got.IsZero() {
		t.Errorf("Tap should read once, got %s again", got)
	}
}

func TestParseKeyFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    KeyFormat
		wantErr bool
	}{
		{in: "", want: KeyFormat{}},
		{in: "8h", want: KeyFormat{Digits: 8}},
		{in: "10D", want: KeyFormat{Digits: 10, Decimal: true}},
		{in: "10", want: KeyFormat{Digits: 10, Decimal: true}},
		{in: "xh", wantErr: true},
		{in: "0d", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseKeyFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKeyFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKeyFormat(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestKeyFormatParse(t *testing.T) {
	dec := KeyFormat{Digits: 10, Decimal: true}
	got, err := dec.Parse("1199009820") // 0x4777701c
	if err != nil || got != tag.General {
		t.Errorf("decimal Parse = %s, %v", got, err)
	}
	if _, err := dec.Parse("12345"); err == nil {
		t.Error("Expected a digit count error")
	}
	if _, err := dec.Parse("12345678ab"); err == nil {
		t.Error("Expected a decimal decode error")
	}

	hx := KeyFormat{Digits: 8}
	if got, err := hx.Parse("AABBCCDD"); err != nil || got.String() != "aabbccdd" {
		t.Errorf("hex Parse = %s, %v", got, err)
	}
}

func TestKeyboardDecimalTap(t *testing.T) {
	k := &Keyboard{format: KeyFormat{Decimal: true}, taps: make(chan tag.Tag, 1), log: slog.Default()}
	k.submit("287454020") // 0x11223344
	if got, _ := k.ReadTag(); got.String() != "11223344" {
		t.Errorf("ReadTag = %s", got)
	}
}

func TestNew(t *testing.T) {
	src, err := New(Config{Type: "none"})
	if err != nil {
		t.Fatalf("New none failed: %v", err)
	}
	if _, ok := src.(*Noop); !ok {
		t.Errorf("Expected Noop, got %T", src)
	}
	if got, err := src.ReadTag(); err != nil || !got.IsZero() {
		t.Error("Noop should never see a tag")
	}

	if _, err := New(Config{Type: "query"}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
	if _, err := New(Config{Type: "laser", Device: "/dev/null"}); err == nil {
		t.Error("Expected error for unknown type")
	}
	if _, err := New(Config{Type: "keyboard", Device: "/dev/null", Format: "zz"}); err == nil {
		t.Error("Expected error for a bad keyboard format")
	}
}
