// Package tag defines the badge identifier read from the RFID reader and the
// button codes that accompany a tap.
package tag

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxLen is the longest tag identifier we keep. ISO14443 UIDs are 4, 7 or 10 bytes.
const MaxLen = 10

// Tag is an RFID badge identifier.
//
// Tag is a fixed-size value type, so it can be compared with == and used as a
// map key. The zero Tag means "no tag present".
type Tag struct {
	data [MaxLen]byte
	len  byte
}

// General is the reserved tag that always selects the general label page.
var General = MustParse("4777701c")

// New creates a Tag from raw bytes. Bytes beyond MaxLen are truncated.
func New(b []byte) Tag {
	var t Tag
	t.len = byte(copy(t.data[:], b))
	return t
}

// FromUint32 creates the 4-byte big-endian Tag for a numeric UID, the form
// printed on cards and typed by decimal readers.
func FromUint32(n uint32) Tag {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return New(b[:])
}

// Parse decodes a hex string such as "4777701c" or "47:77:70:1C".
func Parse(s string) (Tag, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	if s == "" {
		return Tag{}, fmt.Errorf("empty tag")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Tag{}, fmt.Errorf("decode tag %q: %w", s, err)
	}
	if len(b) > MaxLen {
		return Tag{}, fmt.Errorf("tag %q longer than %d bytes", s, MaxLen)
	}
	return New(b), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Tag {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Bytes returns a copy of the raw identifier.
func (t Tag) Bytes() []byte {
	b := make([]byte, t.len)
	copy(b, t.data[:t.len])
	return b
}

// Len returns the identifier length in bytes.
func (t Tag) Len() int {
	return int(t.len)
}

// IsZero reports whether no tag is present.
func (t Tag) IsZero() bool {
	return t.len == 0
}

// Equal reports whether two tags are byte-for-byte identical.
func (t Tag) Equal(other Tag) bool {
	return t == other
}

// String returns the lowercase hex form, e.g. "4777701c".
func (t Tag) String() string {
	return hex.EncodeToString(t.data[:t.len])
}

// Button is the code read alongside a tag, identifying which physical
// button was held during the tap.
type Button int

const (
	Print   Button = 0 // print the name badge
	Edit    Button = 1 // open the record for editing
	Storage Button = 2 // show the storage label
	Erase   Button = 3 // delete the record
)

// Unknown is used when the button state could not be read.
const Unknown Button = -1

// Valid reports whether b is one of the four assigned codes.
func (b Button) Valid() bool {
	return b >= Print && b <= Erase
}

func (b Button) String() string {
	switch b {
	case Print:
		return "print"
	case Edit:
		return "edit"
	case Storage:
		return "storage"
	case Erase:
		return "erase"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}
