package tag

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "4777701c", want: "4777701c"},
		{in: "4777701C", want: "4777701c"},
		{in: "47:77:70:1C", want: "4777701c"},
		{in: " aabbccdd\n", want: "aabbccdd"},
		{in: "", wantErr: true},
		{in: "zz", wantErr: true},
		{in: "0102030405060708090a0b", wantErr: true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	a := New([]byte{0x11, 0x22, 0x33, 0x44})
	b := MustParse("11223344")
	if !a.Equal(b) || a != b {
		t.Error("Expected identical tags to be equal")
	}

	// Same prefix, different length
	c := New([]byte{0x11, 0x22, 0x33})
	if a.Equal(c) {
		t.Error("Expected tags of different length to differ")
	}

	if !(Tag{}).IsZero() {
		t.Error("Zero tag should report IsZero")
	}
	if a.IsZero() {
		t.Error("Non-empty tag should not report IsZero")
	}
}

func TestBytesIsCopy(t *testing.T) {
	a := MustParse("aabbccdd")
	b := a.Bytes()
	b[0] = 0
	if a.String() != "aabbccdd" {
		t.Errorf("Mutating Bytes() changed tag to %s", a)
	}
}

func TestGeneral(t *testing.T) {
	if General.String() != "4777701c" {
		t.Errorf("General = %s", General)
	}
	if General.Len() != 4 {
		t.Errorf("General length = %d, want 4", General.Len())
	}
}

func TestButton(t *testing.T) {
	for b := Print; b <= Erase; b++ {
		if !b.Valid() {
			t.Errorf("%v should be valid", b)
		}
	}
	if Button(4).Valid() || Unknown.Valid() {
		t.Error("Out of range buttons should not be valid")
	}
	if Button(7).String() != "button(7)" {
		t.Errorf("Unexpected name %q", Button(7).String())
	}
}

func TestFromUint32(t *testing.T) {
	if got := FromUint32(0x4777701c); got != General {
		t.Errorf("FromUint32 = %s, want %s", got, General)
	}
	if got := FromUint32(1); got.String() != "00000001" || got.Len() != 4 {
		t.Errorf("FromUint32(1) = %s", got)
	}
}
