package utils

import "testing"

func TestHex2(t *testing.T) {
	tests := []struct {
		in   byte
		want string
	}{
		{0x00, "00"},
		{0x4A, "4A"},
		{0xFF, "FF"},
	}
	for _, tt := range tests {
		if got := Hex2(tt.in); got != tt.want {
			t.Errorf("Hex2(%#x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBytesToHex(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "frame", in: []byte{0, 2, 238, 27, 144, 21, 74, 1}, want: "0002EE1B90154A01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BytesToHex(tt.in); got != tt.want {
				t.Errorf("BytesToHex() = %q, want %q", got, tt.want)
			}
		})
	}
}
