package breakpoint

import (
	"errors"
	"math"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x401000", 0x401000, false},
		{"4096", 4096, false},
		{"  0x10 ", 0x10, false},
		{"0o17", 0o17, false},
		{"", 0, true},
		{"zz", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAddress(tt.in)
		if tt.wantErr {
			var ie *InvalidInputError
			if !errors.As(err, &ie) {
				t.Errorf("ParseAddress(%q): expected InvalidInputError, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAddress(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAddress(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestParseSize_RejectsZero(t *testing.T) {
	_, err := ParseSize("0")
	var ie *InvalidInputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if ie.Field != "size" {
		t.Errorf("expected field size, got %s", ie.Field)
	}

	n, err := ParseSize("0x4")
	if err != nil || n != 4 {
		t.Errorf("ParseSize(0x4) = %d, %v", n, err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(0x1000, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate(math.MaxUint64, 1); err != nil {
		t.Errorf("last byte should be valid: %v", err)
	}
	if err := Validate(0x1000, 0); err == nil {
		t.Error("expected error for zero size")
	}
	if err := Validate(math.MaxUint64, 2); err == nil {
		t.Error("expected error for overflowing range")
	}
}

func TestType_TextRoundTrip(t *testing.T) {
	for _, typ := range []Type{Execute, Write, Read} {
		b, _ := typ.MarshalText()
		var got Type
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%s) failed: %v", b, err)
		}
		if got != typ {
			t.Errorf("expected %v, got %v", typ, got)
		}
	}
	var bad Type
	if err := bad.UnmarshalText([]byte("jump")); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestBreakpoint_Contains(t *testing.T) {
	bp := &Breakpoint{Addr: 0x100, Size: 4}
	for addr, want := range map[uint64]bool{0xff: false, 0x100: true, 0x103: true, 0x104: false} {
		if got := bp.Contains(addr); got != want {
			t.Errorf("Contains(%#x) = %v, want %v", addr, got, want)
		}
	}
}
