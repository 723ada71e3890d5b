package breakpoint

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the access that triggers a breakpoint.
type Type int

const (
	// Execute triggers when execution reaches the address.
	Execute Type = iota
	// Write triggers on a memory write to the range.
	Write
	// Read triggers on a memory read from the range.
	Read
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case Execute:
		return "execute"
	case Write:
		return "write"
	case Read:
		return "read"
	default:
		return "unknown"
	}
}

// ParseType parses a type name.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "execute", "exec", "x":
		return Execute, nil
	case "write", "w":
		return Write, nil
	case "read", "r":
		return Read, nil
	}
	return 0, &InvalidInputError{Field: "type", Value: s, Reason: "want execute, write or read"}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Breakpoint is a user-defined stop condition.
type Breakpoint struct {
	// ID is unique within a Manager.
	ID int `toml:"id"`

	Type    Type   `toml:"type"`
	Addr    uint64 `toml:"addr"`
	Size    uint64 `toml:"size"`
	Comment string `toml:"comment,omitempty"`
	Enabled bool   `toml:"enabled"`
}

// Contains reports whether addr falls within the breakpoint range.
func (bp *Breakpoint) Contains(addr uint64) bool {
	return addr >= bp.Addr && addr-bp.Addr < bp.Size
}

// String returns a short description such as "execute 0x401000+1".
func (bp *Breakpoint) String() string {
	s := fmt.Sprintf("%s %#x+%d", bp.Type, bp.Addr, bp.Size)
	if !bp.Enabled {
		s += " (disabled)"
	}
	if bp.Comment != "" {
		s += " ; " + bp.Comment
	}
	return s
}

// Validate checks an address range.
func Validate(addr, size uint64) error {
	if size == 0 {
		return &InvalidInputError{Field: "size", Value: "0", Reason: "must be positive"}
	}
	if size-1 > math.MaxUint64-addr {
		return &InvalidInputError{
			Field:  "size",
			Value:  strconv.FormatUint(size, 10),
			Reason: fmt.Sprintf("range overflows the address space at %#x", addr),
		}
	}
	return nil
}

// ParseAddress parses a 0x-prefixed hexadecimal or decimal address.
func ParseAddress(s string) (uint64, error) {
	return parseUint("address", s)
}

// ParseSize parses a 0x-prefixed hexadecimal or decimal size.
func ParseSize(s string) (uint64, error) {
	n, err := parseUint("size", s)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, &InvalidInputError{Field: "size", Value: s, Reason: "must be positive"}
	}
	return n, nil
}

func parseUint(field, s string) (uint64, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, &InvalidInputError{Field: field, Reason: "empty"}
	}
	n, err := strconv.ParseUint(t, 0, 64)
	if err != nil {
		return 0, &InvalidInputError{Field: field, Value: s, Reason: "not a number"}
	}
	return n, nil
}
