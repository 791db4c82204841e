package offset

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
)

// ErrBadPattern is returned for empty or mismatched on/off patterns.
var ErrBadPattern = errors.New("bad patch pattern")

// FlagOffset is an Offset plus two equal-length byte patterns. Writing on or
// off at the resolved address toggles a code path in the target.
type FlagOffset struct {
	Offset
	on  []byte
	off []byte
}

// NewFlag validates and copies the patterns.
func NewFlag(o Offset, on, off []byte) (FlagOffset, error) {
	if len(on) == 0 || len(on) != len(off) {
		return FlagOffset{}, fmt.Errorf("%w: %s on=%d bytes off=%d bytes", ErrBadPattern, o, len(on), len(off))
	}
	return FlagOffset{Offset: o, on: slices.Clone(on), off: slices.Clone(off)}, nil
}

func (f FlagOffset) On() []byte  { return slices.Clone(f.on) }
func (f FlagOffset) Off() []byte { return slices.Clone(f.off) }

// PatchLen is the number of bytes a patch writes.
func (f FlagOffset) PatchLen() int {
	return len(f.on)
}

// Pattern returns the bytes for the requested state.
func (f FlagOffset) Pattern(enabled bool) []byte {
	if enabled {
		return f.On()
	}
	return f.Off()
}

// IsOn reports whether current equals the on pattern exactly.
func (f FlagOffset) IsOn(current []byte) bool {
	return bytes.Equal(current, f.on)
}

// IsOff reports whether current equals the off pattern exactly.
func (f FlagOffset) IsOff(current []byte) bool {
	return bytes.Equal(current, f.off)
}

// Equal compares offset and both patterns.
func (f FlagOffset) Equal(other FlagOffset) bool {
	return f.Offset.Equal(other.Offset) && bytes.Equal(f.on, other.on) && bytes.Equal(f.off, other.off)
}
