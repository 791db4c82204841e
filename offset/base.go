package offset

import (
	"fmt"
	"strconv"

	"livemem/process"
)

// BaseOffset is an Offset used as a resolution anchor. Its chain resolves
// to the address of a pointer; that pointer (the anchor) is the origin for
// offsets resolved against it, typically an entity's base address.
//
// Module-relative bases start at the process's module base. Absolute bases
// start at a fixed address, which is how actor table slots are described.
type BaseOffset struct {
	Offset
	origin   process.ProcessMemoryAddress
	absolute bool
}

// NewBase returns a module-relative base offset.
func NewBase(steps ...uint64) BaseOffset {
	return BaseOffset{Offset: New(steps...)}
}

// AbsoluteBase returns a base offset rooted at origin.
func AbsoluteBase(origin process.ProcessMemoryAddress, steps ...uint64) BaseOffset {
	return BaseOffset{Offset: New(steps...), origin: origin, absolute: true}
}

func (b BaseOffset) IsAbsolute() bool {
	return b.absolute
}

// Origin returns where resolution of b starts.
func (b BaseOffset) Origin(mem Memory) process.ProcessMemoryAddress {
	if b.absolute {
		return b.origin
	}
	return mem.BaseAddress()
}

// Equal reports whether both describe the same target.
func (b BaseOffset) Equal(other BaseOffset) bool {
	return b.absolute == other.absolute && b.origin == other.origin && b.Offset.Equal(other.Offset)
}

func (b BaseOffset) Key() string {
	if b.absolute {
		return "@" + strconv.FormatUint(uint64(b.origin), 16) + ":" + b.Offset.Key()
	}
	return "module:" + b.Offset.Key()
}

func (b BaseOffset) String() string {
	if b.absolute {
		return fmt.Sprintf("0x%x%s", uint64(b.origin), b.Offset)
	}
	return "module" + b.Offset.String()
}

// Address resolves the chain to the address holding the anchor pointer.
func (b BaseOffset) Address(mem Memory) (process.ProcessMemoryAddress, error) {
	return Resolve(mem, b.Origin(mem), b.Offset)
}

// Anchor dereferences Address. A null anchor is process.ErrInvalidAddress.
func (b BaseOffset) Anchor(mem Memory) (process.ProcessMemoryAddress, error) {
	addr, err := b.Address(mem)
	if err != nil {
		return 0, err
	}

	anchor, err := ReadPointer(mem, addr)
	if err != nil {
		return 0, fmt.Errorf("anchor %s: %w", b, err)
	}
	if anchor == 0 {
		return 0, fmt.Errorf("%w: anchor %s is null", process.ErrInvalidAddress, b)
	}
	return anchor, nil
}
