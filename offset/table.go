package offset

import (
	"encoding/binary"
	"fmt"

	"livemem/process"
)

// DefaultCountWidth is the width in bytes of an actor table's count cell.
const DefaultCountWidth = 1

// ActorTableOffset is a BaseOffset whose resolved address is the head of a
// game-owned table. The head holds the entity count; slot i (0-based) holds
// the i-th entity pointer at head + (i+1)*PointerSize.
type ActorTableOffset struct {
	BaseOffset
	countWidth int
}

// NewActorTable builds a table offset. countWidth is the count cell width in
// bytes (1, 2, 4 or 8); 0 selects DefaultCountWidth.
func NewActorTable(base BaseOffset, countWidth int) (ActorTableOffset, error) {
	switch countWidth {
	case 0:
		countWidth = DefaultCountWidth
	case 1, 2, 4, 8:
	default:
		return ActorTableOffset{}, fmt.Errorf("actor table %s: unsupported count width %d", base, countWidth)
	}
	return ActorTableOffset{BaseOffset: base, countWidth: countWidth}, nil
}

func (t ActorTableOffset) CountWidth() int {
	if t.countWidth == 0 {
		return DefaultCountWidth
	}
	return t.countWidth
}

// Head resolves the table head.
func (t ActorTableOffset) Head(mem Memory) (process.ProcessMemoryAddress, error) {
	return t.Address(mem)
}

// ReadCount reads the count cell at head. It is never cached: the game
// mutates it every frame.
func (t ActorTableOffset) ReadCount(mem Memory, head process.ProcessMemoryAddress) (int, error) {
	width := t.CountWidth()
	data, err := mem.ReadMemory(head, process.ProcessMemorySize(width))
	if err != nil {
		return 0, fmt.Errorf("%w: actor table count at 0x%x: %w", process.ErrMemoryAccess, uint64(head), err)
	}

	switch width {
	case 1:
		return int(data[0]), nil
	case 2:
		return int(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return int(binary.LittleEndian.Uint32(data)), nil
	default:
		n := binary.LittleEndian.Uint64(data)
		if n > 1<<31 {
			return 0, fmt.Errorf("%w: actor table count %d at 0x%x is implausible", process.ErrInvalidAddress, n, uint64(head))
		}
		return int(n), nil
	}
}

// Count resolves the head and reads the count.
func (t ActorTableOffset) Count(mem Memory) (int, error) {
	head, err := t.Head(mem)
	if err != nil {
		return 0, err
	}
	return t.ReadCount(mem, head)
}

// ElementBase returns the base offset of slot i given the table head. It is
// a pure function of head and i and does not check i against the count.
func (t ActorTableOffset) ElementBase(head process.ProcessMemoryAddress, i int) BaseOffset {
	return AbsoluteBase(head.Add(uint64(i+1) * process.PointerSize))
}
