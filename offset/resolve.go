package offset

import (
	"encoding/binary"
	"fmt"

	"livemem/pod"
	"livemem/process"
)

// Memory is what resolution needs from a process: raw reads and the main
// module base that module-relative chains start from.
type Memory interface {
	pod.Reader
	BaseAddress() process.ProcessMemoryAddress
}

// ReadPointer reads a pointer-sized little-endian value at addr. OS level
// failures are wrapped in process.ErrMemoryAccess.
func ReadPointer(r pod.Reader, addr process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	data, err := r.ReadMemory(addr, process.PointerSize)
	if err != nil {
		return 0, fmt.Errorf("%w: read pointer at 0x%x: %w", process.ErrMemoryAccess, uint64(addr), err)
	}
	return process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data)), nil
}

// Resolve walks off starting at origin. Every step but the last is
// dereferenced; the last is added without dereferencing, so the result is
// the address of the value rather than the value. An empty offset resolves
// to origin. A null pointer mid-chain fails with process.ErrInvalidAddress
// and nothing past it is read. Resolution never retries.
func Resolve(r pod.Reader, origin process.ProcessMemoryAddress, off Offset) (process.ProcessMemoryAddress, error) {
	if len(off.steps) == 0 {
		return origin, nil
	}

	current := origin
	last := len(off.steps) - 1
	for i, step := range off.steps[:last] {
		ptr, err := ReadPointer(r, current.Add(step))
		if err != nil {
			return 0, fmt.Errorf("resolve %s step %d: %w", off, i, err)
		}
		if ptr == 0 {
			return 0, fmt.Errorf("%w: %s step %d: null pointer at 0x%x", process.ErrInvalidAddress, off, i, uint64(current.Add(step)))
		}
		current = ptr
	}

	return current.Add(off.steps[last]), nil
}

// ResolveFrom resolves off from the module base, or from base's anchor when
// base is not nil.
func ResolveFrom(mem Memory, base *BaseOffset, off Offset) (process.ProcessMemoryAddress, error) {
	origin := mem.BaseAddress()
	if base != nil {
		anchor, err := base.Anchor(mem)
		if err != nil {
			return 0, err
		}
		origin = anchor
	}

	return Resolve(mem, origin, off)
}
