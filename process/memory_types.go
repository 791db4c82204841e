package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// Add returns the address displaced by delta bytes.
func (pma ProcessMemoryAddress) Add(delta uint64) ProcessMemoryAddress {
	return pma + ProcessMemoryAddress(delta)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// PointerSize is the width of a pointer in the target process.
// Only 64-bit targets are supported.
const PointerSize = 8

// DefaultModuleBase is where a 64-bit PE image is mapped when ASLR is off,
// which is also what Wine/Proton does for the main executable.
const DefaultModuleBase = ProcessMemoryAddress(0x140000000)
