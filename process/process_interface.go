package process

import (
	"livemem/process/memory_map"
)

// Process is a handle on a target's address space. Implementations are
// safe for concurrent use, but callers that need ordering between reads
// and writes serialize them themselves.
type Process interface {
	// Open attaches to pid and locates the module base.
	Open(pid ProcessID) error
	// Close releases the handle. Reads and writes fail with
	// ErrProcessNotOpen afterwards.
	Close() error
	GetPID() ProcessID

	// IsAlive is a fresh liveness check, not a cached one.
	IsAlive() bool
	// BaseAddress is the load address of the main module, the origin of
	// module relative offsets.
	BaseAddress() ProcessMemoryAddress

	// UpdateMemoryMap re-reads the region list used by IsValidAddress.
	UpdateMemoryMap() error
	// IsValidAddress reports whether addr falls in a readable region of
	// the last map read.
	IsValidAddress(addr ProcessMemoryAddress) bool
	// GetMemoryMap returns a sorted copy of the last map read.
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)

	// ReadMemory reads exactly size bytes at addr. Partial reads are
	// errors.
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
	// WriteMemory writes all of data at addr.
	WriteMemory(addr ProcessMemoryAddress, data []byte) error
}
