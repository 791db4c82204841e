// Package process provides interfaces and types for process manipulation
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrInvalidAddress is returned when a pointer chain dereferences to null
	// or an index falls outside a table's current bounds. The next tick may succeed.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrMemoryAccess is returned when the OS level read or write failed:
	// the process exited, the page is unmapped or protected, or access was denied.
	ErrMemoryAccess = errors.New("memory access failure")
)
