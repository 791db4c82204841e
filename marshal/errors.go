package marshal

import (
	"errors"
	"fmt"

	"livemem/process"
)

var (
	// ErrStaleAddress is returned by Write when a read in the current tick
	// already proved the address invalid. It wraps process.ErrInvalidAddress.
	ErrStaleAddress = fmt.Errorf("%w: stale address", process.ErrInvalidAddress)

	// ErrDisposed is returned by any operation on a closed marshaler.
	ErrDisposed = errors.New("marshaler disposed")

	// ErrSessionClosed is returned once the owning session is closed.
	ErrSessionClosed = errors.New("session closed")
)

// errProcessGone is recorded instead of attempting I/O on a dead process.
func errProcessGone() error {
	return fmt.Errorf("%w: process is not alive", process.ErrMemoryAccess)
}
