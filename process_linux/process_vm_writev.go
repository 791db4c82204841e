//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"unsafe"

	"livemem/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev uses the process_vm_writev syscall to write memory to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, fmt.Errorf("process_vm_writev failed: %w", errno)
	}

	return int(n), nil
}

// procMemWrite writes through /proc/[pid]/mem, which ignores page protection.
// This is how code patches land in r-x pages; it needs ptrace access to pid.
func procMemWrite(pid process.ProcessID, addr process.ProcessMemoryAddress, data []byte) (int, error) {
	f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_WRONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return f.WriteAt(data, int64(addr))
}

// WriteMemory writes data to the process memory at the specified address
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()
	pid := p.pid
	if pid == 0 {
		p.mu.Unlock()
		return process.ErrProcessNotOpen
	}

	region := p.regionLocked(addr)
	p.mu.Unlock()

	if region == nil || !region.Contains(uint64(addr), uint(len(data))) {
		return fmt.Errorf("%w: 0x%x (%d bytes)", process.ErrAddressNotMapped, uint64(addr), len(data))
	}

	// Create a copy of the data to avoid potential modification during the write
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	var written int
	var err error
	if region.IsWritable() {
		written, err = process_vm_writev(pid, dataCopy, addr)
	} else {
		p.log.Debugln("region", region.Perms, "not writable, patching through /proc/mem at", addr.ToString())
		written, err = procMemWrite(pid, addr, dataCopy)
	}

	if err != nil {
		return fmt.Errorf("write 0x%x: %w", uint64(addr), err)
	}

	if written != len(data) {
		return fmt.Errorf("only wrote %d of %d bytes", written, len(data))
	}

	return nil
}
