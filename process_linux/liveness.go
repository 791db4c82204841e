//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"livemem/process"

	"golang.org/x/sys/unix"
)

// IsAlive reports whether the opened pid still exists and is not a zombie.
func (p *LinuxProcess) IsAlive() bool {
	pid := p.GetPID()
	if pid == 0 {
		return false
	}

	if err := unix.Kill(int(pid), 0); err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}

	state, err := readState(pid)
	if err != nil {
		return false
	}

	return !state.IsGone()
}

// readState returns the state letter from /proc/[pid]/stat. The comm field
// is parenthesised and may contain spaces, so parse after the last ')'.
func readState(pid process.ProcessID) (process.ProcessState, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return "", err
	}

	return parseStat(data)
}

func parseStat(data []byte) (process.ProcessState, error) {
	i := bytes.LastIndexByte(data, ')')
	if i < 0 || i+2 >= len(data) {
		return "", fmt.Errorf("malformed stat line")
	}

	return process.ProcessState(data[i+2 : i+3]), nil
}
