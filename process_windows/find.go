//go:build windows

package process_windows

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"livemem/process"

	"golang.org/x/sys/windows"
)

// OneByName returns the first process whose executable name equals name
// (case-insensitive), or os.ErrNotExist if none.
func OneByName(name string) (process.ProcessID, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		return 0, fmt.Errorf("Process32First: %w", err)
	}

	for {
		if strings.EqualFold(windows.UTF16ToString(entry.ExeFile[:]), name) {
			return process.ProcessID(entry.ProcessID), nil
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}

	return 0, fmt.Errorf("%s: %w", name, os.ErrNotExist)
}
