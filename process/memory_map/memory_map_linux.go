//go:build linux

package memory_map

import (
	"fmt"
	"os"
)

// ReadProc returns the sorted map of pid from /proc/<pid>/maps.
func ReadProc(pid int) ([]MemoryMapItem, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, fmt.Errorf("read maps of %d: %w", pid, err)
	}
	defer f.Close()

	return Parse(f)
}
