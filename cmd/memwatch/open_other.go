//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"

	"livemem/process"
)

func findPID(name string) (process.ProcessID, error) {
	return 0, fmt.Errorf("finding %s: live processes are not supported on %s", name, runtime.GOOS)
}

func openLive(pid process.ProcessID, module string) (process.Process, error) {
	return nil, fmt.Errorf("attaching to %d: live processes are not supported on %s, use --from", pid, runtime.GOOS)
}
