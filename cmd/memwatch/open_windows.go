//go:build windows

package main

import (
	"livemem/process"
	"livemem/process_windows"
)

func findPID(name string) (process.ProcessID, error) {
	return process_windows.OneByName(name)
}

func openLive(pid process.ProcessID, module string) (process.Process, error) {
	proc, err := process_windows.NewWithModule(pid, module)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
