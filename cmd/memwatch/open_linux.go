//go:build linux

package main

import (
	"livemem/process"
	"livemem/process_linux"
)

func findPID(name string) (process.ProcessID, error) {
	return process_linux.OneByName(name)
}

func openLive(pid process.ProcessID, module string) (process.Process, error) {
	proc, err := process_linux.NewWithModule(pid, module)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
