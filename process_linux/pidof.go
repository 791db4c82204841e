//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"livemem/process"
)

// Match is a process found by name.
type Match struct {
	PID  process.ProcessID
	Name string // comm, exe basename or argv[0] basename, whichever matched
}

// ListByName returns all processes whose comm, exe basename or argv[0]
// basename equals name. argv[0] is checked because Wine processes run as
// wine64-preloader with the Windows path of the game as argv[0].
func ListByName(name string) ([]Match, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	selfPID := os.Getpid()
	var out []Match

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 || pid == selfPID {
			continue
		}

		if matched, ok := matchName(filepath.Join("/proc", e.Name()), name); ok {
			out = append(out, Match{PID: process.ProcessID(pid), Name: matched})
		}
	}

	return out, nil
}

func matchName(dir, name string) (string, bool) {
	comm, _ := os.ReadFile(filepath.Join(dir, "comm"))
	if string(bytes.TrimSpace(comm)) == name {
		return name, true
	}

	// may fail if zombie or permission
	if exe, _ := os.Readlink(filepath.Join(dir, "exe")); exe != "" && filepath.Base(exe) == name {
		return name, true
	}

	cmdline, _ := os.ReadFile(filepath.Join(dir, "cmdline"))
	if argv0, _, _ := bytes.Cut(cmdline, []byte{0}); len(argv0) > 0 {
		s := strings.ReplaceAll(string(argv0), `\`, "/")
		if filepath.Base(s) == name {
			return name, true
		}
	}

	return "", false
}

// OneByName returns the lowest PID matching name, or os.ErrNotExist if none.
func OneByName(name string) (process.ProcessID, error) {
	ps, err := ListByName(name)
	if err != nil {
		return 0, err
	}
	if len(ps) == 0 {
		return 0, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}

	minPID := ps[0].PID
	for _, m := range ps[1:] {
		if m.PID < minPID {
			minPID = m.PID
		}
	}
	return minPID, nil
}
