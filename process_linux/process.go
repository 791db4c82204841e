//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"livemem/process"
	"livemem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// mapRefreshInterval bounds how often a read of an unknown address may
// trigger a re-read of /proc/[pid]/maps.
const mapRefreshInterval = 250 * time.Millisecond

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid       process.ProcessID
	module    string
	base      process.ProcessMemoryAddress
	log       *logger.Logger
	mm        []memory_map.MemoryMapItem
	mmUpdated time.Time
	mu        sync.Mutex
}

var _ process.Process = (*LinuxProcess)(nil)

// New creates a new LinuxProcess instance
func New() *LinuxProcess {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*LinuxProcess, error) {
	return NewWithModule(pid, "")
}

// NewWithModule opens pid and uses the mapping of module (a file base name,
// e.g. "game.exe") as the base address for module-relative offsets.
func NewWithModule(pid process.ProcessID, module string) (*LinuxProcess, error) {
	p := New()
	p.module = module
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	// Check if process exists
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	p.mu.Lock()
	p.pid = pid
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.mu.Lock()
	p.base = p.findBaseLocked()
	base := p.base
	p.mu.Unlock()

	p.log.Infoln("Process opened, module base", base.ToString())

	return nil
}

// findBaseLocked picks the main module base: the requested module, then the
// mapping of /proc/[pid]/exe, then the default PE base if mapped (Wine), then
// the lowest mapping.
func (p *LinuxProcess) findBaseLocked() process.ProcessMemoryAddress {
	if p.module != "" {
		if base, ok := memory_map.ModuleBase(p.module, p.mm); ok {
			return process.ProcessMemoryAddress(base)
		}
		p.log.Warn("module not mapped: ", p.module)
	}

	if exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", p.pid)); err == nil {
		if base, ok := memory_map.ModuleBase(filepath.Base(exe), p.mm); ok {
			return process.ProcessMemoryAddress(base)
		}
	}

	if memory_map.FindRegion(uint64(process.DefaultModuleBase), p.mm) != nil {
		return process.DefaultModuleBase
	}

	if len(p.mm) > 0 {
		return process.ProcessMemoryAddress(p.mm[0].Address)
	}
	return 0
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	p.pid = 0
	p.base = 0
	p.mm = nil

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// BaseAddress returns the main module base found at Open
func (p *LinuxProcess) BaseAddress() process.ProcessMemoryAddress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.base
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateMemoryMapLocked()
}

func (p *LinuxProcess) updateMemoryMapLocked() error {
	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.ReadProc(int(p.pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	p.mm = mm
	p.mmUpdated = time.Now()
	return nil
}

func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.isValidAddressInternal(addr)
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) isValidAddressInternal(addr process.ProcessMemoryAddress) bool {
	if addr <= 0x10000 {
		return false
	}

	if addr > 0x7FFFFFFFFFFF {
		return false
	}

	return memory_map.IsValidAddress(uint64(addr), p.mm)
}

// regionLocked finds the region for addr, re-reading the map once if the
// address is unknown and the map is older than mapRefreshInterval. The game
// allocates continuously so a map taken at Open goes stale quickly.
func (p *LinuxProcess) regionLocked(addr process.ProcessMemoryAddress) *memory_map.MemoryMapItem {
	if item := memory_map.FindRegion(uint64(addr), p.mm); item != nil {
		return item
	}

	if time.Since(p.mmUpdated) < mapRefreshInterval {
		return nil
	}

	if err := p.updateMemoryMapLocked(); err != nil {
		p.log.Debugln("memory map refresh failed:", err)
		return nil
	}

	return memory_map.FindRegion(uint64(addr), p.mm)
}

func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	// Make a copy of the memory map to prevent external modification
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)

	return result, nil
}
