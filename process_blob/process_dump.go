package process_blob

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"livemem/process"
	"livemem/process/memory_map"
)

// ErrProcessExited is returned by a dump whose liveness was switched off.
var ErrProcessExited = errors.New("process exited")

// ProcessDump implements process.Process over memory held in this process:
// either a dump loaded from disk or regions added by hand. Reads and writes
// are counted so callers can assert on I/O.
type ProcessDump struct {
	PID  process.ProcessID
	Name string

	mu        sync.RWMutex
	base      process.ProcessMemoryAddress
	memoryMap []memory_map.MemoryMapItem
	blobs     map[uint64][]byte // region address -> data

	alive  atomic.Bool
	reads  atomic.Int64
	writes atomic.Int64
}

var _ process.Process = (*ProcessDump)(nil)

// NewProcessDump creates an empty, alive dump with the default module base.
func NewProcessDump() *ProcessDump {
	p := &ProcessDump{
		base:  process.DefaultModuleBase,
		blobs: make(map[uint64][]byte),
	}
	p.alive.Store(true)
	return p
}

// AddRegion maps size zeroed bytes at addr with perms ("rw-p", "r-xp", ...).
func (p *ProcessDump) AddRegion(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, perms string) *ProcessDump {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.memoryMap = append(p.memoryMap, memory_map.MemoryMapItem{
		Address: uint64(addr),
		Size:    uint(size),
		Perms:   perms,
	})
	memory_map.Sort(p.memoryMap)
	p.blobs[uint64(addr)] = make([]byte, size)
	return p
}

// SetBase sets the module base returned by BaseAddress.
func (p *ProcessDump) SetBase(base process.ProcessMemoryAddress) {
	p.mu.Lock()
	p.base = base
	p.mu.Unlock()
}

// SetAlive switches liveness. A dead dump fails every read and write.
func (p *ProcessDump) SetAlive(alive bool) {
	p.alive.Store(alive)
}

// Reads returns the number of ReadMemory calls that reached the dump.
func (p *ProcessDump) Reads() int64 { return p.reads.Load() }

// Writes returns the number of WriteMemory calls that reached the dump.
func (p *ProcessDump) Writes() int64 { return p.writes.Load() }

// Poke stores data at addr without counting as a write. It panics if the
// range is not mapped; it is meant for seeding fixtures.
func (p *ProcessDump) Poke(addr process.ProcessMemoryAddress, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dst, err := p.sliceLocked(addr, process.ProcessMemorySize(len(data)))
	if err != nil {
		panic(err)
	}
	copy(dst, data)
}

// PokeUint64 stores a little-endian uint64 at addr, see Poke.
func (p *ProcessDump) PokeUint64(addr process.ProcessMemoryAddress, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	p.Poke(addr, buf[:])
}

// Peek returns a copy of size bytes at addr without counting as a read.
func (p *ProcessDump) Peek(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	src, err := p.sliceLocked(addr, size)
	if err != nil {
		panic(err)
	}
	out := make([]byte, size)
	copy(out, src)
	return out
}

// sliceLocked returns the backing slice for [addr, addr+size).
func (p *ProcessDump) sliceLocked(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	region := memory_map.FindRegion(uint64(addr), p.memoryMap)
	if region == nil {
		return nil, fmt.Errorf("%w: 0x%x", process.ErrAddressNotMapped, uint64(addr))
	}

	data, ok := p.blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("no data for region 0x%x", region.Address)
	}

	offset := uint64(addr) - region.Address
	if offset+uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: 0x%x+%d crosses region end", process.ErrAddressNotMapped, uint64(addr), size)
	}

	return data[offset : offset+uint64(size)], nil
}

func (p *ProcessDump) Open(pid process.ProcessID) error {
	return fmt.Errorf("Open not supported for ProcessDump, use Load")
}

func (p *ProcessDump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.blobs = make(map[uint64][]byte)
	p.memoryMap = nil
	p.alive.Store(false)
	return nil
}

func (p *ProcessDump) GetPID() process.ProcessID {
	return p.PID
}

func (p *ProcessDump) IsAlive() bool {
	return p.alive.Load()
}

func (p *ProcessDump) BaseAddress() process.ProcessMemoryAddress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.base
}

func (p *ProcessDump) UpdateMemoryMap() error {
	return nil // Memory map is static in a dump
}

func (p *ProcessDump) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return memory_map.IsValidAddress(uint64(addr), p.memoryMap)
}

func (p *ProcessDump) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]memory_map.MemoryMapItem, len(p.memoryMap))
	copy(result, p.memoryMap)
	return result, nil
}

func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.reads.Add(1)

	if !p.alive.Load() {
		return nil, ErrProcessExited
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	src, err := p.sliceLocked(addr, size)
	if err != nil {
		return nil, err
	}

	result := make([]byte, size)
	copy(result, src)
	return result, nil
}

func (p *ProcessDump) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	p.writes.Add(1)

	if !p.alive.Load() {
		return ErrProcessExited
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dst, err := p.sliceLocked(addr, process.ProcessMemorySize(len(data)))
	if err != nil {
		return err
	}

	copy(dst, data)
	return nil
}
