package search

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"livemem/process"
	"livemem/process/memory_map"
)

// Mapped is memory that can list its regions.
type Mapped interface {
	Memory
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)
}

// Pattern is an array of bytes with per-byte masks; a zero mask byte is a
// wildcard.
type Pattern struct {
	Value []byte
	Mask  []byte
}

// ParsePattern parses "0F 29 ?? 90" or "0f,29,?,90".
func ParsePattern(s string) (Pattern, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(parts) == 0 {
		return Pattern{}, fmt.Errorf("empty pattern")
	}

	var p Pattern
	for _, part := range parts {
		if part == "??" || part == "?" {
			p.Value = append(p.Value, 0)
			p.Mask = append(p.Mask, 0)
			continue
		}

		v, err := strconv.ParseUint(strings.TrimPrefix(part, "0x"), 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid hex byte: %s", part)
		}
		p.Value = append(p.Value, byte(v))
		p.Mask = append(p.Mask, 0xFF)
	}
	return p, nil
}

// Exact builds a pattern with no wildcards.
func Exact(b []byte) Pattern {
	mask := make([]byte, len(b))
	for i := range mask {
		mask[i] = 0xFF
	}
	return Pattern{Value: slices.Clone(b), Mask: mask}
}

func (p Pattern) Len() int { return len(p.Value) }

func (p Pattern) String() string {
	var sb strings.Builder
	for i := range p.Value {
		if i > 0 {
			sb.WriteString(" ")
		}
		if p.Mask[i] == 0 {
			sb.WriteString("??")
		} else {
			sb.WriteString(hex.EncodeToString(p.Value[i : i+1]))
		}
	}
	return sb.String()
}

// Match returns the offsets in data where p matches.
func (p Pattern) Match(data []byte) []uint {
	var matches []uint
	if len(p.Value) == 0 || len(data) < len(p.Value) {
		return nil
	}
	for i := 0; i <= len(data)-len(p.Value); i++ {
		ok := true
		for j, v := range p.Value {
			if data[i+j]&p.Mask[j] != v&p.Mask[j] {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, uint(i))
		}
	}
	return matches
}

// ScanOptions limits a pattern scan.
type ScanOptions struct {
	// ExecutableOnly restricts the scan to executable regions, where code
	// patches live.
	ExecutableOnly bool
	// Module restricts the scan to regions backed by this file basename.
	Module string
	// MaxDOP bounds the number of regions scanned concurrently.
	MaxDOP int
}

// Scan searches every readable region for p and returns matching
// addresses in ascending order.
func Scan(mem Mapped, p Pattern, opts ScanOptions) ([]process.ProcessMemoryAddress, error) {
	if p.Len() == 0 || len(p.Mask) != len(p.Value) {
		return nil, fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(p.Mask), len(p.Value))
	}

	regions, err := mem.GetMemoryMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get memory map: %w", err)
	}

	maxdop := opts.MaxDOP
	if maxdop <= 0 || maxdop > runtime.NumCPU() {
		maxdop = runtime.NumCPU()
	}
	sem := make(chan struct{}, maxdop)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []process.ProcessMemoryAddress
	)

	for _, region := range regions {
		if !region.IsReadable() {
			continue
		}
		if opts.ExecutableOnly && !region.IsExecutable() {
			continue
		}
		if opts.Module != "" && !strings.EqualFold(baseName(region.Path), opts.Module) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(region memory_map.MemoryMapItem) {
			defer func() {
				<-sem
				wg.Done()
			}()

			data, err := mem.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
			if err != nil {
				return
			}

			matches := p.Match(data)
			if len(matches) == 0 {
				return
			}
			mu.Lock()
			for _, off := range matches {
				results = append(results, process.ProcessMemoryAddress(region.Address+uint64(off)))
			}
			mu.Unlock()
		}(region)
	}
	wg.Wait()

	slices.Sort(results)
	return results, nil
}

func baseName(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
