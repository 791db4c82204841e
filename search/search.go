// Package search discovers offsets: pointer paths from an origin to a known
// value, and byte patterns inside mapped regions.
package search

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"livemem/offset"
	"livemem/pod"
	"livemem/process"
)

// Memory is what a pointer path search reads through.
type Memory interface {
	pod.Reader
	IsValidAddress(addr process.ProcessMemoryAddress) bool
}

// Searcher holds configuration for a pointer path search
type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	Limit         int
	SearchFor     func([]byte) bool
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithLimit stops the search after n results.
func WithLimit(n int) Option {
	return func(s *Searcher) {
		s.Limit = n
	}
}

// WithValue searches for the little-endian encoding of v.
func WithValue[T any](v T) Option {
	return WithBytes(pod.Encode(v))
}

// WithBytes searches for an exact byte sequence.
func WithBytes(want []byte) Option {
	want = slices.Clone(want)
	return func(s *Searcher) {
		s.SearchFor = func(data []byte) bool {
			return len(data) >= len(want) && bytes.Equal(data[:len(want)], want)
		}
	}
}

// Result is one path found by Search. Resolving Offset from the search
// origin yields Address.
type Result struct {
	Offset  offset.Offset
	Address process.ProcessMemoryAddress
}

// Search walks structures reachable from origin, following any aligned
// pointer into mapped memory, and returns every path whose last step lands
// on a match. Paths are in offset.Resolve form: every step but the last is
// dereferenced.
func Search(mem Memory, origin process.ProcessMemoryAddress, options ...Option) ([]Result, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.SearchFor == nil {
		return nil, fmt.Errorf("no search target specified")
	}
	if s.MinAlignment == 0 {
		return nil, fmt.Errorf("alignment must be positive")
	}

	var results []Result
	visited := make(map[process.ProcessMemoryAddress]bool)
	full := func() bool { return s.Limit > 0 && len(results) >= s.Limit }

	var walk func(addr process.ProcessMemoryAddress, depth int, path []uint64)
	walk = func(addr process.ProcessMemoryAddress, depth int, path []uint64) {
		if depth > s.MaxDepth || visited[addr] || full() {
			return
		}
		visited[addr] = true

		data, err := mem.ReadMemory(addr, process.ProcessMemorySize(s.MaxStructSize))
		if err != nil {
			return
		}

		for off := uint(0); off+s.MinAlignment <= uint(len(data)); off += s.MinAlignment {
			if full() {
				return
			}

			if s.SearchFor(data[off:]) {
				results = append(results, Result{
					Offset:  offset.New(append(slices.Clone(path), uint64(off))...),
					Address: addr.Add(uint64(off)),
				})
			}

			if off%process.PointerSize != 0 || depth >= s.MaxDepth || off+process.PointerSize > uint(len(data)) {
				continue
			}
			ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[off:]))
			if ptr != 0 && mem.IsValidAddress(ptr) {
				walk(ptr, depth+1, append(slices.Clone(path), uint64(off)))
			}
		}
	}

	walk(origin, 0, nil)
	return results, nil
}
