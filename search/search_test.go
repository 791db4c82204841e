package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livemem/offset"
	"livemem/pod"
	"livemem/process"
	"livemem/process_blob"
)

const (
	moduleBase = process.DefaultModuleBase
	heap       = process.ProcessMemoryAddress(0x200000)
	code       = process.ProcessMemoryAddress(0x141000000)
)

func newDump() *process_blob.ProcessDump {
	dump := process_blob.NewProcessDump().
		AddRegion(moduleBase, 0x1000, "rw-p").
		AddRegion(heap, 0x1000, "rw-p").
		AddRegion(code, 0x1000, "r-xp")
	dump.PokeUint64(moduleBase+0x10, uint64(heap+0x100))
	dump.PokeUint64(heap+0x100+0x8, uint64(heap+0x400))
	dump.Poke(heap+0x400+0x24, pod.Encode(float32(123.5)))
	return dump
}

func TestSearchFindsResolvablePath(t *testing.T) {
	dump := newDump()

	results, err := Search(dump, moduleBase, WithValue(float32(123.5)), WithMaxDepth(2))
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var found bool
	for _, r := range results {
		addr, err := offset.Resolve(dump, moduleBase, r.Offset)
		require.NoError(t, err)
		assert.Equal(t, r.Address, addr)
		if r.Offset.Equal(offset.New(0x10, 0x8, 0x24)) {
			found = true
		}
	}
	assert.True(t, found, "results %v", results)
}

func TestSearchRespectsDepth(t *testing.T) {
	dump := newDump()

	results, err := Search(dump, moduleBase, WithValue(float32(123.5)), WithMaxDepth(1))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchLimit(t *testing.T) {
	dump := newDump()
	dump.Poke(moduleBase+0x40, []byte{0xAB})
	dump.Poke(moduleBase+0x80, []byte{0xAB})

	results, err := Search(dump, moduleBase, WithBytes([]byte{0xAB}), WithLimit(1), WithMaxDepth(0))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, moduleBase+0x40, results[0].Address)
}

func TestSearchNeedsTarget(t *testing.T) {
	_, err := Search(newDump(), moduleBase)
	assert.Error(t, err)
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("0F 29 ?? 90")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0x29, 0x00, 0x90}, p.Value)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00, 0xFF}, p.Mask)
	assert.Equal(t, "0f 29 ?? 90", p.String())

	p, err = ParsePattern("0x0f,?,90")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	_, err = ParsePattern("")
	assert.Error(t, err)
	_, err = ParsePattern("0F GG")
	assert.Error(t, err)
}

func TestPatternMatch(t *testing.T) {
	p, err := ParsePattern("0F ?? 07")
	require.NoError(t, err)

	data := []byte{0x00, 0x0F, 0x29, 0x07, 0x0F, 0x11, 0x07, 0x0F}
	assert.Equal(t, []uint{1, 4}, p.Match(data))
	assert.Nil(t, p.Match([]byte{0x0F}))
}

func TestScan(t *testing.T) {
	dump := newDump()
	dump.Poke(code+0x120, []byte{0x0F, 0x29, 0x07})
	dump.Poke(heap+0x800, []byte{0x0F, 0x29, 0x07})

	hits, err := Scan(dump, Exact([]byte{0x0F, 0x29, 0x07}), ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{heap + 0x800, code + 0x120}, hits)

	hits, err = Scan(dump, Exact([]byte{0x0F, 0x29, 0x07}), ScanOptions{ExecutableOnly: true, MaxDOP: 1})
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{code + 0x120}, hits)

	_, err = Scan(dump, Pattern{Value: []byte{1}, Mask: nil}, ScanOptions{})
	assert.Error(t, err)
}
