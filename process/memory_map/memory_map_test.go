package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `7f0000001000-7f0000002000 rw-p 00000000 00:00 0
140000000-140001000 r--p 00000000 08:01 1234 /games/ffxiv_dx11.exe
140001000-140400000 r-xp 00001000 08:01 1234 /games/ffxiv_dx11.exe
140400000-140500000 rw-p 00400000 08:01 1234 /games/ffxiv_dx11.exe
7ffd00000000-7ffd00021000 rw-p 00000000 00:00 0 [stack]
garbage line
5600000000-5600001000 r-xp 00000000 08:01 99 /opt/wine/bin/wine64 preloader
`

func TestParse(t *testing.T) {
	mm, err := Parse(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	require.Len(t, mm, 6)

	// sorted by address
	for i := 1; i < len(mm); i++ {
		assert.Less(t, mm[i-1].Address, mm[i].Address)
	}

	assert.Equal(t, uint64(0x140000000), mm[0].Address)
	assert.Equal(t, uint64(0x5600000000), mm[3].Address)
	assert.Equal(t, "/opt/wine/bin/wine64 preloader", mm[3].Path)
	assert.Equal(t, "", mm[4].Path)
	assert.Equal(t, "[stack]", mm[5].Path)
}

func TestFindRegion(t *testing.T) {
	mm, err := Parse(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	item := FindRegion(0x140001010, mm)
	require.NotNil(t, item)
	assert.Equal(t, "r-xp", item.Perms)
	assert.True(t, item.IsExecutable())
	assert.False(t, item.IsWritable())

	assert.Nil(t, FindRegion(0x10, mm))
	assert.Nil(t, FindRegion(0x140500000, mm))

	assert.True(t, IsValidAddress(0x140400008, mm))
	assert.False(t, IsValidAddress(0x900000000000, mm))
}

func TestModuleBase(t *testing.T) {
	mm, err := Parse(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	base, ok := ModuleBase("ffxiv_dx11.exe", mm)
	require.True(t, ok)
	assert.Equal(t, uint64(0x140000000), base)

	_, ok = ModuleBase("missing.exe", mm)
	assert.False(t, ok)
}

func TestContains(t *testing.T) {
	item := MemoryMapItem{Address: 0x1000, Size: 0x100, Perms: "rw-p"}
	assert.True(t, item.Contains(0x1000, 0x100))
	assert.True(t, item.Contains(0x10f8, 8))
	assert.False(t, item.Contains(0x10fc, 8))
	assert.False(t, item.Contains(0xfff, 1))
}
