package process_blob

import (
	"testing"

	"livemem/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDumpReadWrite(t *testing.T) {
	dump := NewProcessDump().AddRegion(0x10000, 0x100, "rw-p")

	require.NoError(t, dump.WriteMemory(0x10010, []byte{1, 2, 3, 4}))
	data, err := dump.ReadMemory(0x10010, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	assert.Equal(t, int64(1), dump.Writes())
	assert.Equal(t, int64(1), dump.Reads())

	_, err = dump.ReadMemory(0x100fe, 4)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = dump.ReadMemory(0x20000, 1)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
}

func TestProcessDumpLiveness(t *testing.T) {
	dump := NewProcessDump().AddRegion(0x10000, 0x100, "rw-p")
	dump.SetAlive(false)

	assert.False(t, dump.IsAlive())
	_, err := dump.ReadMemory(0x10000, 1)
	assert.ErrorIs(t, err, ErrProcessExited)
	assert.ErrorIs(t, dump.WriteMemory(0x10000, []byte{1}), ErrProcessExited)
}

func TestSaveLoad(t *testing.T) {
	src := NewProcessDump().
		AddRegion(0x10000, 0x40, "rw-p").
		AddRegion(0x20000, 0x40, "---p")
	src.PID = 42
	src.SetBase(0x10000)
	src.PokeUint64(0x10008, 0xdeadbeef)

	dir := t.TempDir()
	saved, err := Save(src, "game.exe", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	dst := NewProcessDump()
	require.NoError(t, dst.Load(dir))

	assert.Equal(t, process.ProcessID(42), dst.GetPID())
	assert.Equal(t, "game.exe", dst.Name)
	assert.Equal(t, process.ProcessMemoryAddress(0x10000), dst.BaseAddress())
	assert.Equal(t, src.Peek(0x10000, 0x40), dst.Peek(0x10000, 0x40))

	mm, err := dst.GetMemoryMap()
	require.NoError(t, err)
	assert.Len(t, mm, 1)
}
