package marshal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livemem/marshal"
	"livemem/offset"
	"livemem/process"
)

var (
	patchOn  = []byte{0x90, 0x90, 0x90}
	patchOff = []byte{0x0F, 0x29, 0x07}
)

func newPatch(t *testing.T, s *marshal.Session) *marshal.PatchMarshaler {
	t.Helper()
	flag, err := offset.NewFlag(offset.New(0x300), patchOn, patchOff)
	require.NoError(t, err)
	p, err := marshal.NewPatch(s, flag, nil)
	require.NoError(t, err)
	return p
}

func TestPatchApply(t *testing.T) {
	dump, s := fixture(t)
	dump.Poke(moduleBase+0x300, patchOff)
	p := newPatch(t, s)

	on, err := p.State()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, p.Apply(true))
	on, err = p.State()
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, patchOn, dump.Peek(moduleBase+0x300, 3))

	require.NoError(t, p.Apply(true))
	assert.Equal(t, int64(1), dump.Writes())

	require.NoError(t, p.Apply(false))
	require.NoError(t, p.Apply(false))
	assert.Equal(t, int64(2), dump.Writes())

	state, err := p.PatchState()
	require.NoError(t, err)
	assert.Equal(t, marshal.PatchOff, state)
}

func TestPatchUnknownBytes(t *testing.T) {
	dump, s := fixture(t)
	dump.Poke(moduleBase+0x300, []byte{0xCC, 0xCC, 0xCC})
	p := newPatch(t, s)

	state, err := p.PatchState()
	require.NoError(t, err)
	assert.Equal(t, marshal.PatchUnknown, state)
	assert.Equal(t, "unknown", state.String())

	on, err := p.State()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, p.Apply(true))
	assert.Equal(t, patchOn, dump.Peek(moduleBase+0x300, 3))
}

func TestPatchApplyAsync(t *testing.T) {
	dump, s := fixture(t)
	dump.Poke(moduleBase+0x300, patchOff)
	p := newPatch(t, s)

	require.NoError(t, <-p.ApplyAsync(true))
	assert.Equal(t, patchOn, dump.Peek(moduleBase+0x300, 3))
}

func TestPatchDeadProcess(t *testing.T) {
	dump, s := fixture(t)
	dump.Poke(moduleBase+0x300, patchOff)
	p := newPatch(t, s)

	dump.SetAlive(false)
	assert.ErrorIs(t, p.Apply(true), process.ErrMemoryAccess)
	assert.Zero(t, dump.Writes())

	require.NoError(t, p.Close())
	dump.SetAlive(true)
	assert.ErrorIs(t, p.Apply(true), marshal.ErrDisposed)
}
