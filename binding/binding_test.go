package binding_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livemem/binding"
	"livemem/marshal"
	"livemem/offset"
	"livemem/pod"
	"livemem/process"
	"livemem/process_blob"
)

const (
	moduleBase = process.DefaultModuleBase
	heap       = process.ProcessMemoryAddress(0x200000)
	actorA     = heap + 0x100
	actorB     = heap + 0x200
)

type actor struct {
	Position *binding.Value[pod.Vector3]
	Health   *binding.Value[int32]
}

func newActor() *actor {
	return &actor{
		Position: binding.NewValue("Position", pod.Vector3{}),
		Health:   binding.NewValue[int32]("Health", 0),
	}
}

func (a *actor) Property(name string) (any, bool) {
	switch name {
	case "Position":
		return binding.Property[pod.Vector3](a.Position), true
	case "Health":
		return binding.Property[int32](a.Health), true
	}
	return nil, false
}

// fixture: module+0x10 -> actorA, module+0x18 -> actorB; position at +0x20.
func fixture(t *testing.T) (*process_blob.ProcessDump, *marshal.Session) {
	t.Helper()

	dump := process_blob.NewProcessDump().
		AddRegion(moduleBase, 0x1000, "rw-p").
		AddRegion(heap, 0x1000, "rw-p")
	dump.PokeUint64(moduleBase+0x10, uint64(actorA))
	dump.PokeUint64(moduleBase+0x18, uint64(actorB))
	dump.Poke(actorA+0x20, pod.Encode(pod.Vector3{X: 1, Y: 2, Z: 3}))
	dump.Poke(actorB+0x20, pod.Encode(pod.Vector3{X: 7, Y: 8, Z: 9}))

	s, err := marshal.NewSession(dump, marshal.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return dump, s
}

func position(t *testing.T, s *marshal.Session, slot uint64) *marshal.Marshaler[pod.Vector3] {
	t.Helper()
	m, err := marshal.Acquire[pod.Vector3](s, offset.New(slot, 0x20), nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestBindSetsInitialValue(t *testing.T) {
	_, s := fixture(t)
	m := position(t, s, 0x10)

	r := binding.NewRegistry()
	a := newActor()
	h := r.Register(a)

	_, err := binding.Bind[pod.Vector3](r, h, a.Position, m)
	require.NoError(t, err)
	assert.Equal(t, pod.Vector3{X: 1, Y: 2, Z: 3}, a.Position.Get())

	s.Tick()
	assert.Equal(t, pod.Vector3{X: 1, Y: 2, Z: 3}, a.Position.Get())
}

func TestPropertyWriteIsOneMemoryWrite(t *testing.T) {
	dump, s := fixture(t)
	m := position(t, s, 0x10)
	s.Tick()

	r := binding.NewRegistry()
	a := newActor()
	h := r.Register(a)
	b := binding.MustBind[pod.Vector3](r, h, a.Position, m)

	var notified int
	a.Position.Subscribe(func(pod.Vector3) { notified++ })

	want := pod.Vector3{X: 10, Y: 20, Z: 30}
	a.Position.Set(want)

	assert.Equal(t, int64(1), dump.Writes())
	assert.Equal(t, 1, notified)
	assert.NoError(t, b.Err())
	assert.Equal(t, pod.Encode(want), dump.Peek(actorA+0x20, 12))

	s.Tick()
	assert.Equal(t, int64(1), dump.Writes())
	assert.Equal(t, 1, notified)
	assert.Equal(t, want, a.Position.Get())
}

func TestMemoryChangeReachesProperty(t *testing.T) {
	dump, s := fixture(t)
	m := position(t, s, 0x10)

	r := binding.NewRegistry()
	a := newActor()
	binding.MustBind[pod.Vector3](r, r.Register(a), a.Position, m)

	moved := pod.Vector3{X: -1, Y: -1, Z: -1}
	dump.Poke(actorA+0x20, pod.Encode(moved))
	s.Tick()

	assert.Equal(t, moved, a.Position.Get())
	assert.Zero(t, dump.Writes())
}

// echoCell reports every write back as a change, like a store that
// notifies synchronously.
type echoCell struct {
	v       int32
	writes  int
	changed []func(int32)
}

func (c *echoCell) Value() (int32, bool)      { return c.v, true }
func (c *echoCell) Read() (int32, error)      { return c.v, nil }
func (c *echoCell) OnDisposing(func()) func() { return func() {} }

func (c *echoCell) OnChanged(fn func(int32)) func() {
	c.changed = append(c.changed, fn)
	return func() { c.changed = nil }
}

func (c *echoCell) Write(v int32) error {
	c.writes++
	c.v = v + 1
	for _, fn := range c.changed {
		fn(c.v)
	}
	return nil
}

func TestGuardStopsFeedbackLoop(t *testing.T) {
	r := binding.NewRegistry()
	a := newActor()
	cell := &echoCell{v: 5}

	binding.MustBind[int32](r, r.Register(a), a.Health, cell)
	require.Equal(t, int32(5), a.Health.Get())

	a.Health.Set(40)
	assert.Equal(t, 1, cell.writes)
	assert.Equal(t, int32(40), a.Health.Get())
}

func TestRebindDetachesPrevious(t *testing.T) {
	dump, s := fixture(t)
	first := position(t, s, 0x10)
	second := position(t, s, 0x18)

	r := binding.NewRegistry()
	a := newActor()
	h := r.Register(a)

	b1, err := binding.BindNamed[pod.Vector3](r, h, "Position", first)
	require.NoError(t, err)
	b2, err := binding.BindNamed[pod.Vector3](r, h, "Position", second)
	require.NoError(t, err)

	assert.True(t, b1.Detached())
	assert.False(t, b2.Detached())
	assert.True(t, r.Bound(h, "Position"))
	assert.Equal(t, pod.Vector3{X: 7, Y: 8, Z: 9}, a.Position.Get())

	dump.Poke(actorA+0x20, pod.Encode(pod.Vector3{X: 100}))
	s.Tick()
	assert.Equal(t, pod.Vector3{X: 7, Y: 8, Z: 9}, a.Position.Get())

	a.Position.Set(pod.Vector3{X: 5})
	assert.Equal(t, pod.Encode(pod.Vector3{X: 5}), dump.Peek(actorB+0x20, 12))
	assert.Equal(t, pod.Encode(pod.Vector3{X: 100}), dump.Peek(actorA+0x20, 12))
}

func TestReleaseDetaches(t *testing.T) {
	dump, s := fixture(t)
	m := position(t, s, 0x10)

	r := binding.NewRegistry()
	a := newActor()
	h := r.Register(a)
	b := binding.MustBind[pod.Vector3](r, h, a.Position, m)

	r.Release(h)
	assert.True(t, b.Detached())
	assert.False(t, r.Valid(h))
	assert.Zero(t, a.Position.Subscribers())

	dump.Poke(actorA+0x20, pod.Encode(pod.Vector3{X: 50}))
	s.Tick()
	assert.Equal(t, pod.Vector3{X: 1, Y: 2, Z: 3}, a.Position.Get())

	_, err := binding.Bind[pod.Vector3](r, h, a.Position, m)
	assert.ErrorIs(t, err, binding.ErrBindingContract)

	h2 := r.Register(newActor())
	assert.NotEqual(t, h, h2)
	assert.True(t, r.Valid(h2))
	assert.False(t, r.Valid(h))
}

func TestDisposingMarshalerDetaches(t *testing.T) {
	_, s := fixture(t)
	m, err := marshal.Acquire[pod.Vector3](s, offset.New(0x10, 0x20), nil)
	require.NoError(t, err)

	r := binding.NewRegistry()
	a := newActor()
	h := r.Register(a)
	b := binding.MustBind[pod.Vector3](r, h, a.Position, m)

	require.NoError(t, m.Close())
	assert.True(t, b.Detached())
	assert.False(t, r.Bound(h, "Position"))
}

func TestWriteFailureKeepsPropertyValue(t *testing.T) {
	dump, s := fixture(t)
	m := position(t, s, 0x10)

	r := binding.NewRegistry()
	a := newActor()
	b := binding.MustBind[pod.Vector3](r, r.Register(a), a.Position, m)

	var reported []error
	b.OnError(func(err error) { reported = append(reported, err) })

	dump.PokeUint64(moduleBase+0x10, 0)
	s.Tick()

	want := pod.Vector3{X: 3, Y: 3, Z: 3}
	a.Position.Set(want)

	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], marshal.ErrStaleAddress)
	assert.ErrorIs(t, b.Err(), process.ErrInvalidAddress)
	assert.Equal(t, want, a.Position.Get())
	assert.Zero(t, dump.Writes())
}

func TestBindNamedContract(t *testing.T) {
	_, s := fixture(t)
	m := position(t, s, 0x10)
	health, err := marshal.Acquire[int32](s, offset.New(0x10, 0x0), nil)
	require.NoError(t, err)
	defer health.Close()

	r := binding.NewRegistry()
	h := r.Register(newActor())

	_, err = binding.BindNamed[pod.Vector3](r, h, "Velocity", m)
	assert.ErrorIs(t, err, binding.ErrBindingContract)

	_, err = binding.BindNamed[int32](r, h, "Position", health)
	assert.ErrorIs(t, err, binding.ErrBindingContract)

	plain := r.Register(struct{ Name string }{"not bindable"})
	_, err = binding.BindNamed[pod.Vector3](r, plain, "Position", m)
	assert.ErrorIs(t, err, binding.ErrBindingContract)

	assert.Panics(t, func() {
		binding.MustBindNamed[pod.Vector3](r, plain, "Position", m)
	})

	_, err = binding.BindNamed[int32](r, h, "Health", health)
	assert.NoError(t, err)
}

func TestValueNotifiesOnChangeOnly(t *testing.T) {
	v := binding.NewValue("Scale", float32(1))

	var got []float32
	cancel := v.Subscribe(func(f float32) { got = append(got, f) })

	v.Set(1)
	v.Set(2)
	v.Set(2)
	cancel()
	v.Set(3)

	assert.Equal(t, []float32{2}, got)
	assert.Equal(t, float32(3), v.Get())
	assert.Equal(t, "Scale", v.Name())
}

func TestNaNComponentIsNotWrittenBack(t *testing.T) {
	dump, s := fixture(t)
	nan := float32(math.NaN())
	dump.Poke(actorA+0x20, pod.Encode(pod.Vector3{X: 1, Y: nan, Z: 3}))
	m := position(t, s, 0x10)

	r := binding.NewRegistry()
	a := newActor()
	b := binding.MustBind[pod.Vector3](r, r.Register(a), a.Position, m)

	var notified int
	a.Position.Subscribe(func(pod.Vector3) { notified++ })

	for i := 0; i < 4; i++ {
		s.Tick()
	}

	assert.Zero(t, dump.Writes())
	assert.Zero(t, notified)
	assert.NoError(t, b.Err())
	assert.True(t, math.IsNaN(float64(a.Position.Get().Y)))

	dump.Poke(actorA+0x20, pod.Encode(pod.Vector3{X: 2, Y: nan, Z: 3}))
	s.Tick()
	s.Tick()
	assert.Equal(t, 1, notified)
	assert.Zero(t, dump.Writes())
}
