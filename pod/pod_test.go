package pod

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGender uint8

type testPose struct {
	Position Vector3
	Rotation Quaternion
	Scale    Vector3
}

func roundTrip[T comparable](t *testing.T, v T) {
	t.Helper()
	data := Encode(v)
	require.Len(t, data, int(SizeOf[T]()))
	got, err := Decode[T](data)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestRoundTrip(t *testing.T) {
	roundTrip(t, uint8(0xab))
	roundTrip(t, int16(-1234))
	roundTrip(t, uint32(0xdeadbeef))
	roundTrip(t, int64(math.MinInt64))
	roundTrip(t, float32(3.25))
	roundTrip(t, math.Pi)
	roundTrip(t, true)
	roundTrip(t, testGender(1))
	roundTrip(t, Vector3{1, -2, 3.5})
	roundTrip(t, Quaternion{0, 0, 0.7071, 0.7071})
	roundTrip(t, Color{R: 1, G: 0.5})
	roundTrip(t, testPose{Position: Vector3{1, 2, 3}, Rotation: Quaternion{W: 1}, Scale: Vector3{1, 1, 1}})
}

func TestLayout(t *testing.T) {
	data := Encode(Vector3{1, 2, 3})
	require.Len(t, data, 12)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[0:])))
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(data[4:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(data[8:])))

	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, Encode(uint32(0x12345678)))
	assert.Len(t, Encode(testGender(2)), 1)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check[Vector3]())
	assert.ErrorIs(t, Check[string](), ErrNotPOD)
	assert.ErrorIs(t, Check[[]byte](), ErrNotPOD)
	assert.ErrorIs(t, Check[struct{ P *int }](), ErrNotPOD)
	assert.Error(t, Check[struct{}]())

	_, err := Decode[string]([]byte("abcdefghabcdefgh"))
	assert.ErrorIs(t, err, ErrNotPOD)
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode[uint64]([]byte{1, 2, 3})
	assert.Error(t, err)
}

type testFlags struct {
	Visible bool
	_       [3]byte
	Count   int32
	Bits    [2]bool
}

func TestDecodeNormalizesBool(t *testing.T) {
	b, err := Decode[bool]([]byte{0x02})
	require.NoError(t, err)
	assert.True(t, b)
	assert.Equal(t, []byte{1}, Encode(b))

	f, err := Decode[testFlags]([]byte{0xff, 9, 9, 9, 7, 0, 0, 0, 0x10, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, f.Visible)
	assert.Equal(t, int32(7), f.Count)
	assert.Equal(t, [2]bool{true, false}, f.Bits)

	raw := Encode(f)
	assert.Equal(t, byte(1), raw[0])
	assert.Equal(t, []byte{9, 9, 9}, raw[1:4])
	assert.Equal(t, []byte{1, 0}, raw[8:10])
}

func TestEqual(t *testing.T) {
	nan := float32(math.NaN())
	assert.True(t, Equal(nan, nan))
	assert.False(t, Equal(float32(0), float32(math.Copysign(0, -1))))
	assert.True(t, Equal(Vector3{1, nan, 3}, Vector3{1, nan, 3}))
	assert.False(t, Equal(Vector3{1, 2, 3}, Vector3{1, 2, 4}))
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
}
