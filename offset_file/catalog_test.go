package offset_file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livemem/offset"
)

const sample = `
offsets:
  health: "0x10, 0x8"
  position: { offset: "0x50, 0x20", type: vector3, base: player }
bases:
  player: "0x1D2C3E0"
tables:
  actors: { offset: "1D2C3E0", count_width: 2 }
  props: { offset: "0x1D2C400" }
flags:
  freeze_physics: ["0x140A1B2", "0x90, 0x90", "0x0F, 0x29"]
`

func TestParseHexList(t *testing.T) {
	v, err := ParseHexList("0x1D2C3E0, 0x50 ,20")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x1D2C3E0, 0x50, 0x20}, v)

	v, err = ParseHexList("  ")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = ParseHexList("0x10,,0x20")
	assert.Error(t, err)
	_, err = ParseHexList("0xZZ")
	assert.Error(t, err)

	b, err := ParseHexBytes("0x90, 0x0F")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x0F}, b)
	_, err = ParseHexBytes("0x100")
	assert.Error(t, err)
}

func TestParseCatalog(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	health, err := c.Entry("health")
	require.NoError(t, err)
	assert.True(t, health.Offset.Equal(offset.New(0x10, 0x8)))
	assert.Nil(t, c.BaseOf(health))

	position, err := c.Entry("position")
	require.NoError(t, err)
	assert.Equal(t, "vector3", position.Type)
	require.NotNil(t, c.BaseOf(position))
	assert.True(t, c.BaseOf(position).Equal(offset.NewBase(0x1D2C3E0)))

	actors, err := c.Table("actors")
	require.NoError(t, err)
	assert.Equal(t, 2, actors.CountWidth())
	assert.Equal(t, []uint64{0x1D2C3E0}, actors.Steps())

	props, err := c.Table("props")
	require.NoError(t, err)
	assert.Equal(t, offset.DefaultCountWidth, props.CountWidth())

	flag, err := c.Flag("freeze_physics")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x90}, flag.On())
	assert.Equal(t, []byte{0x0F, 0x29}, flag.Off())
	assert.Equal(t, []uint64{0x140A1B2}, flag.Steps())

	assert.Equal(t, []string{"actors", "freeze_physics", "health", "player", "position", "props"}, c.Names())

	_, err = c.Entry("missing")
	assert.ErrorIs(t, err, ErrUnknownName)
	_, err = c.Flag("missing")
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestParseCatalogErrors(t *testing.T) {
	cases := map[string]string{
		"bad flag arity":     "flags:\n  f: [\"0x1\", \"0x90\"]\n",
		"mismatched flag":    "flags:\n  f: [\"0x1\", \"0x90\", \"0x0F, 0x29\"]\n",
		"unknown base":       "offsets:\n  p: { offset: \"0x1\", base: nobody }\n",
		"bad count width":    "tables:\n  t: { offset: \"0x1\", count_width: 3 }\n",
		"empty offset":       "offsets:\n  p: \"\"\n",
		"not hex":            "bases:\n  b: \"0xQ\"\n",
		"not a yaml mapping": "- just\n- a list\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("flags:\n  f: [\"0x1\", \"0x90\", \"0x0F, 0x29\"]\n"))
	assert.ErrorIs(t, err, offset.ErrBadPattern)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offsets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Entries, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
