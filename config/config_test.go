package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livemem/marshal"
)

func TestDefaultsMatchSession(t *testing.T) {
	assert.Equal(t, marshal.DefaultOptions(), Default().SessionOptions())
	assert.NoError(t, Default().Validate())
}

func TestParseKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte("tick-interval: 16ms\nprocess: game.exe\nbreaker:\n  cooldown: 5s\n"))
	require.NoError(t, err)

	assert.Equal(t, 16*time.Millisecond, c.TickInterval)
	assert.Equal(t, "game.exe", c.Process)
	assert.Equal(t, 5*time.Second, c.Breaker.Cooldown)
	assert.Equal(t, uint32(5), c.Breaker.Failures)
	assert.Equal(t, 1024, c.CacheSize)
}

func TestParseRejectsBadValues(t *testing.T) {
	for _, doc := range []string{
		"tick-interval: 0s\n",
		"cache-size: -1\n",
		"breaker:\n  failures: 0\n",
		"tick-interval: soon\n",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", configFile)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c.Module = "game.exe"
	c.CacheSize = 64
	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
