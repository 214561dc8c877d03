package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKVRoundTrip(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("savedLocations", `[{"id":1}]`))
	v, ok, err := kv.Get("savedLocations")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, v)

	// Overwrite replaces the whole value.
	require.NoError(t, kv.Set("savedLocations", `[]`))
	v, _, _ = kv.Get("savedLocations")
	assert.Equal(t, `[]`, v)
}

func TestFileKVNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Set("k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", filepath.Base(entries[0].Name()))
}
