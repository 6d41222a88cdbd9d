package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), 1, true)
	require.NoError(t, err)
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("key1", []byte("value1")))
	data, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value1", string(data))

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestGetWithHash(t *testing.T) {
	c := newTestCache(t)

	hash := HashBytes([]byte("source content"))
	require.NoError(t, c.SetWithHash("file.go", hash, []byte("result")))

	data, ok := c.GetWithHash("file.go", hash)
	require.True(t, ok)
	assert.Equal(t, "result", string(data))

	// A different hash means the source changed; entry must not be served.
	_, ok = c.GetWithHash("file.go", HashBytes([]byte("changed content")))
	assert.False(t, ok)
}

func TestCorruptEntryIsMissAndReported(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("key", []byte("data")))

	// Corrupt the entry on disk.
	path := c.keyPath("key")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	var reported string
	c.OnCorrupt = func(key string, err error) { reported = key }

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, "key", reported)

	// The corrupt file is removed.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", 1, false)
	require.NoError(t, err)

	require.NoError(t, c.Set("key", []byte("value")))
	_, ok := c.Get("key")
	assert.False(t, ok)
	require.NoError(t, c.Clear())
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("key", []byte("value")))
	require.NoError(t, c.Invalidate("key"))
	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestHashBytesDeterministic(t *testing.T) {
	h1 := HashBytes([]byte("abc"))
	h2 := HashBytes([]byte("abc"))
	h3 := HashBytes([]byte("abd"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes([]byte("content")), h)

	_, err = HashFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestGetStats(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("2")))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Greater(t, stats.TotalSize, int64(0))
}
