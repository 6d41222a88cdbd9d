package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.go"), []byte("package b"), 0o644))

	src := NewFilesystemSource(dir)
	files, err := src.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "sub/b.go"}, files)

	data, err := src.ReadFile("sub/b.go")
	require.NoError(t, err)
	assert.Equal(t, "package b", string(data))

	_, err = src.ReadFile("missing.go")
	assert.Error(t, err)
}

func TestMapSource(t *testing.T) {
	src := NewMapSource(map[string][]byte{
		"z.py": []byte("pass"),
		"a.py": []byte("pass"),
	})

	files, err := src.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "z.py"}, files, "files are sorted")

	data, err := src.ReadFile("z.py")
	require.NoError(t, err)
	assert.Equal(t, "pass", string(data))

	_, err = src.ReadFile("nope")
	assert.Error(t, err)
}
