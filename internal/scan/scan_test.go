package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	header := "ply\nformat binary_little_endian 1.0\nelement vertex 42\n" +
		"property float x\nproperty float y\nproperty float z\nend_header\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ply"), []byte(header), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.PTS"), []byte("1 2 3 0 1 2 3\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "broken.ply"), []byte("not a ply"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644))

	entries, err := Walk(root)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byPath := make(map[string]Entry, len(entries))
	for _, e := range entries {
		rel, err := filepath.Rel(root, e.Path)
		require.NoError(t, err)
		byPath[filepath.ToSlash(rel)] = e
	}

	a := byPath["a.ply"]
	assert.Equal(t, "ply", a.Format)
	assert.Equal(t, int64(42), a.Points)
	assert.Equal(t, int64(len(header)), a.Size)

	b := byPath["sub/b.PTS"]
	assert.Equal(t, "pts", b.Format)
	assert.Equal(t, int64(-1), b.Points)

	broken := byPath["sub/broken.ply"]
	assert.Equal(t, "ply", broken.Format)
	assert.Equal(t, int64(-1), broken.Points)
}

func TestWalkEmptyTree(t *testing.T) {
	entries, err := Walk(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
