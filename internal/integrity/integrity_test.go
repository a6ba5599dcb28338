package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestParseAlgorithm(t *testing.T) {
	for name, want := range map[string]Algorithm{
		"blake3": BLAKE3,
		"BLAKE3": BLAKE3,
		"sha256": SHA256,
		"md5":    MD5,
	} {
		got, err := ParseAlgorithm(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseAlgorithm("crc32")
	assert.Error(t, err)
}

func TestFileDigests(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.bin", []byte("hello points"))

	for _, a := range []Algorithm{BLAKE3, SHA256, MD5} {
		res, err := File(path, a)
		require.NoError(t, err, a)
		assert.Equal(t, a, res.Algorithm)
		assert.Equal(t, int64(12), res.Size)
		assert.NotEmpty(t, res.Hash)

		ok, err := Verify(path, res.Hash, a)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = Verify(path, "deadbeef", a)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	// Digest length is algorithm-specific (hex chars).
	b3, _ := File(path, BLAKE3)
	sha, _ := File(path, SHA256)
	md, _ := File(path, MD5)
	assert.Len(t, b3.Hash, 64)
	assert.Len(t, sha.Hash, 64)
	assert.Len(t, md.Hash, 32)
	assert.NotEqual(t, b3.Hash, sha.Hash)
}

func TestPayloadIgnoresHeaderDifferences(t *testing.T) {
	dir := t.TempDir()
	records := []byte{1, 2, 3, 4, 5, 6, 7, 8, '\n'}

	a := writeFile(t, dir, "a.ply", append([]byte(
		"ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty double x\nend_header\n"), records...))
	b := writeFile(t, dir, "b.ply", append([]byte(
		"ply\nformat binary_little_endian 1.0\ncomment produced by another tool\nelement vertex 000000001\nproperty double x\nend_header\n"), records...))

	ra, err := Payload(a, BLAKE3)
	require.NoError(t, err)
	rb, err := Payload(b, BLAKE3)
	require.NoError(t, err)
	assert.Equal(t, ra.Hash, rb.Hash)
	assert.Equal(t, int64(len(records)), ra.Size)

	// Whole-file digests do differ.
	fa, err := File(a, BLAKE3)
	require.NoError(t, err)
	fb, err := File(b, BLAKE3)
	require.NoError(t, err)
	assert.NotEqual(t, fa.Hash, fb.Hash)
}

func TestPayloadRequiresEndHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.ply", []byte("ply\nnot a real header\n"))

	_, err := Payload(path, BLAKE3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_header")
}

func TestMissingFile(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "absent"), BLAKE3)
	assert.Error(t, err)
}
