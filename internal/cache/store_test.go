package cache

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

func sampleBatch(n, seed int) *points.Batch {
	batch := points.NewBatch()
	color := &points.U8Vec3Column{}
	intensity := &points.F32Column{}
	ids := &points.U64Column{}
	batch.Attributes["color"] = color
	batch.Attributes["intensity"] = intensity
	batch.Attributes["id"] = ids

	for i := 0; i < n; i++ {
		f := float64(seed*1000 + i)
		batch.Position = append(batch.Position, points.Vec3{X: f, Y: -f, Z: f / 2})
		color.Values = append(color.Values, [3]uint8{uint8(i), uint8(seed), 200})
		intensity.Values = append(intensity.Values, float32(math.NaN()))
		ids.Values = append(ids.Values, uint64(seed)<<32|uint64(i))
	}
	return batch
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.cache")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(sampleBatch(100, 1)))
	require.NoError(t, w.WriteBatch(points.NewBatch())) // skipped
	require.NoError(t, w.WriteBatch(sampleBatch(3, 2)))
	require.NoError(t, w.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	for i, want := range []*points.Batch{sampleBatch(100, 1), sampleBatch(3, 2)} {
		got, err := r.Next()
		require.NoError(t, err, "chunk %d", i)
		require.Equal(t, want.Len(), got.Len())
		assert.Equal(t, want.Position, got.Position)
		assert.Equal(t, want.AttributeNames(), got.AttributeNames())
		assert.Equal(t, want.Attributes["color"], got.Attributes["color"])
		assert.Equal(t, want.Attributes["id"], got.Attributes["id"])

		wantNaN := want.Attributes["intensity"].(*points.F32Column).Values
		gotNaN := got.Attributes["intensity"].(*points.F32Column).Values
		require.Len(t, gotNaN, len(wantNaN))
		for j := range wantNaN {
			assert.Equal(t, math.Float32bits(wantNaN[j]), math.Float32bits(gotNaN[j]))
		}
	}

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCacheDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.cache")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(sampleBatch(10, 7)))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), chunkHeaderSize)

	// Flip one payload byte; both checksums must notice.
	raw[chunkHeaderSize+5] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestCacheRejectsOversizedPayloadLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.cache")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(sampleBatch(1, 0)))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(raw[12:16], 0xFFFFFFFF)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload")
}

func TestCacheRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.cache")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(sampleBatch(1, 0)))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestBatchBlobRoundTrip(t *testing.T) {
	want := sampleBatch(5, 3)
	got, err := decodeBatchBlob(encodeBatchBlob(want))
	require.NoError(t, err)
	assert.Equal(t, want.Position, got.Position)
	assert.Equal(t, want.Attributes["color"], got.Attributes["color"])

	_, err = decodeBatchBlob([]byte{1, 2, 3})
	assert.Error(t, err)
}
