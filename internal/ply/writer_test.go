package ply

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

// coloredBatch builds n points with distinct positions, colors and NaN
// intensities carrying distinct payload bits.
func coloredBatch(n int) *points.Batch {
	batch := points.NewBatch()
	color := &points.U8Vec3Column{}
	intensity := &points.F32Column{}
	batch.Attributes["color"] = color
	batch.Attributes["intensity"] = intensity

	for i := 0; i < n; i++ {
		f := float64(i + 1)
		batch.Position = append(batch.Position, points.Vec3{X: f, Y: 2 * f, Z: 3 * f})
		color.Values = append(color.Values, [3]uint8{uint8(10 * i), uint8(i), 255})
		nan := math.Float32frombits(0x7FC00000 | uint32(i+1))
		intensity.Values = append(intensity.Values, nan)
	}
	return batch
}

func writeBatches(t *testing.T, path string, enc Encoding, mode OpenMode, batches ...*points.Batch) {
	t.Helper()
	w, err := NewWriter(path, enc, mode)
	require.NoError(t, err)
	for _, b := range batches {
		require.NoError(t, w.Write(b))
	}
	require.NoError(t, w.Close())
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ply")
	writeBatches(t, path, Plain{}, Truncate, coloredBatch(5))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), raw[len(raw)-1])

	countField := string(raw[len(headerCountPrefix) : len(headerCountPrefix)+countFieldWidth])
	assert.Equal(t, fmt.Sprintf("%0*d", countFieldWidth, 5), countField)

	batches := readAll(t, path, 100)
	require.Len(t, batches, 1)
	got := batches[0]
	require.Equal(t, 5, got.Len())

	want := coloredBatch(5)
	assert.Equal(t, want.Position, got.Position)
	assert.Equal(t, want.Attributes["color"], got.Attributes["color"])

	wantNaN := want.Attributes["intensity"].(*points.F32Column).Values
	gotNaN := got.Attributes["intensity"].(*points.F32Column).Values
	require.Len(t, gotNaN, 5)
	for i := range wantNaN {
		assert.Equal(t, math.Float32bits(wantNaN[i]), math.Float32bits(gotNaN[i]), "intensity %d", i)
	}
}

func TestWriterSplitWritesMatchSingleWrite(t *testing.T) {
	dir := t.TempDir()
	whole := filepath.Join(dir, "whole.ply")
	split := filepath.Join(dir, "split.ply")

	batch := coloredBatch(6)
	writeBatches(t, whole, Plain{}, Truncate, batch)

	w, err := NewWriter(split, Plain{}, Truncate)
	require.NoError(t, err)
	require.NoError(t, w.Write(points.NewBatch())) // empty batch is a no-op
	require.NoError(t, w.Write(coloredBatch(2)))
	rest := coloredBatch(6)
	rest.Position = rest.Position[2:]
	rest.Attributes["color"].(*points.U8Vec3Column).Values = rest.Attributes["color"].(*points.U8Vec3Column).Values[2:]
	rest.Attributes["intensity"].(*points.F32Column).Values = rest.Attributes["intensity"].(*points.F32Column).Values[2:]
	require.NoError(t, w.Write(rest))
	require.NoError(t, w.Close())

	a, err := os.ReadFile(whole)
	require.NoError(t, err)
	b, err := os.ReadFile(split)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriterAppendResumes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ply")
	writeBatches(t, path, Plain{}, Truncate, coloredBatch(3))

	w, err := NewWriter(path, Plain{}, Append)
	require.NoError(t, err)
	assert.Equal(t, int64(3), w.PointCount())
	require.NoError(t, w.Write(coloredBatch(3)))
	require.NoError(t, w.Close())

	reader, err := NewReader(path, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(6), reader.TotalPoints())
	reader.Close()

	batches := readAll(t, path, 100)
	require.Len(t, batches, 1)
	got := batches[0]
	require.Equal(t, 6, got.Len())

	// The second run repeats the first three points exactly.
	for i := 0; i < 3; i++ {
		assert.Equal(t, got.Position[i], got.Position[i+3])
	}
	color := got.Attributes["color"].(*points.U8Vec3Column).Values
	intensity := got.Attributes["intensity"].(*points.F32Column).Values
	for i := 0; i < 3; i++ {
		assert.Equal(t, color[i], color[i+3])
		assert.Equal(t, math.Float32bits(intensity[i]), math.Float32bits(intensity[i+3]))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// A single trailing newline, never two.
	assert.Equal(t, byte('\n'), raw[len(raw)-1])
	assert.NotEqual(t, byte('\n'), raw[len(raw)-2])
}

func TestWriterAppendRejectsEncodingMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaled.ply")
	enc := ScaledToCube{
		Max:      points.Vec3{X: 10, Y: 10, Z: 10},
		Position: PositionUint16,
	}

	batch := points.NewBatch()
	batch.Position = []points.Vec3{{X: 1, Y: 2, Z: 3}}
	writeBatches(t, path, enc, Truncate, batch)

	// Plain doubles do not line up with 2-byte quantized records.
	_, err := NewWriter(path, Plain{}, Append)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ushort")
	assert.Contains(t, err.Error(), "double")

	// The matching encoding still resumes.
	w, err := NewWriter(path, enc, Append)
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.PointCount())
	more := points.NewBatch()
	more.Position = []points.Vec3{{X: 4, Y: 5, Z: 6}}
	require.NoError(t, w.Write(more))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	countField := string(raw[len(headerCountPrefix) : len(headerCountPrefix)+countFieldWidth])
	assert.Equal(t, fmt.Sprintf("%0*d", countFieldWidth, 2), countField)

	idx := strings.Index(string(raw), "end_header\n")
	require.Positive(t, idx)
	data := raw[idx+len("end_header\n"):]
	assert.Len(t, data, 2*6+1)
}

func TestWriterAppendWithoutExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.ply")
	writeBatches(t, path, Plain{}, Append, coloredBatch(2))

	batches := readAll(t, path, 100)
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].Len())
}

func TestWriterScaledToCube(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaled.ply")
	enc := ScaledToCube{
		Min:      points.Vec3{},
		Max:      points.Vec3{X: 10, Y: 10, Z: 10},
		Position: PositionUint16,
	}

	batch := points.NewBatch()
	batch.Position = []points.Vec3{
		{X: 5, Y: 10, Z: 0},
		{X: -1, Y: 11, Z: 2.5},
	}
	writeBatches(t, path, enc, Truncate, batch)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "property ushort x\nproperty ushort y\nproperty ushort z\n")

	idx := strings.Index(text, "end_header\n")
	require.Positive(t, idx)
	data := raw[idx+len("end_header\n"):]
	require.Len(t, data, 2*6+1)

	// Quantized midpoints and clamped out-of-cube values.
	assert.Equal(t, uint16(32768), binary.LittleEndian.Uint16(data[0:]))
	assert.Equal(t, uint16(65535), binary.LittleEndian.Uint16(data[2:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[4:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[6:]))
	assert.Equal(t, uint16(65535), binary.LittleEndian.Uint16(data[8:]))
	assert.Equal(t, uint16(16384), binary.LittleEndian.Uint16(data[10:]))
}

func TestWriterNoPointsLeavesNoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.ply")

	w, err := NewWriter(path, Plain{}, Truncate)
	require.NoError(t, err)
	require.NoError(t, w.Write(points.NewBatch()))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestWritePoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pts.ply")

	w, err := NewWriter(path, Plain{}, Truncate)
	require.NoError(t, err)
	intensity := float32(0.25)
	require.NoError(t, w.WritePoint(points.Point{
		Position:  points.Vec3{X: 1, Y: 2, Z: 3},
		Color:     [3]uint8{9, 8, 7},
		Intensity: &intensity,
	}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "property uchar red\nproperty uchar green\nproperty uchar blue\n")
	assert.Contains(t, text, "property float intensity\n")

	batches := readAll(t, path, 10)
	require.Len(t, batches, 1)
	got := batches[0]
	assert.Equal(t, points.Vec3{X: 1, Y: 2, Z: 3}, got.Position[0])
	assert.Equal(t, [3]uint8{9, 8, 7}, got.Attributes["color"].(*points.U8Vec3Column).Values[0])
	assert.Equal(t, float32(0.25), got.Attributes["intensity"].(*points.F32Column).Values[0])
}

func TestReadCountFieldTooShort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stub.ply")
	require.NoError(t, os.WriteFile(path, []byte("ply\n"), 0o644))

	n, err := readCountField(path)
	require.NoError(t, err)
	assert.Zero(t, n)
}

var _ io.Writer = (*dataWriter)(nil)
