package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

// ErrUnsupportedFormat is returned at open time when the declared format is
// not the binary little-endian variant.
var ErrUnsupportedFormat = errors.New("ply: unsupported format")

// recordsPerFill sizes the read buffer as a multiple of the per-point
// record size, so every fill contains only whole records.
const recordsPerFill = 1024

// Reader decodes the binary point records of a PLY file into a lazy, finite
// sequence of columnar batches. It is not restartable; open a fresh Reader
// to decode the file again.
type Reader struct {
	f         *os.File
	br        *bufio.Reader
	schema    *recordSchema
	batchSize int
	total     int64
	decoded   int64
	offset    points.Vec3
}

// NewReader opens a PLY file for batched decoding. It fails if the file
// cannot be opened, the header is malformed, the vertex element or its
// x/y/z properties are missing, or the declared format is not binary
// little-endian.
func NewReader(path string, batchSize int) (*Reader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("ply: batch size must be positive, got %d", batchSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ply: could not open input file: %w", err)
	}

	header, headerLen, err := ParseHeader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	if header.Format != BinaryLittleEndianV1 {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, header.Format)
	}
	vertex := header.Element("vertex")
	if vertex == nil {
		f.Close()
		return nil, errors.New("ply: header does not declare a vertex element")
	}
	if vertex.Count < 0 {
		f.Close()
		return nil, fmt.Errorf("ply: invalid vertex count %d", vertex.Count)
	}

	schema, err := compileVertexSchema(vertex)
	if err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.Seek(headerLen, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("ply: seeking past header: %w", err)
	}

	return &Reader{
		f:         f,
		br:        bufio.NewReaderSize(f, schema.recordSize*recordsPerFill),
		schema:    schema,
		batchSize: batchSize,
		total:     vertex.Count,
		offset:    header.Offset,
	}, nil
}

// TotalPoints returns the point count declared in the header.
func (r *Reader) TotalPoints() int64 { return r.total }

// NumBatches returns the number of batches the full sequence yields.
func (r *Reader) NumBatches() int {
	return int((r.total + int64(r.batchSize) - 1) / int64(r.batchSize))
}

// Next decodes and returns the next batch. It returns io.EOF once all
// declared points have been decoded; only the final batch may be shorter
// than the configured batch size.
func (r *Reader) Next() (*points.Batch, error) {
	if r.decoded == r.total {
		return nil, io.EOF
	}

	batch := r.schema.newBatch()
	for batch.Len() < r.batchSize && r.decoded < r.total {
		buf, err := r.br.Peek(r.schema.recordSize)
		if len(buf) < r.schema.recordSize {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("ply: point %d: %w", r.decoded, err)
		}

		row := batch.Len()
		batch.AppendZeroRow()
		off := 0
		for _, step := range r.schema.steps {
			if step.decode != nil {
				step.decode(buf[off:off+step.width], batch, row)
			}
			off += step.width
		}
		batch.Position[row] = batch.Position[row].Add(r.offset)

		if _, err := r.br.Discard(r.schema.recordSize); err != nil {
			return nil, fmt.Errorf("ply: point %d: %w", r.decoded, err)
		}
		r.decoded++
	}
	return batch, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }
