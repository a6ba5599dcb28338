// Package cache implements a compressed on-disk cache of point batches. A
// cache file is a sequence of framed chunks, one per batch: a fixed header
// carrying the chunk index, point count, payload length and a pair of
// 64-bit checksums, followed by a zstd-compressed FlatBuffers blob of the
// batch's columns. Chunks can only be read back in order.
package cache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/spaolacci/murmur3"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

const (
	// chunkMagic identifies the start of a chunk ("PLYC" in ASCII).
	chunkMagic uint32 = 0x504C5943

	// Chunk header: [Magic(4)] [Index(4)] [Count(4)] [PayloadLen(4)]
	// [XXHash64(8)] [Murmur3-64(8)], all little-endian.
	chunkHeaderSize = 32

	// maxChunkPayload bounds a single chunk's compressed payload. The
	// length field is read before the checksums are verified, so it must
	// not be trusted for allocation.
	maxChunkPayload = 256 << 20
)

// ErrChecksum is returned when a chunk's payload does not match its
// recorded checksums.
var ErrChecksum = errors.New("cache: chunk checksum mismatch")

// Writer appends batches to a cache file.
type Writer struct {
	f     *os.File
	bw    *bufio.Writer
	enc   *zstd.Encoder
	index uint32
}

// NewWriter creates (or truncates) a cache file.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cache: could not create file: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cache: failed to create zstd encoder: %w", err)
	}
	return &Writer{f: f, bw: bufio.NewWriter(f), enc: enc}, nil
}

// WriteBatch appends one batch as a framed chunk. Empty batches are
// skipped.
func (w *Writer) WriteBatch(batch *points.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.Validate(); err != nil {
		return err
	}

	payload := w.enc.EncodeAll(encodeBatchBlob(batch), nil)
	if len(payload) > maxChunkPayload {
		return fmt.Errorf("cache: chunk %d payload is %d bytes, limit is %d", w.index, len(payload), maxChunkPayload)
	}

	var header [chunkHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], chunkMagic)
	binary.LittleEndian.PutUint32(header[4:8], w.index)
	binary.LittleEndian.PutUint32(header[8:12], uint32(batch.Len()))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(payload)))
	binary.LittleEndian.PutUint64(header[16:24], xxhash.Sum64(payload))
	binary.LittleEndian.PutUint64(header[24:32], murmur3.Sum64(payload))

	if _, err := w.bw.Write(header[:]); err != nil {
		return fmt.Errorf("cache: writing chunk %d header: %w", w.index, err)
	}
	if _, err := w.bw.Write(payload); err != nil {
		return fmt.Errorf("cache: writing chunk %d payload: %w", w.index, err)
	}
	w.index++
	return nil
}

// Close flushes and closes the cache file.
func (w *Writer) Close() error {
	flushErr := w.bw.Flush()
	w.enc.Close()
	closeErr := w.f.Close()
	if flushErr != nil {
		return fmt.Errorf("cache: flushing file: %w", flushErr)
	}
	return closeErr
}

// Reader iterates the chunks of a cache file in order.
type Reader struct {
	f    *os.File
	br   *bufio.Reader
	dec  *zstd.Decoder
	next uint32
}

// NewReader opens a cache file for sequential reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: could not open file: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cache: failed to create zstd decoder: %w", err)
	}
	return &Reader{f: f, br: bufio.NewReader(f), dec: dec}, nil
}

// Next reads and verifies the next chunk, returning its batch. It returns
// io.EOF at the end of the file.
func (r *Reader) Next() (*points.Batch, error) {
	var header [chunkHeaderSize]byte
	if _, err := io.ReadFull(r.br, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("cache: reading chunk %d header: %w", r.next, err)
	}

	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != chunkMagic {
		return nil, fmt.Errorf("cache: invalid chunk magic: %#x", magic)
	}
	index := binary.LittleEndian.Uint32(header[4:8])
	if index != r.next {
		return nil, fmt.Errorf("cache: chunk out of order: got %d, want %d", index, r.next)
	}
	count := binary.LittleEndian.Uint32(header[8:12])
	payloadLen := binary.LittleEndian.Uint32(header[12:16])
	if payloadLen > maxChunkPayload {
		return nil, fmt.Errorf("cache: chunk %d declares a %d byte payload, limit is %d", index, payloadLen, maxChunkPayload)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, fmt.Errorf("cache: reading chunk %d payload: %w", index, err)
	}
	if xxhash.Sum64(payload) != binary.LittleEndian.Uint64(header[16:24]) ||
		murmur3.Sum64(payload) != binary.LittleEndian.Uint64(header[24:32]) {
		return nil, fmt.Errorf("%w: chunk %d", ErrChecksum, index)
	}

	blob, err := r.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: decompressing chunk %d: %w", index, err)
	}
	batch, err := decodeBatchBlob(blob)
	if err != nil {
		return nil, err
	}
	if batch.Len() != int(count) {
		return nil, fmt.Errorf("cache: chunk %d declares %d points but decodes %d", index, count, batch.Len())
	}

	r.next++
	return batch, nil
}

// Close releases the reader's resources.
func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}
