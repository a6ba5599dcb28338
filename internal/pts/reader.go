// Package pts reads plain-text point lists: one point per line, seven
// comma- or space-separated columns (x y z intensity r g b). It exposes the
// same lazy batch sequence as the binary ply reader, but the format carries
// no declared point count and lines that do not have exactly seven columns
// are skipped.
package pts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

// Reader decodes a .pts file into columnar batches.
type Reader struct {
	f         *os.File
	br        *bufio.Reader
	batchSize int
	line      int64
}

// NewReader opens a .pts file for batched decoding.
func NewReader(path string, batchSize int) (*Reader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("pts: batch size must be positive, got %d", batchSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pts: could not open input file: %w", err)
	}
	return &Reader{f: f, br: bufio.NewReader(f), batchSize: batchSize}, nil
}

// TotalPoints reports that the format declares no point count.
func (r *Reader) TotalPoints() int64 { return -1 }

func isSeparator(c rune) bool { return c == ' ' || c == ',' }

// Next returns the next batch, or io.EOF once the file is exhausted. Every
// batch carries a position and a color column; the intensity column of the
// line format is not stored.
func (r *Reader) Next() (*points.Batch, error) {
	batch := points.NewBatch()
	color := &points.U8Vec3Column{Values: make([][3]uint8, 0, r.batchSize)}
	batch.Position = make([]points.Vec3, 0, r.batchSize)
	batch.Attributes["color"] = color

	for batch.Len() < r.batchSize {
		line, err := r.br.ReadString('\n')
		if line == "" && err != nil {
			break
		}
		r.line++

		parts := strings.FieldsFunc(strings.TrimSpace(line), isSeparator)
		if len(parts) != 7 {
			continue
		}

		var pos points.Vec3
		for i, dst := range [3]*float64{&pos.X, &pos.Y, &pos.Z} {
			v, err := strconv.ParseFloat(parts[i], 64)
			if err != nil {
				return nil, fmt.Errorf("pts: line %d: invalid coordinate %q", r.line, parts[i])
			}
			*dst = v
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseUint(parts[4+i], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("pts: line %d: invalid color channel %q", r.line, parts[4+i])
			}
			rgb[i] = uint8(v)
		}

		batch.Position = append(batch.Position, pos)
		color.Values = append(color.Values, rgb)
	}

	if batch.Len() == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }
