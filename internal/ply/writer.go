package ply

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

const (
	// headerCountPrefix is everything the emitted header contains before
	// the vertex count field. Its length is the fixed byte offset of the
	// count field, shared by header emission, append resume and finalize.
	headerCountPrefix = "ply\nformat binary_little_endian 1.0\nelement vertex "

	// countFieldWidth is the fixed width of the zero-padded decimal vertex
	// count, wide enough for any 64-bit count. Patching the count in place
	// must never shift another byte in the file.
	countFieldWidth = 21
)

// OpenMode selects between truncating an existing file and resuming it.
type OpenMode uint8

const (
	// Truncate discards any existing file content.
	Truncate OpenMode = iota
	// Append resumes a previously finalized file: the written count field
	// is read back and new records continue where the old ones ended.
	Append
)

// Writer emits the binary little-endian PLY layout. The header is written
// lazily on the first non-empty write, with a placeholder count field that
// Close patches once the final point count is known.
//
// A Writer accepts either batches or single points; in practice one form is
// used per instance, since the lazily derived attribute list differs.
type Writer struct {
	dw         *dataWriter
	encoding   Encoding
	pointCount int64
	scratch    [24]byte
}

// NewWriter opens path for writing with the given position encoding. In
// Append mode an existing finalized file contributes its count and new
// records overwrite its trailing newline; a zero count means no header
// exists yet and one is still produced on first write.
func NewWriter(path string, encoding Encoding, mode OpenMode) (*Writer, error) {
	var pointCount int64
	if mode == Append {
		n, err := readCountField(path)
		if err != nil {
			return nil, err
		}
		pointCount = n
		if pointCount > 0 {
			// Resumed records must have the same layout as the existing
			// ones, or nothing downstream can decode the file.
			if err := checkResumedEncoding(path, encoding.positionToken()); err != nil {
				return nil, err
			}
		}
	}

	flags := os.O_RDWR | os.O_CREATE
	if mode == Truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ply: could not open output file: %w", err)
	}

	dw := newDataWriter(f)
	if pointCount > 0 {
		// Finalized files always end with a single newline; position one
		// byte before the end so it is overwritten, not duplicated.
		if _, err := dw.Seek(-1, io.SeekEnd); err != nil {
			dw.Close()
			return nil, fmt.Errorf("ply: seeking to end of existing file: %w", err)
		}
	}

	return &Writer{dw: dw, encoding: encoding, pointCount: pointCount}, nil
}

// readCountField parses the fixed-width vertex count of an existing file.
// A missing or too-short file yields zero.
func readCountField(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("ply: stat existing file: %w", err)
	}
	if info.Size() < int64(len(headerCountPrefix)+countFieldWidth) {
		return 0, nil
	}

	field := make([]byte, countFieldWidth)
	if _, err := f.ReadAt(field, int64(len(headerCountPrefix))); err != nil {
		return 0, fmt.Errorf("ply: reading count field: %w", err)
	}
	n, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ply: corrupt count field %q: %w", field, err)
	}
	return n, nil
}

// checkResumedEncoding parses the existing file's header and verifies that
// its declared x/y/z scalar token matches the token the writer would emit.
func checkResumedEncoding(path, token string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ply: could not reopen existing file: %w", err)
	}
	defer f.Close()

	header, _, err := ParseHeader(bufio.NewReader(f))
	if err != nil {
		return err
	}
	vertex := header.Element("vertex")
	if vertex == nil {
		return errors.New("ply: existing file declares no vertex element")
	}
	for _, p := range vertex.Properties {
		if p.Name == "x" {
			if got := p.Type.Token(); got != token {
				return fmt.Errorf("ply: existing file stores %s positions, writer is configured for %s", got, token)
			}
			return nil
		}
	}
	return errors.New("ply: existing file declares no x property")
}

// PointCount returns the number of points written so far, including any
// count resumed in Append mode.
func (w *Writer) PointCount() int64 { return w.pointCount }

type attrDecl struct {
	name       string
	token      string
	components int
}

// Write encodes all points of the batch. An empty batch is a no-op. The
// first non-empty write derives the header's attribute property list from
// the batch's column set.
func (w *Writer) Write(batch *points.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.Validate(); err != nil {
		return err
	}

	names := batch.AttributeNames()
	if w.pointCount == 0 {
		decls := make([]attrDecl, 0, len(names))
		for _, name := range names {
			kind := batch.Attributes[name].Kind()
			decls = append(decls, attrDecl{name: name, token: kind.ScalarToken(), components: kind.Components()})
		}
		if err := w.writeHeader(decls); err != nil {
			return err
		}
	}

	cols := make([]points.Column, len(names))
	for i, name := range names {
		cols[i] = batch.Attributes[name]
	}

	for i := 0; i < batch.Len(); i++ {
		n := w.encoding.encodePosition(w.scratch[:], batch.Position[i])
		if _, err := w.dw.Write(w.scratch[:n]); err != nil {
			return fmt.Errorf("ply: writing point %d: %w", w.pointCount+int64(i), err)
		}
		for _, col := range cols {
			n := col.EncodeElem(w.scratch[:], i)
			if _, err := w.dw.Write(w.scratch[:n]); err != nil {
				return fmt.Errorf("ply: writing point %d: %w", w.pointCount+int64(i), err)
			}
		}
	}

	w.pointCount += int64(batch.Len())
	return nil
}

// WritePoint encodes a single point: position, color, and the intensity
// attribute if the point carries one.
func (w *Writer) WritePoint(p points.Point) error {
	if w.pointCount == 0 {
		decls := []attrDecl{{name: "color", token: "uchar", components: 3}}
		if p.Intensity != nil {
			decls = append(decls, attrDecl{name: "intensity", token: "float", components: 1})
		}
		if err := w.writeHeader(decls); err != nil {
			return err
		}
	}

	n := w.encoding.encodePosition(w.scratch[:], p.Position)
	if _, err := w.dw.Write(w.scratch[:n]); err != nil {
		return fmt.Errorf("ply: writing point %d: %w", w.pointCount, err)
	}
	if _, err := w.dw.Write(p.Color[:]); err != nil {
		return fmt.Errorf("ply: writing point %d: %w", w.pointCount, err)
	}
	if p.Intensity != nil {
		binary.LittleEndian.PutUint32(w.scratch[:], math.Float32bits(*p.Intensity))
		if _, err := w.dw.Write(w.scratch[:4]); err != nil {
			return fmt.Errorf("ply: writing point %d: %w", w.pointCount, err)
		}
	}

	w.pointCount++
	return nil
}

// writeHeader emits the full textual header with a zeroed count field. A
// column named color, rgb or rgba expands to named channel properties; any
// other multi-component column expands to indexed names.
func (w *Writer) writeHeader(attrs []attrDecl) error {
	var sb strings.Builder
	sb.WriteString(headerCountPrefix)
	sb.WriteString(strings.Repeat("0", countFieldWidth))
	sb.WriteByte('\n')

	posToken := w.encoding.positionToken()
	for _, axis := range [3]string{"x", "y", "z"} {
		fmt.Fprintf(&sb, "property %s %s\n", posToken, axis)
	}

	for _, attr := range attrs {
		switch {
		case attr.name == "color" || attr.name == "rgb" || attr.name == "rgba":
			channels := [4]string{"red", "green", "blue", "alpha"}
			for _, ch := range channels[:attr.components] {
				fmt.Fprintf(&sb, "property %s %s\n", attr.token, ch)
			}
		case attr.components > 1:
			for i := 0; i < attr.components; i++ {
				fmt.Fprintf(&sb, "property %s %s%d\n", attr.token, attr.name, i)
			}
		default:
			fmt.Fprintf(&sb, "property %s %s\n", attr.token, attr.name)
		}
	}
	sb.WriteString("end_header\n")

	if _, err := w.dw.WriteString(sb.String()); err != nil {
		return fmt.Errorf("ply: writing header: %w", err)
	}
	return nil
}

// Close finalizes the file: it appends the trailing newline, patches the
// reserved count field in place and closes the file. If nothing was ever
// written the file is left untouched beyond what open produced. The count
// patch is best effort; if the seek back fails the file keeps its previous
// declared count, which Append mode can later resume from.
func (w *Writer) Close() error {
	if w.pointCount == 0 {
		return w.dw.Close()
	}

	if _, err := w.dw.WriteString("\n"); err != nil {
		w.dw.Close()
		return fmt.Errorf("ply: writing trailing newline: %w", err)
	}
	if _, err := w.dw.Seek(int64(len(headerCountPrefix)), io.SeekStart); err == nil {
		fmt.Fprintf(w.dw, "%0*d", countFieldWidth, w.pointCount)
	}
	return w.dw.Close()
}
