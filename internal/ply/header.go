package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

// Format identifies the declared encoding of the point data.
type Format uint8

const (
	AsciiV1 Format = iota
	BinaryLittleEndianV1
	BinaryBigEndianV1
)

func (f Format) token() string {
	switch f {
	case AsciiV1:
		return "ascii"
	case BinaryLittleEndianV1:
		return "binary_little_endian"
	case BinaryBigEndianV1:
		return "binary_big_endian"
	default:
		return "unknown"
	}
}

func (f Format) String() string { return f.token() }

// ErrNotPly is returned when the input does not start with a "ply" line.
var ErrNotPly = errors.New("ply: not a PLY file")

// Property is one named scalar field of an element's per-record layout.
// List-typed properties are not supported and are skipped during parsing.
type Property struct {
	Name string
	Type ScalarType
}

// Element is a named group of per-record properties. Only the element named
// "vertex" is consumed by the reader; other declarations are carried but
// never decoded.
type Element struct {
	Name       string
	Count      int64
	Properties []Property
}

// Header is the parsed textual header of a PLY file. Offset is an
// out-of-band extension carried in a structured comment; when present it is
// added to every decoded position.
type Header struct {
	Format   Format
	Elements []Element
	Offset   points.Vec3
}

// Element returns the named element, or nil if it was not declared.
func (h *Header) Element(name string) *Element {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// ParseHeader reads the textual header from r and returns it together with
// the exact number of bytes consumed through the end_header line, so binary
// data can be seeked to precisely.
func ParseHeader(r *bufio.Reader) (*Header, int64, error) {
	var headerLen int64

	line, err := r.ReadString('\n')
	headerLen += int64(len(line))
	if err != nil && line == "" {
		return nil, 0, fmt.Errorf("ply: reading header: %w", err)
	}
	if strings.TrimSpace(line) != "ply" {
		return nil, 0, ErrNotPly
	}

	var (
		formatSeen bool
		format     Format
		current    *Element
		elements   []Element
		offset     points.Vec3
	)

loop:
	for {
		line, err = r.ReadString('\n')
		headerLen += int64(len(line))
		if err != nil && line == "" {
			if err == io.EOF {
				return nil, 0, errors.New("ply: unexpected end of header")
			}
			return nil, 0, fmt.Errorf("ply: reading header: %w", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, 0, fmt.Errorf("ply: invalid header line: %q", line)
		}

		switch fields[0] {
		case "format":
			if len(fields) != 3 {
				return nil, 0, fmt.Errorf("ply: invalid header line: %q", line)
			}
			if fields[2] != "1.0" {
				return nil, 0, fmt.Errorf("ply: invalid version: %s", fields[2])
			}
			switch fields[1] {
			case "ascii":
				format = AsciiV1
			case "binary_little_endian":
				format = BinaryLittleEndianV1
			case "binary_big_endian":
				format = BinaryBigEndianV1
			default:
				return nil, 0, fmt.Errorf("ply: invalid format: %s", fields[1])
			}
			formatSeen = true

		case "element":
			if len(fields) != 3 {
				return nil, 0, fmt.Errorf("ply: invalid header line: %q", line)
			}
			count, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("ply: invalid count: %s", fields[2])
			}
			if current != nil {
				elements = append(elements, *current)
			}
			current = &Element{Name: fields[1], Count: count}

		case "property":
			if len(fields) == 5 && fields[1] == "list" {
				// List properties are deliberately unsupported; the
				// declaration is consumed and contributes nothing.
				continue
			}
			if len(fields) != 3 {
				return nil, 0, fmt.Errorf("ply: invalid header line: %q", line)
			}
			if current == nil {
				return nil, 0, fmt.Errorf("ply: property outside of element: %q", line)
			}
			typ, err := ParseScalarType(fields[1])
			if err != nil {
				return nil, 0, err
			}
			current.Properties = append(current.Properties, Property{Name: fields[2], Type: typ})

		case "comment":
			if len(fields) == 5 && fields[1] == "offset:" {
				comps := [3]float64{}
				for i, s := range fields[2:5] {
					v, err := strconv.ParseFloat(s, 64)
					if err != nil {
						return nil, 0, fmt.Errorf("ply: invalid offset: %s", s)
					}
					comps[i] = v
				}
				offset = points.Vec3{X: comps[0], Y: comps[1], Z: comps[2]}
			}

		case "end_header":
			break loop

		default:
			return nil, 0, fmt.Errorf("ply: invalid header line: %q", line)
		}
	}

	if current != nil {
		elements = append(elements, *current)
	}
	if !formatSeen {
		return nil, 0, errors.New("ply: no format specified")
	}

	return &Header{Format: format, Elements: elements, Offset: offset}, headerLen, nil
}

// Encode serializes the header back to its textual form. The output is
// re-parseable; comment placement and spacing are normalized rather than
// preserved byte for byte.
func (h *Header) Encode(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("ply\n")
	fmt.Fprintf(&sb, "format %s 1.0\n", h.Format.token())
	if h.Offset != (points.Vec3{}) {
		fmt.Fprintf(&sb, "comment offset: %v %v %v\n", h.Offset.X, h.Offset.Y, h.Offset.Z)
	}
	for _, el := range h.Elements {
		fmt.Fprintf(&sb, "element %s %d\n", el.Name, el.Count)
		for _, p := range el.Properties {
			fmt.Fprintf(&sb, "property %s %s\n", p.Type.Token(), p.Name)
		}
	}
	sb.WriteString("end_header\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
