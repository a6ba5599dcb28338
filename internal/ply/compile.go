package ply

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

// decodeStep decodes one wire property out of a record window into a batch
// row. Steps are compiled once per open reader and run once per point, in
// property declaration order. A nil decode means the property's bytes are
// skipped.
type decodeStep struct {
	prop   Property
	width  int
	decode func(b []byte, batch *points.Batch, row int)
}

type columnSpec struct {
	name string
	kind points.ColumnKind
}

// recordSchema is the compiled layout of one vertex record: the ordered
// decode steps, the attribute columns they target, and the fixed per-point
// record size used for buffer alignment.
type recordSchema struct {
	steps      []decodeStep
	columns    []columnSpec
	recordSize int
}

// compileVertexSchema builds the decode steps for the vertex element's
// property list. Properties are dispatched by name first (x/y/z, color
// channels, alpha), then by declared scalar type for generic attributes.
func compileVertexSchema(vertex *Element) (*recordSchema, error) {
	s := &recordSchema{}
	var seenX, seenY, seenZ, colorDeclared bool

	for _, prop := range vertex.Properties {
		typ := prop.Type
		width := typ.Width()

		switch prop.Name {
		case "x":
			seenX = true
			s.push(prop, width, func(b []byte, batch *points.Batch, row int) {
				batch.Position[row].X = typ.decodeFloat64(b)
			})
		case "y":
			seenY = true
			s.push(prop, width, func(b []byte, batch *points.Batch, row int) {
				batch.Position[row].Y = typ.decodeFloat64(b)
			})
		case "z":
			seenZ = true
			s.push(prop, width, func(b []byte, batch *points.Batch, row int) {
				batch.Position[row].Z = typ.decodeFloat64(b)
			})

		case "r", "red", "g", "green", "b", "blue":
			if !colorDeclared {
				s.columns = append(s.columns, columnSpec{name: "color", kind: points.U8Vec3})
				colorDeclared = true
			}
			channel := colorChannel(prop.Name)
			s.push(prop, width, func(b []byte, batch *points.Batch, row int) {
				col := batch.Attributes["color"].(*points.U8Vec3Column)
				col.Values[row][channel] = typ.decodeUint8(b)
			})

		case "a", "alpha":
			// Recognized but never stored; only the cursor advances.
			s.push(prop, width, nil)

		default:
			step, spec, err := compileGenericStep(prop)
			if err != nil {
				return nil, err
			}
			if step == nil {
				log.Printf("ply: will ignore property %q on vertex (unsupported type %s)", prop.Name, typ)
				s.push(prop, width, nil)
				continue
			}
			s.columns = append(s.columns, spec)
			s.push(prop, width, step)
		}
	}

	if !seenX || !seenY || !seenZ {
		return nil, fmt.Errorf("ply: vertex element must declare properties x, y and z")
	}
	return s, nil
}

func (s *recordSchema) push(prop Property, width int, decode func([]byte, *points.Batch, int)) {
	s.steps = append(s.steps, decodeStep{prop: prop, width: width, decode: decode})
	s.recordSize += width
}

func colorChannel(name string) int {
	switch name {
	case "r", "red":
		return 0
	case "g", "green":
		return 1
	default:
		return 2
	}
}

// compileGenericStep maps a generic attribute property to a storage column
// and a decode step. A nil step (with nil error) means the type has no
// supported storage and the bytes are skipped. Names ending in an ASCII
// digit are reserved for a multi-component encoding that is not
// implemented.
func compileGenericStep(prop Property) (func([]byte, *points.Batch, int), columnSpec, error) {
	name := prop.Name
	if last := name[len(name)-1]; last >= '0' && last <= '9' {
		return nil, columnSpec{}, fmt.Errorf("ply: multi-component attribute %q is not supported", name)
	}

	switch prop.Type {
	case Uint8:
		return func(b []byte, batch *points.Batch, row int) {
			batch.Attributes[name].(*points.U8Column).Values[row] = b[0]
		}, columnSpec{name: name, kind: points.U8}, nil
	case Uint64:
		return func(b []byte, batch *points.Batch, row int) {
			batch.Attributes[name].(*points.U64Column).Values[row] = binary.LittleEndian.Uint64(b)
		}, columnSpec{name: name, kind: points.U64}, nil
	case Int64:
		return func(b []byte, batch *points.Batch, row int) {
			batch.Attributes[name].(*points.I64Column).Values[row] = int64(binary.LittleEndian.Uint64(b))
		}, columnSpec{name: name, kind: points.I64}, nil
	case Float32:
		return func(b []byte, batch *points.Batch, row int) {
			batch.Attributes[name].(*points.F32Column).Values[row] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		}, columnSpec{name: name, kind: points.F32}, nil
	case Float64:
		return func(b []byte, batch *points.Batch, row int) {
			batch.Attributes[name].(*points.F64Column).Values[row] = math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, columnSpec{name: name, kind: points.F64}, nil
	default:
		// int8, 16-bit and 32-bit integers have no generic storage.
		return nil, columnSpec{}, nil
	}
}

// newBatch builds an empty batch whose attribute columns mirror the
// compiled column specs.
func (s *recordSchema) newBatch() *points.Batch {
	batch := points.NewBatch()
	for _, spec := range s.columns {
		col, err := spec.kind.NewColumn()
		if err != nil {
			// Specs only ever name kinds from the closed set.
			panic(err)
		}
		batch.Attributes[spec.name] = col
	}
	return batch
}
