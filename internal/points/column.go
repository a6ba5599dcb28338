package points

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ColumnKind enumerates the closed set of attribute column storage types.
type ColumnKind uint8

const (
	// U8 stores one unsigned byte per point.
	U8 ColumnKind = iota
	// U64 stores one unsigned 64-bit integer per point.
	U64
	// I64 stores one signed 64-bit integer per point.
	I64
	// F32 stores one 32-bit float per point.
	F32
	// F64 stores one 64-bit float per point.
	F64
	// U8Vec3 stores three unsigned bytes per point (packed color channels).
	U8Vec3
	// F64Vec3 stores three 64-bit floats per point.
	F64Vec3
)

// String returns a short name for the kind.
func (k ColumnKind) String() string {
	switch k {
	case U8:
		return "u8"
	case U64:
		return "u64"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case U8Vec3:
		return "u8vec3"
	case F64Vec3:
		return "f64vec3"
	default:
		return "unknown"
	}
}

// Components returns the number of scalar components per element.
func (k ColumnKind) Components() int {
	switch k {
	case U8Vec3, F64Vec3:
		return 3
	default:
		return 1
	}
}

// ScalarToken returns the PLY type token of one component.
func (k ColumnKind) ScalarToken() string {
	switch k {
	case U8, U8Vec3:
		return "uchar"
	case U64:
		return "ulonglong"
	case I64:
		return "longlong"
	case F32:
		return "float"
	case F64, F64Vec3:
		return "double"
	default:
		return "unknown"
	}
}

// ScalarWidth returns the byte width of one component.
func (k ColumnKind) ScalarWidth() int {
	switch k {
	case U8, U8Vec3:
		return 1
	case F32:
		return 4
	default:
		return 8
	}
}

// ElemWidth returns the byte width of one whole element.
func (k ColumnKind) ElemWidth() int { return k.ScalarWidth() * k.Components() }

// NewColumn returns an empty column of this kind.
func (k ColumnKind) NewColumn() (Column, error) {
	switch k {
	case U8:
		return &U8Column{}, nil
	case U64:
		return &U64Column{}, nil
	case I64:
		return &I64Column{}, nil
	case F32:
		return &F32Column{}, nil
	case F64:
		return &F64Column{}, nil
	case U8Vec3:
		return &U8Vec3Column{}, nil
	case F64Vec3:
		return &F64Vec3Column{}, nil
	default:
		return nil, fmt.Errorf("points: unknown column kind %d", k)
	}
}

// Column is one typed attribute column of a Batch. The set of
// implementations is closed; new kinds require a new ColumnKind.
type Column interface {
	// Kind identifies the storage type.
	Kind() ColumnKind
	// Len returns the number of elements.
	Len() int
	// AppendZero appends a zero element.
	AppendZero()
	// EncodeElem writes element i little-endian into dst and returns the
	// number of bytes written. dst must hold at least ElemWidth bytes.
	EncodeElem(dst []byte, i int) int
	// AppendElem decodes one little-endian element from src and appends it.
	AppendElem(src []byte)
}

// U8Column is a scalar column of unsigned bytes.
type U8Column struct{ Values []uint8 }

func (c *U8Column) Kind() ColumnKind { return U8 }
func (c *U8Column) Len() int         { return len(c.Values) }
func (c *U8Column) AppendZero()      { c.Values = append(c.Values, 0) }
func (c *U8Column) EncodeElem(dst []byte, i int) int {
	dst[0] = c.Values[i]
	return 1
}
func (c *U8Column) AppendElem(src []byte) { c.Values = append(c.Values, src[0]) }

// U64Column is a scalar column of unsigned 64-bit integers.
type U64Column struct{ Values []uint64 }

func (c *U64Column) Kind() ColumnKind { return U64 }
func (c *U64Column) Len() int         { return len(c.Values) }
func (c *U64Column) AppendZero()      { c.Values = append(c.Values, 0) }
func (c *U64Column) EncodeElem(dst []byte, i int) int {
	binary.LittleEndian.PutUint64(dst, c.Values[i])
	return 8
}
func (c *U64Column) AppendElem(src []byte) {
	c.Values = append(c.Values, binary.LittleEndian.Uint64(src))
}

// I64Column is a scalar column of signed 64-bit integers.
type I64Column struct{ Values []int64 }

func (c *I64Column) Kind() ColumnKind { return I64 }
func (c *I64Column) Len() int         { return len(c.Values) }
func (c *I64Column) AppendZero()      { c.Values = append(c.Values, 0) }
func (c *I64Column) EncodeElem(dst []byte, i int) int {
	binary.LittleEndian.PutUint64(dst, uint64(c.Values[i]))
	return 8
}
func (c *I64Column) AppendElem(src []byte) {
	c.Values = append(c.Values, int64(binary.LittleEndian.Uint64(src)))
}

// F32Column is a scalar column of 32-bit floats. NaN payloads survive the
// encode/decode round trip bit-exactly.
type F32Column struct{ Values []float32 }

func (c *F32Column) Kind() ColumnKind { return F32 }
func (c *F32Column) Len() int         { return len(c.Values) }
func (c *F32Column) AppendZero()      { c.Values = append(c.Values, 0) }
func (c *F32Column) EncodeElem(dst []byte, i int) int {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(c.Values[i]))
	return 4
}
func (c *F32Column) AppendElem(src []byte) {
	c.Values = append(c.Values, math.Float32frombits(binary.LittleEndian.Uint32(src)))
}

// F64Column is a scalar column of 64-bit floats.
type F64Column struct{ Values []float64 }

func (c *F64Column) Kind() ColumnKind { return F64 }
func (c *F64Column) Len() int         { return len(c.Values) }
func (c *F64Column) AppendZero()      { c.Values = append(c.Values, 0) }
func (c *F64Column) EncodeElem(dst []byte, i int) int {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(c.Values[i]))
	return 8
}
func (c *F64Column) AppendElem(src []byte) {
	c.Values = append(c.Values, math.Float64frombits(binary.LittleEndian.Uint64(src)))
}

// U8Vec3Column is a 3-component byte column, used for packed color channels.
type U8Vec3Column struct{ Values [][3]uint8 }

func (c *U8Vec3Column) Kind() ColumnKind { return U8Vec3 }
func (c *U8Vec3Column) Len() int         { return len(c.Values) }
func (c *U8Vec3Column) AppendZero()      { c.Values = append(c.Values, [3]uint8{}) }
func (c *U8Vec3Column) EncodeElem(dst []byte, i int) int {
	copy(dst[:3], c.Values[i][:])
	return 3
}
func (c *U8Vec3Column) AppendElem(src []byte) {
	c.Values = append(c.Values, [3]uint8{src[0], src[1], src[2]})
}

// F64Vec3Column is a 3-component double column, reserved for future
// multi-component attributes.
type F64Vec3Column struct{ Values []Vec3 }

func (c *F64Vec3Column) Kind() ColumnKind { return F64Vec3 }
func (c *F64Vec3Column) Len() int         { return len(c.Values) }
func (c *F64Vec3Column) AppendZero()      { c.Values = append(c.Values, Vec3{}) }
func (c *F64Vec3Column) EncodeElem(dst []byte, i int) int {
	v := c.Values[i]
	binary.LittleEndian.PutUint64(dst[0:], math.Float64bits(v.X))
	binary.LittleEndian.PutUint64(dst[8:], math.Float64bits(v.Y))
	binary.LittleEndian.PutUint64(dst[16:], math.Float64bits(v.Z))
	return 24
}
func (c *F64Vec3Column) AppendElem(src []byte) {
	c.Values = append(c.Values, Vec3{
		X: math.Float64frombits(binary.LittleEndian.Uint64(src[0:])),
		Y: math.Float64frombits(binary.LittleEndian.Uint64(src[8:])),
		Z: math.Float64frombits(binary.LittleEndian.Uint64(src[16:])),
	})
}
