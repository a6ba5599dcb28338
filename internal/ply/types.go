// Package ply implements a streaming codec for the binary little-endian PLY
// point format: a textual header parser, a reader that decodes fixed-size
// point records into columnar batches, and a writer that emits the same
// layout and can resume a previously written file in append mode.
package ply

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ScalarType enumerates the wire scalar types a property may declare. The
// 64-bit integer types are accepted as a superset extension; they are not
// part of the strict format specification.
type ScalarType uint8

const (
	Int8 ScalarType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

// ParseScalarType resolves a PLY type token, canonical or alias.
func ParseScalarType(token string) (ScalarType, error) {
	switch token {
	case "float", "float32":
		return Float32, nil
	case "double", "float64":
		return Float64, nil
	case "char", "int8":
		return Int8, nil
	case "uchar", "uint8":
		return Uint8, nil
	case "short", "int16":
		return Int16, nil
	case "ushort", "uint16":
		return Uint16, nil
	case "int", "int32":
		return Int32, nil
	case "uint", "uint32":
		return Uint32, nil
	case "longlong", "int64":
		return Int64, nil
	case "ulonglong", "uint64":
		return Uint64, nil
	default:
		return 0, fmt.Errorf("ply: invalid data type: %s", token)
	}
}

// Token returns the canonical PLY token for the type.
func (t ScalarType) Token() string {
	switch t {
	case Int8:
		return "char"
	case Uint8:
		return "uchar"
	case Int16:
		return "short"
	case Uint16:
		return "ushort"
	case Int32:
		return "int"
	case Uint32:
		return "uint"
	case Int64:
		return "longlong"
	case Uint64:
		return "ulonglong"
	case Float32:
		return "float"
	case Float64:
		return "double"
	default:
		return "unknown"
	}
}

func (t ScalarType) String() string { return t.Token() }

// Width returns the fixed byte width of the type.
func (t ScalarType) Width() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 8
	}
}

// decodeFloat64 decodes a little-endian value of type t and widens it to a
// double. b must hold at least Width bytes.
func (t ScalarType) decodeFloat64(b []byte) float64 {
	switch t {
	case Int8:
		return float64(int8(b[0]))
	case Uint8:
		return float64(b[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}

// decodeUint8 decodes a little-endian value of type t and narrows it to an
// 8-bit channel.
func (t ScalarType) decodeUint8(b []byte) uint8 {
	switch t {
	case Int8, Uint8:
		return b[0]
	case Int16, Uint16:
		return uint8(binary.LittleEndian.Uint16(b))
	case Int32, Uint32:
		return uint8(binary.LittleEndian.Uint32(b))
	case Int64, Uint64:
		return uint8(binary.LittleEndian.Uint64(b))
	default:
		v := t.decodeFloat64(b)
		if v <= 0 || math.IsNaN(v) {
			return 0
		}
		if v >= 255 {
			return 255
		}
		return uint8(v)
	}
}
