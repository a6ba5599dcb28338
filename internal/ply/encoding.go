package ply

import (
	"encoding/binary"
	"math"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

// PositionEncoding selects the on-disk scalar type of quantized positions.
type PositionEncoding uint8

const (
	PositionUint8 PositionEncoding = iota
	PositionUint16
	PositionFloat32
	PositionFloat64
)

func (e PositionEncoding) token() string {
	switch e {
	case PositionUint8:
		return "uchar"
	case PositionUint16:
		return "ushort"
	case PositionFloat32:
		return "float"
	default:
		return "double"
	}
}

func (e PositionEncoding) width() int {
	switch e {
	case PositionUint8:
		return 1
	case PositionUint16:
		return 2
	case PositionFloat32:
		return 4
	default:
		return 8
	}
}

// Encoding is the writer's policy for the on-disk representation of
// positions. Attributes are never transformed; the policy applies to x/y/z
// only.
type Encoding interface {
	// positionToken returns the PLY scalar token the header declares for
	// the x, y and z properties.
	positionToken() string
	// encodePosition writes the encoded position into dst and returns the
	// number of bytes written. dst must hold at least 24 bytes.
	encodePosition(dst []byte, p points.Vec3) int
}

// Plain stores positions as raw little-endian doubles.
type Plain struct{}

func (Plain) positionToken() string { return "double" }

func (Plain) encodePosition(dst []byte, p points.Vec3) int {
	binary.LittleEndian.PutUint64(dst[0:], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(dst[8:], math.Float64bits(p.Y))
	binary.LittleEndian.PutUint64(dst[16:], math.Float64bits(p.Z))
	return 24
}

// ScaledToCube linearly quantizes positions from the [Min,Max] cube into the
// range of the selected position encoding. Float variants store the
// normalized fraction, integer variants the rounded fixed-point value.
type ScaledToCube struct {
	Min, Max points.Vec3
	Position PositionEncoding
}

func (e ScaledToCube) positionToken() string { return e.Position.token() }

func (e ScaledToCube) encodePosition(dst []byte, p points.Vec3) int {
	w := e.Position.width()
	e.encodeComponent(dst[0*w:], p.X, e.Min.X, e.Max.X)
	e.encodeComponent(dst[1*w:], p.Y, e.Min.Y, e.Max.Y)
	e.encodeComponent(dst[2*w:], p.Z, e.Min.Z, e.Max.Z)
	return 3 * w
}

func (e ScaledToCube) encodeComponent(dst []byte, v, min, max float64) {
	q := 0.0
	if span := max - min; span > 0 {
		q = (v - min) / span
		if q < 0 {
			q = 0
		} else if q > 1 {
			q = 1
		}
	}
	switch e.Position {
	case PositionUint8:
		dst[0] = uint8(math.Round(q * math.MaxUint8))
	case PositionUint16:
		binary.LittleEndian.PutUint16(dst, uint16(math.Round(q*math.MaxUint16)))
	case PositionFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(q)))
	default:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(q))
	}
}
