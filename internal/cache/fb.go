package cache

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/monocilindro/point-cloud-viewer/internal/points"
)

// Batch blobs are FlatBuffers with a two-table schema small enough to
// assemble by hand with the builder API:
//
//	table Column { name:string; kind:ubyte; data:[ubyte]; }
//	table Batch  { count:uint; positions:[ubyte]; columns:[Column]; }
//
// positions holds count little-endian double triplets; each column's data
// holds count little-endian elements in the column's natural storage width.

const (
	columnFieldName = 4 + 2*0
	columnFieldKind = 4 + 2*1
	columnFieldData = 4 + 2*2

	batchFieldCount     = 4 + 2*0
	batchFieldPositions = 4 + 2*1
	batchFieldColumns   = 4 + 2*2
)

const positionElemWidth = 24

// encodeBatchBlob serializes a batch into a flatbuffers blob. Columns are
// emitted in lexicographic name order so blobs are deterministic.
func encodeBatchBlob(batch *points.Batch) []byte {
	builder := flatbuffers.NewBuilder(1024)

	names := batch.AttributeNames()
	colOffsets := make([]flatbuffers.UOffsetT, len(names))
	for i, name := range names {
		col := batch.Attributes[name]
		nameOff := builder.CreateString(name)
		dataOff := builder.CreateByteVector(columnBytes(col))

		builder.StartObject(3)
		builder.PrependUOffsetTSlot(0, nameOff, 0)
		builder.PrependByteSlot(1, byte(col.Kind()), 0)
		builder.PrependUOffsetTSlot(2, dataOff, 0)
		colOffsets[i] = builder.EndObject()
	}

	builder.StartVector(4, len(colOffsets), 4)
	for i := len(colOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(colOffsets[i])
	}
	columnsVec := builder.EndVector(len(colOffsets))

	posBytes := make([]byte, batch.Len()*positionElemWidth)
	posCol := points.F64Vec3Column{Values: batch.Position}
	for i := 0; i < batch.Len(); i++ {
		posCol.EncodeElem(posBytes[i*positionElemWidth:], i)
	}
	positionsOff := builder.CreateByteVector(posBytes)

	builder.StartObject(3)
	builder.PrependUint32Slot(0, uint32(batch.Len()), 0)
	builder.PrependUOffsetTSlot(1, positionsOff, 0)
	builder.PrependUOffsetTSlot(2, columnsVec, 0)
	builder.Finish(builder.EndObject())

	return builder.FinishedBytes()
}

func columnBytes(col points.Column) []byte {
	w := col.Kind().ElemWidth()
	buf := make([]byte, col.Len()*w)
	for i := 0; i < col.Len(); i++ {
		col.EncodeElem(buf[i*w:], i)
	}
	return buf
}

// decodeBatchBlob reconstructs a batch from a flatbuffers blob.
func decodeBatchBlob(blob []byte) (*points.Batch, error) {
	if len(blob) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("cache: batch blob too short (%d bytes)", len(blob))
	}
	tab := flatbuffers.Table{Bytes: blob, Pos: flatbuffers.GetUOffsetT(blob)}

	var count int
	if o := tab.Offset(batchFieldCount); o != 0 {
		count = int(tab.GetUint32(flatbuffers.UOffsetT(o) + tab.Pos))
	}

	batch := points.NewBatch()
	if o := tab.Offset(batchFieldPositions); o != 0 {
		posBytes := tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos)
		if len(posBytes) != count*positionElemWidth {
			return nil, fmt.Errorf("cache: position data is %d bytes, want %d", len(posBytes), count*positionElemWidth)
		}
		posCol := &points.F64Vec3Column{Values: make([]points.Vec3, 0, count)}
		for i := 0; i < count; i++ {
			posCol.AppendElem(posBytes[i*positionElemWidth:])
		}
		batch.Position = posCol.Values
	}
	if len(batch.Position) != count {
		return nil, fmt.Errorf("cache: blob declares %d points but stores %d positions", count, len(batch.Position))
	}

	if o := tab.Offset(batchFieldColumns); o != 0 {
		n := tab.VectorLen(flatbuffers.UOffsetT(o))
		base := tab.Vector(flatbuffers.UOffsetT(o))
		for j := 0; j < n; j++ {
			pos := tab.Indirect(base + flatbuffers.UOffsetT(j)*flatbuffers.SizeUOffsetT)
			name, col, err := decodeColumn(blob, pos, count)
			if err != nil {
				return nil, err
			}
			batch.Attributes[name] = col
		}
	}

	return batch, nil
}

func decodeColumn(blob []byte, pos flatbuffers.UOffsetT, count int) (string, points.Column, error) {
	tab := flatbuffers.Table{Bytes: blob, Pos: pos}

	var name string
	if o := tab.Offset(columnFieldName); o != 0 {
		name = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if name == "" {
		return "", nil, fmt.Errorf("cache: column without a name")
	}

	var kind points.ColumnKind
	if o := tab.Offset(columnFieldKind); o != 0 {
		kind = points.ColumnKind(tab.GetByte(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	col, err := kind.NewColumn()
	if err != nil {
		return "", nil, fmt.Errorf("cache: column %q: %w", name, err)
	}

	var data []byte
	if o := tab.Offset(columnFieldData); o != 0 {
		data = tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	w := kind.ElemWidth()
	if len(data) != count*w {
		return "", nil, fmt.Errorf("cache: column %q is %d bytes, want %d", name, len(data), count*w)
	}
	for i := 0; i < count; i++ {
		col.AppendElem(data[i*w:])
	}
	return name, col, nil
}
