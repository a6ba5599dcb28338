// Package points holds the columnar in-memory representation of decoded
// point data. A Batch is a value object: each producer builds a fresh one
// per cycle and hands ownership to the consumer.
package points

import (
	"fmt"
	"sort"
)

// Vec3 is a 3-component double vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns the component-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Point is a single decoded point. Intensity is optional.
type Point struct {
	Position  Vec3
	Color     [3]uint8
	Intensity *float32
}

// Batch is a columnar chunk of points. Every attribute column and Position
// have the same length; that length is the batch's point count.
type Batch struct {
	Position   []Vec3
	Attributes map[string]Column
}

// NewBatch returns an empty batch with no attribute columns.
func NewBatch() *Batch {
	return &Batch{Attributes: make(map[string]Column)}
}

// Len returns the number of points in the batch.
func (b *Batch) Len() int { return len(b.Position) }

// AttributeNames returns the attribute column names in lexicographic order.
// Deterministic ordering matters for header generation and per-point
// encoding, which must agree with each other.
func (b *Batch) AttributeNames() []string {
	names := make([]string, 0, len(b.Attributes))
	for name := range b.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AppendZeroRow pushes a zero position and a zero element onto every
// attribute column. Decode steps then assign into the new row by index, so
// the one-row-per-point invariant holds regardless of the property order on
// disk.
func (b *Batch) AppendZeroRow() {
	b.Position = append(b.Position, Vec3{})
	for _, col := range b.Attributes {
		col.AppendZero()
	}
}

// Validate checks the equal-length invariant across all columns.
func (b *Batch) Validate() error {
	n := len(b.Position)
	for name, col := range b.Attributes {
		if col.Len() != n {
			return fmt.Errorf("points: column %q has %d entries, want %d", name, col.Len(), n)
		}
	}
	return nil
}
