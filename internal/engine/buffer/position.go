package buffer

import (
	"cmp"
	"fmt"
	"sync/atomic"
)

// ByteOffset represents a byte position in the document.
type ByteOffset = int64

// Point represents a line and column position.
// Both Line and Column are 0-indexed.
// Column is measured in bytes from the start of the line.
type Point struct {
	Line   uint32
	Column uint32
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Point) Compare(other Point) int {
	if p.Line != other.Line {
		return cmp.Compare(p.Line, other.Line)
	}
	return cmp.Compare(p.Column, other.Column)
}

// PointUTF16 represents a line and column position where the column
// is measured in UTF-16 code units, as the LSP protocol expects.
type PointUTF16 struct {
	Line   uint32
	Column uint32
}

// String returns a human-readable representation of the point.
func (p PointUTF16) String() string {
	return fmt.Sprintf("(%d:%d utf16)", p.Line, p.Column)
}

// RevisionID uniquely identifies a document revision.
// Each modification creates a new revision.
type RevisionID uint64

var revisionCounter atomic.Uint64

// NewRevisionID generates a new unique revision ID.
func NewRevisionID() RevisionID {
	return RevisionID(revisionCounter.Add(1))
}
