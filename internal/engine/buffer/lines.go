package buffer

import (
	"bytes"

	"github.com/dshills/rangebuf/internal/engine/augment"
)

// Line math descends the tree by the newline counts in each subtree's
// summary, then scans a single leaf.

// LineCount returns the number of lines. An empty document has one line.
func (d *Document) LineCount() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tree.Aggregate().Lines + 1
}

// LineStartOffset returns the byte offset of the start of a line. Lines past
// the end return the document length.
func (d *Document) LineStartOffset(line uint32) ByteOffset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ByteOffset(d.lineStart(line))
}

// LineEndOffset returns the byte offset of the end of a line, before its
// newline.
func (d *Document) LineEndOffset(line uint32) ByteOffset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ByteOffset(d.lineEnd(line))
}

// LineText returns the text of a specific line (without newline).
func (d *Document) LineText(line uint32) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if line > d.tree.Aggregate().Lines {
		return ""
	}
	return string(d.tree.Raw(d.lineStart(line), d.lineEnd(line)))
}

// LineLen returns the length of a specific line in bytes (without newline).
func (d *Document) LineLen(line uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if line > d.tree.Aggregate().Lines {
		return 0
	}
	return int(d.lineEnd(line) - d.lineStart(line))
}

// OffsetToPoint converts a byte offset to line/column. Offsets are clamped
// to the document.
func (d *Document) OffsetToPoint(offset ByteOffset) Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offsetToPoint(clampOffset(offset))
}

// PointToOffset converts line/column to byte offset. Columns past the end of
// the line clamp to the line end.
func (d *Document) PointToOffset(p Point) ByteOffset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ByteOffset(d.pointToOffset(p))
}

// OffsetToPointUTF16 converts a byte offset to UTF-16 line/column.
func (d *Document) OffsetToPointUTF16(offset ByteOffset) PointUTF16 {
	d.mu.Lock()
	defer d.mu.Unlock()

	off := min(clampOffset(offset), d.tree.Len())
	p := d.offsetToPoint(off)
	lineText := d.tree.Raw(off-uint64(p.Column), off)
	return PointUTF16{Line: p.Line, Column: uint32(augment.Compute(lineText).UTF16Units)}
}

// PointUTF16ToOffset converts UTF-16 line/column to byte offset.
func (d *Document) PointUTF16ToOffset(p PointUTF16) ByteOffset {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := d.lineStart(p.Line)
	lineText := d.tree.Raw(start, d.lineEnd(p.Line))
	return ByteOffset(start) + ByteOffset(byteOffsetFromUTF16Column(string(lineText), p.Column))
}

// lineStart returns the offset just past the line-th newline.
func (d *Document) lineStart(line uint32) uint64 {
	if line == 0 {
		return 0
	}
	if line > d.tree.Aggregate().Lines {
		return d.tree.Len()
	}

	leaf, before, start := d.tree.Seek(func(before, left augment.Summary) bool {
		return before.Lines+left.Lines >= line
	})
	b, release := leaf.Materialize()
	defer release()

	need := line - before.Lines
	for i, c := range b {
		if c == '\n' {
			need--
			if need == 0 {
				return start + uint64(i) + 1
			}
		}
	}
	// Only reachable if the backing file was rewritten under the leaf.
	return start + uint64(len(b))
}

// lineEnd returns the offset of the newline ending line, or the document
// length for the last line.
func (d *Document) lineEnd(line uint32) uint64 {
	if line >= d.tree.Aggregate().Lines {
		return d.tree.Len()
	}
	return d.lineStart(line+1) - 1
}

func (d *Document) offsetToPoint(off uint64) Point {
	off = min(off, d.tree.Len())
	leaf, before, start := d.tree.Seek(func(before, left augment.Summary) bool {
		return before.Bytes+left.Bytes > off
	})
	b, release := leaf.Materialize()
	defer release()
	b = b[:min(off-start, uint64(len(b)))]

	p := Point{Line: before.Lines, Column: before.LastLineLen + uint32(len(b))}
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		p.Line += uint32(bytes.Count(b, []byte{'\n'}))
		p.Column = uint32(len(b) - i - 1)
	}
	return p
}

func (d *Document) pointToOffset(p Point) uint64 {
	if p.Line > d.tree.Aggregate().Lines {
		return d.tree.Len()
	}
	start := d.lineStart(p.Line)
	return min(start+uint64(p.Column), d.lineEnd(p.Line))
}

// byteOffsetFromUTF16Column converts a UTF-16 column to byte offset within a line.
func byteOffsetFromUTF16Column(line string, utf16Col uint32) int {
	var col uint32
	for i, r := range line {
		if col >= utf16Col {
			return i
		}
		if r >= 0x10000 {
			col += 2 // Surrogate pair
		} else {
			col++
		}
	}
	return len(line)
}
