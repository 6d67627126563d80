package rangetree

import "github.com/dshills/rangebuf/internal/engine/fragment"

// Iterator reads bytes forward or backward from a position, crossing leaf
// boundaries through the leaf list. It is invalidated by any mutation of the
// tree.
type Iterator[A any] struct {
	leaf   *Node[A]
	local  uint64
	offset uint64

	loaded  *Node[A]
	buf     []byte
	scratch []byte
}

// IterAt returns an iterator positioned before the byte at offset. Offsets
// past the end are clamped.
func (t *Tree[A]) IterAt(offset uint64) *Iterator[A] {
	offset = min(offset, t.root.length)
	leaf, local := t.Find(offset)
	return &Iterator[A]{leaf: leaf, local: local, offset: offset}
}

// Offset returns the absolute position of the iterator.
func (it *Iterator[A]) Offset() uint64 {
	return it.offset
}

// Next returns the byte after the position and advances past it. It returns
// false at the end of the tree.
func (it *Iterator[A]) Next() (byte, bool) {
	for it.local >= it.leaf.length {
		if it.leaf.next == nil {
			return 0, false
		}
		it.leaf, it.local = it.leaf.next, 0
	}
	c := it.bytes()[it.local]
	it.local++
	it.offset++
	return c, true
}

// Prev returns the byte before the position and moves back over it. It
// returns false at the start of the tree.
func (it *Iterator[A]) Prev() (byte, bool) {
	for it.local == 0 {
		if it.leaf.prev == nil {
			return 0, false
		}
		it.leaf = it.leaf.prev
		it.local = it.leaf.length
	}
	it.local--
	it.offset--
	return it.bytes()[it.local], true
}

// Chunk returns the rest of the current leaf after the position and advances
// to the start of the next leaf. It returns nil at the end of the tree. The
// slice is only valid until the next call.
func (it *Iterator[A]) Chunk() []byte {
	for it.local >= it.leaf.length {
		if it.leaf.next == nil {
			return nil
		}
		it.leaf, it.local = it.leaf.next, 0
	}
	b := it.bytes()[it.local:]
	it.offset += uint64(len(b))
	it.local = it.leaf.length
	return b
}

// bytes returns the current leaf's content. File-backed leaves are copied
// into scratch so no cache page stays pinned between calls.
func (it *Iterator[A]) bytes() []byte {
	if it.loaded == it.leaf {
		return it.buf
	}
	leaf := it.leaf
	if leaf.frag.Kind() == fragment.Memory {
		it.buf, _ = leaf.Materialize()
	} else {
		it.scratch = leaf.AppendTo(it.scratch[:0])
		it.buf = it.scratch
	}
	it.loaded = leaf
	return it.buf
}
