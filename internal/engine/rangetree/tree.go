package rangetree

import (
	"io"
	"iter"

	"github.com/dshills/rangebuf/internal/engine/filecache"
	"github.com/dshills/rangebuf/internal/engine/fragment"
)

// Tree is a mutable byte sequence stored as a balanced tree of fragment
// slices, carrying an aggregate of type A on every node.
type Tree[A any] struct {
	root        *Node[A]
	first, last *Node[A]

	aug  Augment[A]
	obs  Observer[A]
	opts options
}

// New creates an empty tree. It holds a single empty leaf.
func New[A any](aug Augment[A], opts ...Option) *Tree[A] {
	t := &Tree[A]{aug: aug, opts: defaultOptions()}
	if o, ok := aug.(Observer[A]); ok {
		t.obs = o
	}
	for _, opt := range opts {
		opt(&t.opts)
	}
	t.reset()
	return t
}

// FromBytes creates a tree holding a copy of b.
func FromBytes[A any](aug Augment[A], b []byte, opts ...Option) *Tree[A] {
	t := New(aug, opts...)
	if len(b) == 0 {
		return t
	}
	frag := fragment.NewMemoryWith(t.opts.alloc, b)
	var leaves []*Node[A]
	for off := uint64(0); off < uint64(len(b)); off += t.opts.maxNodeSize {
		n := min(t.opts.maxNodeSize, uint64(len(b))-off)
		if off > 0 {
			frag.Ref()
		}
		leaves = append(leaves, t.newLeaf(frag, off, n, NoGroup))
	}
	t.build(leaves)
	return t
}

// FromFile creates a tree over the whole file behind c, one leaf per cache
// page. No bytes are read unless the augmentation measures them. Each leaf's
// fragment holds its own reference on c.
func FromFile[A any](aug Augment[A], c *filecache.Cache, opts ...Option) *Tree[A] {
	t := New(aug, opts...)
	size := uint64(c.Size())
	page := uint64(c.PageSize())
	var leaves []*Node[A]
	for off := uint64(0); off < size; off += page {
		n := min(page, size-off)
		leaves = append(leaves, t.newLeaf(fragment.NewFile(c, int64(off), n), 0, n, NoGroup))
	}
	if len(leaves) > 0 {
		t.build(leaves)
	}
	return t
}

// reset makes the tree a single placeholder leaf.
func (t *Tree[A]) reset() {
	leaf := &Node[A]{agg: t.aug.Zero(), placeholder: true}
	t.root, t.first, t.last = leaf, leaf, leaf
}

// build replaces the empty leaf left by reset with a balanced tree over
// leaves, which must be non-empty and not yet linked.
func (t *Tree[A]) build(leaves []*Node[A]) {
	t.destroyLeaf(t.root)
	for i, leaf := range leaves {
		if i > 0 {
			leaf.prev = leaves[i-1]
			leaves[i-1].next = leaf
		}
	}
	t.first, t.last = leaves[0], leaves[len(leaves)-1]
	t.root = t.buildRange(leaves)
	t.root.parent = nil
}

// buildRange builds a subtree over leaves. Halving at the midpoint keeps
// sibling depths within one of each other.
func (t *Tree[A]) buildRange(leaves []*Node[A]) *Node[A] {
	if len(leaves) == 1 {
		return leaves[0]
	}
	mid := len(leaves) / 2
	n := &Node[A]{left: t.buildRange(leaves[:mid]), right: t.buildRange(leaves[mid:])}
	n.left.parent, n.right.parent = n, n
	t.pull(n)
	return n
}

// Len returns the total number of bytes.
func (t *Tree[A]) Len() uint64 {
	return t.root.length
}

// Aggregate returns the aggregate of the whole tree.
func (t *Tree[A]) Aggregate() A {
	return t.root.agg
}

// Depth returns the depth of the tree; a single leaf has depth 0.
func (t *Tree[A]) Depth() int {
	return t.root.depth
}

// First returns the first leaf. A tree always has at least one leaf.
func (t *Tree[A]) First() *Node[A] {
	return t.first
}

// Last returns the last leaf.
func (t *Tree[A]) Last() *Node[A] {
	return t.last
}

// Leaves yields the leaves in order.
func (t *Tree[A]) Leaves() iter.Seq[*Node[A]] {
	return func(yield func(*Node[A]) bool) {
		for n := t.first; n != nil; n = n.next {
			if !yield(n) {
				return
			}
		}
	}
}

// LeafCount returns the number of leaves.
func (t *Tree[A]) LeafCount() int {
	count := 0
	for range t.Leaves() {
		count++
	}
	return count
}

// Find returns the leaf containing offset and the offset within that leaf.
// Offsets past the end are clamped: the last leaf is returned with a local
// offset equal to its length.
func (t *Tree[A]) Find(offset uint64) (*Node[A], uint64) {
	if offset > t.root.length {
		offset = t.root.length
	}
	n := t.root
	for !n.IsLeaf() {
		if offset < n.left.length {
			n = n.left
		} else {
			offset -= n.left.length
			n = n.right
		}
	}
	return n, offset
}

// Seek descends from the root, entering the left child whenever inLeft
// reports the target lies within it given the aggregate of everything
// before that child. It returns the leaf reached, the aggregate of all
// content before it, and its starting offset.
func (t *Tree[A]) Seek(inLeft func(before, left A) bool) (*Node[A], A, uint64) {
	n := t.root
	before := t.aug.Zero()
	var offset uint64
	for !n.IsLeaf() {
		if inLeft(before, n.left.agg) {
			n = n.left
		} else {
			before = t.aug.Combine(before, n.left.agg)
			offset += n.left.length
			n = n.right
		}
	}
	return n, before, offset
}

// Insert inserts the slice [start, start+length) of frag at offset. The tree
// takes its own reference on frag; the caller keeps theirs. A zero-length
// insert with a group creates an empty marker leaf; without one it is a
// no-op.
func (t *Tree[A]) Insert(offset uint64, frag *fragment.Fragment, start, length uint64, group FuseGroup) {
	if length == 0 {
		if group != NoGroup {
			t.insertLeaf(offset, t.newLeaf(nil, 0, 0, group))
		}
		return
	}
	if start+length > frag.Len() {
		panic("rangetree: insert slice outside fragment")
	}
	for length > 0 {
		n := min(length, t.opts.maxNodeSize)
		t.insertLeaf(offset, t.newLeaf(frag.Ref(), start, n, group))
		offset += n
		start += n
		length -= n
	}
}

// InsertBytes inserts a copy of b at offset.
func (t *Tree[A]) InsertBytes(offset uint64, b []byte, group FuseGroup) {
	if len(b) == 0 {
		t.Insert(offset, nil, 0, 0, group)
		return
	}
	frag := fragment.NewMemoryWith(t.opts.alloc, b)
	t.Insert(offset, frag, 0, uint64(len(b)), group)
	frag.Unref()
}

// insertLeaf links a new leaf in at offset and fuses its neighborhood.
func (t *Tree[A]) insertLeaf(offset uint64, nl *Node[A]) {
	leaf, local := t.Find(offset)
	switch {
	case leaf.placeholder:
		t.root, t.first, t.last = nl, nl, nl
		return
	case local == leaf.length:
		// Also covers trailing markers, which Find only returns at the end.
		t.graft(leaf, nl, false)
	case local == 0:
		t.graft(leaf, nl, true)
	default:
		t.split(leaf, local)
		t.graft(leaf, nl, false)
	}
	t.fuse(orSelf(nl.prev, nl), orSelf(nl.next, nl))
}

// Delete removes length bytes starting at offset. The range is clamped to
// the end of the tree.
func (t *Tree[A]) Delete(offset, length uint64) {
	total := t.root.length
	if offset >= total || length == 0 {
		return
	}
	length = min(length, total-offset)

	leaf, local := t.Find(offset)
	before := leaf.prev
	for length > 0 {
		next := leaf.next
		n := min(length, leaf.length-local)
		switch {
		case local == 0 && n == leaf.length:
			t.remove(leaf)
		case local == 0:
			t.trim(leaf, n, 0)
		case local+n == leaf.length:
			t.trim(leaf, 0, n)
		default:
			t.split(leaf, local+n)
			t.trim(leaf, 0, n)
		}
		length -= n
		leaf, local = next, 0
	}
	t.fuse(orSelf(before, t.first), orSelf(leaf, t.last))
}

// Copy returns a new tree holding [offset, offset+length) of t. The new
// tree's leaves share t's fragments; no bytes are copied, and only the two
// partial leaves at the ends are re-measured.
func (t *Tree[A]) Copy(offset, length uint64) *Tree[A] {
	c := &Tree[A]{aug: t.aug, obs: t.obs, opts: t.opts}
	c.reset()
	total := t.root.length
	if offset >= total || length == 0 {
		return c
	}
	length = min(length, total-offset)

	var leaves []*Node[A]
	leaf, local := t.Find(offset)
	for length > 0 {
		n := min(length, leaf.length-local)
		switch {
		case n == 0:
		case local == 0 && n == leaf.length:
			leaves = append(leaves, c.adoptLeaf(leaf.frag.Ref(), leaf.start, n, leaf.group, leaf.agg))
		default:
			leaves = append(leaves, c.newLeaf(leaf.frag.Ref(), leaf.start+local, n, leaf.group))
		}
		length -= n
		leaf, local = leaf.next, 0
	}
	c.build(leaves)
	return c
}

// Paste inserts every leaf of sub at offset, in order, then releases sub.
// The content is the same as inserting each leaf individually. Leaf
// aggregates are carried over rather than re-measured, so sub must use the
// same augmentation as t.
func (t *Tree[A]) Paste(sub *Tree[A], offset uint64) {
	if sub == t {
		panic("rangetree: paste of a tree into itself")
	}
	offset = min(offset, t.root.length)
	for leaf := sub.first; leaf != nil; leaf = leaf.next {
		if leaf.length == 0 {
			t.Insert(offset, nil, 0, 0, leaf.group)
			continue
		}
		t.insertLeaf(offset, t.adoptLeaf(leaf.frag.Ref(), leaf.start, leaf.length, leaf.group, leaf.agg))
		offset += leaf.length
	}
	sub.Release()
}

// Raw returns a copy of the bytes [start, end). The tree is not modified.
func (t *Tree[A]) Raw(start, end uint64) []byte {
	end = min(end, t.root.length)
	if start >= end {
		return []byte{}
	}
	buf := make([]byte, 0, end-start)
	leaf, local := t.Find(start)
	for remaining := end - start; remaining > 0 && leaf != nil; leaf, local = leaf.next, 0 {
		n := min(remaining, leaf.length-local)
		if n > 0 {
			buf = leaf.frag.AppendTo(buf, leaf.start+local, n)
		}
		remaining -= n
	}
	return buf
}

// WriteTo writes the whole content to w.
func (t *Tree[A]) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for leaf := t.first; leaf != nil; leaf = leaf.next {
		if leaf.length == 0 {
			continue
		}
		b, release := leaf.Materialize()
		n, err := w.Write(b)
		release()
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// MarkCacheInvalid copies the bytes of every leaf backed by c into memory so
// the tree no longer reads through c. A nil c converts every file-backed
// leaf. Leaves that shared a file fragment share the replacement.
func (t *Tree[A]) MarkCacheInvalid(c *filecache.Cache) {
	replaced := make(map[*fragment.Fragment]*fragment.Fragment)
	for leaf := t.first; leaf != nil; leaf = leaf.next {
		f := leaf.frag
		if f == nil || f.Kind() != fragment.File || (c != nil && f.Cache() != c) {
			continue
		}
		nf, ok := replaced[f]
		if ok {
			nf.Ref()
		} else {
			nf = fragment.NewMemoryFunc(t.opts.alloc, int(f.Len()), func(b []byte) {
				src, release := f.Materialize(0, f.Len())
				copy(b, src)
				release()
			})
			replaced[f] = nf
		}
		t.invalidate(leaf)
		leaf.frag = nf
		f.Unref()
	}
}

// Release drops every fragment reference held by the tree and leaves it
// empty. Every leaf reported as created has been reported as destroyed
// afterwards.
func (t *Tree[A]) Release() {
	for leaf := t.first; leaf != nil; {
		next := leaf.next
		t.destroyLeaf(leaf)
		leaf = next
	}
	t.reset()
}

// newLeaf creates and measures an unlinked leaf. It takes ownership of one
// reference on frag.
func (t *Tree[A]) newLeaf(frag *fragment.Fragment, start, length uint64, group FuseGroup) *Node[A] {
	n := &Node[A]{frag: frag, start: start, length: length, group: group}
	n.agg = t.aug.Measure(n)
	if t.obs != nil {
		t.obs.Created(n)
	}
	return n
}

// adoptLeaf is newLeaf for a slice whose aggregate is already known.
func (t *Tree[A]) adoptLeaf(frag *fragment.Fragment, start, length uint64, group FuseGroup, agg A) *Node[A] {
	n := &Node[A]{frag: frag, start: start, length: length, group: group, agg: agg}
	if t.obs != nil {
		t.obs.Created(n)
	}
	return n
}

// destroyLeaf notifies the observer and drops the leaf's fragment reference.
func (t *Tree[A]) destroyLeaf(n *Node[A]) {
	if t.obs != nil && !n.placeholder {
		t.obs.Destroyed(n)
	}
	if n.frag != nil {
		n.frag.Unref()
		n.frag = nil
	}
	n.prev, n.next, n.parent = nil, nil, nil
}

// invalidate notifies the observer that a leaf is about to change.
func (t *Tree[A]) invalidate(n *Node[A]) {
	if t.obs != nil {
		t.obs.Invalidated(n)
	}
}

// split cuts leaf at local, leaving [0, local) in leaf and linking a new
// leaf holding the rest immediately after it.
func (t *Tree[A]) split(leaf *Node[A], local uint64) {
	right := t.newLeaf(leaf.frag.Ref(), leaf.start+local, leaf.length-local, leaf.group)
	t.invalidate(leaf)
	leaf.length = local
	leaf.agg = t.aug.Measure(leaf)
	t.graft(leaf, right, false)
}

// trim removes head bytes from the front and tail bytes from the back of a
// leaf, shrinking its fragment when it is unshared and mostly unused.
func (t *Tree[A]) trim(leaf *Node[A], head, tail uint64) {
	t.invalidate(leaf)
	leaf.start += head
	leaf.length -= head + tail
	f := leaf.frag
	if f.Kind() == fragment.Memory && float64(leaf.length) < t.opts.shrinkRatio*float64(f.Len()) {
		if f.Shrink(leaf.start, leaf.length) {
			leaf.start = 0
		}
	}
	leaf.agg = t.aug.Measure(leaf)
	t.fixup(leaf.parent)
}

// graft links nl beside the leaf at, under a new internal node that takes
// at's place, then rebalances upward.
func (t *Tree[A]) graft(at, nl *Node[A], before bool) {
	n := &Node[A]{}
	t.replace(at, n)
	if before {
		n.left, n.right = nl, at
		nl.prev, nl.next = at.prev, at
		if at.prev != nil {
			at.prev.next = nl
		} else {
			t.first = nl
		}
		at.prev = nl
	} else {
		n.left, n.right = at, nl
		nl.prev, nl.next = at, at.next
		if at.next != nil {
			at.next.prev = nl
		} else {
			t.last = nl
		}
		at.next = nl
	}
	at.parent, nl.parent = n, n
	t.fixup(n)
}

// remove unlinks and destroys a leaf. Its parent collapses and the sibling
// takes the parent's place. Removing the only leaf leaves a placeholder.
func (t *Tree[A]) remove(leaf *Node[A]) {
	if leaf == t.root {
		t.destroyLeaf(leaf)
		t.reset()
		return
	}

	sib := leaf.sibling()
	t.replace(leaf.parent, sib)
	if leaf.prev != nil {
		leaf.prev.next = leaf.next
	} else {
		t.first = leaf.next
	}
	if leaf.next != nil {
		leaf.next.prev = leaf.prev
	} else {
		t.last = leaf.prev
	}
	t.destroyLeaf(leaf)
	t.fixup(sib.parent)
}

func orSelf[A any](n, self *Node[A]) *Node[A] {
	if n == nil {
		return self
	}
	return n
}
