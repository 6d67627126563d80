package rangetree

import "github.com/dshills/rangebuf/internal/engine/fragment"

// Node is a tree node. Leaves (no children) reference a slice of a fragment;
// internal nodes always have exactly two children and store only the total
// length and combined aggregate of their subtree.
type Node[A any] struct {
	parent      *Node[A]
	left, right *Node[A]

	length uint64
	depth  int // 0 for leaves
	agg    A

	// Leaf fields
	frag       *fragment.Fragment // nil iff length == 0
	start      uint64
	prev, next *Node[A]
	group      FuseGroup

	// placeholder marks the empty leaf of an empty tree. It is never
	// reported to the observer.
	placeholder bool
}

// IsLeaf returns true if the node has no children.
func (n *Node[A]) IsLeaf() bool {
	return n.left == nil
}

// Len returns the number of bytes in the subtree.
func (n *Node[A]) Len() uint64 {
	return n.length
}

// Aggregate returns the subtree aggregate.
func (n *Node[A]) Aggregate() A {
	return n.agg
}

// Fragment returns the fragment a leaf references, or nil for an empty leaf.
func (n *Node[A]) Fragment() *fragment.Fragment {
	return n.frag
}

// Start returns the offset of a leaf's slice within its fragment.
func (n *Node[A]) Start() uint64 {
	return n.start
}

// Group returns a leaf's fuse group.
func (n *Node[A]) Group() FuseGroup {
	return n.group
}

// Next returns the following leaf in document order, or nil.
func (n *Node[A]) Next() *Node[A] {
	return n.next
}

// Prev returns the preceding leaf in document order, or nil.
func (n *Node[A]) Prev() *Node[A] {
	return n.prev
}

// Materialize returns the bytes of a leaf. The release func must be called
// when they are no longer needed.
func (n *Node[A]) Materialize() ([]byte, func()) {
	if n.frag == nil {
		return nil, func() {}
	}
	return n.frag.Materialize(n.start, n.length)
}

// AppendTo appends the bytes of a leaf to dst.
func (n *Node[A]) AppendTo(dst []byte) []byte {
	if n.frag == nil {
		return dst
	}
	return n.frag.AppendTo(dst, n.start, n.length)
}

// sibling returns the other child of n's parent.
func (n *Node[A]) sibling() *Node[A] {
	if n.parent.left == n {
		return n.parent.right
	}
	return n.parent.left
}
