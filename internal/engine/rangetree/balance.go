package rangetree

// pull recomputes an internal node's length, depth and aggregate from its
// children. Leaves are measured where their slice changes, not here.
func (t *Tree[A]) pull(n *Node[A]) {
	if n.IsLeaf() {
		return
	}
	n.length = n.left.length + n.right.length
	n.depth = 1 + max(n.left.depth, n.right.depth)
	n.agg = t.aug.Combine(n.left.agg, n.right.agg)
}

// fixup walks from n to the root recombining aggregates and restoring the
// depth balance at every level.
func (t *Tree[A]) fixup(n *Node[A]) {
	for n != nil {
		t.pull(n)
		n = t.rebalance(n)
		n = n.parent
	}
}

// rebalance rotates the heavier side of n up when the child depths differ by
// more than one. A child leaning the other way is rotated first. It returns
// the node now occupying n's position.
func (t *Tree[A]) rebalance(n *Node[A]) *Node[A] {
	if n.IsLeaf() {
		return n
	}
	switch bal := n.left.depth - n.right.depth; {
	case bal > 1:
		if l := n.left; l.left.depth < l.right.depth {
			t.rotateLeft(l)
		}
		return t.rotateRight(n)
	case bal < -1:
		if r := n.right; r.right.depth < r.left.depth {
			t.rotateRight(r)
		}
		return t.rotateLeft(n)
	}
	return n
}

// rotateRight lifts n's left child into n's place.
//
//	    n            l
//	   / \          / \
//	  l   c  =>    a   n
//	 / \              / \
//	a   b            b   c
func (t *Tree[A]) rotateRight(n *Node[A]) *Node[A] {
	l := n.left
	n.left = l.right
	n.left.parent = n
	t.replace(n, l)
	l.right = n
	n.parent = l
	t.pull(n)
	t.pull(l)
	return l
}

// rotateLeft lifts n's right child into n's place.
func (t *Tree[A]) rotateLeft(n *Node[A]) *Node[A] {
	r := n.right
	n.right = r.left
	n.right.parent = n
	t.replace(n, r)
	r.left = n
	n.parent = r
	t.pull(n)
	t.pull(r)
	return r
}

// replace puts repl where old hangs in the tree. The leaf list is not
// touched; callers relink leaves in the same step when order changes.
func (t *Tree[A]) replace(old, repl *Node[A]) {
	p := old.parent
	repl.parent = p
	switch {
	case p == nil:
		t.root = repl
	case p.left == old:
		p.left = repl
	default:
		p.right = repl
	}
}
