package rangetree

import (
	"errors"
	"fmt"
)

// ErrCorrupt is wrapped by every error Check reports.
var ErrCorrupt = errors.New("rangetree: corrupt tree")

// Check verifies the structural invariants of the tree: parent links,
// lengths, depths, the balance bound, the leaf list matching in-order
// traversal, and every referenced fragment being alive and large enough.
// It is meant for tests and debug builds.
func (t *Tree[A]) Check() error {
	if t.root == nil {
		return fmt.Errorf("%w: nil root", ErrCorrupt)
	}
	if t.root.parent != nil {
		return fmt.Errorf("%w: root has a parent", ErrCorrupt)
	}

	var leaves []*Node[A]
	if err := t.checkNode(t.root, &leaves); err != nil {
		return err
	}

	if t.first != leaves[0] || t.last != leaves[len(leaves)-1] {
		return fmt.Errorf("%w: first/last do not match in-order leaves", ErrCorrupt)
	}
	var sum uint64
	n := t.first
	for i, leaf := range leaves {
		if n != leaf {
			return fmt.Errorf("%w: leaf list diverges from tree order at leaf %d", ErrCorrupt, i)
		}
		if n.next != nil && n.next.prev != n {
			return fmt.Errorf("%w: broken prev link after leaf %d", ErrCorrupt, i)
		}
		sum += n.length
		n = n.next
	}
	if n != nil {
		return fmt.Errorf("%w: leaf list longer than tree", ErrCorrupt)
	}
	if t.first.prev != nil {
		return fmt.Errorf("%w: first leaf has a predecessor", ErrCorrupt)
	}
	if sum != t.root.length {
		return fmt.Errorf("%w: leaf lengths sum to %d, root length %d", ErrCorrupt, sum, t.root.length)
	}
	return nil
}

func (t *Tree[A]) checkNode(n *Node[A], leaves *[]*Node[A]) error {
	if n.IsLeaf() {
		if n.right != nil {
			return fmt.Errorf("%w: node with only a right child", ErrCorrupt)
		}
		if n.depth != 0 {
			return fmt.Errorf("%w: leaf depth %d", ErrCorrupt, n.depth)
		}
		if (n.frag == nil) != (n.length == 0) {
			return fmt.Errorf("%w: leaf length %d with fragment %v", ErrCorrupt, n.length, n.frag != nil)
		}
		if n.frag != nil {
			if n.frag.Refs() < 1 {
				return fmt.Errorf("%w: leaf references released fragment", ErrCorrupt)
			}
			if n.start+n.length > n.frag.Len() {
				return fmt.Errorf("%w: leaf slice [%d,+%d) exceeds fragment length %d",
					ErrCorrupt, n.start, n.length, n.frag.Len())
			}
		}
		*leaves = append(*leaves, n)
		return nil
	}

	if n.right == nil {
		return fmt.Errorf("%w: internal node with one child", ErrCorrupt)
	}
	if n.left.parent != n || n.right.parent != n {
		return fmt.Errorf("%w: orphaned child", ErrCorrupt)
	}
	if err := t.checkNode(n.left, leaves); err != nil {
		return err
	}
	if err := t.checkNode(n.right, leaves); err != nil {
		return err
	}
	if n.length != n.left.length+n.right.length {
		return fmt.Errorf("%w: length %d != %d + %d", ErrCorrupt, n.length, n.left.length, n.right.length)
	}
	if n.depth != 1+max(n.left.depth, n.right.depth) {
		return fmt.Errorf("%w: stale depth %d", ErrCorrupt, n.depth)
	}
	if d := n.left.depth - n.right.depth; d > 1 || d < -1 {
		return fmt.Errorf("%w: unbalanced node, depths %d and %d", ErrCorrupt, n.left.depth, n.right.depth)
	}
	return nil
}
