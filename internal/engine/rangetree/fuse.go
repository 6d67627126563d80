package rangetree

import "github.com/dshills/rangebuf/internal/engine/fragment"

// FuseRange merges adjacent leaves overlapping [start, end] where the fuse
// policy allows. It never changes content.
func (t *Tree[A]) FuseRange(start, end uint64) {
	if end < start {
		start, end = end, start
	}
	first, _ := t.Find(start)
	last, _ := t.Find(end)
	t.fuse(first, last)
}

// fuse walks the leaves from first through last, merging each leaf into its
// predecessor where allowed.
func (t *Tree[A]) fuse(first, last *Node[A]) {
	for a := first; a != last; {
		b := a.next
		if b == nil {
			return
		}
		if !t.merge(a, b) {
			a = b
			continue
		}
		if b == last {
			return
		}
	}
}

// merge folds b into a if their groups match and one of the following holds:
// both are empty markers, b continues a's slice of the same fragment, or the
// pair fits in one node and at least one side lives in memory.
func (t *Tree[A]) merge(a, b *Node[A]) bool {
	if a.group != b.group {
		return false
	}
	total := a.length + b.length
	switch {
	case a.length == 0 && b.length == 0:

	case a.length == 0 || b.length == 0:
		return false

	case total <= t.opts.maxNodeSize && fragment.Contiguous(a.frag, a.start, a.length, b.frag, b.start):
		t.invalidate(a)
		a.length = total

	case total < t.opts.maxNodeSize && (a.frag.Kind() == fragment.Memory || b.frag.Kind() == fragment.Memory):
		nf := fragment.NewMemoryFunc(t.opts.alloc, int(total), func(buf []byte) {
			buf = a.AppendTo(buf[:0])
			b.AppendTo(buf)
		})
		t.invalidate(a)
		a.frag.Unref()
		a.frag, a.start, a.length = nf, 0, total

	default:
		return false
	}
	a.agg = t.aug.Measure(a)
	t.fixup(a.parent)
	t.remove(b)
	return true
}
