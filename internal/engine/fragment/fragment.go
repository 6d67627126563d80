package fragment

import (
	"fmt"
	"sync/atomic"

	"github.com/dshills/rangebuf/internal/engine/filecache"
)

// Kind distinguishes where a fragment's bytes live.
type Kind uint8

const (
	// Memory fragments own a heap buffer.
	Memory Kind = iota
	// File fragments read through a file cache.
	File
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Memory:
		return "memory"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// Fragment is a reference-counted, immutable byte range. The reference count
// is atomic, so trees on different goroutines may share a fragment.
type Fragment struct {
	kind  Kind
	refs  atomic.Int32
	alloc Allocator

	// Memory
	data []byte

	// File
	cache  *filecache.Cache
	offset int64
	length uint64
}

// NewMemory creates a Memory fragment holding a copy of b.
func NewMemory(b []byte) *Fragment {
	return NewMemoryWith(Heap, b)
}

// NewMemoryWith creates a Memory fragment whose buffer comes from alloc.
func NewMemoryWith(alloc Allocator, b []byte) *Fragment {
	data := alloc.Alloc(len(b))
	copy(data, b)
	return newFragment(&Fragment{kind: Memory, alloc: alloc, data: data})
}

// NewMemoryFunc creates a Memory fragment of n bytes allocated from alloc and
// filled by fill.
func NewMemoryFunc(alloc Allocator, n int, fill func(b []byte)) *Fragment {
	data := alloc.Alloc(n)
	fill(data)
	return newFragment(&Fragment{kind: Memory, alloc: alloc, data: data})
}

// NewFile creates a File fragment for [offset, offset+length) of the cached
// file. The range must lie within one cache page. The fragment holds a
// reference on the cache until it is released.
func NewFile(c *filecache.Cache, offset int64, length uint64) *Fragment {
	if length > 0 && c.PageStart(offset) != c.PageStart(offset+int64(length)-1) {
		panic(fmt.Sprintf("fragment: file range [%d,+%d) crosses a page boundary", offset, length))
	}
	c.Ref()
	return newFragment(&Fragment{kind: File, cache: c, offset: offset, length: length})
}

func newFragment(f *Fragment) *Fragment {
	f.refs.Store(1)
	return f
}

// Kind returns the fragment kind.
func (f *Fragment) Kind() Kind {
	return f.kind
}

// Len returns the number of bytes the fragment addresses.
func (f *Fragment) Len() uint64 {
	if f.kind == Memory {
		return uint64(len(f.data))
	}
	return f.length
}

// Refs returns the current reference count.
func (f *Fragment) Refs() int32 {
	return f.refs.Load()
}

// Cache returns the backing cache of a File fragment, or nil.
func (f *Fragment) Cache() *filecache.Cache {
	return f.cache
}

// FileOffset returns the file offset of a File fragment.
func (f *Fragment) FileOffset() int64 {
	return f.offset
}

// Ref takes an additional reference.
func (f *Fragment) Ref() *Fragment {
	if f.refs.Add(1) <= 1 {
		panic("fragment: ref of released fragment")
	}
	return f
}

// Unref drops one reference. At zero, a Memory fragment frees its buffer and
// a File fragment releases its cache reference.
func (f *Fragment) Unref() {
	switch n := f.refs.Add(-1); {
	case n < 0:
		panic("fragment: reference count underflow")
	case n > 0:
		return
	}
	switch f.kind {
	case Memory:
		f.alloc.Free(f.data)
		f.data = nil
	case File:
		_ = f.cache.Close()
		f.cache = nil
	}
}

// Materialize returns the bytes [start, start+n) of the fragment. For File
// fragments this pins a cache page, possibly reading it from disk; the
// returned release func must be called once the bytes are no longer needed.
// The slice always holds n bytes: bytes past the end of a truncated backing
// file read as zeros.
func (f *Fragment) Materialize(start, n uint64) ([]byte, func()) {
	if f.refs.Load() <= 0 {
		panic("fragment: materialize of released fragment")
	}
	if start+n > f.Len() {
		panic(fmt.Sprintf("fragment: range [%d,+%d) outside fragment of length %d", start, n, f.Len()))
	}
	if f.kind == Memory {
		return f.data[start : start+n], noop
	}
	c := f.cache
	page, b := c.Fetch(f.offset+int64(start), int64(n))
	if uint64(len(b)) < n {
		padded := make([]byte, n)
		copy(padded, b)
		c.Release(page)
		return padded, noop
	}
	return b, func() { c.Release(page) }
}

// AppendTo appends the bytes [start, start+n) to dst.
func (f *Fragment) AppendTo(dst []byte, start, n uint64) []byte {
	b, release := f.Materialize(start, n)
	dst = append(dst, b...)
	release()
	return dst
}

// Shrink reallocates a Memory fragment to hold only [start, start+n),
// returning true if it did. Afterwards the kept bytes begin at offset 0.
// Shared fragments and File fragments are left untouched.
func (f *Fragment) Shrink(start, n uint64) bool {
	if f.kind != Memory || f.refs.Load() != 1 {
		return false
	}
	if start+n > f.Len() {
		panic(fmt.Sprintf("fragment: shrink range [%d,+%d) outside fragment of length %d", start, n, f.Len()))
	}
	if n == f.Len() {
		return false
	}
	data := f.alloc.Alloc(int(n))
	copy(data, f.data[start:start+n])
	f.alloc.Free(f.data)
	f.data = data
	return true
}

// Contiguous reports whether [aStart, aStart+aLen) of f is immediately
// followed by [bStart, ...) of g, so the two slices can be joined without
// copying.
func Contiguous(f *Fragment, aStart, aLen uint64, g *Fragment, bStart uint64) bool {
	return f == g && aStart+aLen == bStart
}

func noop() {}
