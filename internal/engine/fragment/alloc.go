package fragment

// Allocator provides and reclaims the backing memory of Memory fragments.
// Tests substitute a counting allocator to observe that each buffer is freed
// exactly once.
type Allocator interface {
	Alloc(n int) []byte
	Free(b []byte)
}

type heapAllocator struct{}

func (heapAllocator) Alloc(n int) []byte { return make([]byte, n) }
func (heapAllocator) Free([]byte)        {}

// Heap is the default allocator. Freed buffers are left to the garbage
// collector.
var Heap Allocator = heapAllocator{}
