// Package fragmenttest provides test doubles for fragment allocation.
package fragmenttest

import (
	"fmt"
	"sync"
	"unsafe"
)

// CountingAllocator records every buffer it hands out and panics if a buffer
// is freed twice or was never allocated by it.
type CountingAllocator struct {
	mu     sync.Mutex
	live   map[*byte]int
	allocs int
	frees  int
	empty  int
}

// NewCountingAllocator returns an empty allocator.
func NewCountingAllocator() *CountingAllocator {
	return &CountingAllocator{live: make(map[*byte]int)}
}

// Alloc returns a zeroed buffer of n bytes.
func (a *CountingAllocator) Alloc(n int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.allocs++
	if n == 0 {
		a.empty++
		return []byte{}
	}
	b := make([]byte, n)
	a.live[unsafe.SliceData(b)] = n
	return b
}

// Free releases a buffer previously returned by Alloc.
func (a *CountingAllocator) Free(b []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frees++
	if len(b) == 0 && cap(b) == 0 {
		a.empty--
		if a.empty < 0 {
			panic("fragmenttest: empty buffer freed more often than allocated")
		}
		return
	}
	p := unsafe.SliceData(b)
	if _, ok := a.live[p]; !ok {
		panic(fmt.Sprintf("fragmenttest: free of unknown or already freed buffer %p", p))
	}
	delete(a.live, p)
}

// Live returns the number of buffers allocated and not yet freed.
func (a *CountingAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live) + a.empty
}

// Allocs returns the total number of allocations.
func (a *CountingAllocator) Allocs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocs
}

// Frees returns the total number of frees.
func (a *CountingAllocator) Frees() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frees
}
