package filecache

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Budget is a resident-byte allowance shared by several caches, typically one
// per open document. It is safe for concurrent use.
type Budget struct {
	limit int64
	sem   *semaphore.Weighted
	used  atomic.Int64
}

// NewBudget creates a budget allowing limit resident bytes in total.
func NewBudget(limit int64) *Budget {
	return &Budget{
		limit: limit,
		sem:   semaphore.NewWeighted(limit),
	}
}

// TryCharge reserves n bytes without blocking. It reports false when the
// reservation would exceed the limit.
func (b *Budget) TryCharge(n int64) bool {
	if n <= 0 {
		return true
	}
	if !b.sem.TryAcquire(n) {
		return false
	}
	b.used.Add(n)
	return true
}

// Credit returns n previously charged bytes.
func (b *Budget) Credit(n int64) {
	if n <= 0 {
		return
	}
	if b.used.Add(-n) < 0 {
		panic("filecache: budget credited more than charged")
	}
	b.sem.Release(n)
}

// Used returns the number of bytes currently charged.
func (b *Budget) Used() int64 {
	return b.used.Load()
}

// Limit returns the budget size.
func (b *Budget) Limit() int64 {
	return b.limit
}
