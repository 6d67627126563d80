package filecache

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRegular)

	path := writeTemp(t, []byte("x"))
	_, err = Open(path, WithPageSize(1000))
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestFetch(t *testing.T) {
	data := randomBytes(10_000, 1)
	c, err := Open(writeTemp(t, data), WithPageSize(4096))
	require.NoError(t, err)
	defer c.Close()

	tests := []struct {
		name   string
		offset int64
		length int64
		want   []byte
	}{
		{"page start", 0, 10, data[0:10]},
		{"inside page", 5000, 100, data[5000:5100]},
		{"clipped at page end", 4000, 500, data[4000:4096]},
		{"short last page", 8192, 4096, data[8192:]},
		{"past end of file", 9990, 100, data[9990:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, b := c.Fetch(tt.offset, tt.length)
			assert.Equal(t, tt.want, b)
			assert.Equal(t, c.PageStart(tt.offset), p.Offset())
			c.Release(p)
		})
	}

	st := c.Stats()
	assert.Equal(t, int64(3), st.Misses)
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, 0, st.ActivePages)
	assert.Equal(t, 3, st.InactivePages)
}

func TestReleaseKeepsPageResident(t *testing.T) {
	c, err := Open(writeTemp(t, randomBytes(8192, 2)), WithPageSize(4096))
	require.NoError(t, err)
	defer c.Close()

	p, _ := c.Fetch(0, 1)
	p2, _ := c.Fetch(1, 1)
	assert.Same(t, p, p2)
	assert.True(t, p.Pinned())

	c.Release(p)
	assert.True(t, p.Pinned())
	c.Release(p2)
	assert.False(t, p.Pinned())
	assert.Equal(t, int64(4096), c.Resident())

	p3, _ := c.Fetch(100, 1)
	assert.Same(t, p, p3)
	assert.Equal(t, int64(1), c.Stats().Misses)
	c.Release(p3)
}

func TestReleaseUnpinnedPanics(t *testing.T) {
	c, err := Open(writeTemp(t, []byte("abc")))
	require.NoError(t, err)
	defer c.Close()

	p, _ := c.Fetch(0, 3)
	c.Release(p)
	assert.Panics(t, func() { c.Release(p) })
}

func TestCleanupNeverEvictsPinnedPages(t *testing.T) {
	c, err := Open(writeTemp(t, randomBytes(64*1024, 3)),
		WithPageSize(4096), WithMaxBytes(8192))
	require.NoError(t, err)
	defer c.Close()

	var pinned []*Page
	for off := int64(0); off < 4*4096; off += 4096 {
		p, _ := c.Fetch(off, 1)
		pinned = append(pinned, p)
	}
	// Every page is pinned, so nothing can be evicted.
	assert.Equal(t, int64(4*4096), c.Resident())
	assert.Equal(t, int64(0), c.Stats().Evictions)

	for _, p := range pinned {
		c.Release(p)
	}
	c.Cleanup()
	assert.LessOrEqual(t, c.Resident(), c.MaxBytes())

	// The most recently released pages survive.
	st := c.Stats()
	assert.Equal(t, int64(2), st.Evictions)
	p, _ := c.Fetch(3*4096, 1)
	assert.Equal(t, int64(4), c.Stats().Misses)
	c.Release(p)
}

func TestSequentialScanStaysWithinBudget(t *testing.T) {
	data := randomBytes(1<<20, 4)
	c, err := Open(writeTemp(t, data), WithPageSize(4096), WithMaxBytes(64*1024))
	require.NoError(t, err)
	defer c.Close()

	var out bytes.Buffer
	for off := int64(0); off < int64(len(data)); off += 1000 {
		p, b := c.Fetch(off, 1000)
		out.Write(b)
		rest := 1000 - int64(len(b))
		c.Release(p)
		if rest > 0 && off+int64(len(b)) < int64(len(data)) {
			p, b = c.Fetch(off+int64(len(b)), rest)
			out.Write(b)
			c.Release(p)
		}
		require.LessOrEqual(t, c.Resident(), c.MaxBytes())
	}
	assert.Equal(t, data, out.Bytes())
}

func TestModifiedAndResync(t *testing.T) {
	path := writeTemp(t, []byte("original"))
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Modified())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.True(t, c.Modified())

	c.Resync()
	assert.False(t, c.Modified())

	require.NoError(t, os.Remove(path))
	assert.True(t, c.Modified())
}

func TestCacheRefcount(t *testing.T) {
	c, err := Open(writeTemp(t, []byte("hello")))
	require.NoError(t, err)

	c.Ref()
	assert.Equal(t, int32(2), c.Refs())
	require.NoError(t, c.Close())

	p, b := c.Fetch(0, 5)
	assert.Equal(t, []byte("hello"), b)
	c.Release(p)

	require.NoError(t, c.Close())
	assert.Equal(t, int64(0), c.Resident())
	assert.Panics(t, func() { c.Fetch(0, 1) })
	assert.Panics(t, func() { _ = c.Close() })
}

func TestSharedBudget(t *testing.T) {
	budget := NewBudget(3 * 4096)
	a, err := Open(writeTemp(t, randomBytes(8*4096, 5)), WithPageSize(4096), WithBudget(budget))
	require.NoError(t, err)
	b, err := Open(writeTemp(t, randomBytes(8*4096, 6)), WithPageSize(4096), WithBudget(budget))
	require.NoError(t, err)

	for off := int64(0); off < 8*4096; off += 4096 {
		p, _ := a.Fetch(off, 1)
		a.Release(p)
	}
	assert.Equal(t, int64(3*4096), budget.Used())

	// b has nothing of its own to evict while a holds the budget, so it loads
	// uncharged pages rather than failing.
	p, got := b.Fetch(0, 1)
	assert.Len(t, got, 1)
	b.Release(p)
	assert.Equal(t, int64(3*4096), budget.Used())

	require.NoError(t, a.Close())
	assert.Equal(t, int64(0), budget.Used())
	require.NoError(t, b.Close())
	assert.Equal(t, int64(0), budget.Used())
}

func TestBudgetCreditUnderflowPanics(t *testing.T) {
	b := NewBudget(10)
	require.True(t, b.TryCharge(4))
	assert.False(t, b.TryCharge(7))
	b.Credit(4)
	assert.Panics(t, func() { b.Credit(1) })
}
