package fragment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/rangebuf/internal/engine/filecache"
	"github.com/dshills/rangebuf/internal/engine/fragment/fragmenttest"
)

func TestMemoryFragment(t *testing.T) {
	alloc := fragmenttest.NewCountingAllocator()
	src := []byte("hello world")
	f := NewMemoryWith(alloc, src)
	src[0] = 'J'

	assert.Equal(t, Memory, f.Kind())
	assert.Equal(t, uint64(11), f.Len())
	assert.Equal(t, int32(1), f.Refs())

	b, release := f.Materialize(6, 5)
	assert.Equal(t, []byte("world"), b)
	release()

	assert.Equal(t, []byte(">hello"), f.AppendTo([]byte(">"), 0, 5))

	f.Ref()
	f.Unref()
	assert.Equal(t, 1, alloc.Live())
	f.Unref()
	assert.Equal(t, 0, alloc.Live())
	assert.Equal(t, 1, alloc.Frees())

	assert.Panics(t, func() { f.Unref() })
	assert.Panics(t, func() { f.Ref() })
}

func TestNewMemoryFunc(t *testing.T) {
	alloc := fragmenttest.NewCountingAllocator()
	f := NewMemoryFunc(alloc, 3, func(b []byte) { copy(b, "abc") })
	assert.Equal(t, []byte("abc"), f.AppendTo(nil, 0, 3))
	f.Unref()
	assert.Equal(t, 0, alloc.Live())
}

func TestMaterializeOutOfRangePanics(t *testing.T) {
	f := NewMemory([]byte("abc"))
	assert.Panics(t, func() { f.Materialize(2, 2) })
}

func TestShrink(t *testing.T) {
	tests := []struct {
		name   string
		refs   int
		start  uint64
		n      uint64
		shrunk bool
		want   string
	}{
		{"unshared", 1, 2, 3, true, "cde"},
		{"full range", 1, 0, 8, false, "abcdefgh"},
		{"shared", 2, 2, 3, false, "abcdefgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := fragmenttest.NewCountingAllocator()
			f := NewMemoryWith(alloc, []byte("abcdefgh"))
			for i := 1; i < tt.refs; i++ {
				f.Ref()
			}

			assert.Equal(t, tt.shrunk, f.Shrink(tt.start, tt.n))
			assert.Equal(t, tt.want, string(f.AppendTo(nil, 0, f.Len())))
			assert.Equal(t, 1, alloc.Live())

			for i := 0; i < tt.refs; i++ {
				f.Unref()
			}
			assert.Equal(t, 0, alloc.Live())
		})
	}
}

func TestFileFragment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789abcdef"), 0o644))

	c, err := filecache.Open(path, filecache.WithPageSize(8))
	require.NoError(t, err)

	f := NewFile(c, 10, 4)
	assert.Equal(t, File, f.Kind())
	assert.Equal(t, int32(2), c.Refs())
	assert.Same(t, c, f.Cache())

	b, release := f.Materialize(1, 3)
	assert.Equal(t, []byte("bcd"), b)
	assert.Equal(t, 1, c.Stats().ActivePages)
	release()
	assert.Equal(t, 0, c.Stats().ActivePages)

	assert.False(t, f.Shrink(0, 1))

	assert.Panics(t, func() { NewFile(c, 6, 4) })

	require.NoError(t, c.Close())
	assert.Equal(t, int32(1), c.Refs())
	f.Unref()
	assert.Equal(t, int32(0), c.Refs())
}

func TestFileFragmentTruncatedReadsZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789abcdef"), 0o644))

	c, err := filecache.Open(path, filecache.WithPageSize(8))
	require.NoError(t, err)
	defer c.Close()

	f := NewFile(c, 8, 8)
	defer f.Unref()
	require.NoError(t, os.Truncate(path, 10))

	b, release := f.Materialize(0, 8)
	assert.Equal(t, []byte("89\x00\x00\x00\x00\x00\x00"), b)
	assert.Equal(t, 0, c.Stats().ActivePages, "padded reads do not keep the page pinned")
	release()

	assert.Equal(t, []byte("9\x00\x00"), f.AppendTo(nil, 1, 3))
}

func TestContiguous(t *testing.T) {
	f := NewMemory([]byte("abcdef"))
	g := NewMemory([]byte("abcdef"))
	assert.True(t, Contiguous(f, 0, 3, f, 3))
	assert.False(t, Contiguous(f, 0, 3, f, 4))
	assert.False(t, Contiguous(f, 0, 3, g, 3))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "memory", Memory.String())
	assert.Equal(t, "file", File.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
