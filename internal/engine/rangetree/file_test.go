package rangetree_test

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/rangebuf/internal/engine/augment"
	"github.com/dshills/rangebuf/internal/engine/filecache"
	"github.com/dshills/rangebuf/internal/engine/fragment"
	"github.com/dshills/rangebuf/internal/engine/rangetree"
)

func writeFile(t *testing.T, n int, seed int64) (string, []byte) {
	t.Helper()
	data := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(data)
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func TestFromFileIsLazy(t *testing.T) {
	path, data := writeFile(t, 100_000, 1)
	c, err := filecache.Open(path, filecache.WithPageSize(4096))
	require.NoError(t, err)

	tr := rangetree.FromFile[struct{}](rangetree.None{}, c)
	assert.Equal(t, uint64(len(data)), tr.Len())
	assert.Equal(t, 25, tr.LeafCount())
	assert.Equal(t, int64(0), c.Stats().Misses)
	assert.Equal(t, int32(26), c.Refs())
	require.NoError(t, tr.Check())

	assert.Equal(t, data[5000:9000], tr.Raw(5000, 9000))
	assert.Positive(t, c.Stats().Misses)

	tr.Release()
	assert.Equal(t, int32(1), c.Refs())
	require.NoError(t, c.Close())
}

func TestFromFileMeasuresThroughCache(t *testing.T) {
	path, data := writeFile(t, 50_000, 2)
	c, err := filecache.Open(path, filecache.WithPageSize(4096), filecache.WithMaxBytes(16*1024))
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	tr := rangetree.FromFile[augment.Summary](augment.Lines{}, c)
	defer tr.Release()
	assert.Equal(t, augment.Compute(data), tr.Aggregate())
	assert.LessOrEqual(t, c.Resident(), int64(16*1024))
}

func TestSequentialReadStaysWithinCacheBudget(t *testing.T) {
	const (
		size  = 10 << 20
		limit = 1 << 20
		chunk = 64 << 10
	)
	path, data := writeFile(t, size, 3)
	c, err := filecache.Open(path, filecache.WithMaxBytes(limit))
	require.NoError(t, err)

	tr := rangetree.FromFile[struct{}](rangetree.None{}, c)
	got := make([]byte, 0, size)
	for off := uint64(0); off < size; off += chunk {
		got = append(got, tr.Raw(off, off+chunk)...)
		require.LessOrEqual(t, c.Resident(), int64(limit))
	}
	require.True(t, bytes.Equal(data, got))
	assert.Positive(t, c.Stats().Evictions)

	tr.Release()
	require.NoError(t, c.Close())
	assert.Equal(t, int32(0), c.Refs())
	assert.Equal(t, int64(0), c.Resident())
}

func TestEditsOverFile(t *testing.T) {
	path, data := writeFile(t, 20_000, 4)
	c, err := filecache.Open(path, filecache.WithPageSize(1024), filecache.WithMaxBytes(4096))
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	tr := rangetree.FromFile[augment.Summary](augment.Lines{}, c, rangetree.WithMaxNodeSize(512))
	defer tr.Release()
	model := append([]byte(nil), data...)

	tr.Delete(1000, 3000)
	model = append(model[:1000:1000], model[4000:]...)
	tr.InsertBytes(500, []byte("inserted"), rangetree.NoGroup)
	model = insertModel(model, 500, []byte("inserted"))
	tr.Paste(tr.Copy(10_000, 2_500), 7)
	model = insertModel(model, 7, append([]byte(nil), model[10_000:12_500]...))

	checkAgainst(t, tr, model, 0)
	assert.LessOrEqual(t, c.Resident(), int64(4096))
}

func TestContiguousFileSlicesJoinWithoutCopy(t *testing.T) {
	path, data := writeFile(t, 8192, 5)
	c, err := filecache.Open(path, filecache.WithPageSize(4096))
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	src := rangetree.FromFile[struct{}](rangetree.None{}, c)
	defer src.Release()

	dst := rangetree.New[struct{}](rangetree.None{})
	defer dst.Release()
	dst.Paste(src.Copy(0, 100), 0)
	dst.Paste(src.Copy(100, 50), 100)

	require.Equal(t, 1, dst.LeafCount())
	leaf := dst.First()
	assert.Equal(t, fragment.File, leaf.Fragment().Kind())
	assert.Equal(t, uint64(150), leaf.Len())
	assert.Equal(t, data[:150], dst.Raw(0, 150))
}

func TestMarkCacheInvalid(t *testing.T) {
	path, data := writeFile(t, 100_000, 6)
	c, err := filecache.Open(path, filecache.WithPageSize(4096))
	require.NoError(t, err)

	tr := rangetree.FromFile[augment.Summary](augment.Lines{}, c)
	cp := tr.Copy(0, tr.Len())
	require.NoError(t, c.Close())
	refs := c.Refs()

	tr.MarkCacheInvalid(c)
	for n := tr.First(); n != nil; n = n.Next() {
		assert.Equal(t, fragment.Memory, n.Fragment().Kind())
	}
	assert.Equal(t, refs, c.Refs(), "the copy still reads through the cache")

	// Another cache leaves the copy alone.
	other, err := filecache.Open(path)
	require.NoError(t, err)
	cp.MarkCacheInvalid(other)
	assert.Equal(t, fragment.File, cp.First().Fragment().Kind())
	require.NoError(t, other.Close())

	cp.MarkCacheInvalid(nil)
	assert.Equal(t, int32(0), c.Refs())

	// The file changing on disk no longer affects either tree.
	require.NoError(t, os.WriteFile(path, []byte("replaced"), 0o644))
	assert.True(t, bytes.Equal(data, tr.Raw(0, tr.Len())))
	assert.True(t, bytes.Equal(data, cp.Raw(0, cp.Len())))
	assert.Equal(t, augment.Compute(data), tr.Aggregate())
	require.NoError(t, tr.Check())
	require.NoError(t, cp.Check())
}

func TestTruncatedFileReadsAsZeros(t *testing.T) {
	path, data := writeFile(t, 32, 5)
	c, err := filecache.Open(path, filecache.WithPageSize(8))
	require.NoError(t, err)
	tr := rangetree.FromFile[struct{}](rangetree.None{}, c)
	require.NoError(t, c.Close())
	defer tr.Release()

	require.NoError(t, os.Truncate(path, 12))
	want := append(append([]byte(nil), data[:12]...), make([]byte, 20)...)

	assert.Equal(t, want, tr.Raw(0, tr.Len()))

	var walked []byte
	for it := tr.IterAt(0); ; {
		b, ok := it.Next()
		if !ok {
			break
		}
		walked = append(walked, b)
	}
	assert.Equal(t, want, walked)

	var buf bytes.Buffer
	_, err = tr.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, buf.Bytes())

	// Fusing a memory leaf between short pages copies whole leaves.
	tr.InsertBytes(16, []byte("Z"), rangetree.NoGroup)
	want = append(want[:16:16], append([]byte("Z"), want[16:]...)...)
	assert.Equal(t, want, tr.Raw(0, tr.Len()))
	assert.Less(t, tr.LeafCount(), 5)
	require.NoError(t, tr.Check())
}
