package filecache

import (
	"container/list"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Cache is an LRU page cache over a single read-only file. It is safe for
// concurrent use.
//
// The cache is itself reference counted: Open returns a cache holding one
// reference, every file-backed fragment takes another, and the file is closed
// when the last reference is dropped.
type Cache struct {
	mu sync.Mutex

	path     string
	file     *os.File
	pageSize int64
	maxBytes int64
	budget   *Budget
	log      *slog.Logger

	pages    map[int64]*Page
	active   *list.List // pinned pages, most recently used at front
	inactive *list.List // unpinned pages, most recently used at front
	resident int64

	modTime time.Time
	size    int64
	refs    int32

	hits      int64
	misses    int64
	evictions int64
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	ResidentBytes int64
	ActivePages   int
	InactivePages int
}

// Open opens path read-only and records its modification time.
// No pages are resident until the first Fetch.
func Open(path string, opts ...Option) (*Cache, error) {
	c := &Cache{
		path:     path,
		pageSize: DefaultPageSize,
		maxBytes: DefaultMaxBytes,
		log:      slog.New(slog.DiscardHandler),
		pages:    make(map[int64]*Page),
		active:   list.New(),
		inactive: list.New(),
		refs:     1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pageSize <= 0 || c.pageSize&(c.pageSize-1) != 0 {
		return nil, ErrInvalidPageSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	adviseRandom(f)

	c.file = f
	c.modTime = info.ModTime()
	c.size = info.Size()
	c.log = c.log.With("component", "filecache", "path", path)
	c.log.Debug("cache opened", "size", c.size, "page_size", c.pageSize, "max_bytes", c.maxBytes)
	return c, nil
}

// Path returns the path the cache was opened with.
func (c *Cache) Path() string {
	return c.path
}

// Size returns the file size observed at Open.
func (c *Cache) Size() int64 {
	return c.size
}

// PageSize returns the cache page size.
func (c *Cache) PageSize() int64 {
	return c.pageSize
}

// MaxBytes returns the resident byte limit.
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// Resident returns the number of bytes currently held by resident pages.
func (c *Cache) Resident() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resident
}

// PageStart returns the offset of the page containing offset.
func (c *Cache) PageStart(offset int64) int64 {
	return offset - offset%c.pageSize
}

// Fetch pins the page containing offset and returns it together with the
// bytes [offset, offset+length) clipped to the end of that page. The returned
// slice stays valid until the page is passed to Release.
//
// A read failure or end of file produces a short page, never an error.
func (c *Cache) Fetch(offset, length int64) (*Page, []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refs <= 0 {
		panic("filecache: fetch on closed cache " + c.path)
	}
	pageOff := c.PageStart(offset)

	p, ok := c.pages[pageOff]
	if ok {
		c.hits++
		c.pin(p)
	} else {
		c.misses++
		p = c.load(pageOff)
		p.refs = 1
		p.elem = c.active.PushFront(p)
		c.pages[pageOff] = p
		c.resident += int64(len(p.data))
		c.cleanup()
	}

	start := offset - pageOff
	if start > int64(len(p.data)) {
		start = int64(len(p.data))
	}
	end := start + length
	if end > int64(len(p.data)) {
		end = int64(len(p.data))
	}
	return p, p.data[start:end]
}

// pin takes a reference on a resident page, moving it to the front of the
// active list.
func (c *Cache) pin(p *Page) {
	if p.refs == 0 {
		c.inactive.Remove(p.elem)
		p.elem = c.active.PushFront(p)
	} else {
		c.active.MoveToFront(p.elem)
	}
	p.refs++
}

// load reads one page from disk.
func (c *Cache) load(pageOff int64) *Page {
	p := &Page{offset: pageOff}
	p.charged = c.charge(c.pageSize)

	buf := make([]byte, c.pageSize)
	n, err := c.file.ReadAt(buf, pageOff)
	if err != nil && !errors.Is(err, io.EOF) {
		c.log.Warn("page read failed", "offset", pageOff, "read", n, "error", err)
	}
	p.data = buf[:n]
	if p.charged && int64(n) < c.pageSize {
		c.budget.Credit(c.pageSize - int64(n))
	}
	c.log.Debug("page loaded", "offset", pageOff, "bytes", n)
	return p
}

// charge reserves n bytes from the shared budget, evicting this cache's own
// inactive pages to make room. It reports whether the bytes were reserved.
func (c *Cache) charge(n int64) bool {
	if c.budget == nil {
		return false
	}
	for !c.budget.TryCharge(n) {
		if !c.evictOne() {
			c.log.Debug("budget exhausted, loading uncharged page", "budget_used", c.budget.Used())
			return false
		}
	}
	return true
}

// Release drops one pin on a page obtained from Fetch. When the last pin is
// dropped the page becomes eligible for eviction but stays resident.
func (c *Cache) Release(p *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.refs <= 0 {
		panic("filecache: release of unpinned page")
	}
	p.refs--
	if p.refs > 0 {
		return
	}
	c.active.Remove(p.elem)
	p.elem = c.inactive.PushFront(p)
}

// Cleanup evicts least recently used inactive pages until resident bytes are
// within the limit or no inactive page remains. Pinned pages are never
// considered.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup()
}

func (c *Cache) cleanup() {
	for c.resident > c.maxBytes {
		if !c.evictOne() {
			return
		}
	}
}

// evictOne removes the least recently used inactive page.
func (c *Cache) evictOne() bool {
	e := c.inactive.Back()
	if e == nil {
		return false
	}
	p := e.Value.(*Page)
	if p.refs != 0 {
		panic("filecache: pinned page on inactive list")
	}
	c.drop(p)
	c.evictions++
	c.log.Debug("page evicted", "offset", p.offset, "resident", c.resident)
	return true
}

// drop unindexes a page and returns its memory.
func (c *Cache) drop(p *Page) {
	if p.refs == 0 {
		c.inactive.Remove(p.elem)
	} else {
		c.active.Remove(p.elem)
	}
	delete(c.pages, p.offset)
	c.resident -= int64(len(p.data))
	if p.charged {
		c.budget.Credit(int64(len(p.data)))
	}
	if c.file != nil {
		adviseDontNeed(c.file, p.offset, c.pageSize)
	}
	p.elem = nil
	p.data = nil
}

// Modified reports whether the file's modification time or size differs from
// the snapshot taken at Open (or the last Resync). A file that can no longer
// be stat'ed counts as modified.
func (c *Cache) Modified() bool {
	info, err := os.Stat(c.path)
	if err != nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !info.ModTime().Equal(c.modTime) || info.Size() != c.size
}

// Resync re-records the modification time of the path. The cache keeps
// reading through the descriptor it opened, so this is only correct after the
// path was replaced by a rename that left the original inode intact.
func (c *Cache) Resync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info, err := os.Stat(c.path); err == nil {
		c.modTime = info.ModTime()
		c.size = info.Size()
	}
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		ResidentBytes: c.resident,
		ActivePages:   c.active.Len(),
		InactivePages: c.inactive.Len(),
	}
}

// Refs returns the cache reference count.
func (c *Cache) Refs() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// Ref takes an additional reference on the cache.
func (c *Cache) Ref() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs <= 0 {
		panic("filecache: ref on closed cache " + c.path)
	}
	c.refs++
}

// Close drops one reference. The file is closed and every page freed when
// the count reaches zero.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs <= 0 {
		panic("filecache: reference count underflow on " + c.path)
	}
	c.refs--
	if c.refs > 0 {
		return nil
	}

	for _, p := range c.pages {
		c.drop(p)
	}
	err := c.file.Close()
	c.file = nil
	c.log.Debug("cache closed", "hits", c.hits, "misses", c.misses, "evictions", c.evictions)
	if err != nil {
		return fmt.Errorf("closing %s: %w", c.path, err)
	}
	return nil
}
