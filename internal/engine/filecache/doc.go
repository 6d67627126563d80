// Package filecache provides a per-file LRU page cache used by file-backed
// buffer fragments.
//
// A Cache holds page-aligned chunks of one file. Pages that are pinned by a
// caller live on the active list; when the last pin is released a page moves
// to the inactive list, where it stays resident until Cleanup needs the
// memory. Only inactive pages are ever evicted.
//
// Basic usage:
//
//	c, err := filecache.Open("big.log", filecache.WithMaxBytes(1<<20))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	page, b := c.Fetch(4096, 100)
//	use(b)
//	c.Release(page)
//
// A Cache is safe for concurrent use, so trees on different goroutines may
// read through the same file. Several caches may share one Budget.
package filecache
