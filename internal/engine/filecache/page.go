package filecache

import "container/list"

// Page is a resident, page-aligned chunk of the cached file.
type Page struct {
	offset  int64
	data    []byte
	refs    int
	charged bool
	elem    *list.Element
}

// Offset returns the file offset of the first byte of the page.
func (p *Page) Offset() int64 {
	return p.offset
}

// Len returns the number of bytes held by the page. It is shorter than the
// page size for the final page of the file.
func (p *Page) Len() int {
	return len(p.data)
}

// Pinned reports whether any caller currently holds the page.
func (p *Page) Pinned() bool {
	return p.refs > 0
}
