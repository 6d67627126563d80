package filecache

import "errors"

// Errors returned by cache operations.
var (
	// ErrNotRegular indicates the path does not name a regular file.
	ErrNotRegular = errors.New("not a regular file")

	// ErrInvalidPageSize indicates a page size that is zero or not a power of two.
	ErrInvalidPageSize = errors.New("page size must be a positive power of two")
)
