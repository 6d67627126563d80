package buffer

import "errors"

// Errors returned by document operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrEditsOverlap     = errors.New("edits overlap or are not in reverse order")
	ErrClosed           = errors.New("document is closed")
	ErrNoPath           = errors.New("document has no file path")
)
