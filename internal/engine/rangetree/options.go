package rangetree

import "github.com/dshills/rangebuf/internal/engine/fragment"

// Default configuration values.
const (
	DefaultMaxNodeSize = 4096
	DefaultShrinkRatio = 0.5
)

type options struct {
	maxNodeSize uint64
	shrinkRatio float64
	alloc       fragment.Allocator
}

func defaultOptions() options {
	return options{
		maxNodeSize: DefaultMaxNodeSize,
		shrinkRatio: DefaultShrinkRatio,
		alloc:       fragment.Heap,
	}
}

// Option configures a Tree during creation.
type Option func(*options)

// WithMaxNodeSize bounds the size of leaves produced by inserts and fuse.
func WithMaxNodeSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxNodeSize = uint64(n)
		}
	}
}

// WithShrinkRatio sets when a trimmed, unshared memory fragment is
// reallocated: once the leaf uses less than ratio of the fragment. Zero
// disables shrinking.
func WithShrinkRatio(ratio float64) Option {
	return func(o *options) {
		if ratio >= 0 && ratio <= 1 {
			o.shrinkRatio = ratio
		}
	}
}

// WithAllocator sets the allocator for memory fragments the tree creates.
func WithAllocator(a fragment.Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.alloc = a
		}
	}
}
