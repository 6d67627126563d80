package buffer

import (
	"log/slog"

	"github.com/dshills/rangebuf/internal/engine/filecache"
	"github.com/dshills/rangebuf/internal/engine/rangetree"
)

type options struct {
	pageSize      int
	maxCacheBytes int64
	budget        *filecache.Budget
	maxNodeSize   int
	shrinkRatio   float64
	watch         bool
	log           *slog.Logger
}

func defaultOptions() options {
	return options{
		pageSize:      filecache.DefaultPageSize,
		maxCacheBytes: filecache.DefaultMaxBytes,
		maxNodeSize:   rangetree.DefaultMaxNodeSize,
		shrinkRatio:   rangetree.DefaultShrinkRatio,
		log:           slog.New(slog.DiscardHandler),
	}
}

// Option is a functional option for configuring a Document.
type Option func(*options)

// WithPageSize sets the file cache page size. It must be a power of two.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithMaxCacheBytes bounds the resident bytes of the document's file cache.
func WithMaxCacheBytes(n int64) Option {
	return func(o *options) {
		o.maxCacheBytes = n
	}
}

// WithBudget charges cache pages to a budget shared with other documents.
func WithBudget(b *filecache.Budget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// WithMaxNodeSize bounds the size of leaves produced by edits.
func WithMaxNodeSize(n int) Option {
	return func(o *options) {
		o.maxNodeSize = n
	}
}

// WithShrinkRatio sets when trimmed memory fragments are reallocated.
func WithShrinkRatio(r float64) Option {
	return func(o *options) {
		o.shrinkRatio = r
	}
}

// WithWatch enables filesystem notifications for the backing file.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithLogger sets the document logger. A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func (o *options) treeOptions() []rangetree.Option {
	return []rangetree.Option{
		rangetree.WithMaxNodeSize(o.maxNodeSize),
		rangetree.WithShrinkRatio(o.shrinkRatio),
	}
}

func (o *options) cacheOptions() []filecache.Option {
	opts := []filecache.Option{
		filecache.WithPageSize(o.pageSize),
		filecache.WithMaxBytes(o.maxCacheBytes),
		filecache.WithLogger(o.log),
	}
	if o.budget != nil {
		opts = append(opts, filecache.WithBudget(o.budget))
	}
	return opts
}
