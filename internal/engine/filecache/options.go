package filecache

import "log/slog"

// Default configuration values.
const (
	DefaultPageSize = 16 * 1024
	DefaultMaxBytes = 8 * 1024 * 1024
)

// Option configures a Cache during Open.
type Option func(*Cache)

// WithPageSize sets the page size. It must be a power of two.
func WithPageSize(size int) Option {
	return func(c *Cache) {
		c.pageSize = int64(size)
	}
}

// WithMaxBytes sets the resident byte limit enforced by Cleanup.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithBudget charges resident pages against a budget shared with other caches.
func WithBudget(b *Budget) Option {
	return func(c *Cache) {
		c.budget = b
	}
}

// WithLogger sets the logger used for page traffic and read failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}
