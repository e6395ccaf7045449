package graph

import "log/slog"

// GraphOption configures a [Graph] at construction time, following the same
// functional-option shape as fox's router options.
type GraphOption interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	logHandler      slog.Handler
	internShards    int
	maxDepthHint    uint32
	atomFormat      func(any) string
}

func defaultConfig() *config {
	return &config{
		internShards: 0, // use xsync's default initial size
		maxDepthHint: 16,
	}
}

// WithLogHandler attaches a [slog.Handler] that receives one summary record
// per Insert, Search and ReadSequence call, plus one Debug record when
// InsertOrGetComplete hands a root to the split engine (see SPEC_FULL.md
// §2.1). Comparison steps and traversal batches are not logged. If unset,
// the graph emits no log records at all.
func WithLogHandler(h slog.Handler) GraphOption {
	return optionFunc(func(c *config) {
		c.logHandler = h
	})
}

// WithInterningShardCount presizes the atom-interning and pattern-signature
// concurrent maps to hold about n entries before they grow. Zero (the
// default) keeps the underlying map's default initial size.
func WithInterningShardCount(n int) GraphOption {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.internShards = n
		}
	})
}

// WithMaxDepthHint records a depth hint n on the graph's configuration. The
// search driver and traversal policy do not read it, so it does not change
// how their work queues or trace caches are allocated.
func WithMaxDepthHint(n uint32) GraphOption {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.maxDepthHint = n
		}
	})
}

// WithAtomFormatter stores a formatter on the graph's configuration. No
// method of this package calls it: Graph has no String method and no log
// record formats atoms with it, and comparison logic never uses it.
func WithAtomFormatter[A any](f func(A) string) GraphOption {
	return optionFunc(func(c *config) {
		c.atomFormat = func(a any) string { return f(a.(A)) }
	})
}
